package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	JWT         JWTConfig         `yaml:"jwt"`
	Roster      RosterConfig      `yaml:"roster"`
	Email       EmailConfig       `yaml:"email"`
	Application ApplicationConfig `yaml:"application"`
	Log         LogConfig         `yaml:"log"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"` // health endpoint
	// TrustProxyHeaders takes the client address from X-Forwarded-For.
	// Enable only behind a proxy that overwrites the header.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	EnsureSchema bool   `yaml:"ensure_schema"`
}

// JWTConfig contains the secret used to verify admin bearer tokens
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// RosterConfig controls the Google Sheets roster integration
type RosterConfig struct {
	Enabled             bool   `yaml:"enabled"`
	SpreadsheetID       string `yaml:"spreadsheet_id"`
	Range               string `yaml:"range"`
	CredentialsFile     string `yaml:"credentials_file"`
	TimeoutSeconds      int    `yaml:"timeout_seconds"`
	StudentNumberColumn string `yaml:"student_number_column"`
	NameColumn          string `yaml:"name_column"`
	DepartmentColumn    string `yaml:"department_column"`
	EmailColumn         string `yaml:"email_column"`
}

// Timeout bounds a single roster lookup.
func (r RosterConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// EmailConfig contains SendGrid settings. An empty API key disables sending.
type EmailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
	QueueWorkers   int    `yaml:"queue_workers"`
	QueueSize      int    `yaml:"queue_size"`
	MaxRetries     int    `yaml:"max_retries"`
}

// ApplicationConfig holds membership-application policy
type ApplicationConfig struct {
	StudentNumberPattern string `yaml:"student_number_pattern"`
	ProvisionAccounts    bool   `yaml:"provision_accounts"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	RecheckDeferredRoster string `yaml:"recheck_deferred_roster"`
	ImportRoster          string `yaml:"import_roster"`
	RecheckBatchSize      int    `yaml:"recheck_batch_size"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("SERVER_TRUST_PROXY_HEADERS"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Server.TrustProxyHeaders = b
		}
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Roster
	if val := os.Getenv("ROSTER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Roster.Enabled = b
		}
	}
	if val := os.Getenv("ROSTER_SPREADSHEET_ID"); val != "" {
		c.Roster.SpreadsheetID = val
	}
	if val := os.Getenv("ROSTER_CREDENTIALS_FILE"); val != "" {
		c.Roster.CredentialsFile = val
	}

	// Email
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Email.SendGridAPIKey = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort == 0 {
		c.Server.GRPCPort = c.Server.Port + 1
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	if c.Roster.Enabled {
		if c.Roster.SpreadsheetID == "" {
			return fmt.Errorf("roster spreadsheet id is required when roster is enabled")
		}
		if c.Roster.CredentialsFile == "" {
			return fmt.Errorf("roster credentials file is required when roster is enabled")
		}
	}
	if c.Roster.Range == "" {
		c.Roster.Range = "Members!A:Z"
	}
	if c.Roster.TimeoutSeconds <= 0 {
		c.Roster.TimeoutSeconds = 10
	}
	if c.Roster.StudentNumberColumn == "" {
		c.Roster.StudentNumberColumn = "student_number"
	}
	if c.Roster.NameColumn == "" {
		c.Roster.NameColumn = "full_name"
	}
	if c.Roster.DepartmentColumn == "" {
		c.Roster.DepartmentColumn = "department"
	}
	if c.Roster.EmailColumn == "" {
		c.Roster.EmailColumn = "email"
	}

	if c.Application.StudentNumberPattern != "" {
		if _, err := regexp.Compile(c.Application.StudentNumberPattern); err != nil {
			return fmt.Errorf("invalid student number pattern: %w", err)
		}
	}

	if c.Email.FromEmail == "" {
		c.Email.FromEmail = "no-reply@musicclub.local"
	}
	if c.Email.FromName == "" {
		c.Email.FromName = "Music Club"
	}
	if c.Email.QueueWorkers <= 0 {
		c.Email.QueueWorkers = 2
	}
	if c.Email.QueueSize <= 0 {
		c.Email.QueueSize = 100
	}
	if c.Email.MaxRetries < 0 {
		c.Email.MaxRetries = 0
	}

	if c.Scheduler.RecheckDeferredRoster == "" {
		c.Scheduler.RecheckDeferredRoster = "0 */30 * * * *" // every 30 minutes
	}
	if c.Scheduler.ImportRoster == "" {
		c.Scheduler.ImportRoster = "0 0 3 * * *" // 3 AM UTC
	}
	if c.Scheduler.RecheckBatchSize <= 0 {
		c.Scheduler.RecheckBatchSize = 100
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC health server address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}
