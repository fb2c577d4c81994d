package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"musicclub-backend/internal/config"
	"musicclub-backend/internal/jobs"
	"musicclub-backend/internal/logger"
	"musicclub-backend/internal/repository/postgres"
	"musicclub-backend/internal/roster"
	"musicclub-backend/internal/scheduler"
	"musicclub-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'recheck-deferred-roster', 'import-roster', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Music Club Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Roster
	var (
		checker  roster.Checker
		importer jobs.RosterImporter
	)
	if cfg.Roster.Enabled {
		svc, err := roster.NewSheetsService(context.Background(), cfg.Roster.CredentialsFile)
		if err != nil {
			log.Fatalf("Failed to initialize roster: %v", err)
		}
		src := roster.NewSheetsSource(svc, cfg.Roster.SpreadsheetID, cfg.Roster.Range, roster.Columns{
			StudentNumber: cfg.Roster.StudentNumberColumn,
			FullName:      cfg.Roster.NameColumn,
			Department:    cfg.Roster.DepartmentColumn,
			Email:         cfg.Roster.EmailColumn,
		})
		checker = roster.WithTimeout(roster.NewSourceChecker(src, store.MemberRepository), cfg.Roster.Timeout())
		importer = roster.NewImporter(src, store.MemberRepository)
	}

	// Initialize Services
	emailSvc := service.NewEmailService(cfg.Email.SendGridAPIKey, cfg.Email.FromEmail, cfg.Email.FromName)
	validator, err := service.NewIdentityValidator(store.ApplicationRepository, store.AccountRepository, cfg.Application.StudentNumberPattern)
	if err != nil {
		log.Fatalf("Failed to initialize validator: %v", err)
	}
	appSvc := service.NewApplicationService(store.ApplicationRepository, validator, checker, cfg.Roster.Enabled, emailSvc)

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(appSvc, importer, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "recheck-deferred-roster":
		jobRunner.RecheckDeferredRoster()
	case "import-roster":
		jobRunner.ImportRoster()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - recheck-deferred-roster\n")
		fmt.Printf("  - import-roster\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
