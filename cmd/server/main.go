package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcapi "musicclub-backend/internal/api/grpc"
	httpapi "musicclub-backend/internal/api/http"
	"musicclub-backend/internal/config"
	"musicclub-backend/internal/logger"
	"musicclub-backend/internal/repository/postgres"
	"musicclub-backend/internal/roster"
	"musicclub-backend/internal/security"
	"musicclub-backend/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Music Club Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http", cfg.GetServerAddress(), "grpc", cfg.GetGRPCAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	logger.Info("Roster configuration", "enabled", cfg.Roster.Enabled, "spreadsheet", cfg.Roster.SpreadsheetID, "timeout", cfg.Roster.Timeout())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)
	if cfg.Database.EnsureSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to apply schema: %v", err)
		}
		logger.Info("Database schema ensured")
	}

	// Initialize Roster
	var checker roster.Checker
	if cfg.Roster.Enabled {
		src, err := newRosterSource(ctx, cfg.Roster)
		if err != nil {
			logger.Error("Failed to initialize roster", "error", err)
			log.Fatalf("Failed to initialize roster: %v", err)
		}
		checker = roster.WithTimeout(roster.NewSourceChecker(src, store.MemberRepository), cfg.Roster.Timeout())
	}

	// Initialize Services
	emailQueue := service.NewEmailQueue(
		service.NewEmailService(cfg.Email.SendGridAPIKey, cfg.Email.FromEmail, cfg.Email.FromName),
		cfg.Email.QueueWorkers,
		cfg.Email.QueueSize,
		cfg.Email.MaxRetries,
	)
	emailQueue.Start(ctx)
	var emailSvc service.EmailService = emailQueue

	validator, err := service.NewIdentityValidator(store.ApplicationRepository, store.AccountRepository, cfg.Application.StudentNumberPattern)
	if err != nil {
		log.Fatalf("Failed to initialize validator: %v", err)
	}
	appSvc := service.NewApplicationService(store.ApplicationRepository, validator, checker, cfg.Roster.Enabled, emailSvc)
	if cfg.Application.ProvisionAccounts {
		appSvc.Subscribe(service.NewAccountProvisioner(store.AccountRepository, appSvc, emailSvc))
		logger.Info("Account provisioning enabled")
	}

	tokenManager := security.NewTokenManager(cfg.JWT.Secret)

	// Set up gRPC health server
	health := grpcapi.NewHealthReporter(db, 15*time.Second)
	go health.Run(ctx)
	grpcServer := grpcapi.NewServer(health)
	lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
		log.Fatalf("Failed to listen: %v", err)
	}
	go func() {
		logger.Info("gRPC health server listening", "address", cfg.GetGRPCAddress())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", "error", err)
		}
	}()

	// Set up HTTP server
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           httpapi.NewRouter(appSvc, tokenManager, db, cfg.Server.TrustProxyHeaders),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("Server stopped")
}

func newRosterSource(ctx context.Context, cfg config.RosterConfig) (*roster.SheetsSource, error) {
	svc, err := roster.NewSheetsService(ctx, cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return roster.NewSheetsSource(svc, cfg.SpreadsheetID, cfg.Range, roster.Columns{
		StudentNumber: cfg.StudentNumberColumn,
		FullName:      cfg.NameColumn,
		Department:    cfg.DepartmentColumn,
		Email:         cfg.EmailColumn,
	}), nil
}
