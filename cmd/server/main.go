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

	_ "github.com/lib/pq"

	grpcapi "bookbridge-backend/internal/api/grpc"
	httpapi "bookbridge-backend/internal/api/http"
	"bookbridge-backend/internal/cache"
	"bookbridge-backend/internal/config"
	"bookbridge-backend/internal/events"
	"bookbridge-backend/internal/jobs"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/repository"
	"bookbridge-backend/internal/repository/memory"
	"bookbridge-backend/internal/repository/postgres"
	"bookbridge-backend/internal/scheduler"
	"bookbridge-backend/internal/security"
	"bookbridge-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// A missing .env is fine; real deployments set the environment directly
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("Ignoring .env: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting BookBridge Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "grpc_address", cfg.GetGRPCAddress())

	ctx := context.Background()

	// Initialize storage
	store, db := openStore(ctx, cfg)
	if db != nil {
		defer db.Close()
	}

	// Initialize side channels
	catalog := openCatalogCache(cfg)
	publisher := openPublisher(cfg)
	defer publisher.Close()
	emailSvc := newEmailService(cfg)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.AccessTokenTTL(), cfg.JWT.Issuer)

	// Initialize Services
	authSvc := service.NewAuthService(store, tokenManager)
	fineSvc := service.NewFineService(store, emailSvc, publisher, service.FinePolicy{
		DailyRateCents:    cfg.Fines.DailyRateCents,
		MaxAmountCents:    cfg.Fines.MaxAmountCents,
		ReminderAfterDays: cfg.Fines.ReminderAfterDays,
	})
	noteSvc := service.NewNotificationService(store, emailSvc, publisher)
	svc := httpapi.Services{
		Auth:          authSvc,
		Users:         service.NewUserService(store),
		Books:         service.NewBookService(store, catalog),
		Orders:        service.NewOrderService(store, catalog, emailSvc, publisher, cfg.Orders.LoanPeriodDays),
		Payments:      service.NewPaymentService(store, emailSvc, publisher),
		Refunds:       service.NewRefundService(store, emailSvc, publisher),
		Fines:         fineSvc,
		Wallets:       service.NewWalletService(store, emailSvc, publisher),
		Notifications: noteSvc,
		Tickets:       service.NewTicketService(store, emailSvc, publisher),
	}

	if cfg.Admin.BootstrapEmail != "" {
		if err := authSvc.EnsureBootstrapAdmin(ctx, cfg.Admin.BootstrapName, cfg.Admin.BootstrapEmail, cfg.Admin.BootstrapPassword); err != nil {
			logger.Error("Failed to bootstrap admin", "error", err)
			log.Fatalf("Failed to bootstrap admin: %v", err)
		}
	}

	// Set up HTTP server
	httpServer := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      httpapi.NewRouter(svc, tokenManager),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	// Set up gRPC health server
	grpcServer, health := grpcapi.NewServer()
	if addr := cfg.GetGRPCAddress(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", addr)
			log.Fatalf("Failed to listen: %v", err)
		}
		go func() {
			logger.Info("gRPC health server listening", "address", addr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("Failed to serve gRPC", "error", err)
			}
		}()
	}

	// Optional in-process scheduler; otherwise cmd/cronjob runs the jobs
	var cronScheduler *scheduler.Scheduler
	if cfg.Scheduler.InProcess {
		cronScheduler = scheduler.NewScheduler(jobs.NewJobRunner(cfg, fineSvc, noteSvc))
		cronScheduler.Start()
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down...")
	health.Shutdown()
	if cronScheduler != nil {
		cronScheduler.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("Server stopped. Goodbye!")
}

// openStore connects the configured backend. db is nil for the memory store.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, *sql.DB) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart")
		return memory.NewStore(), nil
	}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	db, err := postgres.Open(ctx, cfg.GetDatabaseConnectionString(), cfg.Database.MaxOpenConns)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(db); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}
	return postgres.NewStore(db), db
}

func openCatalogCache(cfg *config.Config) cache.CatalogCache {
	if cfg.Cache.Addr == "" {
		logger.Info("Catalog cache disabled")
		return cache.NewNoop()
	}
	rdb, err := cache.NewRedisClient(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)
	if err != nil {
		logger.Warn("Redis unavailable, catalog cache disabled", "error", err)
		return cache.NewNoop()
	}
	return cache.NewRedisCatalog(rdb, cfg.CacheTTL())
}

func openPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Info("Event publishing disabled")
		return events.NewNoop()
	}
	producer, err := events.NewSyncProducer(cfg.Kafka.Brokers)
	if err != nil {
		logger.Warn("Kafka unavailable, event publishing disabled", "error", err)
		return events.NewNoop()
	}
	return events.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

func newEmailService(cfg *config.Config) service.EmailService {
	if cfg.Email.SendGridAPIKey == "" {
		logger.Info("SendGrid API key not set, emails will only be logged")
		return service.NewLogEmailService()
	}
	return service.NewSendGridEmailService(cfg.Email.SendGridAPIKey, cfg.Email.FromEmail, cfg.Email.FromName)
}
