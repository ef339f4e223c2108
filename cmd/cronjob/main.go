package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"slices"
	"syscall"

	_ "github.com/lib/pq"

	"bookbridge-backend/internal/config"
	"bookbridge-backend/internal/events"
	"bookbridge-backend/internal/jobs"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/repository/postgres"
	"bookbridge-backend/internal/scheduler"
	"bookbridge-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'assess-overdue-fines', 'all-nightly')")
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
	if cfg.Database.Driver != "postgres" {
		log.Fatalf("Cronjob runner needs the postgres driver, got %q", cfg.Database.Driver)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting BookBridge Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := postgres.Open(context.Background(), cfg.GetDatabaseConnectionString(), cfg.Database.MaxOpenConns)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	store := postgres.NewStore(db)

	// Initialize Services
	var emailService service.EmailService = service.NewLogEmailService()
	if cfg.Email.SendGridAPIKey != "" {
		emailService = service.NewSendGridEmailService(cfg.Email.SendGridAPIKey, cfg.Email.FromEmail, cfg.Email.FromName)
	}
	publisher := events.NewNoop()
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := events.NewSyncProducer(cfg.Kafka.Brokers)
		if err != nil {
			logger.Warn("Kafka unavailable, event publishing disabled", "error", err)
		} else {
			publisher = events.NewKafkaPublisher(producer, cfg.Kafka.Topic)
		}
	}
	defer publisher.Close()

	fineService := service.NewFineService(store, emailService, publisher, service.FinePolicy{
		DailyRateCents:    cfg.Fines.DailyRateCents,
		MaxAmountCents:    cfg.Fines.MaxAmountCents,
		ReminderAfterDays: cfg.Fines.ReminderAfterDays,
	})
	notificationService := service.NewNotificationService(store, emailService, publisher)

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(cfg, fineService, notificationService)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := runJobOnce(jobRunner, *runOnce); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
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

// runJobOnce runs a specific job once
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) error {
	if jobName == "all-nightly" {
		return jobRunner.RunAllNightlyJobs()
	}
	if !slices.Contains(jobs.Names(), jobName) {
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		for _, name := range jobs.Names() {
			fmt.Printf("  - %s\n", name)
		}
		fmt.Printf("  - all-nightly\n")
		return fmt.Errorf("unknown job %q", jobName)
	}
	return jobRunner.Run(jobName)
}
