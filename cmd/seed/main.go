package main

import (
	"context"
	"flag"
	"log"
	"os"

	_ "github.com/lib/pq"
	"gopkg.in/yaml.v3"

	"bookbridge-backend/internal/cache"
	"bookbridge-backend/internal/config"
	"bookbridge-backend/internal/events"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/repository/postgres"
	"bookbridge-backend/internal/security"
	"bookbridge-backend/internal/service"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	seedPath := flag.String("data", "config/seed.dev.yaml", "Path to seed data file")
	flag.Parse()

	// A missing .env is fine; real deployments set the environment directly
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("Ignoring .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatalf("Seeding needs the postgres driver, got %q", cfg.Database.Driver)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	data, err := readSeedFile(*seedPath)
	if err != nil {
		log.Fatalf("Failed to read seed file: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, cfg.GetDatabaseConnectionString(), cfg.Database.MaxOpenConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	store := postgres.NewStore(db)
	emailSvc := service.NewLogEmailService()
	publisher := events.NewNoop()
	s := &seeder{
		store:   store,
		auth:    service.NewAuthService(store, security.NewTokenManager(cfg.JWT.Secret, cfg.AccessTokenTTL(), cfg.JWT.Issuer)),
		users:   service.NewUserService(store),
		books:   service.NewBookService(store, cache.NewNoop()),
		wallets: service.NewWalletService(store, emailSvc, publisher),
	}

	report, err := s.run(ctx, cfg.Admin, data)
	if err != nil {
		log.Fatalf("Failed to populate data: %v", err)
	}
	logger.Info("Seed data populated", "users_created", report.usersCreated, "books_created", report.booksCreated, "skipped", report.skipped)
}

func readSeedFile(filename string) (*SeedData, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var data SeedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
