package main

import (
	"context"
	"errors"
	"fmt"

	"bookbridge-backend/internal/config"
	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/repository"
	"bookbridge-backend/internal/service"
)

type SeedUser struct {
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
	Phone        string `yaml:"phone"`
	Password     string `yaml:"password"`
	Role         string `yaml:"role"`
	BalanceCents int64  `yaml:"balance_cents"`
}

type SeedBook struct {
	Code       string `yaml:"code"`
	Title      string `yaml:"title"`
	Author     string `yaml:"author"`
	PriceCents int64  `yaml:"price_cents"`
	Stock      int32  `yaml:"stock"`
	GiverEmail string `yaml:"giver_email"`
}

type SeedData struct {
	Users []SeedUser `yaml:"users"`
	Books []SeedBook `yaml:"books"`
}

type seedReport struct {
	usersCreated int
	booksCreated int
	skipped      int
}

type seeder struct {
	store   repository.Store
	auth    service.AuthService
	users   service.UserService
	books   service.BookService
	wallets service.WalletService
}

// run creates the bootstrap admin, then every user and book that does not exist yet.
// Starting balances are only granted to users created by this run.
func (s *seeder) run(ctx context.Context, admin config.AdminConfig, data *SeedData) (*seedReport, error) {
	if admin.BootstrapEmail == "" {
		return nil, errors.New("admin.bootstrap_email must be set to seed data")
	}
	if err := s.auth.EnsureBootstrapAdmin(ctx, admin.BootstrapName, admin.BootstrapEmail, admin.BootstrapPassword); err != nil {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	adminUser, err := s.store.Repos().Users.GetByEmail(ctx, admin.BootstrapEmail)
	if err != nil {
		return nil, fmt.Errorf("load admin: %w", err)
	}
	actor := service.Actor{UserID: adminUser.ID, Role: domain.UserRoleAdmin}

	report := &seedReport{}
	for i, u := range data.Users {
		logger.Info("Seeding user", "n", i+1, "of", len(data.Users), "email", u.Email)
		created, err := s.users.Register(ctx, &actor, service.RegisterInput{
			Name:     u.Name,
			Email:    u.Email,
			Phone:    u.Phone,
			Password: u.Password,
			Role:     domain.UserRole(u.Role),
		})
		if errors.Is(err, domain.ErrConflict) {
			report.skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", u.Email, err)
		}
		report.usersCreated++

		if u.BalanceCents > 0 {
			if _, err := s.wallets.AdjustUserBalance(ctx, actor, created.ID, u.BalanceCents, "seed"); err != nil {
				return nil, fmt.Errorf("balance for %s: %w", u.Email, err)
			}
		}
	}

	for _, b := range data.Books {
		in := service.BookInput{
			Code:       b.Code,
			Title:      b.Title,
			Author:     b.Author,
			PriceCents: b.PriceCents,
			Stock:      b.Stock,
		}
		if b.GiverEmail != "" {
			giver, err := s.store.Repos().Users.GetByEmail(ctx, b.GiverEmail)
			if err != nil {
				return nil, fmt.Errorf("book %s giver: %w", b.Code, err)
			}
			in.GiverID = &giver.ID
		}
		_, err := s.books.AddBook(ctx, actor, in)
		if errors.Is(err, domain.ErrConflict) {
			report.skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("book %s: %w", b.Code, err)
		}
		report.booksCreated++
	}
	return report, nil
}
