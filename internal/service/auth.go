package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/repository"
	"bookbridge-backend/internal/security"
)

var errInvalidCredentials = domain.NewUnauthorizedError("invalid email or password")

type authService struct {
	store        repository.Store
	tokenManager security.TokenManager
}

func NewAuthService(store repository.Store, tokenManager security.TokenManager) AuthService {
	return &authService{store: store, tokenManager: tokenManager}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	logger.EnterMethod("authService.Login", "email", email)

	user, err := s.store.Repos().Users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.ExitMethod("authService.Login", "result", "unknown email")
			return nil, errInvalidCredentials
		}
		logger.ExitMethodWithError("authService.Login", err)
		return nil, err
	}
	if !security.CheckPassword(user.PasswordHash, password) {
		logger.ExitMethod("authService.Login", "result", "wrong password", "userID", user.ID)
		return nil, errInvalidCredentials
	}

	token, expiresAt, err := s.tokenManager.GenerateAccessToken(user)
	if err != nil {
		logger.ExitMethodWithError("authService.Login", err, "userID", user.ID)
		return nil, domain.NewInternalError("sign token", err)
	}

	logger.ExitMethod("authService.Login", "userID", user.ID)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *authService) EnsureBootstrapAdmin(ctx context.Context, name, email, password string) error {
	if email == "" {
		return nil
	}
	existing, err := s.store.Repos().Users.GetByEmail(ctx, email)
	if err == nil {
		if !existing.IsAdmin() {
			logger.Warn("Bootstrap admin email belongs to a non-admin account", "userID", existing.ID)
		}
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return domain.NewInternalError("hash password", err)
	}
	admin := &domain.User{Name: name, Email: email, Role: domain.UserRoleAdmin, PasswordHash: hash}
	err = s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		if err := tx.Users.Create(ctx, admin); err != nil {
			return err
		}
		_, err := tx.Wallets.GetOrCreateForUser(ctx, admin.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	logger.Info("Bootstrap admin created", "userID", admin.ID, "email", email)
	return nil
}
