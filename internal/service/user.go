package service

import (
	"context"
	"strings"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/repository"
	"bookbridge-backend/internal/security"
	"bookbridge-backend/internal/validation"
)

type userService struct {
	store repository.Store
}

func NewUserService(store repository.Store) UserService {
	return &userService{store: store}
}

func (s *userService) Register(ctx context.Context, actor *Actor, in RegisterInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	v := validation.Violations{}
	validation.Length("name", in.Name, 2, 50, v)
	validation.Email("email", in.Email, v)
	if len(in.Password) < security.MinPasswordLength {
		v["password"] = "too_short"
	}
	if in.Phone != "" {
		validation.Digits("phone", in.Phone, 10, v)
	}
	if in.Role == "" {
		in.Role = domain.UserRoleStudent
	}
	if !in.Role.Valid() {
		v["role"] = "invalid"
	}
	if err := v.Err("invalid user"); err != nil {
		return nil, err
	}
	if in.Role == domain.UserRoleAdmin && (actor == nil || !actor.IsAdmin()) {
		return nil, domain.NewForbiddenError("only admins can create admin accounts")
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, domain.NewInternalError("hash password", err)
	}
	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Role:         in.Role,
		PasswordHash: hash,
	}

	err = s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		if err := tx.Users.Create(ctx, user); err != nil {
			return err
		}
		_, err := tx.Wallets.GetOrCreateForUser(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("User registered", "userID", user.ID, "role", user.Role)
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, actor Actor, id int32) (*domain.User, error) {
	if !actor.CanAccess(id) {
		return nil, domain.NewForbiddenError("cannot view another user's profile")
	}
	return s.store.Repos().Users.GetByID(ctx, id)
}

func (s *userService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.store.Repos().Users.List(ctx)
}
