package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookbridge-backend/internal/cache"
	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/repository/memory"
	"bookbridge-backend/internal/security"
	"bookbridge-backend/internal/service"
)

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("StudentSignUp", func(t *testing.T) {
		u, err := f.users.Register(ctx, nil, service.RegisterInput{
			Name:     "Carol Chen",
			Email:    "carol@example.com",
			Phone:    "0123456789",
			Password: "secret-pass",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.UserRoleStudent, u.Role)
		assert.NotEqual(t, "secret-pass", u.PasswordHash)

		w, err := f.wallets.GetUserWallet(ctx, service.Actor{UserID: u.ID, Role: u.Role}, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), w.BalanceCents)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		_, err := f.users.Register(ctx, nil, service.RegisterInput{Name: "Alice Two", Email: "ALICE@example.com", Password: "secret-pass"})
		assert.True(t, errors.Is(err, domain.ErrConflict))
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := f.users.Register(ctx, nil, service.RegisterInput{Name: "D", Email: "not-an-email", Phone: "12ab", Password: "short"})
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, domain.KindValidation, de.Kind)
		assert.Len(t, de.Fields, 4)
	})

	t.Run("OnlyAdminsCreateAdmins", func(t *testing.T) {
		in := service.RegisterInput{Name: "Eve Admin", Email: "eve@example.com", Password: "secret-pass", Role: domain.UserRoleAdmin}
		_, err := f.users.Register(ctx, nil, in)
		assert.True(t, errors.Is(err, domain.ErrForbidden))
		_, err = f.users.Register(ctx, &f.alice, in)
		assert.True(t, errors.Is(err, domain.ErrForbidden))

		u, err := f.users.Register(ctx, &f.admin, in)
		require.NoError(t, err)
		assert.True(t, u.IsAdmin())
	})

	t.Run("GetUserOwnership", func(t *testing.T) {
		_, err := f.users.GetUser(ctx, f.alice, f.bob.UserID)
		assert.True(t, errors.Is(err, domain.ErrForbidden))
		u, err := f.users.GetUser(ctx, f.admin, f.bob.UserID)
		require.NoError(t, err)
		assert.Equal(t, "Bob", u.Name)
	})
}

func TestAuthService(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	tokens := security.NewTokenManager("test-secret", time.Hour, "bookbridge")
	auth := service.NewAuthService(store, tokens)

	require.NoError(t, auth.EnsureBootstrapAdmin(ctx, "Library Admin", "admin@bookbridge.test", "admin-pass"))
	require.NoError(t, auth.EnsureBootstrapAdmin(ctx, "Library Admin", "admin@bookbridge.test", "other-pass"))

	users, err := store.Repos().Users.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)

	t.Run("Success", func(t *testing.T) {
		res, err := auth.Login(ctx, "admin@bookbridge.test", "admin-pass")
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		assert.True(t, res.ExpiresAt.After(time.Now()))

		claims, err := tokens.ValidateToken(res.Token)
		require.NoError(t, err)
		assert.Equal(t, users[0].ID, claims.UserID)
		assert.True(t, claims.IsAdmin())
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := auth.Login(ctx, "admin@bookbridge.test", "other-pass")
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		_, err := auth.Login(ctx, "nobody@bookbridge.test", "admin-pass")
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	})
}

func TestBookService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	books := service.NewBookService(f.store, cache.NewNoop())

	_, err := books.AddBook(ctx, f.alice, service.BookInput{Title: "No code"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	b, err := books.AddBook(ctx, f.alice, service.BookInput{Code: "CHEM-110", Title: "General Chemistry", PriceCents: 1200, Stock: 1, GiverID: &f.bob.UserID})
	require.NoError(t, err)
	require.NotNil(t, b.GiverID)
	assert.Equal(t, f.alice.UserID, *b.GiverID)

	_, err = books.AddBook(ctx, f.admin, service.BookInput{Code: "CHEM-110", Title: "Duplicate"})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	updated, err := books.SetStock(ctx, "CHEM-110", 4)
	require.NoError(t, err)
	assert.Equal(t, int32(4), updated.Stock)

	_, err = books.SetStock(ctx, "CHEM-110", -1)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	catalog, err := books.ListCatalog(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog, 1)
}
