package security

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookbridge-backend/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour, "bookbridge")
	user := &domain.User{ID: 42, Email: "asha@campus.edu", Role: domain.UserRoleStudent}

	token, expiresAt, err := tm.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int32(42), claims.UserID)
	assert.Equal(t, domain.UserRoleStudent, claims.Role)
	assert.False(t, claims.IsAdmin())
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour, "bookbridge")
	user := &domain.User{ID: 1, Email: "admin@campus.edu", Role: domain.UserRoleAdmin}

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewTokenManager("ffffffffffffffffffffffffffffffff", time.Hour, "bookbridge")
		token, _, err := other.GenerateAccessToken(user)
		require.NoError(t, err)
		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		expired := &tokenManager{secret: []byte(testSecret), ttl: time.Minute, issuer: "bookbridge",
			now: func() time.Time { return time.Now().Add(-time.Hour) }}
		token, _, err := expired.GenerateAccessToken(user)
		require.NoError(t, err)
		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("ForgedRole", func(t *testing.T) {
		claims := UserClaims{UserID: 1, Role: "ROOT", RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "bookbridge",
			Audience:  jwt.ClaimStrings{accessAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := tm.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
	assert.False(t, CheckPassword("not-a-hash", "correct horse"))
}

func TestClaimsContext(t *testing.T) {
	student := &UserClaims{UserID: 5, Role: domain.UserRoleStudent}

	ctx := ContextWithClaims(context.Background(), student)
	assert.Equal(t, student, ClaimsFromContext(ctx))
	assert.Nil(t, ClaimsFromContext(context.Background()))
}
