package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := NewNotFoundError("order", 12)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "NotFound: order 12 not found", err.Error())

	wrapped := fmt.Errorf("approve: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestError_InsufficientSentinels(t *testing.T) {
	assert.True(t, errors.Is(ErrInsufficientFunds, ErrConflict))
	assert.True(t, errors.Is(ErrInsufficientStock, ErrValidation))
	assert.False(t, errors.Is(NewConflictError("taken"), ErrInsufficientFunds))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "InvalidTransition", KindOf(NewInvalidTransitionError("order", OrderStatusRejected, OrderStatusApproved)).String())
}
