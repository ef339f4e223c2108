package memory

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/repository"
)

func TestStore_WithinTxRollsBack(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Repos().Books.Create(ctx, &domain.Book{Code: "B-1", Title: "Physics", PriceCents: 100, Stock: 3}))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx repository.Repositories) error {
		require.NoError(t, tx.Books.Reserve(ctx, "B-1", 2))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	b, err := s.Repos().Books.GetByCode(ctx, "B-1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), b.Stock)
}

func TestStore_WithinTxCommits(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Repos().Books.Create(ctx, &domain.Book{Code: "B-1", Title: "Physics", PriceCents: 100, Stock: 3}))

	err := s.WithinTx(ctx, func(tx repository.Repositories) error {
		return tx.Books.Reserve(ctx, "B-1", 3)
	})
	require.NoError(t, err)

	err = s.Repos().Books.Reserve(ctx, "B-1", 1)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
}

func TestBookRepository_RejectsNonPositiveQuantity(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Repos().Books.Create(ctx, &domain.Book{Code: "B-1", Title: "Physics", PriceCents: 100, Stock: 3}))

	for _, qty := range []int32{0, -5} {
		assert.True(t, errors.Is(s.Repos().Books.Reserve(ctx, "B-1", qty), domain.ErrInvalidQuantity))
		assert.True(t, errors.Is(s.Repos().Books.Release(ctx, "B-1", qty), domain.ErrInvalidQuantity))
	}

	b, err := s.Repos().Books.GetByCode(ctx, "B-1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), b.Stock)
}

func TestWalletRepository_ConcurrentApply(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	w, err := s.Repos().Wallets.GetOrCreateForUser(ctx, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithinTx(ctx, func(tx repository.Repositories) error {
				_, err := tx.Wallets.Apply(ctx, domain.WalletMovement{WalletID: w.ID, AmountCents: 10, Type: domain.EntryTypeAdjustment})
				return err
			})
		}()
	}
	wg.Wait()

	wallets, err := s.Repos().Wallets.List(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.Equal(t, int64(500), wallets[0].BalanceCents)

	entries, err := s.Repos().Wallets.ListEntries(ctx, w.ID, 100)
	require.NoError(t, err)
	assert.Len(t, entries, 50)
	assert.Equal(t, int64(500), entries[0].BalanceAfterCents)
}

func TestWalletRepository_ApplyRejectsOverdraft(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	w, err := s.Repos().Wallets.GetOrCreateForUser(ctx, 1)
	require.NoError(t, err)

	_, err = s.Repos().Wallets.Apply(ctx, domain.WalletMovement{WalletID: w.ID, AmountCents: -1, Type: domain.EntryTypePaymentDebit})
	assert.True(t, errors.Is(err, domain.ErrInsufficientFunds))

	entry, err := s.Repos().Wallets.Apply(ctx, domain.WalletMovement{WalletID: w.ID, AmountCents: -1, Type: domain.EntryTypeFineDebit, AllowNegative: true})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), entry.BalanceAfterCents)
}

func TestWalletRepository_ApplyRejectsOverflow(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	w, err := s.Repos().Wallets.GetOrCreateForUser(ctx, 1)
	require.NoError(t, err)

	_, err = s.Repos().Wallets.Apply(ctx, domain.WalletMovement{WalletID: w.ID, AmountCents: math.MaxInt64, Type: domain.EntryTypeAdjustment})
	require.NoError(t, err)
	_, err = s.Repos().Wallets.Apply(ctx, domain.WalletMovement{WalletID: w.ID, AmountCents: 1, Type: domain.EntryTypeAdjustment})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = s.Repos().Wallets.Apply(ctx, domain.WalletMovement{WalletID: w.ID, AmountCents: math.MinInt64, Type: domain.EntryTypeFineDebit, AllowNegative: true})
	require.NoError(t, err)
	_, err = s.Repos().Wallets.Apply(ctx, domain.WalletMovement{WalletID: w.ID, AmountCents: math.MinInt64, Type: domain.EntryTypeFineDebit, AllowNegative: true})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	wallets, err := s.Repos().Wallets.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), wallets[0].BalanceCents)
}

func TestFineRepository_OnePendingPerOrder(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	orderID := int32(4)

	require.NoError(t, s.Repos().Fines.Create(ctx, &domain.Fine{UserID: 1, OrderID: &orderID, AmountCents: 50, Status: domain.FinanceStatusPending}))
	err := s.Repos().Fines.Create(ctx, &domain.Fine{UserID: 1, OrderID: &orderID, AmountCents: 50, Status: domain.FinanceStatusPending})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestPaymentRepository_DecideOnce(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	p := &domain.Payment{PaymentCode: "P-1", BuyerID: 1, GiverID: 2, AmountCents: 100, Status: domain.FinanceStatusPending}
	require.NoError(t, s.Repos().Payments.Create(ctx, p))

	require.NoError(t, s.Repos().Payments.Decide(ctx, p.ID, domain.FinanceStatusApproved, 9))
	err := s.Repos().Payments.Decide(ctx, p.ID, domain.FinanceStatusRejected, 9)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	got, err := s.Repos().Payments.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FinanceStatusApproved, got.Status)
	require.NotNil(t, got.DecidedBy)
	assert.Equal(t, int32(9), *got.DecidedBy)
}
