package memory

import (
	"context"
	"sort"
	"time"

	"bookbridge-backend/internal/domain"
)

type walletRepository struct{ h *handle }

func (r *walletRepository) GetOrCreateForUser(ctx context.Context, userID int32) (*domain.Wallet, error) {
	var out domain.Wallet
	err := r.h.run(func(d *data) error {
		for _, w := range d.wallets {
			if w.UserID != nil && *w.UserID == userID {
				out = w
				return nil
			}
		}
		uid := userID
		out = d.newWallet(&uid, domain.WalletTypeUser)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *walletRepository) GetOrCreateSystem(ctx context.Context) (*domain.Wallet, error) {
	var out domain.Wallet
	err := r.h.run(func(d *data) error {
		for _, w := range d.wallets {
			if w.Type == domain.WalletTypeSystem {
				out = w
				return nil
			}
		}
		out = d.newWallet(nil, domain.WalletTypeSystem)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *data) newWallet(userID *int32, typ domain.WalletType) domain.Wallet {
	now := time.Now().UTC()
	w := domain.Wallet{ID: d.next("wallets"), UserID: userID, Type: typ, CreatedOn: now, UpdatedOn: now}
	d.wallets[w.ID] = w
	return w
}

func (r *walletRepository) List(ctx context.Context) ([]domain.Wallet, error) {
	var out []domain.Wallet
	err := r.h.run(func(d *data) error {
		for _, w := range d.wallets {
			out = append(out, w)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *walletRepository) Apply(ctx context.Context, m domain.WalletMovement) (*domain.WalletEntry, error) {
	var entry domain.WalletEntry
	err := r.h.run(func(d *data) error {
		w, ok := d.wallets[m.WalletID]
		if !ok {
			return domain.NewNotFoundError("wallet", m.WalletID)
		}
		balance := w.BalanceCents + m.AmountCents
		if (m.AmountCents > 0 && balance < w.BalanceCents) || (m.AmountCents < 0 && balance > w.BalanceCents) {
			return domain.NewValidationError("wallet balance out of range", map[string]string{"amountCents": "out_of_range"})
		}
		if balance < 0 && !m.AllowNegative {
			return domain.ErrInsufficientFunds
		}
		now := time.Now().UTC()
		w.BalanceCents = balance
		w.UpdatedOn = now
		d.wallets[w.ID] = w

		entry = domain.WalletEntry{
			ID:                d.next("wallet_entries"),
			WalletID:          w.ID,
			AmountCents:       m.AmountCents,
			Type:              m.Type,
			Reference:         m.Reference,
			BalanceAfterCents: balance,
			CreatedOn:         now,
		}
		d.entries = append(d.entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *walletRepository) ListEntries(ctx context.Context, walletID int32, limit int32) ([]domain.WalletEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.WalletEntry
	err := r.h.run(func(d *data) error {
		for i := len(d.entries) - 1; i >= 0 && int32(len(out)) < limit; i-- {
			if d.entries[i].WalletID == walletID {
				out = append(out, d.entries[i])
			}
		}
		return nil
	})
	return out, err
}
