package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/repository"
)

type walletRepository struct {
	db DBTX
}

func NewWalletRepository(db DBTX) repository.WalletRepository {
	return &walletRepository{db: db}
}

const walletColumns = `id, user_id, wallet_type, balance_cents, created_on, updated_on`
const walletEntryColumns = `id, wallet_id, amount_cents, entry_type, reference, balance_after_cents, created_on`

func (r *walletRepository) GetOrCreateForUser(ctx context.Context, userID int32) (*domain.Wallet, error) {
	insert := `INSERT INTO wallets (user_id, wallet_type, balance_cents) VALUES ($1, 'USER', 0)
	           ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, userID); err != nil {
		return nil, mapError(err, "wallet", userID)
	}
	w, err := scanWallet(r.db.QueryRowContext(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID))
	if err != nil {
		return nil, mapError(err, "wallet", userID)
	}
	return w, nil
}

func (r *walletRepository) GetOrCreateSystem(ctx context.Context) (*domain.Wallet, error) {
	insert := `INSERT INTO wallets (user_id, wallet_type, balance_cents) VALUES (NULL, 'SYSTEM', 0)
	           ON CONFLICT (wallet_type) WHERE wallet_type = 'SYSTEM' DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert); err != nil {
		return nil, mapError(err, "wallet", "system")
	}
	w, err := scanWallet(r.db.QueryRowContext(ctx, `SELECT `+walletColumns+` FROM wallets WHERE wallet_type = 'SYSTEM'`))
	if err != nil {
		return nil, mapError(err, "wallet", "system")
	}
	return w, nil
}

func (r *walletRepository) List(ctx context.Context) ([]domain.Wallet, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+walletColumns+` FROM wallets ORDER BY id`)
	if err != nil {
		return nil, mapError(err, "wallet", "list")
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, mapError(err, "wallet", "list")
		}
		wallets = append(wallets, *w)
	}
	return wallets, rows.Err()
}

func (r *walletRepository) Apply(ctx context.Context, m domain.WalletMovement) (*domain.WalletEntry, error) {
	logger.EnterMethod("walletRepository.Apply", "walletID", m.WalletID, "amountCents", m.AmountCents, "type", m.Type)

	now := time.Now().UTC()
	update := `UPDATE wallets SET balance_cents = balance_cents + $1, updated_on = $2
	           WHERE id = $3 AND ($4 OR balance_cents + $1 >= 0)
	           RETURNING balance_cents`
	var balance int64
	logger.DatabaseCall("UPDATE", "wallets", "walletID", m.WalletID)
	err := r.db.QueryRowContext(ctx, update, m.AmountCents, now, m.WalletID, m.AllowNegative).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE id = $1)`, m.WalletID).Scan(&exists); err != nil {
			return nil, mapError(err, "wallet", m.WalletID)
		}
		if !exists {
			return nil, domain.NewNotFoundError("wallet", m.WalletID)
		}
		logger.ExitMethod("walletRepository.Apply", "walletID", m.WalletID, "result", "insufficient funds")
		return nil, domain.ErrInsufficientFunds
	}
	if err != nil {
		logger.ExitMethodWithError("walletRepository.Apply", err, "walletID", m.WalletID)
		return nil, mapError(err, "wallet", m.WalletID)
	}

	entry := &domain.WalletEntry{
		WalletID:          m.WalletID,
		AmountCents:       m.AmountCents,
		Type:              m.Type,
		Reference:         m.Reference,
		BalanceAfterCents: balance,
		CreatedOn:         now,
	}
	insert := `INSERT INTO wallet_entries (wallet_id, amount_cents, entry_type, reference, balance_after_cents, created_on)
	           VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err = r.db.QueryRowContext(ctx, insert, entry.WalletID, entry.AmountCents, entry.Type, entry.Reference, entry.BalanceAfterCents, entry.CreatedOn).Scan(&entry.ID)
	if err != nil {
		logger.ExitMethodWithError("walletRepository.Apply", err, "walletID", m.WalletID)
		return nil, mapError(err, "wallet entry", m.WalletID)
	}

	logger.ExitMethod("walletRepository.Apply", "walletID", m.WalletID, "balanceCents", balance)
	return entry, nil
}

func (r *walletRepository) ListEntries(ctx context.Context, walletID int32, limit int32) ([]domain.WalletEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + walletEntryColumns + ` FROM wallet_entries WHERE wallet_id = $1 ORDER BY created_on DESC, id DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, walletID, limit)
	if err != nil {
		return nil, mapError(err, "wallet entry", walletID)
	}
	defer rows.Close()

	var entries []domain.WalletEntry
	for rows.Next() {
		var e domain.WalletEntry
		if err := rows.Scan(&e.ID, &e.WalletID, &e.AmountCents, &e.Type, &e.Reference, &e.BalanceAfterCents, &e.CreatedOn); err != nil {
			return nil, mapError(err, "wallet entry", walletID)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanWallet(row rowScanner) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(&w.ID, &w.UserID, &w.Type, &w.BalanceCents, &w.CreatedOn, &w.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return w, nil
}
