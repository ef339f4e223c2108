package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/repository"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every repository can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
	repository.Repositories
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:           db,
		Repositories: newRepositories(db),
	}
}

func newRepositories(db DBTX) repository.Repositories {
	return repository.Repositories{
		Users:         NewUserRepository(db),
		Books:         NewBookRepository(db),
		Orders:        NewOrderRepository(db),
		Payments:      NewPaymentRepository(db),
		Refunds:       NewRefundRepository(db),
		Fines:         NewFineRepository(db),
		Wallets:       NewWalletRepository(db),
		Notifications: NewNotificationRepository(db),
		Tickets:       NewTicketRepository(db),
	}
}

func (s *Store) Repos() repository.Repositories {
	return s.Repositories
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return domain.NewInternalError("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(newRepositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		logger.Error("Transaction commit failed", "error", err)
		return domain.NewInternalError("commit transaction", err)
	}
	return nil
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns / 2)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// mapError converts driver errors into domain errors.
func mapError(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewNotFoundError(resource, id)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return domain.NewConflictError(fmt.Sprintf("%s already exists", resource))
		case "23503": // foreign_key_violation
			return domain.NewValidationError(fmt.Sprintf("%s references a missing record", resource), nil)
		case "23514": // check_violation
			return domain.NewValidationError(fmt.Sprintf("%s violates a constraint", resource), nil)
		case "22003": // numeric_value_out_of_range
			return domain.NewValidationError(fmt.Sprintf("%s value out of range", resource), nil)
		}
	}
	return domain.NewInternalError(resource, err)
}

// affectedOne checks an Exec result for exactly one changed row.
func affectedOne(res sql.Result, resource string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewInternalError(resource, err)
	}
	if n == 0 {
		return domain.NewNotFoundError(resource, id)
	}
	return nil
}

// decideFinance runs the compare-and-set status update shared by payments,
// refunds and fines.
func decideFinance(ctx context.Context, db DBTX, table, resource string, id int32, status domain.FinanceStatus, actorID int32, now any) error {
	query := fmt.Sprintf(`UPDATE %s SET status = $1, decided_by = $2, decided_on = $3 WHERE id = $4 AND status = 'PENDING'`, table)
	logger.DatabaseCall("UPDATE", table, "id", id, "status", status)
	res, err := db.ExecContext(ctx, query, status, actorID, now, id)
	if err != nil {
		return mapError(err, resource, id)
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, err, "id", id)
	if err != nil {
		return domain.NewInternalError(resource, err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	err = db.QueryRowContext(ctx, fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, table), id).Scan(&exists)
	if err != nil {
		return mapError(err, resource, id)
	}
	if !exists {
		return domain.NewNotFoundError(resource, id)
	}
	return domain.NewConflictError(fmt.Sprintf("%s %d is no longer pending", resource, id))
}
