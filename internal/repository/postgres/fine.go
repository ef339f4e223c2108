package postgres

import (
	"context"
	"time"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/repository"
)

type fineRepository struct {
	db DBTX
}

func NewFineRepository(db DBTX) repository.FineRepository {
	return &fineRepository{db: db}
}

const fineColumns = `id, user_id, book_code, order_id, overdue_days, amount_cents, status, created_at, decided_by, decided_on`

func (r *fineRepository) Create(ctx context.Context, f *domain.Fine) error {
	query := `INSERT INTO fines (user_id, book_code, order_id, overdue_days, amount_cents, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	err := r.db.QueryRowContext(ctx, query, f.UserID, f.BookCode, f.OrderID, f.OverdueDays, f.AmountCents, f.Status, f.CreatedAt).Scan(&f.ID)
	return mapError(err, "fine", f.UserID)
}

func (r *fineRepository) GetByID(ctx context.Context, id int32) (*domain.Fine, error) {
	f, err := scanFine(r.db.QueryRowContext(ctx, `SELECT `+fineColumns+` FROM fines WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "fine", id)
	}
	return f, nil
}

func (r *fineRepository) GetPendingByOrder(ctx context.Context, orderID int32) (*domain.Fine, error) {
	f, err := scanFine(r.db.QueryRowContext(ctx, `SELECT `+fineColumns+` FROM fines WHERE order_id = $1 AND status = 'PENDING'`, orderID))
	if err != nil {
		return nil, mapError(err, "fine for order", orderID)
	}
	return f, nil
}

func (r *fineRepository) UpdateAssessment(ctx context.Context, id int32, overdueDays int32, amountCents int64) error {
	query := `UPDATE fines SET overdue_days = $1, amount_cents = $2 WHERE id = $3 AND status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, query, overdueDays, amountCents, id)
	if err != nil {
		return mapError(err, "fine", id)
	}
	return affectedOne(res, "fine", id)
}

func (r *fineRepository) List(ctx context.Context) ([]domain.Fine, error) {
	return r.query(ctx, `SELECT `+fineColumns+` FROM fines ORDER BY created_at DESC`)
}

func (r *fineRepository) ListByUser(ctx context.Context, userID int32) ([]domain.Fine, error) {
	return r.query(ctx, `SELECT `+fineColumns+` FROM fines WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *fineRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Fine, error) {
	return r.query(ctx, `SELECT `+fineColumns+` FROM fines WHERE status = 'PENDING' AND created_at < $1 ORDER BY created_at`, cutoff)
}

func (r *fineRepository) Decide(ctx context.Context, id int32, status domain.FinanceStatus, actorID int32) error {
	return decideFinance(ctx, r.db, "fines", "fine", id, status, actorID, time.Now().UTC())
}

func (r *fineRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM fines WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "fine", id)
	}
	return affectedOne(res, "fine", id)
}

func (r *fineRepository) query(ctx context.Context, query string, args ...any) ([]domain.Fine, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "fine", "list")
	}
	defer rows.Close()

	var fines []domain.Fine
	for rows.Next() {
		f, err := scanFine(rows)
		if err != nil {
			return nil, mapError(err, "fine", "list")
		}
		fines = append(fines, *f)
	}
	return fines, rows.Err()
}

func scanFine(row rowScanner) (*domain.Fine, error) {
	f := &domain.Fine{}
	err := row.Scan(&f.ID, &f.UserID, &f.BookCode, &f.OrderID, &f.OverdueDays, &f.AmountCents, &f.Status, &f.CreatedAt, &f.DecidedBy, &f.DecidedOn)
	if err != nil {
		return nil, err
	}
	return f, nil
}
