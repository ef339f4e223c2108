package postgres

import (
	"context"
	"time"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/repository"
)

type paymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, payment_code, code_id, buyer_id, giver_id, book_code, amount_cents, status, date, decided_by, decided_on`

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `INSERT INTO payments (payment_code, code_id, buyer_id, giver_id, book_code, amount_cents, status, date)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if p.Date.IsZero() {
		p.Date = time.Now().UTC()
	}
	err := r.db.QueryRowContext(ctx, query, p.PaymentCode, p.CodeID, p.BuyerID, p.GiverID, p.BookCode, p.AmountCents, p.Status, p.Date).Scan(&p.ID)
	return mapError(err, "payment", p.PaymentCode)
}

func (r *paymentRepository) GetByID(ctx context.Context, id int32) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "payment", id)
	}
	return p, nil
}

func (r *paymentRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Payment, error) {
	logger.DatabaseCall("SELECT FOR UPDATE", "payments", "id", id)
	p, err := scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, "payment", id)
	}
	return p, nil
}

func (r *paymentRepository) List(ctx context.Context) ([]domain.Payment, error) {
	return r.query(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY date DESC`)
}

func (r *paymentRepository) ListByUser(ctx context.Context, userID int32) ([]domain.Payment, error) {
	return r.query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE buyer_id = $1 OR giver_id = $1 ORDER BY date DESC`, userID)
}

func (r *paymentRepository) Decide(ctx context.Context, id int32, status domain.FinanceStatus, actorID int32) error {
	return decideFinance(ctx, r.db, "payments", "payment", id, status, actorID, time.Now().UTC())
}

func (r *paymentRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "payment", id)
	}
	return affectedOne(res, "payment", id)
}

func (r *paymentRepository) query(ctx context.Context, query string, args ...any) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "payment", "list")
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, mapError(err, "payment", "list")
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(&p.ID, &p.PaymentCode, &p.CodeID, &p.BuyerID, &p.GiverID, &p.BookCode, &p.AmountCents, &p.Status, &p.Date, &p.DecidedBy, &p.DecidedOn)
	if err != nil {
		return nil, err
	}
	return p, nil
}
