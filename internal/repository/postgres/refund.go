package postgres

import (
	"context"
	"time"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/repository"
)

type refundRepository struct {
	db DBTX
}

func NewRefundRepository(db DBTX) repository.RefundRepository {
	return &refundRepository{db: db}
}

const refundColumns = `id, refund_code, payment_id, buyer_id, giver_id, description, amount_cents, status, request_date, decided_by, decided_on`

func (r *refundRepository) Create(ctx context.Context, rf *domain.Refund) error {
	query := `INSERT INTO refunds (refund_code, payment_id, buyer_id, giver_id, description, amount_cents, status, request_date)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if rf.RequestDate.IsZero() {
		rf.RequestDate = time.Now().UTC()
	}
	err := r.db.QueryRowContext(ctx, query, rf.RefundCode, rf.PaymentID, rf.BuyerID, rf.GiverID, rf.Description, rf.AmountCents, rf.Status, rf.RequestDate).Scan(&rf.ID)
	return mapError(err, "refund", rf.RefundCode)
}

func (r *refundRepository) GetByID(ctx context.Context, id int32) (*domain.Refund, error) {
	rf, err := scanRefund(r.db.QueryRowContext(ctx, `SELECT `+refundColumns+` FROM refunds WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "refund", id)
	}
	return rf, nil
}

func (r *refundRepository) List(ctx context.Context) ([]domain.Refund, error) {
	return r.query(ctx, `SELECT `+refundColumns+` FROM refunds ORDER BY request_date DESC`)
}

func (r *refundRepository) ListByUser(ctx context.Context, userID int32) ([]domain.Refund, error) {
	return r.query(ctx, `SELECT `+refundColumns+` FROM refunds WHERE buyer_id = $1 OR giver_id = $1 ORDER BY request_date DESC`, userID)
}

func (r *refundRepository) ListByPayment(ctx context.Context, paymentID int32) ([]domain.Refund, error) {
	return r.query(ctx, `SELECT `+refundColumns+` FROM refunds WHERE payment_id = $1 ORDER BY request_date DESC`, paymentID)
}

func (r *refundRepository) Decide(ctx context.Context, id int32, status domain.FinanceStatus, actorID int32) error {
	return decideFinance(ctx, r.db, "refunds", "refund", id, status, actorID, time.Now().UTC())
}

func (r *refundRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refunds WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "refund", id)
	}
	return affectedOne(res, "refund", id)
}

func (r *refundRepository) query(ctx context.Context, query string, args ...any) ([]domain.Refund, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "refund", "list")
	}
	defer rows.Close()

	var refunds []domain.Refund
	for rows.Next() {
		rf, err := scanRefund(rows)
		if err != nil {
			return nil, mapError(err, "refund", "list")
		}
		refunds = append(refunds, *rf)
	}
	return refunds, rows.Err()
}

func scanRefund(row rowScanner) (*domain.Refund, error) {
	rf := &domain.Refund{}
	err := row.Scan(&rf.ID, &rf.RefundCode, &rf.PaymentID, &rf.BuyerID, &rf.GiverID, &rf.Description, &rf.AmountCents, &rf.Status, &rf.RequestDate, &rf.DecidedBy, &rf.DecidedOn)
	if err != nil {
		return nil, err
	}
	return rf, nil
}
