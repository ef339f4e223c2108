package postgres

import (
	"context"
	"encoding/json"
	"time"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/repository"
)

type orderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) repository.OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, order_code, user_id, customer_name, customer_contact, items, total_items, total_price_cents,
	status, approved_by, rejected_by, due_date, returned_on, created_at, updated_at`

func (r *orderRepository) Create(ctx context.Context, o *domain.Order) error {
	logger.EnterMethod("orderRepository.Create", "userID", o.UserID, "orderCode", o.OrderCode)

	items, err := json.Marshal(o.Items)
	if err != nil {
		logger.ExitMethodWithError("orderRepository.Create", err, "reason", "failed to marshal items")
		return domain.NewInternalError("marshal order items", err)
	}

	query := `INSERT INTO orders (order_code, user_id, customer_name, customer_contact, items, total_items, total_price_cents,
	              status, approved_by, rejected_by, due_date, returned_on, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	err = r.db.QueryRowContext(ctx, query, o.OrderCode, o.UserID, o.CustomerName, o.CustomerContact, items, o.TotalItems,
		o.TotalPriceCents, o.Status, o.ApprovedBy, o.RejectedBy, o.DueDate, o.ReturnedOn, now, now).Scan(&o.ID)
	if err != nil {
		logger.ExitMethodWithError("orderRepository.Create", err, "userID", o.UserID)
		return mapError(err, "order", o.OrderCode)
	}

	logger.ExitMethod("orderRepository.Create", "orderID", o.ID)
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int32) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "order", id)
	}
	return o, nil
}

func (r *orderRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Order, error) {
	logger.DatabaseCall("SELECT FOR UPDATE", "orders", "id", id)
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, "order", id)
	}
	return o, nil
}

func (r *orderRepository) Update(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return domain.NewInternalError("marshal order items", err)
	}
	query := `UPDATE orders SET customer_name = $1, customer_contact = $2, items = $3, total_items = $4, total_price_cents = $5,
	              status = $6, approved_by = $7, rejected_by = $8, due_date = $9, returned_on = $10, updated_at = $11
	          WHERE id = $12`
	o.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, query, o.CustomerName, o.CustomerContact, items, o.TotalItems, o.TotalPriceCents,
		o.Status, o.ApprovedBy, o.RejectedBy, o.DueDate, o.ReturnedOn, o.UpdatedAt, o.ID)
	if err != nil {
		return mapError(err, "order", o.ID)
	}
	return affectedOne(res, "order", o.ID)
}

func (r *orderRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "order", id)
	}
	return affectedOne(res, "order", id)
}

func (r *orderRepository) List(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	return r.queryOrders(ctx, query, args...)
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int32) ([]domain.Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *orderRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
	          WHERE status IN ('Approved', 'Completed')
	            AND due_date < $1
	            AND returned_on IS NULL
	          ORDER BY due_date`
	return r.queryOrders(ctx, query, asOf)
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "order", "list")
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, mapError(err, "order", "list")
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	o := &domain.Order{}
	var items []byte
	err := row.Scan(&o.ID, &o.OrderCode, &o.UserID, &o.CustomerName, &o.CustomerContact, &items, &o.TotalItems,
		&o.TotalPriceCents, &o.Status, &o.ApprovedBy, &o.RejectedBy, &o.DueDate, &o.ReturnedOn, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, err
		}
	}
	return o, nil
}
