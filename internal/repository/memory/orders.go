package memory

import (
	"context"
	"sort"
	"time"

	"bookbridge-backend/internal/domain"
)

type orderRepository struct{ h *handle }

func (r *orderRepository) Create(ctx context.Context, o *domain.Order) error {
	return r.h.run(func(d *data) error {
		if _, ok := d.users[o.UserID]; !ok {
			return domain.NewValidationError("order references a missing record", nil)
		}
		for _, existing := range d.orders {
			if existing.OrderCode == o.OrderCode {
				return domain.NewConflictError("order already exists")
			}
		}
		now := time.Now().UTC()
		o.ID = d.next("orders")
		o.CreatedAt = now
		o.UpdatedAt = now
		d.orders[o.ID] = copyOrder(*o)
		return nil
	})
}

func (r *orderRepository) GetByID(ctx context.Context, id int32) (*domain.Order, error) {
	var out domain.Order
	err := r.h.run(func(d *data) error {
		o, ok := d.orders[id]
		if !ok {
			return domain.NewNotFoundError("order", id)
		}
		out = copyOrder(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetForUpdate needs no row lock here: transactions already hold the store mutex.
func (r *orderRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *orderRepository) Update(ctx context.Context, o *domain.Order) error {
	return r.h.run(func(d *data) error {
		existing, ok := d.orders[o.ID]
		if !ok {
			return domain.NewNotFoundError("order", o.ID)
		}
		o.UpdatedAt = time.Now().UTC()
		updated := copyOrder(*o)
		updated.OrderCode = existing.OrderCode
		updated.UserID = existing.UserID
		updated.CreatedAt = existing.CreatedAt
		d.orders[o.ID] = updated
		return nil
	})
}

func (r *orderRepository) Delete(ctx context.Context, id int32) error {
	return r.h.run(func(d *data) error {
		if _, ok := d.orders[id]; !ok {
			return domain.NewNotFoundError("order", id)
		}
		delete(d.orders, id)
		return nil
	})
}

func (r *orderRepository) List(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return r.filter(func(o domain.Order) bool { return status == "" || o.Status == status })
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int32) ([]domain.Order, error) {
	return r.filter(func(o domain.Order) bool { return o.UserID == userID })
}

func (r *orderRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Order, error) {
	orders, err := r.filter(func(o domain.Order) bool {
		if o.Status != domain.OrderStatusApproved && o.Status != domain.OrderStatusCompleted {
			return false
		}
		return o.DueDate != nil && o.DueDate.Before(asOf) && o.ReturnedOn == nil
	})
	sort.Slice(orders, func(i, j int) bool { return orders[i].DueDate.Before(*orders[j].DueDate) })
	return orders, err
}

// filter returns matching orders newest first.
func (r *orderRepository) filter(match func(o domain.Order) bool) ([]domain.Order, error) {
	var out []domain.Order
	err := r.h.run(func(d *data) error {
		for _, o := range d.orders {
			if match(o) {
				out = append(out, copyOrder(o))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}
