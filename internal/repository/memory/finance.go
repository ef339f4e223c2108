package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bookbridge-backend/internal/domain"
)

// decide applies the PENDING compare-and-set shared by payments, refunds and fines.
func decide(resource string, id int32, current domain.FinanceStatus, found bool) error {
	if !found {
		return domain.NewNotFoundError(resource, id)
	}
	if current != domain.FinanceStatusPending {
		return domain.NewConflictError(fmt.Sprintf("%s %d is no longer pending", resource, id))
	}
	return nil
}

type paymentRepository struct{ h *handle }

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	return r.h.run(func(d *data) error {
		for _, existing := range d.payments {
			if existing.PaymentCode == p.PaymentCode {
				return domain.NewConflictError("payment already exists")
			}
		}
		if p.Date.IsZero() {
			p.Date = time.Now().UTC()
		}
		p.ID = d.next("payments")
		d.payments[p.ID] = *p
		return nil
	})
}

func (r *paymentRepository) GetByID(ctx context.Context, id int32) (*domain.Payment, error) {
	var out domain.Payment
	err := r.h.run(func(d *data) error {
		p, ok := d.payments[id]
		if !ok {
			return domain.NewNotFoundError("payment", id)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetForUpdate needs no row lock here: transactions already hold the store mutex.
func (r *paymentRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r *paymentRepository) List(ctx context.Context) ([]domain.Payment, error) {
	return r.filter(func(domain.Payment) bool { return true })
}

func (r *paymentRepository) ListByUser(ctx context.Context, userID int32) ([]domain.Payment, error) {
	return r.filter(func(p domain.Payment) bool { return p.BuyerID == userID || p.GiverID == userID })
}

func (r *paymentRepository) Decide(ctx context.Context, id int32, status domain.FinanceStatus, actorID int32) error {
	return r.h.run(func(d *data) error {
		p, ok := d.payments[id]
		if err := decide("payment", id, p.Status, ok); err != nil {
			return err
		}
		now := time.Now().UTC()
		p.Status = status
		p.DecidedBy = &actorID
		p.DecidedOn = &now
		d.payments[id] = p
		return nil
	})
}

func (r *paymentRepository) Delete(ctx context.Context, id int32) error {
	return r.h.run(func(d *data) error {
		if _, ok := d.payments[id]; !ok {
			return domain.NewNotFoundError("payment", id)
		}
		delete(d.payments, id)
		for rid, rf := range d.refunds {
			if rf.PaymentID == id {
				delete(d.refunds, rid)
			}
		}
		return nil
	})
}

func (r *paymentRepository) filter(match func(domain.Payment) bool) ([]domain.Payment, error) {
	var out []domain.Payment
	err := r.h.run(func(d *data) error {
		for _, p := range d.payments {
			if match(p) {
				out = append(out, p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

type refundRepository struct{ h *handle }

func (r *refundRepository) Create(ctx context.Context, rf *domain.Refund) error {
	return r.h.run(func(d *data) error {
		if _, ok := d.payments[rf.PaymentID]; !ok {
			return domain.NewValidationError("refund references a missing record", nil)
		}
		for _, existing := range d.refunds {
			if existing.RefundCode == rf.RefundCode {
				return domain.NewConflictError("refund already exists")
			}
		}
		if rf.RequestDate.IsZero() {
			rf.RequestDate = time.Now().UTC()
		}
		rf.ID = d.next("refunds")
		d.refunds[rf.ID] = *rf
		return nil
	})
}

func (r *refundRepository) GetByID(ctx context.Context, id int32) (*domain.Refund, error) {
	var out domain.Refund
	err := r.h.run(func(d *data) error {
		rf, ok := d.refunds[id]
		if !ok {
			return domain.NewNotFoundError("refund", id)
		}
		out = rf
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *refundRepository) List(ctx context.Context) ([]domain.Refund, error) {
	return r.filter(func(domain.Refund) bool { return true })
}

func (r *refundRepository) ListByUser(ctx context.Context, userID int32) ([]domain.Refund, error) {
	return r.filter(func(rf domain.Refund) bool { return rf.BuyerID == userID || rf.GiverID == userID })
}

func (r *refundRepository) ListByPayment(ctx context.Context, paymentID int32) ([]domain.Refund, error) {
	return r.filter(func(rf domain.Refund) bool { return rf.PaymentID == paymentID })
}

func (r *refundRepository) Decide(ctx context.Context, id int32, status domain.FinanceStatus, actorID int32) error {
	return r.h.run(func(d *data) error {
		rf, ok := d.refunds[id]
		if err := decide("refund", id, rf.Status, ok); err != nil {
			return err
		}
		now := time.Now().UTC()
		rf.Status = status
		rf.DecidedBy = &actorID
		rf.DecidedOn = &now
		d.refunds[id] = rf
		return nil
	})
}

func (r *refundRepository) Delete(ctx context.Context, id int32) error {
	return r.h.run(func(d *data) error {
		if _, ok := d.refunds[id]; !ok {
			return domain.NewNotFoundError("refund", id)
		}
		delete(d.refunds, id)
		return nil
	})
}

func (r *refundRepository) filter(match func(domain.Refund) bool) ([]domain.Refund, error) {
	var out []domain.Refund
	err := r.h.run(func(d *data) error {
		for _, rf := range d.refunds {
			if match(rf) {
				out = append(out, rf)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

type fineRepository struct{ h *handle }

func (r *fineRepository) Create(ctx context.Context, f *domain.Fine) error {
	return r.h.run(func(d *data) error {
		if f.OrderID != nil && f.Status == domain.FinanceStatusPending {
			for _, existing := range d.fines {
				if existing.OrderID != nil && *existing.OrderID == *f.OrderID && existing.Status == domain.FinanceStatusPending {
					return domain.NewConflictError("fine already exists")
				}
			}
		}
		if f.CreatedAt.IsZero() {
			f.CreatedAt = time.Now().UTC()
		}
		f.ID = d.next("fines")
		d.fines[f.ID] = *f
		return nil
	})
}

func (r *fineRepository) GetByID(ctx context.Context, id int32) (*domain.Fine, error) {
	var out domain.Fine
	err := r.h.run(func(d *data) error {
		f, ok := d.fines[id]
		if !ok {
			return domain.NewNotFoundError("fine", id)
		}
		out = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *fineRepository) GetPendingByOrder(ctx context.Context, orderID int32) (*domain.Fine, error) {
	var out domain.Fine
	err := r.h.run(func(d *data) error {
		for _, f := range d.fines {
			if f.OrderID != nil && *f.OrderID == orderID && f.Status == domain.FinanceStatusPending {
				out = f
				return nil
			}
		}
		return domain.NewNotFoundError("fine for order", orderID)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *fineRepository) UpdateAssessment(ctx context.Context, id int32, overdueDays int32, amountCents int64) error {
	return r.h.run(func(d *data) error {
		f, ok := d.fines[id]
		if !ok || f.Status != domain.FinanceStatusPending {
			return domain.NewNotFoundError("fine", id)
		}
		f.OverdueDays = overdueDays
		f.AmountCents = amountCents
		d.fines[id] = f
		return nil
	})
}

func (r *fineRepository) List(ctx context.Context) ([]domain.Fine, error) {
	return r.filter(func(domain.Fine) bool { return true })
}

func (r *fineRepository) ListByUser(ctx context.Context, userID int32) ([]domain.Fine, error) {
	return r.filter(func(f domain.Fine) bool { return f.UserID == userID })
}

func (r *fineRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Fine, error) {
	fines, err := r.filter(func(f domain.Fine) bool {
		return f.Status == domain.FinanceStatusPending && f.CreatedAt.Before(cutoff)
	})
	sort.Slice(fines, func(i, j int) bool { return fines[i].CreatedAt.Before(fines[j].CreatedAt) })
	return fines, err
}

func (r *fineRepository) Decide(ctx context.Context, id int32, status domain.FinanceStatus, actorID int32) error {
	return r.h.run(func(d *data) error {
		f, ok := d.fines[id]
		if err := decide("fine", id, f.Status, ok); err != nil {
			return err
		}
		now := time.Now().UTC()
		f.Status = status
		f.DecidedBy = &actorID
		f.DecidedOn = &now
		d.fines[id] = f
		return nil
	})
}

func (r *fineRepository) Delete(ctx context.Context, id int32) error {
	return r.h.run(func(d *data) error {
		if _, ok := d.fines[id]; !ok {
			return domain.NewNotFoundError("fine", id)
		}
		delete(d.fines, id)
		return nil
	})
}

func (r *fineRepository) filter(match func(domain.Fine) bool) ([]domain.Fine, error) {
	var out []domain.Fine
	err := r.h.run(func(d *data) error {
		for _, f := range d.fines {
			if match(f) {
				out = append(out, f)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}
