package memory

import (
	"context"
	"sort"
	"time"

	"bookbridge-backend/internal/domain"
)

type notificationRepository struct{ h *handle }

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return r.h.run(func(d *data) error {
		n.ID = d.next("notifications")
		n.CreatedOn = time.Now().UTC()
		d.notifications[n.ID] = copyNotification(*n)
		return nil
	})
}

func (r *notificationRepository) GetByID(ctx context.Context, id int32) (*domain.Notification, error) {
	var out domain.Notification
	err := r.h.run(func(d *data) error {
		n, ok := d.notifications[id]
		if !ok {
			return domain.NewNotFoundError("notification", id)
		}
		out = copyNotification(n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID int32) ([]domain.Notification, error) {
	var out []domain.Notification
	err := r.h.run(func(d *data) error {
		for _, n := range d.notifications {
			if n.UserID == userID {
				out = append(out, copyNotification(n))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id int32) error {
	return r.h.run(func(d *data) error {
		n, ok := d.notifications[id]
		if !ok {
			return domain.NewNotFoundError("notification", id)
		}
		n.IsRead = true
		d.notifications[id] = n
		return nil
	})
}

func (r *notificationRepository) Delete(ctx context.Context, id int32) error {
	return r.h.run(func(d *data) error {
		if _, ok := d.notifications[id]; !ok {
			return domain.NewNotFoundError("notification", id)
		}
		delete(d.notifications, id)
		return nil
	})
}

func (r *notificationRepository) DeleteByUser(ctx context.Context, userID int32) (int64, error) {
	return r.deleteWhere(func(n domain.Notification) bool { return n.UserID == userID })
}

func (r *notificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.deleteWhere(func(n domain.Notification) bool { return n.IsRead && n.CreatedOn.Before(cutoff) })
}

func (r *notificationRepository) deleteWhere(match func(domain.Notification) bool) (int64, error) {
	var removed int64
	err := r.h.run(func(d *data) error {
		for id, n := range d.notifications {
			if match(n) {
				delete(d.notifications, id)
				removed++
			}
		}
		return nil
	})
	return removed, err
}

type ticketRepository struct{ h *handle }

func (r *ticketRepository) Create(ctx context.Context, t *domain.Ticket) error {
	return r.h.run(func(d *data) error {
		now := time.Now().UTC()
		t.ID = d.next("tickets")
		t.CreatedOn = now
		t.UpdatedOn = now
		d.tickets[t.ID] = *t
		return nil
	})
}

func (r *ticketRepository) GetByID(ctx context.Context, id int32) (*domain.Ticket, error) {
	var out domain.Ticket
	err := r.h.run(func(d *data) error {
		t, ok := d.tickets[id]
		if !ok {
			return domain.NewNotFoundError("ticket", id)
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ticketRepository) Update(ctx context.Context, t *domain.Ticket) error {
	return r.h.run(func(d *data) error {
		existing, ok := d.tickets[t.ID]
		if !ok {
			return domain.NewNotFoundError("ticket", t.ID)
		}
		t.UpdatedOn = time.Now().UTC()
		t.UserID = existing.UserID
		t.CreatedOn = existing.CreatedOn
		d.tickets[t.ID] = *t
		return nil
	})
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	return r.filter(func(domain.Ticket) bool { return true })
}

func (r *ticketRepository) ListByUser(ctx context.Context, userID int32) ([]domain.Ticket, error) {
	return r.filter(func(t domain.Ticket) bool { return t.UserID == userID })
}

func (r *ticketRepository) Delete(ctx context.Context, id int32) error {
	return r.h.run(func(d *data) error {
		if _, ok := d.tickets[id]; !ok {
			return domain.NewNotFoundError("ticket", id)
		}
		delete(d.tickets, id)
		return nil
	})
}

func (r *ticketRepository) filter(match func(domain.Ticket) bool) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.h.run(func(d *data) error {
		for _, t := range d.tickets {
			if match(t) {
				out = append(out, t)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}
