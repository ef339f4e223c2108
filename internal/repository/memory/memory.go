// Package memory is a process-local implementation of repository.Store used
// for development without Postgres and for service-level tests.
package memory

import (
	"context"
	"sync"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/repository"
)

type data struct {
	users         map[int32]domain.User
	books         map[string]domain.Book
	orders        map[int32]domain.Order
	payments      map[int32]domain.Payment
	refunds       map[int32]domain.Refund
	fines         map[int32]domain.Fine
	wallets       map[int32]domain.Wallet
	entries       []domain.WalletEntry
	notifications map[int32]domain.Notification
	tickets       map[int32]domain.Ticket

	seq map[string]int32
}

func newData() *data {
	return &data{
		users:         map[int32]domain.User{},
		books:         map[string]domain.Book{},
		orders:        map[int32]domain.Order{},
		payments:      map[int32]domain.Payment{},
		refunds:       map[int32]domain.Refund{},
		fines:         map[int32]domain.Fine{},
		wallets:       map[int32]domain.Wallet{},
		notifications: map[int32]domain.Notification{},
		tickets:       map[int32]domain.Ticket{},
		seq:           map[string]int32{},
	}
}

func (d *data) next(table string) int32 {
	d.seq[table]++
	return d.seq[table]
}

// clone copies every table so a transaction can be discarded on error.
func (d *data) clone() *data {
	c := newData()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.books {
		c.books[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range d.payments {
		c.payments[k] = v
	}
	for k, v := range d.refunds {
		c.refunds[k] = v
	}
	for k, v := range d.fines {
		c.fines[k] = v
	}
	for k, v := range d.wallets {
		c.wallets[k] = v
	}
	c.entries = append([]domain.WalletEntry(nil), d.entries...)
	for k, v := range d.notifications {
		c.notifications[k] = copyNotification(v)
	}
	for k, v := range d.tickets {
		c.tickets[k] = v
	}
	for k, v := range d.seq {
		c.seq[k] = v
	}
	return c
}

// Store keeps all records in maps guarded by a single mutex. Transactions
// hold the mutex for their whole duration and work on a copy that replaces
// the live data only when fn succeeds.
type Store struct {
	mu   sync.Mutex
	data *data
}

func NewStore() *Store {
	return &Store{data: newData()}
}

func (s *Store) Repos() repository.Repositories {
	return newRepositories(&handle{store: s})
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(newRepositories(&handle{tx: work})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return domain.NewInternalError("commit transaction", err)
	}
	s.data = work
	return nil
}

// handle runs repository operations against either the live data (taking
// the lock) or a transaction's private copy.
type handle struct {
	store *Store
	tx    *data
}

func (h *handle) run(fn func(d *data) error) error {
	if h.tx != nil {
		return fn(h.tx)
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return fn(h.store.data)
}

func newRepositories(h *handle) repository.Repositories {
	return repository.Repositories{
		Users:         &userRepository{h},
		Books:         &bookRepository{h},
		Orders:        &orderRepository{h},
		Payments:      &paymentRepository{h},
		Refunds:       &refundRepository{h},
		Fines:         &fineRepository{h},
		Wallets:       &walletRepository{h},
		Notifications: &notificationRepository{h},
		Tickets:       &ticketRepository{h},
	}
}

func copyOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}

func copyNotification(n domain.Notification) domain.Notification {
	if n.Attributes != nil {
		attrs := make(map[string]string, len(n.Attributes))
		for k, v := range n.Attributes {
			attrs[k] = v
		}
		n.Attributes = attrs
	}
	return n
}
