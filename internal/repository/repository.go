package repository

import (
	"context"
	"time"

	"bookbridge-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

type BookRepository interface {
	Create(ctx context.Context, book *domain.Book) error
	GetByCode(ctx context.Context, code string) (*domain.Book, error)
	List(ctx context.Context) ([]domain.Book, error)
	SetStock(ctx context.Context, code string, stock int32) error
	// Reserve decrements stock only if at least qty units remain.
	Reserve(ctx context.Context, code string, qty int32) error
	Release(ctx context.Context, code string, qty int32) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id int32) (*domain.Order, error)
	// GetForUpdate reads the order and locks it until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int32) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
	Delete(ctx context.Context, id int32) error
	List(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	ListByUser(ctx context.Context, userID int32) ([]domain.Order, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Order, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id int32) (*domain.Payment, error)
	// GetForUpdate reads a payment and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, id int32) (*domain.Payment, error)
	List(ctx context.Context) ([]domain.Payment, error)
	ListByUser(ctx context.Context, userID int32) ([]domain.Payment, error)
	// Decide moves a PENDING payment to status. Returns domain.ErrConflict if it is no longer pending.
	Decide(ctx context.Context, id int32, status domain.FinanceStatus, actorID int32) error
	Delete(ctx context.Context, id int32) error
}

type RefundRepository interface {
	Create(ctx context.Context, r *domain.Refund) error
	GetByID(ctx context.Context, id int32) (*domain.Refund, error)
	List(ctx context.Context) ([]domain.Refund, error)
	ListByUser(ctx context.Context, userID int32) ([]domain.Refund, error)
	ListByPayment(ctx context.Context, paymentID int32) ([]domain.Refund, error)
	Decide(ctx context.Context, id int32, status domain.FinanceStatus, actorID int32) error
	Delete(ctx context.Context, id int32) error
}

type FineRepository interface {
	Create(ctx context.Context, f *domain.Fine) error
	GetByID(ctx context.Context, id int32) (*domain.Fine, error)
	GetPendingByOrder(ctx context.Context, orderID int32) (*domain.Fine, error)
	UpdateAssessment(ctx context.Context, id int32, overdueDays int32, amountCents int64) error
	List(ctx context.Context) ([]domain.Fine, error)
	ListByUser(ctx context.Context, userID int32) ([]domain.Fine, error)
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Fine, error)
	Decide(ctx context.Context, id int32, status domain.FinanceStatus, actorID int32) error
	Delete(ctx context.Context, id int32) error
}

type WalletRepository interface {
	// GetOrCreateForUser returns the user's wallet, creating it at zero if needed.
	GetOrCreateForUser(ctx context.Context, userID int32) (*domain.Wallet, error)
	GetOrCreateSystem(ctx context.Context) (*domain.Wallet, error)
	List(ctx context.Context) ([]domain.Wallet, error)
	// Apply adds the movement's delta atomically and appends a ledger entry.
	// Returns domain.ErrInsufficientFunds when the result would go below zero and
	// the movement does not allow it.
	Apply(ctx context.Context, m domain.WalletMovement) (*domain.WalletEntry, error)
	ListEntries(ctx context.Context, walletID int32, limit int32) ([]domain.WalletEntry, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	GetByID(ctx context.Context, id int32) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID int32) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, id int32) error
	Delete(ctx context.Context, id int32) error
	DeleteByUser(ctx context.Context, userID int32) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type TicketRepository interface {
	Create(ctx context.Context, t *domain.Ticket) error
	GetByID(ctx context.Context, id int32) (*domain.Ticket, error)
	Update(ctx context.Context, t *domain.Ticket) error
	List(ctx context.Context) ([]domain.Ticket, error)
	ListByUser(ctx context.Context, userID int32) ([]domain.Ticket, error)
	Delete(ctx context.Context, id int32) error
}

// Repositories bundles every repository bound to one connection or transaction.
type Repositories struct {
	Users         UserRepository
	Books         BookRepository
	Orders        OrderRepository
	Payments      PaymentRepository
	Refunds       RefundRepository
	Fines         FineRepository
	Wallets       WalletRepository
	Notifications NotificationRepository
	Tickets       TicketRepository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	Repos() Repositories
	// WithinTx runs fn against repositories bound to one transaction. A non-nil
	// error from fn rolls everything back.
	WithinTx(ctx context.Context, fn func(tx Repositories) error) error
}
