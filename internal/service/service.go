package service

import (
	"context"
	"time"

	"bookbridge-backend/internal/domain"
)

// Actor is the authenticated caller a service acts on behalf of.
type Actor struct {
	UserID int32
	Role   domain.UserRole
}

func (a Actor) IsAdmin() bool { return a.Role == domain.UserRoleAdmin }

// CanAccess reports whether the actor may read or act on userID's records.
func (a Actor) CanAccess(userID int32) bool {
	return a.IsAdmin() || a.UserID == userID
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	// EnsureBootstrapAdmin creates the configured administrator if no account uses that email.
	EnsureBootstrapAdmin(ctx context.Context, name, email, password string) error
}

type RegisterInput struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Phone    string          `json:"phone"`
	Password string          `json:"password"`
	Role     domain.UserRole `json:"role"`
}

type UserService interface {
	// Register creates a STUDENT account. Only an admin actor may create ADMIN accounts;
	// actor is nil for anonymous sign-up.
	Register(ctx context.Context, actor *Actor, in RegisterInput) (*domain.User, error)
	GetUser(ctx context.Context, actor Actor, id int32) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

type BookInput struct {
	Code       string `json:"bookId"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	PriceCents int64  `json:"priceCents"`
	Stock      int32  `json:"stock"`
	GiverID    *int32 `json:"giverId"`
}

type BookService interface {
	ListCatalog(ctx context.Context) ([]domain.Book, error)
	GetBook(ctx context.Context, code string) (*domain.Book, error)
	AddBook(ctx context.Context, actor Actor, in BookInput) (*domain.Book, error)
	SetStock(ctx context.Context, code string, stock int32) (*domain.Book, error)
}

type OrderItemInput struct {
	BookCode string `json:"bookId"`
	Quantity int32  `json:"quantity"`
}

type OrderInput struct {
	CustomerName    string           `json:"customerName"`
	CustomerContact string           `json:"customerContact"`
	Items           []OrderItemInput `json:"items"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, actor Actor, in OrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, actor Actor, id int32) (*domain.Order, error)
	ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	ListUserOrders(ctx context.Context, actor Actor, userID int32) ([]domain.Order, error)
	// UpdateOrder edits a Pending order's customer details and items. Empty fields are kept.
	UpdateOrder(ctx context.Context, actor Actor, id int32, in OrderInput) (*domain.Order, error)
	ChangeStatus(ctx context.Context, actor Actor, id int32, status domain.OrderStatus) (*domain.Order, error)
	MarkReturned(ctx context.Context, actor Actor, id int32) (*domain.Order, error)
	DeleteOrder(ctx context.Context, actor Actor, id int32) error
}

type PaymentInput struct {
	BuyerID     int32  `json:"buyerId"`
	GiverID     int32  `json:"giverId"`
	CodeID      string `json:"codeId"`
	BookCode    string `json:"bookId"`
	AmountCents int64  `json:"amountCents"`
}

type PaymentService interface {
	CreatePayment(ctx context.Context, actor Actor, in PaymentInput) (*domain.Payment, error)
	ListPayments(ctx context.Context) ([]domain.Payment, error)
	ListUserPayments(ctx context.Context, actor Actor, userID int32) ([]domain.Payment, error)
	DecidePayment(ctx context.Context, actor Actor, id int32, decision domain.Decision) (*domain.Payment, error)
	DeletePayment(ctx context.Context, id int32) error
}

type RefundInput struct {
	PaymentID   int32  `json:"paymentId"`
	Description string `json:"description"`
}

type RefundService interface {
	CreateRefund(ctx context.Context, actor Actor, in RefundInput) (*domain.Refund, error)
	ListRefunds(ctx context.Context) ([]domain.Refund, error)
	ListUserRefunds(ctx context.Context, actor Actor, userID int32) ([]domain.Refund, error)
	DecideRefund(ctx context.Context, actor Actor, id int32, decision domain.Decision) (*domain.Refund, error)
	DeleteRefund(ctx context.Context, id int32) error
}

type FineInput struct {
	UserID      int32  `json:"userId"`
	BookCode    string `json:"bookId"`
	OrderID     *int32 `json:"orderId"`
	OverdueDays int32  `json:"overdueDays"`
	AmountCents int64  `json:"amountCents"`
}

// AssessmentReport summarizes one overdue-fine assessment run.
type AssessmentReport struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

type FineService interface {
	CreateFine(ctx context.Context, actor Actor, in FineInput) (*domain.Fine, error)
	ListFines(ctx context.Context) ([]domain.Fine, error)
	ListUserFines(ctx context.Context, actor Actor, userID int32) ([]domain.Fine, error)
	DecideFine(ctx context.Context, actor Actor, id int32, decision domain.Decision) (*domain.Fine, error)
	DeleteFine(ctx context.Context, id int32) error
	AssessOverdueFines(ctx context.Context, asOf time.Time) (*AssessmentReport, error)
	SendFineReminders(ctx context.Context, asOf time.Time) (int, error)
}

type WalletService interface {
	ListWallets(ctx context.Context) ([]domain.Wallet, error)
	GetUserWallet(ctx context.Context, actor Actor, userID int32) (*domain.Wallet, error)
	ListEntries(ctx context.Context, actor Actor, userID int32, limit int32) ([]domain.WalletEntry, error)
	AdjustUserBalance(ctx context.Context, actor Actor, userID int32, deltaCents int64, reason string) (*domain.Wallet, error)
	GetSystemWallet(ctx context.Context) (*domain.Wallet, error)
	AdjustSystemBalance(ctx context.Context, actor Actor, deltaCents int64, reason string) (*domain.Wallet, error)
	ResetSystemBalance(ctx context.Context, actor Actor) (*domain.Wallet, error)
}

type NotificationInput struct {
	UserID     int32             `json:"userId"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Attributes map[string]string `json:"attributes"`
}

type NotificationService interface {
	ListForUser(ctx context.Context, actor Actor, userID int32) ([]domain.Notification, error)
	GetNotification(ctx context.Context, actor Actor, id int32) (*domain.Notification, error)
	MarkAsRead(ctx context.Context, actor Actor, id int32) (*domain.Notification, error)
	DeleteNotification(ctx context.Context, actor Actor, id int32) error
	DeleteAllForUser(ctx context.Context, actor Actor, userID int32) (int64, error)
	Send(ctx context.Context, in NotificationInput) (*domain.Notification, error)
	PurgeRead(ctx context.Context, olderThan time.Time) (int64, error)
}

type TicketInput struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type TicketService interface {
	OpenTicket(ctx context.Context, actor Actor, in TicketInput) (*domain.Ticket, error)
	ListTickets(ctx context.Context) ([]domain.Ticket, error)
	ListUserTickets(ctx context.Context, actor Actor, userID int32) ([]domain.Ticket, error)
	Reply(ctx context.Context, actor Actor, id int32, reply string) (*domain.Ticket, error)
	Close(ctx context.Context, actor Actor, id int32) (*domain.Ticket, error)
	DeleteTicket(ctx context.Context, id int32) error
}

type EmailService interface {
	Send(ctx context.Context, toEmail, toName, subject, body string) error
}
