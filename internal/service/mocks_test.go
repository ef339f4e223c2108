package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bookbridge-backend/internal/cache"
	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/repository/memory"
	"bookbridge-backend/internal/service"
)

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) Send(ctx context.Context, toEmail, toName, subject, body string) error {
	args := m.Called(ctx, toEmail, toName, subject, body)
	return args.Error(0)
}

// MockPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, eventType, key string, payload any) {
	m.Called(ctx, eventType, key, payload)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// fixture wires every service to one in-memory store with an admin and two students.
type fixture struct {
	store *memory.Store
	email *MockEmailService
	pub   *MockPublisher

	admin service.Actor
	alice service.Actor
	bob   service.Actor

	users    service.UserService
	books    service.BookService
	orders   service.OrderService
	payments service.PaymentService
	refunds  service.RefundService
	fines    service.FineService
	wallets  service.WalletService
	notes    service.NotificationService
	tickets  service.TicketService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	email := new(MockEmailService)
	email.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Maybe()

	f := &fixture{
		store:    store,
		email:    email,
		pub:      pub,
		users:    service.NewUserService(store),
		books:    service.NewBookService(store, cache.NewNoop()),
		orders:   service.NewOrderService(store, cache.NewNoop(), email, pub, 14),
		payments: service.NewPaymentService(store, email, pub),
		refunds:  service.NewRefundService(store, email, pub),
		fines: service.NewFineService(store, email, pub, service.FinePolicy{
			DailyRateCents:    100,
			ReminderAfterDays: 7,
		}),
		wallets: service.NewWalletService(store, email, pub),
		notes:   service.NewNotificationService(store, email, pub),
		tickets: service.NewTicketService(store, email, pub),
	}
	f.admin = f.addUser(t, "Admin", "admin@bookbridge.test", domain.UserRoleAdmin)
	f.alice = f.addUser(t, "Alice", "alice@example.com", domain.UserRoleStudent)
	f.bob = f.addUser(t, "Bob", "bob@example.com", domain.UserRoleStudent)
	return f
}

func (f *fixture) addUser(t *testing.T, name, email string, role domain.UserRole) service.Actor {
	t.Helper()
	u := &domain.User{Name: name, Email: email, Role: role}
	require.NoError(t, f.store.Repos().Users.Create(context.Background(), u))
	return service.Actor{UserID: u.ID, Role: role}
}

func (f *fixture) addBook(t *testing.T, code string, priceCents int64, stock int32) {
	t.Helper()
	b := &domain.Book{Code: code, Title: "Book " + code, PriceCents: priceCents, Stock: stock}
	require.NoError(t, f.store.Repos().Books.Create(context.Background(), b))
}

func (f *fixture) stock(t *testing.T, code string) int32 {
	t.Helper()
	b, err := f.store.Repos().Books.GetByCode(context.Background(), code)
	require.NoError(t, err)
	return b.Stock
}

func (f *fixture) fund(t *testing.T, actor service.Actor, cents int64) {
	t.Helper()
	_, err := f.wallets.AdjustUserBalance(context.Background(), f.admin, actor.UserID, cents, "top up")
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, actor service.Actor) int64 {
	t.Helper()
	w, err := f.wallets.GetUserWallet(context.Background(), f.admin, actor.UserID)
	require.NoError(t, err)
	return w.BalanceCents
}
