package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"bookbridge-backend/internal/metrics"
	"bookbridge-backend/internal/security"
	"bookbridge-backend/internal/service"
)

// Services bundles everything the REST handlers call into.
type Services struct {
	Auth          service.AuthService
	Users         service.UserService
	Books         service.BookService
	Orders        service.OrderService
	Payments      service.PaymentService
	Refunds       service.RefundService
	Fines         service.FineService
	Wallets       service.WalletService
	Notifications service.NotificationService
	Tickets       service.TicketService
}

type Handler struct {
	svc Services
}

// NewRouter registers every REST route. Literal segments such as /me or
// /system are registered before the {id} routes they would otherwise match.
func NewRouter(svc Services, tm security.TokenManager) *mux.Router {
	h := &Handler{svc: svc}
	r := mux.NewRouter()
	r.Use(Recover, RequestID, Observe, NewAuthMiddleware(tm).Handler)

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)

	api.HandleFunc("/users", h.register).Methods(http.MethodPost)
	api.HandleFunc("/users", h.listUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/me", h.me).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", h.getUser).Methods(http.MethodGet)

	api.HandleFunc("/books", h.listBooks).Methods(http.MethodGet)
	api.HandleFunc("/books", h.addBook).Methods(http.MethodPost)
	api.HandleFunc("/books/{code}", h.getBook).Methods(http.MethodGet)
	api.HandleFunc("/books/{code}/stock", h.setStock).Methods(http.MethodPut)

	api.HandleFunc("/orders/books", h.listBooks).Methods(http.MethodGet)
	api.HandleFunc("/orders", h.createOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders", h.listOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/user/{id}", h.listUserOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", h.getOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", h.updateOrder).Methods(http.MethodPut)
	api.HandleFunc("/orders/{id}/return", h.returnOrder).Methods(http.MethodPut)
	api.HandleFunc("/orders/{id}", h.deleteOrder).Methods(http.MethodDelete)

	api.HandleFunc("/payments", h.listPayments).Methods(http.MethodGet)
	api.HandleFunc("/payments/user/{id}", h.listUserPayments).Methods(http.MethodGet)
	api.HandleFunc("/payments", h.createPayment).Methods(http.MethodPost)
	api.HandleFunc("/payments/create", h.createPayment).Methods(http.MethodPost)
	api.HandleFunc("/payments/{id}/approve", h.decidePayment).Methods(http.MethodPut)
	api.HandleFunc("/payments/{id}/reject", h.decidePayment).Methods(http.MethodPut)
	api.HandleFunc("/payments/{id}", h.deletePayment).Methods(http.MethodDelete)

	api.HandleFunc("/refunds", h.listRefunds).Methods(http.MethodGet)
	api.HandleFunc("/refunds/user/{id}", h.listUserRefunds).Methods(http.MethodGet)
	api.HandleFunc("/refunds", h.createRefund).Methods(http.MethodPost)
	api.HandleFunc("/refunds/create", h.createRefund).Methods(http.MethodPost)
	api.HandleFunc("/refunds/{id}/approve", h.decideRefund).Methods(http.MethodPut)
	api.HandleFunc("/refunds/{id}/reject", h.decideRefund).Methods(http.MethodPut)
	api.HandleFunc("/refunds/{id}", h.deleteRefund).Methods(http.MethodDelete)

	api.HandleFunc("/fines", h.listFines).Methods(http.MethodGet)
	api.HandleFunc("/fines/user/{id}", h.listUserFines).Methods(http.MethodGet)
	api.HandleFunc("/fines", h.createFine).Methods(http.MethodPost)
	api.HandleFunc("/fines/{id}/approve", h.decideFine).Methods(http.MethodPut)
	api.HandleFunc("/fines/{id}/reject", h.decideFine).Methods(http.MethodPut)
	api.HandleFunc("/fines/{id}", h.deleteFine).Methods(http.MethodDelete)

	api.HandleFunc("/wallets", h.listWallets).Methods(http.MethodGet)
	api.HandleFunc("/wallets/system", h.getSystemWallet).Methods(http.MethodGet)
	api.HandleFunc("/wallets/system/balance", h.adjustSystemBalance).Methods(http.MethodPut)
	api.HandleFunc("/wallets/system/balance", h.resetSystemBalance).Methods(http.MethodDelete)
	api.HandleFunc("/wallets/{userId}", h.getUserWallet).Methods(http.MethodGet)
	api.HandleFunc("/wallets/{userId}/entries", h.listWalletEntries).Methods(http.MethodGet)
	api.HandleFunc("/wallets/{userId}/balance", h.adjustUserBalance).Methods(http.MethodPut)

	api.HandleFunc("/notifications", h.sendNotification).Methods(http.MethodPost)
	api.HandleFunc("/notifications/user/{id}", h.listNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/user/{id}", h.deleteAllNotifications).Methods(http.MethodDelete)
	api.HandleFunc("/notifications/{id}", h.getNotification).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}/read", h.markNotificationRead).Methods(http.MethodPut)
	api.HandleFunc("/notifications/{id}", h.deleteNotification).Methods(http.MethodDelete)

	api.HandleFunc("/tickets", h.openTicket).Methods(http.MethodPost)
	api.HandleFunc("/tickets", h.listTickets).Methods(http.MethodGet)
	api.HandleFunc("/tickets/user/{id}", h.listUserTickets).Methods(http.MethodGet)
	api.HandleFunc("/tickets/{id}/reply", h.replyTicket).Methods(http.MethodPut)
	api.HandleFunc("/tickets/{id}/close", h.closeTicket).Methods(http.MethodPut)
	api.HandleFunc("/tickets/{id}", h.deleteTicket).Methods(http.MethodDelete)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// actor returns the authenticated caller. Routes behind SecurityAccess or
// SecurityAdmin always have one.
func actor(r *http.Request) service.Actor {
	claims := security.ClaimsFromContext(r.Context())
	if claims == nil {
		return service.Actor{}
	}
	return service.Actor{UserID: claims.UserID, Role: claims.Role}
}
