package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookbridge-backend/internal/cache"
	"bookbridge-backend/internal/config"
	"bookbridge-backend/internal/events"
	"bookbridge-backend/internal/repository/memory"
	"bookbridge-backend/internal/security"
	"bookbridge-backend/internal/service"
)

type testAPI struct {
	t      *testing.T
	server *httptest.Server
	admin  string
}

type apiResponse struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

func newServices(t *testing.T) (Services, security.TokenManager) {
	t.Helper()
	store := memory.NewStore()
	tm := security.NewTokenManager("test-secret", time.Hour, "bookbridge")
	email := service.NewLogEmailService()
	pub := events.NewNoop()
	catalog := cache.NewNoop()

	svc := Services{
		Auth:          service.NewAuthService(store, tm),
		Users:         service.NewUserService(store),
		Books:         service.NewBookService(store, catalog),
		Orders:        service.NewOrderService(store, catalog, email, pub, 14),
		Payments:      service.NewPaymentService(store, email, pub),
		Refunds:       service.NewRefundService(store, email, pub),
		Fines:         service.NewFineService(store, email, pub, service.FinePolicy{DailyRateCents: 100, ReminderAfterDays: 7}),
		Wallets:       service.NewWalletService(store, email, pub),
		Notifications: service.NewNotificationService(store, email, pub),
		Tickets:       service.NewTicketService(store, email, pub),
	}
	require.NoError(t, svc.Auth.EnsureBootstrapAdmin(context.Background(), "Library Admin", "admin@bookbridge.test", "admin-pass"))
	return svc, tm
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	svc, tm := newServices(t)
	api := &testAPI{t: t, server: httptest.NewServer(NewRouter(svc, tm))}
	t.Cleanup(api.server.Close)
	api.admin = api.login("admin@bookbridge.test", "admin-pass")
	return api
}

func (a *testAPI) do(method, path, token string, body any) (int, apiResponse) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := a.server.Client().Do(req)
	require.NoError(a.t, err)
	defer res.Body.Close()

	var out apiResponse
	require.NoError(a.t, json.NewDecoder(res.Body).Decode(&out))
	return res.StatusCode, out
}

func (a *testAPI) login(email, password string) string {
	a.t.Helper()
	status, res := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, status, res.Message)
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(res.Data, &body))
	return body.Token
}

// signUp registers a student and returns its id and token.
func (a *testAPI) signUp(name, email string) (int32, string) {
	a.t.Helper()
	status, res := a.do(http.MethodPost, "/api/users", "", map[string]string{"name": name, "email": email, "password": "student-pass"})
	require.Equal(a.t, http.StatusCreated, status, res.Message)
	var user struct {
		ID int32 `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal(res.Data, &user))
	return user.ID, a.login(email, "student-pass")
}

func decode[T any](t *testing.T, res apiResponse) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(res.Data, &v))
	return v
}

func TestRouter_EveryRouteHasSecurityLevel(t *testing.T) {
	svc, tm := newServices(t)
	router := NewRouter(svc, tm)

	registered := 0
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tpl, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			return nil
		}
		for _, m := range methods {
			key := m + " " + tpl
			_, ok := config.EndpointSecurityConfig[key]
			assert.True(t, ok, "no security level for %s", key)
			registered++
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, len(config.EndpointSecurityConfig), registered)
}

func TestAPI_AuthGate(t *testing.T) {
	api := newTestAPI(t)
	_, student := api.signUp("Alice Smith", "alice@example.com")

	status, _ := api.do(http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = api.do(http.MethodGet, "/api/orders", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, res := api.do(http.MethodGet, "/api/orders", student, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.False(t, res.Success)

	status, res = api.do(http.MethodGet, "/api/orders", api.admin, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, res.Success)

	status, _ = api.do(http.MethodGet, "/api/books", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAPI_Users(t *testing.T) {
	api := newTestAPI(t)
	aliceID, alice := api.signUp("Alice Smith", "alice@example.com")
	bobID, _ := api.signUp("Bob Jones", "bob@example.com")

	status, res := api.do(http.MethodGet, "/api/users/me", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, aliceID, decode[struct {
		ID int32 `json:"id"`
	}](t, res).ID)

	status, _ = api.do(http.MethodGet, fmt.Sprintf("/api/users/%d", bobID), alice, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodPost, "/api/users", "", map[string]string{"name": "Mallory", "email": "m@example.com", "password": "long-enough", "role": "ADMIN"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodPost, "/api/users", api.admin, map[string]string{"name": "Second Admin", "email": "admin2@example.com", "password": "long-enough", "role": "ADMIN"})
	assert.Equal(t, http.StatusCreated, status)

	status, res = api.do(http.MethodPost, "/api/users", "", map[string]string{"name": "A", "email": "bad"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, res.Details, "email")
}

func TestAPI_OrderWorkflow(t *testing.T) {
	api := newTestAPI(t)
	_, alice := api.signUp("Alice Smith", "alice@example.com")

	status, _ := api.do(http.MethodPost, "/api/books", api.admin, map[string]any{"bookId": "B1", "title": "Linear Algebra", "priceCents": 1500, "stock": 5})
	require.Equal(t, http.StatusCreated, status)

	order := map[string]any{
		"customerName":    "Alice Smith",
		"customerContact": "0771234567",
		"items":           []map[string]any{{"bookId": "B1", "quantity": 2}},
	}
	status, res := api.do(http.MethodPost, "/api/orders", alice, order)
	require.Equal(t, http.StatusCreated, status, res.Message)
	created := decode[struct {
		ID         int32  `json:"id"`
		TotalItems int32  `json:"totalItems"`
		Status     string `json:"status"`
	}](t, res)
	assert.Equal(t, int32(2), created.TotalItems)
	assert.Equal(t, "Pending", created.Status)

	status, res = api.do(http.MethodGet, "/api/books/B1", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int32(3), decode[struct {
		Stock int32 `json:"stock"`
	}](t, res).Stock)

	tooMany := map[string]any{
		"customerName":    "Alice Smith",
		"customerContact": "0771234567",
		"items":           []map[string]any{{"bookId": "B1", "quantity": 10}},
	}
	status, res = api.do(http.MethodPost, "/api/orders", alice, tooMany)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "insufficient stock", res.Message)

	path := fmt.Sprintf("/api/orders/%d", created.ID)
	status, _ = api.do(http.MethodPut, path, alice, map[string]string{"status": "Approved"})
	assert.Equal(t, http.StatusForbidden, status)

	status, res = api.do(http.MethodPut, path, api.admin, map[string]string{"status": "Approved"})
	require.Equal(t, http.StatusOK, status, res.Message)

	status, _ = api.do(http.MethodPut, path, api.admin, map[string]string{"status": "Pending"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = api.do(http.MethodPut, path, api.admin, map[string]string{"status": "Rejected"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = api.do(http.MethodDelete, path, alice, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = api.do(http.MethodPut, path+"/return", api.admin, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodGet, "/api/orders/abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_FinanceNotFound(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/api/payments/999", "/api/refunds/999", "/api/fines/999"} {
		status, res := api.do(http.MethodDelete, path, api.admin, nil)
		assert.Equal(t, http.StatusNotFound, status, path)
		assert.False(t, res.Success)
	}
}

func TestAPI_PaymentDecision(t *testing.T) {
	api := newTestAPI(t)
	aliceID, alice := api.signUp("Alice Smith", "alice@example.com")
	bobID, _ := api.signUp("Bob Jones", "bob@example.com")

	status, _ := api.do(http.MethodPut, fmt.Sprintf("/api/wallets/%d/balance", aliceID), api.admin, map[string]any{"deltaCents": 5000})
	require.Equal(t, http.StatusOK, status)

	status, res := api.do(http.MethodPost, "/api/payments/create", alice, map[string]any{"giverId": bobID, "bookId": "B1", "amountCents": 1200})
	require.Equal(t, http.StatusCreated, status, res.Message)
	payment := decode[struct {
		ID int32 `json:"id"`
	}](t, res)

	approve := fmt.Sprintf("/api/payments/%d/approve", payment.ID)
	status, _ = api.do(http.MethodPut, approve, alice, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodPut, approve, api.admin, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodPut, approve, api.admin, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodPut, fmt.Sprintf("/api/payments/%d/reject", payment.ID), api.admin, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, res = api.do(http.MethodGet, fmt.Sprintf("/api/wallets/%d", bobID), api.admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1200), decode[struct {
		BalanceCents int64 `json:"balanceCents"`
	}](t, res).BalanceCents)
}

func TestAPI_ConcurrentWalletUpdates(t *testing.T) {
	api := newTestAPI(t)
	aliceID, alice := api.signUp("Alice Smith", "alice@example.com")
	path := fmt.Sprintf("/api/wallets/%d/balance", aliceID)

	status, _ := api.do(http.MethodPut, path, api.admin, map[string]any{"deltaCents": 1000})
	require.Equal(t, http.StatusOK, status)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		for _, delta := range []int64{100, -30} {
			wg.Add(1)
			go func(delta int64) {
				defer wg.Done()
				status, _ := api.do(http.MethodPut, path, api.admin, map[string]any{"deltaCents": delta})
				assert.Equal(t, http.StatusOK, status)
			}(delta)
		}
	}
	wg.Wait()

	status, res := api.do(http.MethodGet, fmt.Sprintf("/api/wallets/%d", aliceID), alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1700), decode[struct {
		BalanceCents int64 `json:"balanceCents"`
	}](t, res).BalanceCents)
}

func TestAPI_Notifications(t *testing.T) {
	api := newTestAPI(t)
	aliceID, alice := api.signUp("Alice Smith", "alice@example.com")
	_, bob := api.signUp("Bob Jones", "bob@example.com")

	for i := 0; i < 3; i++ {
		status, _ := api.do(http.MethodPost, "/api/notifications", api.admin, map[string]any{"userId": aliceID, "title": "Hello", "message": "Welcome"})
		require.Equal(t, http.StatusCreated, status)
	}

	userPath := fmt.Sprintf("/api/notifications/user/%d", aliceID)
	status, _ := api.do(http.MethodGet, userPath, bob, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, res := api.do(http.MethodDelete, userPath, alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(3), decode[map[string]int64](t, res)["deleted"])

	status, _ = api.do(http.MethodDelete, "/api/notifications/12345", alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_MalformedJSON(t *testing.T) {
	api := newTestAPI(t)
	req, err := http.NewRequest(http.MethodPost, api.server.URL+"/api/auth/login", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	res, err := api.server.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.NotEmpty(t, res.Header.Get(requestIDHeader))
}
