package http

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"bookbridge-backend/internal/config"
	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/metrics"
	"bookbridge-backend/internal/security"
)

const requestIDHeader = "X-Request-ID"

// routeTemplate returns the matched route's path template, or the raw path.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

type AuthMiddleware struct {
	tokenManager security.TokenManager
}

func NewAuthMiddleware(tm security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm}
}

// Handler authenticates the request according to the route's security level
// and stores the verified claims in the request context.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		level := config.GetSecurityLevel(r.Method, routeTemplate(r))

		// Public endpoint - skip auth
		if level == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := extractToken(r)
		if !ok {
			if level == config.SecurityOptional {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, r, domain.NewUnauthorizedError("authorization token is not provided"))
			return
		}

		claims, err := m.tokenManager.ValidateToken(token)
		if err != nil {
			writeError(w, r, domain.NewUnauthorizedError("invalid token: "+err.Error()))
			return
		}
		if level == config.SecurityAdmin && !claims.IsAdmin() {
			writeError(w, r, domain.NewForbiddenError("admin access required"))
			return
		}

		if rec, ok := w.(*statusRecorder); ok {
			rec.userID = claims.UserID
		}
		ctx := security.ContextWithClaims(r.Context(), claims)
		ctx = logger.NewContext(ctx, logger.FromContext(ctx).With("userID", claims.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	// Remove Bearer prefix if present
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		header = header[7:]
	}
	header = strings.TrimSpace(header)
	return header, header != ""
}

// RequestID tags the request and its logger with an id, reusing the caller's when given.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := logger.NewContext(r.Context(), logger.Get().With("requestID", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	userID int32
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Observe logs every request and records its latency and status.
func Observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		ctx := r.Context()
		if rec.userID != 0 {
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With("userID", rec.userID))
		}
		logger.HTTPRequest(ctx, r.Method, r.URL.Path, rec.status, elapsed)
		metrics.ObserveHTTP(r.Method, routeTemplate(r), rec.status, elapsed)
	})
}

// Recover turns a handler panic into a 500 response.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(r.Context(), "Handler panic", "panic", rec, "stack", string(debug.Stack()))
				writeJSON(w, http.StatusInternalServerError, envelope{Message: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
