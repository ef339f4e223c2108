package config

type SecurityLevel int

const (
	SecurityPublic   SecurityLevel = iota // No authentication
	SecurityOptional                      // Token verified when present
	SecurityAccess                        // Access token required
	SecurityAdmin                         // Access token with ADMIN role required
)

func (l SecurityLevel) String() string {
	switch l {
	case SecurityPublic:
		return "public"
	case SecurityOptional:
		return "optional"
	case SecurityAdmin:
		return "admin"
	default:
		return "access"
	}
}

// EndpointSecurityConfig maps "METHOD /path-template" to its required security level.
// Ownership checks beyond the role gate happen in the handlers.
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Ops
	"GET /health":  SecurityPublic,
	"GET /metrics": SecurityPublic,

	// Auth
	"POST /api/auth/login": SecurityPublic,

	// Users
	"POST /api/users":     SecurityOptional,
	"GET /api/users":      SecurityAdmin,
	"GET /api/users/me":   SecurityAccess,
	"GET /api/users/{id}": SecurityAccess,

	// Books
	"GET /api/books":              SecurityPublic,
	"GET /api/orders/books":       SecurityPublic,
	"GET /api/books/{code}":       SecurityPublic,
	"POST /api/books":             SecurityAccess,
	"PUT /api/books/{code}/stock": SecurityAdmin,

	// Orders
	"POST /api/orders":            SecurityAccess,
	"GET /api/orders":             SecurityAdmin,
	"GET /api/orders/user/{id}":   SecurityAccess,
	"GET /api/orders/{id}":        SecurityAccess,
	"PUT /api/orders/{id}":        SecurityAccess,
	"PUT /api/orders/{id}/return": SecurityAdmin,
	"DELETE /api/orders/{id}":     SecurityAccess,

	// Payments
	"GET /api/payments":              SecurityAdmin,
	"GET /api/payments/user/{id}":    SecurityAccess,
	"POST /api/payments":             SecurityAccess,
	"POST /api/payments/create":      SecurityAccess,
	"PUT /api/payments/{id}/approve": SecurityAdmin,
	"PUT /api/payments/{id}/reject":  SecurityAdmin,
	"DELETE /api/payments/{id}":      SecurityAdmin,

	// Refunds
	"GET /api/refunds":              SecurityAdmin,
	"GET /api/refunds/user/{id}":    SecurityAccess,
	"POST /api/refunds":             SecurityAccess,
	"POST /api/refunds/create":      SecurityAccess,
	"PUT /api/refunds/{id}/approve": SecurityAdmin,
	"PUT /api/refunds/{id}/reject":  SecurityAdmin,
	"DELETE /api/refunds/{id}":      SecurityAdmin,

	// Fines
	"GET /api/fines":              SecurityAdmin,
	"GET /api/fines/user/{id}":    SecurityAccess,
	"POST /api/fines":             SecurityAdmin,
	"PUT /api/fines/{id}/approve": SecurityAdmin,
	"PUT /api/fines/{id}/reject":  SecurityAdmin,
	"DELETE /api/fines/{id}":      SecurityAdmin,

	// Wallets
	"GET /api/wallets":                   SecurityAdmin,
	"GET /api/wallets/system":            SecurityAdmin,
	"PUT /api/wallets/system/balance":    SecurityAdmin,
	"DELETE /api/wallets/system/balance": SecurityAdmin,
	"GET /api/wallets/{userId}":          SecurityAccess,
	"GET /api/wallets/{userId}/entries":  SecurityAccess,
	"PUT /api/wallets/{userId}/balance":  SecurityAdmin,

	// Notifications
	"POST /api/notifications":             SecurityAdmin,
	"GET /api/notifications/user/{id}":    SecurityAccess,
	"DELETE /api/notifications/user/{id}": SecurityAccess,
	"GET /api/notifications/{id}":         SecurityAccess,
	"PUT /api/notifications/{id}/read":    SecurityAccess,
	"DELETE /api/notifications/{id}":      SecurityAccess,

	// Tickets
	"POST /api/tickets":           SecurityAccess,
	"GET /api/tickets":            SecurityAdmin,
	"GET /api/tickets/user/{id}":  SecurityAccess,
	"PUT /api/tickets/{id}/reply": SecurityAdmin,
	"PUT /api/tickets/{id}/close": SecurityAccess,
	"DELETE /api/tickets/{id}":    SecurityAdmin,
}

// GetSecurityLevel returns the security level for a method and path template
func GetSecurityLevel(method, pathTemplate string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[method+" "+pathTemplate]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAdmin
}
