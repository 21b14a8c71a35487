package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/R3E-Network/starknet_randomness/internal/httputil"
	"github.com/R3E-Network/starknet_randomness/internal/logging"
	"github.com/R3E-Network/starknet_randomness/internal/serviceauth"
)

type contextKey string

const serviceIDKey contextKey = "service_id"

// AuthMiddleware guards administrative routes with a shared-secret bearer token.
type AuthMiddleware struct {
	secret string
	logger *logging.Logger
}

// NewAuthMiddleware creates the middleware. An empty secret rejects every request.
func NewAuthMiddleware(secret string, logger *logging.Logger) *AuthMiddleware {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AuthMiddleware{secret: secret, logger: logger}
}

// Handler returns the middleware handler
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.secret == "" {
			httputil.WriteErrorResponse(w, http.StatusForbidden, "forbidden", "admin routes are disabled", nil)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.Unauthorized(w, "missing Authorization header")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.Unauthorized(w, "invalid Authorization header format")
			return
		}

		claims, err := serviceauth.ValidateToken(m.secret, parts[1])
		if err != nil {
			m.logger.Warn(r.Context(), "token validation failed", map[string]interface{}{
				"path":  r.URL.Path,
				"error": err.Error(),
			})
			httputil.Unauthorized(w, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), serviceIDKey, claims.ServiceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetServiceID returns the authenticated caller, if any.
func GetServiceID(ctx context.Context) string {
	if v, ok := ctx.Value(serviceIDKey).(string); ok {
		return v
	}
	return ""
}
