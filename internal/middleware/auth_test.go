package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/R3E-Network/starknet_randomness/internal/serviceauth"
)

func generateTestToken(t *testing.T, secret string) string {
	t.Helper()
	gen, err := serviceauth.NewTokenGenerator(secret, "operator", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenGenerator() error = %v", err)
	}
	token, err := gen.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return token
}

func okHandler(t *testing.T, wantService string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := GetServiceID(r.Context()); got != wantService {
			t.Errorf("GetServiceID() = %q, want %q", got, wantService)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	m := NewAuthMiddleware("secret", nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/vrf-coordinator", nil)
	req.Header.Set("Authorization", "Bearer "+generateTestToken(t, "secret"))
	rec := httptest.NewRecorder()

	m.Handler(okHandler(t, "operator")).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"disabled", "", "Bearer x", http.StatusForbidden},
		{"missing header", "secret", "", http.StatusUnauthorized},
		{"bad format", "secret", "Token abc", http.StatusUnauthorized},
		{"wrong secret", "secret", "Bearer " + generateTestToken(t, "other"), http.StatusUnauthorized},
		{"garbage", "secret", "Bearer not.a.jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAuthMiddleware(tt.secret, nil)
			req := httptest.NewRequest(http.MethodPost, "/admin/vrf-coordinator", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("next handler must not run")
			})).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
