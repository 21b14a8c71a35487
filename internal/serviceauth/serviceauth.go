// Package serviceauth issues and verifies the HS256 tokens exchanged between
// the randomness service, its remote signer and its admin clients.
package serviceauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// ServiceTokenHeader carries the token on service-to-service calls.
	ServiceTokenHeader = "X-Service-Token"

	// DefaultTokenExpiry is the lifetime of generated tokens.
	DefaultTokenExpiry = 1 * time.Hour

	issuer = "starknet-randomness"
)

var (
	ErrMissingSecret = errors.New("serviceauth: secret is required")
	ErrInvalidToken  = errors.New("serviceauth: invalid token")
)

// ServiceClaims are the claims carried by a service token.
type ServiceClaims struct {
	ServiceID string `json:"service_id"`
	jwt.RegisteredClaims
}

// =============================================================================
// Token Generator
// =============================================================================

// TokenGenerator signs service tokens with a shared secret.
type TokenGenerator struct {
	secret    []byte
	serviceID string
	expiry    time.Duration
	now       func() time.Time
}

// NewTokenGenerator creates a generator for serviceID. A zero expiry uses DefaultTokenExpiry.
func NewTokenGenerator(secret, serviceID string, expiry time.Duration) (*TokenGenerator, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if expiry == 0 {
		expiry = DefaultTokenExpiry
	}
	return &TokenGenerator{
		secret:    []byte(secret),
		serviceID: serviceID,
		expiry:    expiry,
		now:       time.Now,
	}, nil
}

// GenerateToken returns a freshly signed token.
func (g *TokenGenerator) GenerateToken() (string, error) {
	now := g.now()
	claims := &ServiceClaims{
		ServiceID: g.serviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.expiry)),
			Issuer:    issuer,
			Subject:   g.serviceID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.secret)
}

// =============================================================================
// Validation
// =============================================================================

// ValidateToken parses tokenString and checks its signature and expiry.
func ValidateToken(secret, tokenString string) (*ServiceClaims, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*ServiceClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
