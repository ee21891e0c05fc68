package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrUnauthorized means the request carried no usable credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the credentials do not cover the tenant.
	ErrForbidden = errors.New("forbidden")
)

// RoleAdmin may export from any tenant.
const RoleAdmin = "admin"

// Claims holds the JWT claims of a tabula token. The subject is stored in
// the standard "sub" claim.
type Claims struct {
	Role    string  `json:"role,omitempty"`
	Tenants []int64 `json:"tenants,omitempty"`
	jwt.RegisteredClaims
}

// Allows reports whether the claims grant access to tenantID.
func (c *Claims) Allows(tenantID int64) bool {
	if c == nil {
		return false
	}
	return c.Role == RoleAdmin || slices.Contains(c.Tenants, tenantID)
}

// Authorizer decides whether a request may act on a tenant.
type Authorizer interface {
	Authorize(r *http.Request, tenantID int64) (*Claims, error)
}

// AllowAll is the development gate used when no secret is configured.
type AllowAll struct{}

func (AllowAll) Authorize(*http.Request, int64) (*Claims, error) {
	return &Claims{Role: RoleAdmin}, nil
}

// TokenAuthorizer verifies HS256 bearer tokens.
type TokenAuthorizer struct {
	secret []byte
	clock  clockwork.Clock
}

// NewAuthorizer returns a TokenAuthorizer for secret, or AllowAll when the
// secret is empty.
func NewAuthorizer(secret string, clock clockwork.Clock) Authorizer {
	if strings.TrimSpace(secret) == "" {
		return AllowAll{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenAuthorizer{secret: []byte(secret), clock: clock}
}

// Issue creates a signed token for subject.
func (a *TokenAuthorizer) Issue(subject, role string, tenants []int64, ttl time.Duration) (string, error) {
	now := a.clock.Now().UTC()
	claims := Claims{
		Role:    role,
		Tenants: tenants,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims.
func (a *TokenAuthorizer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.clock.Now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Authorize checks the bearer token and the tenant it grants.
func (a *TokenAuthorizer) Authorize(r *http.Request, tenantID int64) (*Claims, error) {
	raw, ok := bearerToken(r)
	if !ok {
		return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}
	claims, err := a.Verify(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !claims.Allows(tenantID) {
		return nil, fmt.Errorf("%w: tenant %d is not granted", ErrForbidden, tenantID)
	}
	return claims, nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type claimsKey struct{}

// WithClaims returns a new context with the given claims attached.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext extracts claims from the context.
// Returns nil if no claims are present.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}
