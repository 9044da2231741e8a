package jwt

import (
	"context"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims are the claims of a validated token.
type Claims struct {
	jwtlib.RegisteredClaims

	// Name is the optional display name claim.
	Name string `json:"name,omitempty"`

	// Scope is the optional space-separated scope claim.
	Scope string `json:"scope,omitempty"`
}

// UserID returns the identity forwarded upstream.
func (c *Claims) UserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// ClaimsContextKey is the context key for validated claims.
type ClaimsContextKey struct{}

// ContextWithClaims returns a context carrying claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey{}, claims)
}

// ClaimsFromContext returns the claims stored by ContextWithClaims.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey{}).(*Claims)
	return claims, ok && claims != nil
}
