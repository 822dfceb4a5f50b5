// Package auth provides JWT bearer authentication and role checks for the
// MediCase API. Identity is carried as a Principal on the request context;
// there is no process-wide session state.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const principalKey contextKey = "principal"

// Claims are the JWT claims issued for MediCase users.
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// JWTConfig holds token verification settings.
type JWTConfig struct {
	Issuer   string
	Audience string
	// SigningKey is the HMAC secret used to verify tokens.
	SigningKey []byte
}

// Principal identifies the authenticated user for the duration of one
// request. Services stamp editor identity from it.
type Principal struct {
	UserID string
	Name   string
	Roles  []string
}

// HasRole reports whether the principal carries the given role. Admins
// implicitly satisfy every role check.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role || r == "admin" {
			return true
		}
	}
	return false
}

// WithPrincipal returns a context carrying the given principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the authenticated principal from context.
// The zero Principal is returned for unauthenticated contexts.
func PrincipalFromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey).(Principal)
	return p
}

// UserIDFromContext is a shortcut for PrincipalFromContext(ctx).UserID.
func UserIDFromContext(ctx context.Context) string {
	return PrincipalFromContext(ctx).UserID
}

// RolesFromContext is a shortcut for PrincipalFromContext(ctx).Roles.
func RolesFromContext(ctx context.Context) []string {
	return PrincipalFromContext(ctx).Roles
}
