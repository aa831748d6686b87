package middlewares

import (
	"context"

	"github.com/tastebase/auth/internal/jwt"
)

type (
	claimsKey    struct{}
	requestIDKey struct{}
)

// WithClaims injects validated access-token claims into the context.
func WithClaims(ctx context.Context, claims *jwt.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

func setRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetClaims returns the validated claims, or nil when the auth
// middleware did not run on this route.
func GetClaims(ctx context.Context) *jwt.AccessClaims {
	c, _ := ctx.Value(claimsKey{}).(*jwt.AccessClaims)
	return c
}

// GetUserID returns the authenticated user id, or "".
func GetUserID(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		return c.UserID()
	}
	return ""
}

// GetSessionID returns the authenticated session id, or "".
func GetSessionID(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		return c.SessionID
	}
	return ""
}

// GetRequestID returns the request id, or "".
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey{}).(string)
	return s
}
