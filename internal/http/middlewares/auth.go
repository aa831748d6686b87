package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	httperrors "github.com/tastebase/auth/internal/http/errors"
	"github.com/tastebase/auth/internal/jwt"
	"github.com/tastebase/auth/internal/observability/logger"
)

// TokenValidator is the slice of the session manager this middleware needs.
type TokenValidator interface {
	Validate(ctx context.Context, accessToken string) (*jwt.AccessClaims, error)
}

// RequireAuth validates the Bearer token and injects the claims into the
// context. Failures carry a WWW-Authenticate header so well-behaved
// clients know to re-authenticate.
func RequireAuth(validator TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="auth"`)
				httperrors.WriteError(w, httperrors.ErrTokenMissing)
				return
			}

			claims, err := validator.Validate(r.Context(), raw)
			if err != nil {
				writeAuthError(w, r, err)
				return
			}

			ctx := WithClaims(r.Context(), claims)
			// re-scope the request logger now that we know who it is
			ctx = logger.ToContext(ctx, logger.From(ctx).With(
				logger.UserID(claims.UserID()),
				logger.SessionID(claims.SessionID),
			))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="auth", error="invalid_token"`)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		httperrors.WriteError(w, httperrors.ErrTokenExpired)
	case errors.Is(err, jwt.ErrTokenInvalid):
		httperrors.WriteError(w, httperrors.ErrTokenInvalid)
	default:
		logger.From(r.Context()).Error("token validation failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}
