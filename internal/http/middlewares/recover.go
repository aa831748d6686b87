package middlewares

import (
	"net/http"
	"runtime/debug"

	httperrors "github.com/tastebase/auth/internal/http/errors"
	"github.com/tastebase/auth/internal/observability/logger"
)

// WithRecover turns handler panics into a 500 instead of tearing the
// process down. http.ErrAbortHandler passes through untouched, as the
// stdlib expects.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.From(r.Context()).Error("panic recovered",
					logger.Op("recover"),
					logger.Any("panic", rec),
					logger.String("stack", string(debug.Stack())),
				)
				httperrors.WriteError(w, httperrors.ErrInternalServerError.WithDetail("panic recovered"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
