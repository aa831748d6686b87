package middlewares

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// inbound ids longer than this are treated as absent rather than echoed
const maxRequestIDLen = 128

// WithRequestID propagates the client's X-Request-ID or mints one. The id
// is echoed on the response and rides the context for log correlation.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
			if rid == "" || len(rid) > maxRequestIDLen {
				rid = uuid.NewString()
			}

			w.Header().Set("X-Request-ID", rid)
			next.ServeHTTP(w, r.WithContext(setRequestID(r.Context(), rid)))
		})
	}
}
