package middlewares

import (
	"net/http"
	"strings"
)

// WithCORS answers cross-origin browser traffic for the configured
// origins. "*" allows any origin; the caller's origin is always echoed
// back (never the literal star) so credentialed requests work.
func WithCORS(allowed []string) Middleware {
	wildcard := false
	origins := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o == "*" {
			wildcard = true
			continue
		}
		if o != "" {
			origins[o] = struct{}{}
		}
	}

	allowOrigin := func(origin string) bool {
		if origin == "" {
			return false
		}
		if wildcard {
			return true
		}
		_, ok := origins[strings.ToLower(origin)]
		return ok
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")
			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")

			if origin := strings.TrimRight(r.Header.Get("Origin"), "/"); allowOrigin(origin) {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
				h.Set("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After, WWW-Authenticate")
				h.Set("Access-Control-Max-Age", "600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
