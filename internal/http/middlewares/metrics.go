package middlewares

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tastebase/auth/internal/metrics"
)

// WithMetrics instruments requests with counters, latency and inflight
// gauges. Paths are collapsed to route labels so ids and tokens do not
// explode the label space.
func WithMetrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method := strings.ToUpper(r.Method)
			route := routeLabel(r.URL.Path)

			metrics.HTTPInflight.WithLabelValues(method, route).Inc()
			start := time.Now()

			rec := &statusRecorder{ResponseWriter: w}
			defer func() { observeRequest(method, route, start, rec.Status()) }()

			next.ServeHTTP(rec, r)
		})
	}
}

func observeRequest(method, route string, start time.Time, status int) {
	metrics.HTTPInflight.WithLabelValues(method, route).Dec()
	metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// dynamicSegment matches path pieces that vary per request: uuids, long
// hex strings, url-safe tokens and plain numbers.
var dynamicSegment = regexp.MustCompile(
	`^(?:[0-9a-fA-F]{8}-[0-9a-fA-F-]{4}-[0-9a-fA-F-]{4,}|[0-9a-fA-F]{16,}|[A-Za-z0-9_-]{24,}|[+-]?[0-9]+)$`,
)

// routeLabel rewrites a request path into a bounded-cardinality label,
// replacing each dynamic segment with ":param".
func routeLabel(p string) string {
	p, _, _ = strings.Cut(p, "?")

	var b strings.Builder
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			continue
		}
		b.WriteByte('/')
		if len(seg) > 48 || dynamicSegment.MatchString(seg) {
			b.WriteString(":param")
		} else {
			b.WriteString(seg)
		}
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}
