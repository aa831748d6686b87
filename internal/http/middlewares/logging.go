package middlewares

import (
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tastebase/auth/internal/observability/logger"
)

// statusRecorder wraps a ResponseWriter to remember what the handler
// sent. A zero status means no header was written yet; duplicate
// WriteHeader calls are swallowed so the first status wins.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status != 0 {
		return
	}
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.WriteHeader(http.StatusOK)
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// Status returns the status sent to the client. Handlers that return
// without writing anything count as 200, matching net/http.
func (s *statusRecorder) Status() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// ClientIP yields the peer address for rate keys and audit fields,
// preferring the first X-Forwarded-For hop when a proxy added one.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// WithLogging injects a request-scoped logger into the context and
// writes one completion line per request. The status picks the level:
// 5xx logs as error, 4xx as warn.
func WithLogging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLog := logger.L().With(
				logger.RequestID(requestIDFor(w, r)),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
			)

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(logger.ToContext(r.Context(), reqLog)))

			logCompletion(reqLog, rec, time.Since(start))
		})
	}
}

// requestIDFor reads the id WithRequestID stamped on the response, or
// falls back to the context copy.
func requestIDFor(w http.ResponseWriter, r *http.Request) string {
	if id := w.Header().Get("X-Request-ID"); id != "" {
		return id
	}
	return GetRequestID(r.Context())
}

func logCompletion(log *zap.Logger, rec *statusRecorder, dur time.Duration) {
	status := rec.Status()
	fields := []zap.Field{
		logger.Status(status),
		logger.Bytes(rec.bytes),
		logger.Duration(dur),
	}
	switch {
	case status >= 500:
		log.Error("request failed", fields...)
	case status >= 400:
		log.Warn("request completed with client error", fields...)
	default:
		log.Info("request completed", fields...)
	}
}
