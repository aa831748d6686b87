package middlewares

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	httperrors "github.com/tastebase/auth/internal/http/errors"
	"github.com/tastebase/auth/internal/observability/logger"
	"github.com/tastebase/auth/internal/rate"
)

// RateKeyFunc derives the rate-limit key for a request.
type RateKeyFunc func(r *http.Request) string

// IPOnlyRateKey keys by client IP. It is the default when a limit does
// not say otherwise.
func IPOnlyRateKey(r *http.Request) string {
	return ClientIP(r)
}

// IPAndJSONFieldKey keys by client IP plus one string field peeked from
// the JSON body, so e.g. code requests for different targets do not
// share a bucket. The handler still sees the whole body.
func IPAndJSONFieldKey(field string) RateKeyFunc {
	return func(r *http.Request) string {
		v := strings.ToLower(peekJSONField(r, field, 4096))
		if v == "" {
			v = "-"
		}
		return ClientIP(r) + "|" + v
	}
}

// replayBody splices the peeked prefix back in front of the unread
// remainder while keeping the original closer.
type replayBody struct {
	io.Reader
	io.Closer
}

// peekJSONField reads up to limit bytes of a JSON body to pull one
// string field. Whatever was read is stitched back onto the body, so
// oversized payloads reach the handler intact even though the peek
// gives up on them.
func peekJSONField(r *http.Request, field string, limit int64) string {
	if r.Method != http.MethodPost ||
		!strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}

	var head bytes.Buffer
	_, _ = io.CopyN(&head, r.Body, limit)
	r.Body = replayBody{io.MultiReader(bytes.NewReader(head.Bytes()), r.Body), r.Body}

	var fields map[string]any
	if err := json.Unmarshal(head.Bytes(), &fields); err != nil {
		return ""
	}
	s, _ := fields[field].(string)
	return s
}

// RateLimitConfig configures one WithRateLimit instance.
type RateLimitConfig struct {
	Limiter   rate.Limiter
	KeyFunc   RateKeyFunc
	Whitelist []string // paths excluded from limiting (e.g. /healthz)
	OnLimited func()   // called once per rejected request, for counters
}

// WithRateLimit enforces a fixed-window limit per derived key. A nil
// limiter collapses to a pass-through, and a limiter backend failure
// lets the request through: availability over strictness.
func WithRateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPOnlyRateKey
	}

	exempt := make(map[string]struct{}, len(cfg.Whitelist))
	for _, p := range cfg.Whitelist {
		exempt[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := exempt[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}

			res, err := cfg.Limiter.Allow(r.Context(), cfg.KeyFunc(r))
			switch {
			case err != nil:
				logger.From(r.Context()).Warn("rate limiter unavailable", logger.Err(err))
			case !res.Allowed:
				if cfg.OnLimited != nil {
					cfg.OnLimited()
				}
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
				}
				setResetHeader(w.Header(), res.WindowTTL)
				httperrors.WriteError(w, httperrors.ErrTooManyRequests)
				return
			default:
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
				setResetHeader(w.Header(), res.WindowTTL)
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setResetHeader(h http.Header, ttl time.Duration) {
	if ttl > 0 {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))
	}
}
