// Package rate provides fixed-window request limiting keyed by caller
// identity. Two backends exist: Redis for multi-instance deployments and an
// in-process cache for single-node and test setups.
package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Result is one admission decision. CurrentHits counts the hit being
// judged; RetryAfter is zero while Allowed holds.
type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

// Limiter admits or refuses a single hit for a caller key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter counts hits with INCR + EXPIRE. Counters are keyed by
// (caller, window start): a rollover simply moves to a new key, and the
// old counter ages out with its TTL.
type RedisLimiter struct {
	client *rdb.Client
	prefix string
	max    int64
	window time.Duration
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{client: client, prefix: prefix, max: int64(max), window: window}
}

// windowKey pins the counter to the window containing now.
func (l *RedisLimiter) windowKey(key string, now time.Time) string {
	start := now.Truncate(l.window).Unix()
	return fmt.Sprintf("%s%s:%d", l.prefix, strings.ReplaceAll(key, " ", "_"), start)
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	k := l.windowKey(key, time.Now().UTC())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.TTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	hits := incr.Val()
	left := ttl.Val()
	if hits == 1 {
		// brand-new counter, no expiry yet
		_ = l.client.Expire(ctx, k, l.window).Err()
		left = l.window
	}

	res := Result{
		Allowed:     hits <= l.max,
		Remaining:   max(l.max-hits, 0),
		CurrentHits: hits,
		WindowTTL:   left,
	}
	if !res.Allowed {
		res.RetryAfter = left
		if res.RetryAfter <= 0 {
			res.RetryAfter = l.window
		}
	}
	return res, nil
}
