package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter mirrors RedisLimiter's fixed window on an in-process cache.
// Counters are stamped with the window start, so correctness does not hinge
// on the cache janitor firing exactly on time.
type MemoryLimiter struct {
	cache  *gocache.Cache
	prefix string
	max    int64
	window time.Duration
}

func NewMemoryLimiter(c *gocache.Cache, prefix string, max int, window time.Duration) *MemoryLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	if c == nil {
		c = gocache.New(window, 2*window)
	}
	return &MemoryLimiter{cache: c, prefix: prefix, max: int64(max), window: window}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.window)
	winEnd := winStart.Add(l.window)
	cacheKey := fmt.Sprintf("%s%s:%d", l.prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	// Add is a no-op when the counter exists; Increment is atomic under the
	// cache's lock, so concurrent callers each get a distinct hit count.
	_ = l.cache.Add(cacheKey, int64(0), winEnd.Sub(now))
	hits, err := l.cache.IncrementInt64(cacheKey, 1)
	if err != nil {
		// counter expired between Add and Increment; start a fresh window
		l.cache.Set(cacheKey, int64(1), winEnd.Sub(now))
		hits = 1
	}

	allowed := hits <= l.max
	remaining := l.max - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   winEnd.Sub(now),
	}
	if !allowed {
		res.RetryAfter = winEnd.Sub(now)
	}
	return res, nil
}
