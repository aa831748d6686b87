package rate

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	rdb "github.com/redis/go-redis/v9"
)

// Factory hands out limiters for named endpoints, all sharing one backend.
// With a Redis client the counters live in Redis; otherwise they live in a
// shared in-process cache.
type Factory struct {
	client *rdb.Client
	cache  *gocache.Cache
	prefix string
}

func NewFactory(client *rdb.Client, prefix string) *Factory {
	if prefix == "" {
		prefix = "rl:"
	}
	f := &Factory{client: client, prefix: prefix}
	if client == nil {
		f.cache = gocache.New(5*time.Minute, 10*time.Minute)
	}
	return f
}

// New builds a limiter whose keys are namespaced by the endpoint name.
func (f *Factory) New(name string, limit int, window time.Duration) Limiter {
	prefix := f.prefix + name + ":"
	if f.client != nil {
		return NewRedisLimiter(f.client, prefix, limit, window)
	}
	return NewMemoryLimiter(f.cache, prefix, limit, window)
}
