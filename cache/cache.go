/*
Package cache provides the TTL cache used for simulated market data and
repeated calculations.

PURPOSE:
  The dashboard asks for the same exchange rates, indicators and default
  projections many times per minute. Values are cached for a configured TTL
  either in Redis (shared between server instances) or in process memory.

IMPLEMENTATIONS:
  Redis:  github.com/redis/go-redis/v9 client, used when REDIS_ADDR is set
  Memory: map + mutex with lazy expiry, used otherwise and in tests

USAGE:
  c := cache.NewMemory()
  rates, err := cache.GetOrLoad(ctx, c, "market:rates", time.Hour, func() (Rates, error) {
      return collectRates(), nil
  })

SEE ALSO:
  - agents/collector.go: Caches market data
  - api/handlers.go: Caches default projections
*/
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Cache stores string values with a time-to-live. A zero TTL means no expiry.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ErrWrite marks a failure to store a freshly loaded value. The value
// returned alongside it is valid, so callers may log and carry on.
var ErrWrite = errors.New("cache write failed")

// GetOrLoad returns the cached JSON value at key, or calls load, caches its
// result for ttl and returns it. A cache read failure or a corrupt entry falls
// through to load. A failure to store the loaded value returns the value
// together with an error wrapping ErrWrite.
func GetOrLoad[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var zero T

	if raw, ok, err := c.Get(ctx, key); err == nil && ok {
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v, nil
		}
	}

	v, err := load()
	if err != nil {
		return zero, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return v, fmt.Errorf("%w: encode %s: %v", ErrWrite, key, err)
	}
	if err := c.Set(ctx, key, string(data), ttl); err != nil {
		return v, fmt.Errorf("%w: set %s: %v", ErrWrite, key, err)
	}
	return v, nil
}
