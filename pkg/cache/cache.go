package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service defines cache operations interface. Values are stored as JSON;
// Get decodes into dest.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
	Close() error
}

// Remember returns the cached value for key, or calls load and caches its
// result for ttl. The boolean reports whether the value came from the cache.
// Cache read and write failures other than a miss are ignored so that a
// broken cache degrades to a pass-through.
func Remember[T any](ctx context.Context, c Service, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, bool, error) {
	var v T
	if err := c.Get(ctx, key, &v); err == nil {
		return v, true, nil
	}

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	_ = c.Set(ctx, key, v, ttl)
	return v, false, nil
}
