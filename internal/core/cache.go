package core

import (
	"context"
	"time"
)

// Cache[T] is a typed key-value cache. Values are copied in and out.
type Cache[T any] interface {
	// Get returns cache.ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) (T, error)
	Set(ctx context.Context, key string, value T, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
	Health(ctx context.Context) error

	// GetWithFetch loads key through fetchFunc on a miss and stores the result.
	// Fetch errors are returned as-is and nothing is cached.
	GetWithFetch(
		ctx context.Context,
		key string,
		ttl time.Duration,
		fetchFunc func(ctx context.Context, key string) (T, error),
	) (T, error)
}
