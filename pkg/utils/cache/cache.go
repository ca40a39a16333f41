package cache

import (
	"context"
	"errors"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache loads values on first access and keeps them until invalidated
// or expired.
type Cache[K comparable, V any] interface {
	Get(ctx context.Context, key K) (*V, error)
	Invalidate(ctx context.Context, key K)
	Len() int
}
