package loadercache

import (
	"context"
	"sync"
	"time"

	"github.com/mpapenbr/racetiming-analytics/log"
	"github.com/mpapenbr/racetiming-analytics/pkg/utils/cache"
)

type (
	Option[K comparable, V any] func(*config[K, V])
	item[T any]                 struct {
		data    T
		expires *time.Time
	}
	LoaderFunc[K comparable, V any] func(ctx context.Context, key K) (*V, error)
	config[K comparable, V any]     struct {
		expiration time.Duration
		loader     LoaderFunc[K, V]
		l          *log.Logger
	}
	loaderCache[K comparable, V any] struct {
		mutex  sync.Mutex
		items  map[K]item[*V]
		config *config[K, V]
	}
)

// WithExpiration lets entries expire after d. Zero (the default) keeps
// entries until they are invalidated.
func WithExpiration[K comparable, V any](d time.Duration) Option[K, V] {
	return func(c *config[K, V]) {
		c.expiration = d
	}
}

func WithLoader[K comparable, V any](lf LoaderFunc[K, V]) Option[K, V] {
	return func(c *config[K, V]) {
		c.loader = lf
	}
}

func WithLogger[K comparable, V any](arg *log.Logger) Option[K, V] {
	return func(c *config[K, V]) {
		c.l = arg
	}
}

func New[K comparable, V any](opts ...Option[K, V]) cache.Cache[K, V] {
	c := &config[K, V]{
		l: log.Default().Named("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return &loaderCache[K, V]{
		items:  make(map[K]item[*V]),
		config: c,
	}
}

func (c *loaderCache[K, V]) Get(ctx context.Context, key K) (*V, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if it, ok := c.items[key]; ok {
		if it.expires == nil || it.expires.After(time.Now()) {
			return it.data, nil
		}
		delete(c.items, key)
	}
	return c.load(ctx, key)
}

func (c *loaderCache[K, V]) load(ctx context.Context, key K) (*V, error) {
	if c.config.loader == nil {
		return nil, cache.ErrCacheMiss
	}
	v, err := c.config.loader(ctx, key)
	if err != nil {
		c.config.l.Debug("load failed", log.Any("key", key), log.ErrorField(err))
		return nil, err
	}
	c.config.l.Debug("loaded", log.Any("key", key))
	it := item[*V]{data: v}
	if c.config.expiration > 0 {
		expires := time.Now().Add(c.config.expiration)
		it.expires = &expires
	}
	c.items[key] = it
	return v, nil
}

func (c *loaderCache[K, V]) Invalidate(ctx context.Context, key K) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.items, key)
	c.config.l.Debug("invalidated", log.Any("key", key), log.Int("remaining", len(c.items)))
}

func (c *loaderCache[K, V]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.items)
}
