package mock

import (
	"context"
	"time"

	"github.com/fwojciec/larder"
)

var _ larder.Cache = (*Cache)(nil)

// Cache is a mock implementation of larder.Cache.
type Cache struct {
	GetFn func(ctx context.Context, key string) ([]byte, bool, error)
	SetFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.GetFn(ctx, key)
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.SetFn(ctx, key, value, ttl)
}
