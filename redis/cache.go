// Package redis provides a Redis-backed larder.Cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/larder"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces larder keys in a shared Redis.
const DefaultPrefix = "larder:cache:"

// Ensure Cache implements larder.Cache at compile time.
var _ larder.Cache = (*Cache)(nil)

// Cache stores values in Redis with native key expiry.
type Cache struct {
	client *redis.Client
	prefix string
}

// NewCache creates a Cache using client.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client, prefix: DefaultPrefix}
}

// Open connects to the Redis server at rawURL and verifies it is reachable.
func Open(ctx context.Context, rawURL string) (*Cache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, larder.Errorf(larder.EINVALID, "invalid redis URL: %v", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return NewCache(client), nil
}

// Get returns the value for key if it has not expired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set stores value under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return larder.Errorf(larder.EINVALID, "cache TTL must be positive")
	}
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}
