// Package inmem provides process-local implementations of larder services.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/fwojciec/larder"
)

// DefaultMaxEntries bounds the number of entries a Cache holds.
const DefaultMaxEntries = 1000

// Ensure Cache implements larder.Cache at compile time.
var _ larder.Cache = (*Cache)(nil)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a TTL cache held in memory. Expired entries are dropped on read
// and when the cache is full.
type Cache struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// MaxEntries bounds the cache size.
	MaxEntries int

	mu      sync.Mutex
	entries map[string]entry
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{
		Now:        time.Now,
		MaxEntries: DefaultMaxEntries,
		entries:    make(map[string]entry),
	}
}

// Get returns the value for key if it has not expired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return larder.Errorf(larder.EINVALID, "cache TTL must be positive")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.Now()
	if _, exists := c.entries[key]; !exists && c.MaxEntries > 0 && len(c.entries) >= c.MaxEntries {
		c.evict(now)
	}
	c.entries[key] = entry{value: append([]byte(nil), value...), expiresAt: now.Add(ttl)}
	return nil
}

// Len returns the number of stored entries, including expired ones not yet
// dropped.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evict drops expired entries, or the entry closest to expiry if none has
// expired. Callers hold mu.
func (c *Cache) evict(now time.Time) {
	var soonest string
	var soonestAt time.Time
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			continue
		}
		if soonest == "" || e.expiresAt.Before(soonestAt) {
			soonest, soonestAt = k, e.expiresAt
		}
	}
	if len(c.entries) >= c.MaxEntries && soonest != "" {
		delete(c.entries, soonest)
	}
}
