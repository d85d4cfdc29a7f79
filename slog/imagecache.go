package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/larder"
)

// Ensure LoggingImageCache implements larder.ImageCache.
var _ larder.ImageCache = (*LoggingImageCache)(nil)

// LoggingImageCache wraps an ImageCache with logging.
type LoggingImageCache struct {
	next   larder.ImageCache
	logger *slog.Logger
}

// NewLoggingImageCache creates a new LoggingImageCache.
func NewLoggingImageCache(next larder.ImageCache, logger *slog.Logger) *LoggingImageCache {
	return &LoggingImageCache{next: next, logger: logger}
}

// CacheAll delegates to the wrapped cache and logs the batch.
func (c *LoggingImageCache) CacheAll(ctx context.Context, urls []string) {
	begin := time.Now()
	c.next.CacheAll(ctx, urls)
	c.logger.Info("cache images",
		"count", len(urls),
		"duration", time.Since(begin),
	)
}

// CachedURLs delegates to the wrapped cache and logs the lookup.
func (c *LoggingImageCache) CachedURLs(ctx context.Context, urls []string) (cached map[string]string, err error) {
	defer func(begin time.Time) {
		c.logger.Debug("cached image lookup",
			"count", len(urls),
			"hits", len(cached),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return c.next.CachedURLs(ctx, urls)
}
