package prometheus

import (
	"context"
	"net/url"
	"time"

	"github.com/fwojciec/larder"
)

// Ensure decorators implement their interfaces at compile time.
var (
	_ larder.Fetcher       = (*Fetcher)(nil)
	_ larder.HealthTracker = (*HealthTracker)(nil)
	_ larder.ImageCache    = (*ImageCache)(nil)
)

// Fetcher records fetch counts and durations per host.
type Fetcher struct {
	next    larder.Fetcher
	metrics *Metrics
}

// NewFetcher wraps next.
func NewFetcher(next larder.Fetcher, metrics *Metrics) *Fetcher {
	return &Fetcher{next: next, metrics: metrics}
}

// Fetch delegates to the wrapped fetcher.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	host := hostOf(rawURL)
	start := time.Now()
	html, err := f.next.Fetch(ctx, rawURL)
	f.metrics.SourceFetchDuration.WithLabelValues(host).Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "error"
	}
	f.metrics.SourceFetchTotal.WithLabelValues(host, status).Inc()
	return html, err
}

// Close closes the wrapped fetcher.
func (f *Fetcher) Close() error {
	return f.next.Close()
}

// HealthTracker publishes each source's needs-attention flag after every
// recorded outcome.
type HealthTracker struct {
	next    larder.HealthTracker
	metrics *Metrics
}

// NewHealthTracker wraps next.
func NewHealthTracker(next larder.HealthTracker, metrics *Metrics) *HealthTracker {
	return &HealthTracker{next: next, metrics: metrics}
}

// RecordSuccess records the outcome and publishes the source's flag.
func (h *HealthTracker) RecordSuccess(ctx context.Context, source *larder.SearchSource) error {
	err := h.next.RecordSuccess(ctx, source)
	h.observe(source)
	return err
}

// RecordFailure records the outcome and publishes the source's flag.
func (h *HealthTracker) RecordFailure(ctx context.Context, source *larder.SearchSource) error {
	err := h.next.RecordFailure(ctx, source)
	h.observe(source)
	return err
}

func (h *HealthTracker) observe(source *larder.SearchSource) {
	v := 0.0
	if source.NeedsAttention {
		v = 1
	}
	h.metrics.SourceNeedsAttention.WithLabelValues(source.Host).Set(v)
}

// ImageCache records lookup hits and misses and batch durations.
type ImageCache struct {
	next    larder.ImageCache
	metrics *Metrics
}

// NewImageCache wraps next.
func NewImageCache(next larder.ImageCache, metrics *Metrics) *ImageCache {
	return &ImageCache{next: next, metrics: metrics}
}

// CacheAll caches urls and observes the batch duration.
func (c *ImageCache) CacheAll(ctx context.Context, urls []string) {
	start := time.Now()
	c.next.CacheAll(ctx, urls)
	c.metrics.ImageCacheDuration.Observe(time.Since(start).Seconds())
}

// CachedURLs looks up urls and counts hits and misses per unique URL.
func (c *ImageCache) CachedURLs(ctx context.Context, urls []string) (map[string]string, error) {
	cached, err := c.next.CachedURLs(ctx, urls)
	if err != nil {
		return nil, err
	}
	c.metrics.ImageCacheTotal.WithLabelValues("hit").Add(float64(len(cached)))
	unique := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		unique[u] = struct{}{}
	}
	c.metrics.ImageCacheTotal.WithLabelValues("miss").Add(float64(len(unique) - len(cached)))
	return cached, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Hostname()
}
