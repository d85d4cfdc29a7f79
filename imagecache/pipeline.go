// Package imagecache downloads remote recipe images, normalizes them and
// serves local copies.
package imagecache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/larder"
	"golang.org/x/sync/errgroup"
)

// Cache policy.
const (
	MaxConcurrentDownloads = 5
	DownloadTimeout        = 15 * time.Second
	DefaultRetention       = 30 * 24 * time.Hour

	// DetachQueueSize is the number of batches Detach buffers before it
	// starts dropping new ones.
	DetachQueueSize = 32
)

// defaultExt names files whose URL extension is not recognized.
const defaultExt = ".jpg"

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// Ensure Pipeline implements larder.ImageCache at compile time.
var _ larder.ImageCache = (*Pipeline)(nil)

// Pipeline caches external images locally.
type Pipeline struct {
	Images     larder.ImageService
	Store      larder.ImageStore
	Downloader larder.ImageDownloader
	Normalizer larder.ImageNormalizer

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Logger receives per-image failures. Nil discards them.
	Logger *slog.Logger

	// Worker caches detached batches. Set it to a decorated view of the
	// pipeline so background work is logged and measured. Nil uses the
	// pipeline itself.
	Worker larder.ImageCache

	mu     sync.Mutex
	queue  chan []string
	closed bool
	done   chan struct{}
}

// NewPipeline creates a Pipeline and starts its background worker.
// Call Close to drain detached batches.
func NewPipeline(images larder.ImageService, store larder.ImageStore, downloader larder.ImageDownloader, normalizer larder.ImageNormalizer) *Pipeline {
	p := &Pipeline{
		Images:     images,
		Store:      store,
		Downloader: downloader,
		Normalizer: normalizer,
		Now:        time.Now,
		queue:      make(chan []string, DetachQueueSize),
		done:       make(chan struct{}),
	}
	go p.run()
	return p
}

// CacheAll attempts to cache every URL and returns once all attempts have
// finished. Failures are recorded on the image records.
func (p *Pipeline) CacheAll(ctx context.Context, urls []string) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentDownloads)

	for _, u := range dedup(urls) {
		g.Go(func() error {
			if err := p.cacheOne(gctx, u); err != nil {
				p.logger().Debug("image not cached", "url", u, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// cacheOne runs the flow for a single URL. Errors are returned for logging
// only; the record already reflects them.
func (p *Pipeline) cacheOne(ctx context.Context, rawURL string) error {
	if !HasImageExt(rawURL) {
		return larder.Errorf(larder.EINVALID, "not an image URL: %s", rawURL)
	}

	img, err := p.Images.FindOrCreateImage(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("find image record: %w", err)
	}
	if img.Cached() {
		return nil
	}

	dctx, cancel := context.WithTimeout(ctx, DownloadTimeout)
	defer cancel()

	data, err := p.Downloader.Download(dctx, rawURL)
	if err != nil {
		return p.fail(ctx, img, fmt.Errorf("download: %w", err))
	}

	data, err = p.Normalizer.Normalize(data)
	if err != nil {
		return p.fail(ctx, img, fmt.Errorf("normalize: %w", err))
	}

	name := Filename(rawURL)
	if err := p.Store.Save(ctx, name, data); err != nil {
		return p.fail(ctx, img, fmt.Errorf("save: %w", err))
	}

	if err := p.Images.UpdateImage(ctx, img.ID, larder.ImageUpdate{
		Status:   larder.ImageSuccess,
		Filename: &name,
	}); err != nil {
		return fmt.Errorf("update image record: %w", err)
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, img *larder.CachedImage, cause error) error {
	if err := p.Images.UpdateImage(ctx, img.ID, larder.ImageUpdate{Status: larder.ImageFailed}); err != nil {
		return fmt.Errorf("%w (mark failed: %v)", cause, err)
	}
	return cause
}

// CachedURLs maps each successfully cached URL among urls to its local URL.
func (p *Pipeline) CachedURLs(ctx context.Context, urls []string) (map[string]string, error) {
	out := make(map[string]string)
	if len(urls) == 0 {
		return out, nil
	}

	imgs, err := p.Images.FindCachedImages(ctx, urls)
	if err != nil {
		return nil, err
	}
	for _, img := range imgs {
		if img.Cached() {
			out[img.ExternalURL] = p.Store.URL(img.Filename)
		}
	}
	return out, nil
}

// Cleanup removes records, and their stored files, not accessed within
// retention. It returns the number of records removed.
func (p *Pipeline) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, larder.Errorf(larder.EINVALID, "retention must be positive")
	}

	removed, err := p.Images.DeleteImagesAccessedBefore(ctx, p.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	for _, img := range removed {
		if img.Filename == "" {
			continue
		}
		if err := p.Store.Delete(ctx, img.Filename); err != nil {
			p.logger().Warn("failed to delete cached image file", "file", img.Filename, "error", err)
		}
	}
	return len(removed), nil
}

// Detach queues urls for caching in the background and returns immediately.
// Batches submitted when the queue is full, or after Close, are dropped.
func (p *Pipeline) Detach(urls []string) {
	if len(urls) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- urls:
	default:
		p.logger().Warn("image cache queue full, dropping batch", "count", len(urls))
	}
}

// Close stops accepting detached batches and waits for queued ones to finish.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	<-p.done
	return nil
}

func (p *Pipeline) run() {
	defer close(p.done)
	for urls := range p.queue {
		p.worker().CacheAll(context.Background(), urls)
	}
}

func (p *Pipeline) worker() larder.ImageCache {
	if p.Worker == nil {
		return p
	}
	return p.Worker
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p.Logger
}

// HasImageExt reports whether the URL path ends in a known image extension.
func HasImageExt(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return imageExts[strings.ToLower(path.Ext(u.Path))]
}

// Filename returns the stored file name for an image URL: a hash of the
// URL plus its extension.
func Filename(rawURL string) string {
	ext := defaultExt
	if u, err := url.Parse(rawURL); err == nil {
		if e := strings.ToLower(path.Ext(u.Path)); imageExts[e] {
			ext = e
		}
	}
	return fmt.Sprintf("%016x%s", xxhash.Sum64String(rawURL), ext)
}

func dedup(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
