package mock

import (
	"context"
	"time"

	"github.com/fwojciec/larder"
)

var _ larder.ImageService = (*ImageService)(nil)

// ImageService is a mock implementation of larder.ImageService.
type ImageService struct {
	FindOrCreateImageFn          func(ctx context.Context, externalURL string) (*larder.CachedImage, error)
	UpdateImageFn                func(ctx context.Context, id string, upd larder.ImageUpdate) error
	FindCachedImagesFn           func(ctx context.Context, urls []string) ([]*larder.CachedImage, error)
	DeleteImagesAccessedBeforeFn func(ctx context.Context, cutoff time.Time) ([]*larder.CachedImage, error)
}

func (s *ImageService) FindOrCreateImage(ctx context.Context, externalURL string) (*larder.CachedImage, error) {
	return s.FindOrCreateImageFn(ctx, externalURL)
}

func (s *ImageService) UpdateImage(ctx context.Context, id string, upd larder.ImageUpdate) error {
	return s.UpdateImageFn(ctx, id, upd)
}

func (s *ImageService) FindCachedImages(ctx context.Context, urls []string) ([]*larder.CachedImage, error) {
	return s.FindCachedImagesFn(ctx, urls)
}

func (s *ImageService) DeleteImagesAccessedBefore(ctx context.Context, cutoff time.Time) ([]*larder.CachedImage, error) {
	return s.DeleteImagesAccessedBeforeFn(ctx, cutoff)
}

var _ larder.ImageStore = (*ImageStore)(nil)

// ImageStore is a mock implementation of larder.ImageStore.
type ImageStore struct {
	SaveFn   func(ctx context.Context, name string, data []byte) error
	DeleteFn func(ctx context.Context, name string) error
	URLFn    func(name string) string
}

func (s *ImageStore) Save(ctx context.Context, name string, data []byte) error {
	return s.SaveFn(ctx, name, data)
}

func (s *ImageStore) Delete(ctx context.Context, name string) error {
	return s.DeleteFn(ctx, name)
}

func (s *ImageStore) URL(name string) string {
	return s.URLFn(name)
}

var _ larder.ImageDownloader = (*ImageDownloader)(nil)

// ImageDownloader is a mock implementation of larder.ImageDownloader.
type ImageDownloader struct {
	DownloadFn func(ctx context.Context, url string) ([]byte, error)
}

func (d *ImageDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	return d.DownloadFn(ctx, url)
}

var _ larder.ImageNormalizer = (*ImageNormalizer)(nil)

// ImageNormalizer is a mock implementation of larder.ImageNormalizer.
type ImageNormalizer struct {
	NormalizeFn func(data []byte) ([]byte, error)
}

func (n *ImageNormalizer) Normalize(data []byte) ([]byte, error) {
	return n.NormalizeFn(data)
}

var _ larder.ImageCache = (*ImageCache)(nil)

// ImageCache is a mock implementation of larder.ImageCache.
type ImageCache struct {
	CacheAllFn   func(ctx context.Context, urls []string)
	CachedURLsFn func(ctx context.Context, urls []string) (map[string]string, error)
}

func (c *ImageCache) CacheAll(ctx context.Context, urls []string) {
	c.CacheAllFn(ctx, urls)
}

func (c *ImageCache) CachedURLs(ctx context.Context, urls []string) (map[string]string, error) {
	return c.CachedURLsFn(ctx, urls)
}
