package larder

import (
	"context"
	"time"
)

// ImageStatus is the cache state of an external image.
type ImageStatus string

// Image cache states.
const (
	ImagePending ImageStatus = "pending"
	ImageSuccess ImageStatus = "success"
	ImageFailed  ImageStatus = "failed"
)

// CachedImage tracks the local copy of one external image URL.
type CachedImage struct {
	ID          string      `json:"id"`
	ExternalURL string      `json:"externalUrl"`
	Status      ImageStatus `json:"status"`

	// Filename is the stored image name. Empty until the image is cached.
	Filename string `json:"filename,omitempty"`

	CreatedAt      time.Time `json:"createdAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
}

// Cached reports whether a usable local copy exists.
func (img *CachedImage) Cached() bool {
	return img.Status == ImageSuccess && img.Filename != ""
}

// ImageService represents a service for managing cached image records.
type ImageService interface {
	// FindOrCreateImage returns the record for externalURL, creating a
	// pending one if none exists.
	FindOrCreateImage(ctx context.Context, externalURL string) (*CachedImage, error)

	// UpdateImage sets the status and filename of a record.
	// Returns ENOTFOUND if the record does not exist.
	UpdateImage(ctx context.Context, id string, upd ImageUpdate) error

	// FindCachedImages returns successfully cached records among urls and
	// marks them as accessed now.
	FindCachedImages(ctx context.Context, urls []string) ([]*CachedImage, error)

	// DeleteImagesAccessedBefore removes records last accessed before cutoff
	// and returns them so stored files can be removed.
	DeleteImagesAccessedBefore(ctx context.Context, cutoff time.Time) ([]*CachedImage, error)
}

// ImageUpdate represents fields that can be updated on a cached image.
type ImageUpdate struct {
	Status   ImageStatus `json:"status"`
	Filename *string     `json:"filename"`
}

// ImageStore persists image payloads.
type ImageStore interface {
	// Save writes data under name, replacing any existing payload.
	Save(ctx context.Context, name string, data []byte) error

	// Delete removes a payload. Missing payloads are not an error.
	Delete(ctx context.Context, name string) error

	// URL returns the local URL that serves name.
	URL(name string) string
}

// ImageDownloader retrieves image bytes from remote URLs.
type ImageDownloader interface {
	// Download returns the body of a 200 response with an image content type.
	Download(ctx context.Context, url string) ([]byte, error)
}

// ImageNormalizer converts images to a universally displayable format.
type ImageNormalizer interface {
	// Normalize decodes data and re-encodes it without an alpha channel.
	Normalize(data []byte) ([]byte, error)
}

// ImageCache localizes remote images.
type ImageCache interface {
	// CacheAll downloads, normalizes and stores each URL. Failures are
	// recorded on the image records and never returned.
	CacheAll(ctx context.Context, urls []string)

	// CachedURLs maps each successfully cached URL among urls to its local URL.
	// URLs without a usable local copy are absent from the map.
	CachedURLs(ctx context.Context, urls []string) (map[string]string, error)
}
