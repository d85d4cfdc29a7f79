package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fwojciec/larder"
)

// maxImageBytes caps the size of a downloaded image.
const maxImageBytes = 20 << 20

// Ensure ImageDownloader implements larder.ImageDownloader at compile time.
var _ larder.ImageDownloader = (*ImageDownloader)(nil)

// ImageDownloader downloads images, trying each browser identity in turn
// until one is served.
type ImageDownloader struct {
	client     *http.Client
	identities larder.IdentityProvider
}

// NewImageDownloader creates an ImageDownloader. A nil provider means
// DefaultIdentities. Callers bound each download through the context.
func NewImageDownloader(identities larder.IdentityProvider) *ImageDownloader {
	if identities == nil {
		identities = DefaultIdentities()
	}
	return &ImageDownloader{
		client:     &http.Client{},
		identities: identities,
	}
}

// Download returns the image at rawURL. The first identity whose request
// yields a 200 response with an image content type wins.
func (d *ImageDownloader) Download(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, larder.Errorf(larder.EINVALID, "invalid image URL %q", rawURL)
	}

	profiles := d.identities.Profiles()
	if len(profiles) == 0 {
		profiles = []larder.Identity{{}}
	}

	var errs []error
	for _, id := range profiles {
		data, err := d.download(ctx, u, id)
		if err == nil {
			return data, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}

func (d *ImageDownloader) download(ctx context.Context, u *url.URL, id larder.Identity) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	applyIdentity(req, id)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Referer", u.Scheme+"://"+u.Host+"/")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, u)
	}
	if resp.ContentLength > maxImageBytes {
		return nil, fmt.Errorf("image too large: %d bytes", resp.ContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, err
	}

	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, fmt.Errorf("not an image: %s", contentType)
	}
	return data, nil
}
