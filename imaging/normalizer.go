// Package imaging converts downloaded images into a format every client
// can display.
package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"

	// Registered decoders.
	_ "image/gif"
	_ "image/png"

	"github.com/fwojciec/larder"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// Quality is the JPEG quality used for normalized images.
	Quality = 92

	// MaxDimension bounds the longest side of a normalized image.
	MaxDimension = 2048

	// MaxPixels bounds the declared width times height of an input image.
	// Larger images are rejected before any pixel data is decoded.
	MaxPixels = 50_000_000
)

var _ larder.ImageNormalizer = (*Normalizer)(nil)

// Normalizer re-encodes images as opaque JPEG. Transparent areas are
// flattened onto white, and palette or grayscale images become full color.
type Normalizer struct {
	Quality      int
	MaxDimension int
	MaxPixels    int
}

// NewNormalizer creates a Normalizer with the default quality and size bound.
func NewNormalizer() *Normalizer {
	return &Normalizer{Quality: Quality, MaxDimension: MaxDimension, MaxPixels: MaxPixels}
}

// Normalize decodes data and re-encodes it as JPEG.
func (n *Normalizer) Normalize(data []byte) ([]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, larder.Errorf(larder.EINVALID, "failed to decode image: %v", err)
	}
	limit := n.MaxPixels
	if limit <= 0 {
		limit = MaxPixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > limit/cfg.Height {
		return nil, larder.Errorf(larder.EINVALID, "%s image too large: %dx%d", format, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, larder.Errorf(larder.EINVALID, "failed to decode image: %v", err)
	}

	dst := image.NewRGBA(targetBounds(src.Bounds(), n.MaxDimension))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if dst.Bounds().Size() == src.Bounds().Size() {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	}

	quality := n.Quality
	if quality <= 0 {
		quality = Quality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, larder.Errorf(larder.EINTERNAL, "failed to encode %s image: %v", format, err)
	}
	return buf.Bytes(), nil
}

// targetBounds returns a zero-origin rectangle for b scaled so its longest
// side is at most limit. A limit of zero or less disables scaling.
func targetBounds(b image.Rectangle, limit int) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	if limit <= 0 || (w <= limit && h <= limit) {
		return image.Rect(0, 0, w, h)
	}
	if w >= h {
		return image.Rect(0, 0, limit, max(1, h*limit/w))
	}
	return image.Rect(0, 0, max(1, w*limit/h), limit)
}
