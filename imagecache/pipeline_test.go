package imagecache_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/larder"
	"github.com/fwojciec/larder/fs"
	larderhttp "github.com/fwojciec/larder/http"
	"github.com/fwojciec/larder/imagecache"
	"github.com/fwojciec/larder/imaging"
	"github.com/fwojciec/larder/mock"
	"github.com/fwojciec/larder/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingImages is an in-memory ImageService built on the mock.
type recordingImages struct {
	mu      sync.Mutex
	records map[string]*larder.CachedImage
	updates []larder.ImageUpdate
}

func newRecordingImages() (*recordingImages, *mock.ImageService) {
	r := &recordingImages{records: make(map[string]*larder.CachedImage)}
	return r, &mock.ImageService{
		FindOrCreateImageFn: func(_ context.Context, u string) (*larder.CachedImage, error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			img, ok := r.records[u]
			if !ok {
				img = &larder.CachedImage{ID: u, ExternalURL: u, Status: larder.ImagePending}
				r.records[u] = img
			}
			cp := *img
			return &cp, nil
		},
		UpdateImageFn: func(_ context.Context, id string, upd larder.ImageUpdate) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.updates = append(r.updates, upd)
			img := r.records[id]
			img.Status = upd.Status
			if upd.Filename != nil {
				img.Filename = *upd.Filename
			}
			return nil
		},
		FindCachedImagesFn: func(_ context.Context, urls []string) ([]*larder.CachedImage, error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			var out []*larder.CachedImage
			for _, u := range urls {
				if img, ok := r.records[u]; ok && img.Cached() {
					cp := *img
					out = append(out, &cp)
				}
			}
			return out, nil
		},
	}
}

func (r *recordingImages) status(u string) larder.ImageStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if img, ok := r.records[u]; ok {
		return img.Status
	}
	return ""
}

func memStore() (*sync.Map, *mock.ImageStore) {
	var files sync.Map
	return &files, &mock.ImageStore{
		SaveFn: func(_ context.Context, name string, data []byte) error {
			files.Store(name, data)
			return nil
		},
		DeleteFn: func(_ context.Context, name string) error {
			files.Delete(name)
			return nil
		},
		URLFn: func(name string) string { return "/media/" + name },
	}
}

func passthrough() *mock.ImageNormalizer {
	return &mock.ImageNormalizer{NormalizeFn: func(data []byte) ([]byte, error) { return data, nil }}
}

func TestPipeline_CacheAll(t *testing.T) {
	t.Parallel()

	t.Run("caches image and serves local URL", func(t *testing.T) {
		t.Parallel()

		records, images := newRecordingImages()
		files, store := memStore()
		downloader := &mock.ImageDownloader{DownloadFn: func(context.Context, string) ([]byte, error) {
			return []byte("img"), nil
		}}
		p := imagecache.NewPipeline(images, store, downloader, passthrough())
		t.Cleanup(func() { p.Close() })

		u := "https://cdn.example.com/a/pie.png"
		p.CacheAll(context.Background(), []string{u})

		assert.Equal(t, larder.ImageSuccess, records.status(u))
		_, ok := files.Load(imagecache.Filename(u))
		assert.True(t, ok)

		got, err := p.CachedURLs(context.Background(), []string{u, "https://other.example.com/x.jpg"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{u: "/media/" + imagecache.Filename(u)}, got)
	})

	t.Run("rejects non-image URLs without a network call", func(t *testing.T) {
		t.Parallel()

		records, images := newRecordingImages()
		_, store := memStore()
		downloader := &mock.ImageDownloader{DownloadFn: func(context.Context, string) ([]byte, error) {
			t.Error("download must not be called")
			return nil, nil
		}}
		p := imagecache.NewPipeline(images, store, downloader, passthrough())
		t.Cleanup(func() { p.Close() })

		p.CacheAll(context.Background(), []string{"https://example.com/page.html", "https://example.com/noext"})

		assert.Empty(t, records.records)
	})

	t.Run("skips images that are already cached", func(t *testing.T) {
		t.Parallel()

		_, images := newRecordingImages()
		_, store := memStore()
		var calls atomic.Int32
		downloader := &mock.ImageDownloader{DownloadFn: func(context.Context, string) ([]byte, error) {
			calls.Add(1)
			return []byte("img"), nil
		}}
		p := imagecache.NewPipeline(images, store, downloader, passthrough())
		t.Cleanup(func() { p.Close() })

		u := "https://cdn.example.com/pie.jpg"
		p.CacheAll(context.Background(), []string{u})
		p.CacheAll(context.Background(), []string{u, u})

		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("marks download failure as failed and retries later", func(t *testing.T) {
		t.Parallel()

		records, images := newRecordingImages()
		_, store := memStore()
		var calls atomic.Int32
		downloader := &mock.ImageDownloader{DownloadFn: func(context.Context, string) ([]byte, error) {
			if calls.Add(1) == 1 {
				return nil, errors.New("403")
			}
			return []byte("img"), nil
		}}
		p := imagecache.NewPipeline(images, store, downloader, passthrough())
		t.Cleanup(func() { p.Close() })

		u := "https://cdn.example.com/pie.webp"
		p.CacheAll(context.Background(), []string{u})
		assert.Equal(t, larder.ImageFailed, records.status(u))

		got, err := p.CachedURLs(context.Background(), []string{u})
		require.NoError(t, err)
		assert.Empty(t, got)

		p.CacheAll(context.Background(), []string{u})
		assert.Equal(t, larder.ImageSuccess, records.status(u))
	})

	t.Run("marks conversion failure as failed", func(t *testing.T) {
		t.Parallel()

		records, images := newRecordingImages()
		_, store := memStore()
		downloader := &mock.ImageDownloader{DownloadFn: func(context.Context, string) ([]byte, error) {
			return []byte("garbage"), nil
		}}
		normalizer := &mock.ImageNormalizer{NormalizeFn: func([]byte) ([]byte, error) {
			return nil, larder.Errorf(larder.EINVALID, "cannot decode")
		}}
		p := imagecache.NewPipeline(images, store, downloader, normalizer)
		t.Cleanup(func() { p.Close() })

		u := "https://cdn.example.com/pie.gif"
		p.CacheAll(context.Background(), []string{u})

		assert.Equal(t, larder.ImageFailed, records.status(u))
	})

	t.Run("bounds concurrent downloads", func(t *testing.T) {
		t.Parallel()

		_, images := newRecordingImages()
		_, store := memStore()
		var inFlight, peak atomic.Int32
		downloader := &mock.ImageDownloader{DownloadFn: func(context.Context, string) ([]byte, error) {
			n := inFlight.Add(1)
			for {
				cur := peak.Load()
				if n <= cur || peak.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return []byte("img"), nil
		}}
		p := imagecache.NewPipeline(images, store, downloader, passthrough())
		t.Cleanup(func() { p.Close() })

		var urls []string
		for i := range 20 {
			urls = append(urls, "https://cdn.example.com/"+string(rune('a'+i))+".jpg")
		}
		p.CacheAll(context.Background(), urls)

		assert.LessOrEqual(t, peak.Load(), int32(imagecache.MaxConcurrentDownloads))
	})
}

func TestPipeline_CachedURLs(t *testing.T) {
	t.Parallel()

	t.Run("returns the same mapping on repeated lookups", func(t *testing.T) {
		t.Parallel()

		_, images := newRecordingImages()
		_, store := memStore()
		downloader := &mock.ImageDownloader{DownloadFn: func(context.Context, string) ([]byte, error) {
			return []byte("img"), nil
		}}
		p := imagecache.NewPipeline(images, store, downloader, passthrough())
		t.Cleanup(func() { p.Close() })

		u := "https://cdn.example.com/pie.jpeg"
		p.CacheAll(context.Background(), []string{u})

		first, err := p.CachedURLs(context.Background(), []string{u})
		require.NoError(t, err)
		second, err := p.CachedURLs(context.Background(), []string{u})
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("returns empty map for no URLs", func(t *testing.T) {
		t.Parallel()

		p := imagecache.NewPipeline(&mock.ImageService{}, &mock.ImageStore{}, &mock.ImageDownloader{}, passthrough())
		t.Cleanup(func() { p.Close() })

		got, err := p.CachedURLs(context.Background(), nil)

		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestPipeline_Cleanup(t *testing.T) {
	t.Parallel()

	t.Run("deletes expired records and their files", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		var cutoff time.Time
		images := &mock.ImageService{
			DeleteImagesAccessedBeforeFn: func(_ context.Context, c time.Time) ([]*larder.CachedImage, error) {
				cutoff = c
				return []*larder.CachedImage{
					{ID: "1", Filename: "a.jpg", Status: larder.ImageSuccess},
					{ID: "2", Status: larder.ImageFailed},
				}, nil
			},
		}
		var deleted []string
		store := &mock.ImageStore{DeleteFn: func(_ context.Context, name string) error {
			deleted = append(deleted, name)
			return nil
		}}
		p := imagecache.NewPipeline(images, store, &mock.ImageDownloader{}, passthrough())
		p.Now = func() time.Time { return now }
		t.Cleanup(func() { p.Close() })

		n, err := p.Cleanup(context.Background(), imagecache.DefaultRetention)

		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, now.Add(-30*24*time.Hour), cutoff)
		assert.Equal(t, []string{"a.jpg"}, deleted)
	})

	t.Run("rejects non-positive retention", func(t *testing.T) {
		t.Parallel()

		p := imagecache.NewPipeline(&mock.ImageService{}, &mock.ImageStore{}, &mock.ImageDownloader{}, passthrough())
		t.Cleanup(func() { p.Close() })

		_, err := p.Cleanup(context.Background(), 0)

		assert.Equal(t, larder.EINVALID, larder.ErrorCode(err))
	})
}

func TestPipeline_Detach(t *testing.T) {
	t.Parallel()

	t.Run("close drains detached batches", func(t *testing.T) {
		t.Parallel()

		records, images := newRecordingImages()
		_, store := memStore()
		downloader := &mock.ImageDownloader{DownloadFn: func(context.Context, string) ([]byte, error) {
			return []byte("img"), nil
		}}
		p := imagecache.NewPipeline(images, store, downloader, passthrough())

		p.Detach([]string{"https://cdn.example.com/a.jpg"})
		p.Detach([]string{"https://cdn.example.com/b.png"})
		require.NoError(t, p.Close())

		assert.Equal(t, larder.ImageSuccess, records.status("https://cdn.example.com/a.jpg"))
		assert.Equal(t, larder.ImageSuccess, records.status("https://cdn.example.com/b.png"))
	})

	t.Run("runs detached batches through the configured worker", func(t *testing.T) {
		t.Parallel()

		records, images := newRecordingImages()
		_, store := memStore()
		downloader := &mock.ImageDownloader{DownloadFn: func(context.Context, string) ([]byte, error) {
			return []byte("img"), nil
		}}
		p := imagecache.NewPipeline(images, store, downloader, passthrough())

		var mu sync.Mutex
		var batches [][]string
		p.Worker = &mock.ImageCache{CacheAllFn: func(ctx context.Context, urls []string) {
			mu.Lock()
			batches = append(batches, urls)
			mu.Unlock()
			p.CacheAll(ctx, urls)
		}}

		p.Detach([]string{"https://cdn.example.com/a.jpg"})
		require.NoError(t, p.Close())

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, [][]string{{"https://cdn.example.com/a.jpg"}}, batches)
		assert.Equal(t, larder.ImageSuccess, records.status("https://cdn.example.com/a.jpg"))
	})

	t.Run("drops batches after close", func(t *testing.T) {
		t.Parallel()

		records, images := newRecordingImages()
		p := imagecache.NewPipeline(images, &mock.ImageStore{}, &mock.ImageDownloader{}, passthrough())
		require.NoError(t, p.Close())

		p.Detach([]string{"https://cdn.example.com/a.jpg"})
		require.NoError(t, p.Close())

		assert.Empty(t, records.records)
	})
}

func TestFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		ext  string
	}{
		{"keeps known extension", "https://x.com/a/b.PNG", ".png"},
		{"ignores query string", "https://x.com/b.webp?w=300", ".webp"},
		{"defaults unknown extension", "https://x.com/image", ".jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := imagecache.Filename(tt.url)

			assert.Equal(t, tt.ext, filepath.Ext(got))
			assert.Len(t, got, 16+len(tt.ext))
			assert.Equal(t, got, imagecache.Filename(tt.url), "name must be stable")
		})
	}

	t.Run("differs per URL", func(t *testing.T) {
		t.Parallel()

		assert.NotEqual(t, imagecache.Filename("https://x.com/a.jpg"), imagecache.Filename("https://x.com/b.jpg"))
	})
}

func TestPipeline_RoundTrip(t *testing.T) {
	t.Parallel()

	src := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := range 8 {
		for x := range 8 {
			src.Set(x, y, color.NRGBA{R: 200, A: uint8(x * 30)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)

	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })

	dir := t.TempDir()
	p := imagecache.NewPipeline(
		sqlite.NewImageService(db),
		fs.NewImageStore(dir, "/media/"),
		larderhttp.NewImageDownloader(larderhttp.DefaultIdentities()),
		imaging.NewNormalizer(),
	)
	t.Cleanup(func() { p.Close() })

	u := srv.URL + "/photos/tart.png"
	p.CacheAll(context.Background(), []string{u})

	got, err := p.CachedURLs(context.Background(), []string{u})
	require.NoError(t, err)
	name := imagecache.Filename(u)
	assert.Equal(t, "/media/"+name, got[u])

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	decoded, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.IsType(t, &image.YCbCr{}, decoded)
}
