package fs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/larder"
)

// Ensure ImageStore implements larder.ImageStore at compile time.
var _ larder.ImageStore = (*ImageStore)(nil)

// ImageStore keeps cached images as files in a single directory, served
// under a URL prefix.
type ImageStore struct {
	dir     string
	baseURL string
}

// NewImageStore creates an ImageStore writing to dir. Stored files are
// addressed as baseURL followed by the file name.
func NewImageStore(dir, baseURL string) *ImageStore {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &ImageStore{dir: dir, baseURL: baseURL}
}

// Dir returns the directory images are stored in.
func (s *ImageStore) Dir() string {
	return s.dir
}

// Save writes data under name. The file is written to a temporary path and
// renamed into place so readers never see a partial image.
func (s *ImageStore) Save(ctx context.Context, name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes the file stored under name. Missing files are ignored.
func (s *ImageStore) Delete(ctx context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// URL returns the local URL serving name.
func (s *ImageStore) URL(name string) string {
	return s.baseURL + name
}

// path returns the file path for name, rejecting names that would escape
// the store directory.
func (s *ImageStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", larder.Errorf(larder.EINVALID, "invalid image name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}
