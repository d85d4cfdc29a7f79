package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/fwojciec/larder"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ larder.ImageService = (*ImageService)(nil)

const imageColumns = "id, external_url, status, filename, created_at, last_accessed_at"

// ImageService implements larder.ImageService using SQLite.
type ImageService struct {
	db *DB

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewImageService creates a new ImageService.
func NewImageService(db *DB) *ImageService {
	return &ImageService{db: db, Now: time.Now}
}

// FindOrCreateImage returns the record for externalURL, creating a pending
// one if none exists.
func (s *ImageService) FindOrCreateImage(ctx context.Context, externalURL string) (*larder.CachedImage, error) {
	if externalURL == "" {
		return nil, larder.Errorf(larder.EINVALID, "image URL required")
	}

	now := formatTime(s.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cached_images (id, external_url, status, filename, created_at, last_accessed_at)
		VALUES (?, ?, ?, '', ?, ?)
		ON CONFLICT(external_url) DO NOTHING
	`, uuid.New().String(), externalURL, larder.ImagePending, now, now)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM cached_images WHERE external_url = ?`, externalURL)
	return scanImage(row)
}

// UpdateImage sets the status and filename of a record.
func (s *ImageService) UpdateImage(ctx context.Context, id string, upd larder.ImageUpdate) error {
	var result sql.Result
	var err error
	if upd.Filename != nil {
		result, err = s.db.ExecContext(ctx, `UPDATE cached_images SET status = ?, filename = ? WHERE id = ?`,
			upd.Status, *upd.Filename, id)
	} else {
		result, err = s.db.ExecContext(ctx, `UPDATE cached_images SET status = ? WHERE id = ?`,
			upd.Status, id)
	}
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return larder.Errorf(larder.ENOTFOUND, "image not found")
	}
	return nil
}

// FindCachedImages returns successfully cached records among urls and marks
// them as accessed now.
func (s *ImageService) FindCachedImages(ctx context.Context, urls []string) ([]*larder.CachedImage, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	where := ` WHERE status = ? AND filename != '' AND external_url IN (` + placeholders(len(urls)) + `)`
	args := append([]any{larder.ImageSuccess}, stringArgs(urls)...)

	rows, err := tx.QueryContext(ctx, `SELECT `+imageColumns+` FROM cached_images`+where, args...)
	if err != nil {
		return nil, err
	}
	var images []*larder.CachedImage
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		images = append(images, img)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, nil
	}

	now := s.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE cached_images SET last_accessed_at = ?`+where,
		append([]any{formatTime(now)}, args...)...); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	for _, img := range images {
		img.LastAccessedAt = now.Truncate(time.Second)
	}
	return images, nil
}

// DeleteImagesAccessedBefore removes records last accessed before cutoff and
// returns them.
func (s *ImageService) DeleteImagesAccessedBefore(ctx context.Context, cutoff time.Time) ([]*larder.CachedImage, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	c := formatTime(cutoff)
	rows, err := tx.QueryContext(ctx, `SELECT `+imageColumns+` FROM cached_images WHERE last_accessed_at < ?`, c)
	if err != nil {
		return nil, err
	}
	var images []*larder.CachedImage
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		images = append(images, img)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cached_images WHERE last_accessed_at < ?`, c); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return images, nil
}

func scanImage(row scanner) (*larder.CachedImage, error) {
	var img larder.CachedImage
	var status, createdAt, lastAccessedAt string

	if err := row.Scan(&img.ID, &img.ExternalURL, &status, &img.Filename, &createdAt, &lastAccessedAt); err != nil {
		return nil, err
	}
	img.Status = larder.ImageStatus(status)

	var err error
	if img.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if img.LastAccessedAt, err = parseRFC3339(lastAccessedAt, "last_accessed_at"); err != nil {
		return nil, err
	}
	return &img, nil
}
