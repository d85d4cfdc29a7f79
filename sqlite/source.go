package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/fwojciec/larder"
)

// Compile-time interface verification.
var _ larder.SourceService = (*SourceService)(nil)

const sourceColumns = `host, name, enabled, search_url, selector, last_validated_at,
	consecutive_failures, needs_attention, created_at, updated_at`

// SourceService implements larder.SourceService using SQLite.
type SourceService struct {
	db *DB
}

// NewSourceService creates a new SourceService.
func NewSourceService(db *DB) *SourceService {
	return &SourceService{db: db}
}

// CreateSource creates a new source.
func (s *SourceService) CreateSource(ctx context.Context, source *larder.SearchSource) error {
	if err := source.Validate(); err != nil {
		return err
	}

	if _, err := s.FindSourceByHost(ctx, source.Host); err == nil {
		return larder.Errorf(larder.ECONFLICT, "source %s already exists", source.Host)
	} else if larder.ErrorCode(err) != larder.ENOTFOUND {
		return err
	}

	now := time.Now().UTC()
	source.CreatedAt = now
	source.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_sources (`+sourceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, source.Host, source.Name, source.Enabled, source.SearchURL, source.Selector,
		nullTime(source.LastValidatedAt), source.ConsecutiveFailures, source.NeedsAttention,
		formatTime(source.CreatedAt), formatTime(source.UpdatedAt))

	return err
}

// FindSourceByHost retrieves a source by host.
func (s *SourceService) FindSourceByHost(ctx context.Context, host string) (*larder.SearchSource, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM search_sources WHERE host = ?`, host)

	source, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, larder.Errorf(larder.ENOTFOUND, "source %s not found", host)
	}
	if err != nil {
		return nil, err
	}
	return source, nil
}

// FindSources retrieves sources matching the filter, ordered by host.
func (s *SourceService) FindSources(ctx context.Context, filter larder.SourceFilter) ([]*larder.SearchSource, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + sourceColumns + " FROM search_sources WHERE 1=1")

	if filter.Enabled != nil {
		query.WriteString(" AND enabled = ?")
		args = append(args, *filter.Enabled)
	}
	if filter.NeedsAttention != nil {
		query.WriteString(" AND needs_attention = ?")
		args = append(args, *filter.NeedsAttention)
	}
	if filter.Hosts != nil {
		if len(filter.Hosts) == 0 {
			return nil, nil
		}
		query.WriteString(" AND host IN (" + placeholders(len(filter.Hosts)) + ")")
		args = append(args, stringArgs(filter.Hosts)...)
	}

	query.WriteString(" ORDER BY host")

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*larder.SearchSource
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}

	return sources, rows.Err()
}

// UpdateSource updates the configuration of an existing source.
func (s *SourceService) UpdateSource(ctx context.Context, host string, upd larder.SourceUpdate) (*larder.SearchSource, error) {
	source, err := s.FindSourceByHost(ctx, host)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		source.Name = *upd.Name
	}
	if upd.Enabled != nil {
		source.Enabled = *upd.Enabled
	}
	if upd.SearchURL != nil {
		source.SearchURL = *upd.SearchURL
	}
	if upd.Selector != nil {
		source.Selector = *upd.Selector
	}
	if upd.ClearAttention {
		source.ConsecutiveFailures = 0
		source.NeedsAttention = false
	}

	if err := source.Validate(); err != nil {
		return nil, err
	}

	source.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE search_sources
		SET name = ?, enabled = ?, search_url = ?, selector = ?,
			consecutive_failures = ?, needs_attention = ?, updated_at = ?
		WHERE host = ?
	`, source.Name, source.Enabled, source.SearchURL, source.Selector,
		source.ConsecutiveFailures, source.NeedsAttention, formatTime(source.UpdatedAt), host)
	if err != nil {
		return nil, err
	}

	return source, nil
}

// UpdateSourceHealth persists the health fields of a source.
func (s *SourceService) UpdateSourceHealth(ctx context.Context, host string, health larder.SourceHealth) error {
	var lastValidated *time.Time
	if !health.LastValidatedAt.IsZero() {
		lastValidated = &health.LastValidatedAt
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE search_sources
		SET consecutive_failures = ?, needs_attention = ?, last_validated_at = ?, updated_at = ?
		WHERE host = ?
	`, health.ConsecutiveFailures, health.NeedsAttention, nullTime(lastValidated),
		formatTime(time.Now()), host)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return larder.Errorf(larder.ENOTFOUND, "source %s not found", host)
	}
	return nil
}

// DeleteSource permanently removes a source.
func (s *SourceService) DeleteSource(ctx context.Context, host string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM search_sources WHERE host = ?", host)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return larder.Errorf(larder.ENOTFOUND, "source %s not found", host)
	}

	return nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSource(row scanner) (*larder.SearchSource, error) {
	var source larder.SearchSource
	var lastValidated sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&source.Host, &source.Name, &source.Enabled, &source.SearchURL, &source.Selector,
		&lastValidated, &source.ConsecutiveFailures, &source.NeedsAttention, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if lastValidated.Valid {
		t, err := parseRFC3339(lastValidated.String, "last_validated_at")
		if err != nil {
			return nil, err
		}
		source.LastValidatedAt = &t
	}
	if source.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if source.UpdatedAt, err = parseRFC3339(updatedAt, "updated_at"); err != nil {
		return nil, err
	}

	return &source, nil
}
