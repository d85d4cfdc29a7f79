package larder

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// NeedsAttentionThreshold is the number of consecutive failed searches after
// which a source is flagged for selector repair.
const NeedsAttentionThreshold = 3

// QueryPlaceholder marks where the escaped query goes in a search URL template.
const QueryPlaceholder = "{query}"

// SearchSource is an external recipe site that can be searched.
type SearchSource struct {
	Host      string `json:"host"`
	Name      string `json:"name"`
	Enabled   bool   `json:"enabled"`
	SearchURL string `json:"searchUrl"`

	// Selector identifies the repeating result container on the site's
	// search page. Empty means fallback heuristics are used.
	Selector string `json:"selector"`

	LastValidatedAt     *time.Time `json:"lastValidatedAt,omitempty"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	NeedsAttention      bool       `json:"needsAttention"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate returns an error if the source contains invalid fields.
func (s *SearchSource) Validate() error {
	if s.Host == "" {
		return Errorf(EINVALID, "source host required")
	}
	if s.SearchURL == "" {
		return Errorf(EINVALID, "source search URL required")
	}
	if !strings.Contains(s.SearchURL, QueryPlaceholder) {
		return Errorf(EINVALID, "source search URL must contain %s", QueryPlaceholder)
	}
	return nil
}

// BuildSearchURL returns the search URL with the query substituted.
func (s *SearchSource) BuildSearchURL(query string) string {
	return strings.ReplaceAll(s.SearchURL, QueryPlaceholder, url.QueryEscape(query))
}

// Health returns the health fields of the source.
func (s *SearchSource) Health() SourceHealth {
	h := SourceHealth{
		ConsecutiveFailures: s.ConsecutiveFailures,
		NeedsAttention:      s.NeedsAttention,
	}
	if s.LastValidatedAt != nil {
		h.LastValidatedAt = *s.LastValidatedAt
	}
	return h
}

// SetHealth copies the health fields onto the source.
func (s *SearchSource) SetHealth(h SourceHealth) {
	s.ConsecutiveFailures = h.ConsecutiveFailures
	s.NeedsAttention = h.NeedsAttention
	if h.LastValidatedAt.IsZero() {
		s.LastValidatedAt = nil
		return
	}
	t := h.LastValidatedAt
	s.LastValidatedAt = &t
}

// SourceHealth is the maintenance state of a source.
type SourceHealth struct {
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	NeedsAttention      bool      `json:"needsAttention"`
	LastValidatedAt     time.Time `json:"lastValidatedAt"`
}

// Succeeded returns the state after a successful search at now.
func (h SourceHealth) Succeeded(now time.Time) SourceHealth {
	return SourceHealth{LastValidatedAt: now}
}

// Failed returns the state after a failed search at now. Failures count as
// validation attempts too.
func (h SourceHealth) Failed(now time.Time) SourceHealth {
	n := h.ConsecutiveFailures + 1
	return SourceHealth{
		ConsecutiveFailures: n,
		NeedsAttention:      h.NeedsAttention || n >= NeedsAttentionThreshold,
		LastValidatedAt:     now,
	}
}

// SourceService represents a service for managing search sources.
type SourceService interface {
	// CreateSource creates a new source.
	// Returns ECONFLICT if a source with the same host exists.
	CreateSource(ctx context.Context, source *SearchSource) error

	// FindSourceByHost retrieves a source by host.
	// Returns ENOTFOUND if the source does not exist.
	FindSourceByHost(ctx context.Context, host string) (*SearchSource, error)

	// FindSources retrieves sources matching the filter, ordered by host.
	FindSources(ctx context.Context, filter SourceFilter) ([]*SearchSource, error)

	// UpdateSource updates the configuration of an existing source.
	// Returns ENOTFOUND if the source does not exist.
	UpdateSource(ctx context.Context, host string, upd SourceUpdate) (*SearchSource, error)

	// UpdateSourceHealth persists the health fields of a source.
	// Returns ENOTFOUND if the source does not exist.
	UpdateSourceHealth(ctx context.Context, host string, health SourceHealth) error

	// DeleteSource permanently removes a source.
	// Returns ENOTFOUND if the source does not exist.
	DeleteSource(ctx context.Context, host string) error
}

// SourceFilter represents a filter for FindSources.
type SourceFilter struct {
	Enabled        *bool    `json:"enabled"`
	NeedsAttention *bool    `json:"needsAttention"`
	Hosts          []string `json:"hosts"`
}

// SourceUpdate represents fields that can be updated on a source.
type SourceUpdate struct {
	Name      *string `json:"name"`
	Enabled   *bool   `json:"enabled"`
	SearchURL *string `json:"searchUrl"`
	Selector  *string `json:"selector"`

	// ClearAttention resets the failure streak and needs-attention flag,
	// used when a repaired selector is installed.
	ClearAttention bool `json:"clearAttention"`
}

// HealthTracker records the outcome of search attempts against a source.
// Implementations update the source in place and persist it immediately.
type HealthTracker interface {
	RecordSuccess(ctx context.Context, source *SearchSource) error
	RecordFailure(ctx context.Context, source *SearchSource) error
}
