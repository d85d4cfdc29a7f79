package search

import (
	"context"
	"time"

	"github.com/fwojciec/larder"
)

var _ larder.HealthTracker = (*HealthTracker)(nil)

// HealthTracker records search outcomes on sources and persists them
// immediately through the source service.
type HealthTracker struct {
	Sources larder.SourceService

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewHealthTracker creates a new HealthTracker.
func NewHealthTracker(sources larder.SourceService) *HealthTracker {
	return &HealthTracker{Sources: sources, Now: time.Now}
}

// RecordSuccess resets the failure streak, clears needs-attention and marks
// the source validated now.
func (t *HealthTracker) RecordSuccess(ctx context.Context, source *larder.SearchSource) error {
	return t.record(ctx, source, source.Health().Succeeded(t.now()))
}

// RecordFailure extends the failure streak, flags the source once the streak
// reaches larder.NeedsAttentionThreshold, and marks it validated now.
func (t *HealthTracker) RecordFailure(ctx context.Context, source *larder.SearchSource) error {
	return t.record(ctx, source, source.Health().Failed(t.now()))
}

func (t *HealthTracker) record(ctx context.Context, source *larder.SearchSource, h larder.SourceHealth) error {
	source.SetHealth(h)
	return t.Sources.UpdateSourceHealth(ctx, source.Host, h)
}

func (t *HealthTracker) now() time.Time {
	if t.Now == nil {
		return time.Now().UTC()
	}
	return t.Now().UTC()
}
