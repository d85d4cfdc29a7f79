package search_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/larder"
	"github.com/fwojciec/larder/mock"
	"github.com/fwojciec/larder/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthTracker(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	newTracker := func(saved map[string]larder.SourceHealth) *search.HealthTracker {
		tracker := search.NewHealthTracker(&mock.SourceService{
			UpdateSourceHealthFn: func(_ context.Context, host string, h larder.SourceHealth) error {
				saved[host] = h
				return nil
			},
		})
		tracker.Now = func() time.Time { return now }
		return tracker
	}

	t.Run("flags a source after three consecutive failures", func(t *testing.T) {
		t.Parallel()

		saved := make(map[string]larder.SourceHealth)
		tracker := newTracker(saved)
		source := testSource("a.com")
		ctx := context.Background()

		require.NoError(t, tracker.RecordFailure(ctx, source))
		require.NoError(t, tracker.RecordFailure(ctx, source))
		assert.False(t, source.NeedsAttention)

		require.NoError(t, tracker.RecordFailure(ctx, source))
		assert.True(t, source.NeedsAttention)
		assert.Equal(t, 3, source.ConsecutiveFailures)
		assert.Equal(t, larder.SourceHealth{ConsecutiveFailures: 3, NeedsAttention: true, LastValidatedAt: now}, saved["a.com"])
		require.NotNil(t, source.LastValidatedAt)
		assert.Equal(t, now, *source.LastValidatedAt)
	})

	t.Run("a success resets the streak and clears attention", func(t *testing.T) {
		t.Parallel()

		saved := make(map[string]larder.SourceHealth)
		tracker := newTracker(saved)
		source := testSource("a.com")
		source.ConsecutiveFailures = 5
		source.NeedsAttention = true

		require.NoError(t, tracker.RecordSuccess(context.Background(), source))

		assert.Zero(t, source.ConsecutiveFailures)
		assert.False(t, source.NeedsAttention)
		assert.Equal(t, larder.SourceHealth{LastValidatedAt: now}, saved["a.com"])
	})
}
