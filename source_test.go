package larder_test

import (
	"testing"
	"time"

	"github.com/fwojciec/larder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchSource_Validate(t *testing.T) {
	t.Parallel()

	t.Run("accepts a source with host and query placeholder", func(t *testing.T) {
		t.Parallel()

		src := &larder.SearchSource{Host: "example.com", SearchURL: "https://example.com/search?q={query}"}

		assert.NoError(t, src.Validate())
	})

	t.Run("requires a host", func(t *testing.T) {
		t.Parallel()

		src := &larder.SearchSource{SearchURL: "https://example.com/search?q={query}"}

		err := src.Validate()
		require.Error(t, err)
		assert.Equal(t, larder.EINVALID, larder.ErrorCode(err))
	})

	t.Run("requires the query placeholder", func(t *testing.T) {
		t.Parallel()

		src := &larder.SearchSource{Host: "example.com", SearchURL: "https://example.com/search"}

		err := src.Validate()
		require.Error(t, err)
		assert.Contains(t, larder.ErrorMessage(err), "{query}")
	})
}

func TestSearchSource_BuildSearchURL(t *testing.T) {
	t.Parallel()

	src := &larder.SearchSource{SearchURL: "https://example.com/search?q={query}"}

	assert.Equal(t, "https://example.com/search?q=chicken+%26+rice", src.BuildSearchURL("chicken & rice"))
}

func TestSourceHealth(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("flags attention once failures reach the threshold", func(t *testing.T) {
		t.Parallel()

		var h larder.SourceHealth
		for i := 1; i < larder.NeedsAttentionThreshold; i++ {
			h = h.Failed(now)
			assert.Equal(t, i, h.ConsecutiveFailures)
			assert.False(t, h.NeedsAttention)
		}

		h = h.Failed(now)
		assert.Equal(t, larder.NeedsAttentionThreshold, h.ConsecutiveFailures)
		assert.True(t, h.NeedsAttention)
		assert.Equal(t, now, h.LastValidatedAt)

		h = h.Failed(now)
		assert.True(t, h.NeedsAttention, "attention stays set until a success")
	})

	t.Run("success resets the streak and clears attention", func(t *testing.T) {
		t.Parallel()

		h := larder.SourceHealth{ConsecutiveFailures: 5, NeedsAttention: true}

		h = h.Succeeded(now)
		assert.Zero(t, h.ConsecutiveFailures)
		assert.False(t, h.NeedsAttention)
		assert.Equal(t, now, h.LastValidatedAt)
	})

	t.Run("round-trips through a source", func(t *testing.T) {
		t.Parallel()

		src := &larder.SearchSource{}
		src.SetHealth(larder.SourceHealth{ConsecutiveFailures: 2, LastValidatedAt: now})

		require.NotNil(t, src.LastValidatedAt)
		assert.Equal(t, now, *src.LastValidatedAt)
		assert.Equal(t, 2, src.Health().ConsecutiveFailures)
	})
}
