package search_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fwojciec/larder"
	"github.com/fwojciec/larder/goquery"
	"github.com/fwojciec/larder/mock"
	"github.com/fwojciec/larder/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const repairPage = `<html><body>
<div class="tile"><a href="/recipe/1/stew"><h3>Beef Stew</h3></a></div>
<div class="tile"><a href="/recipe/2/pie"><h3>Apple Pie</h3></a></div>
</body></html>`

func proposing(selector string, confidence float64) *mock.SelectorProposer {
	return &mock.SelectorProposer{
		ProposeSelectorFn: func(context.Context, *larder.SearchSource, string) (*larder.SelectorProposal, error) {
			return &larder.SelectorProposal{Selector: selector, Confidence: confidence, Reason: "repeating tiles"}, nil
		},
	}
}

func repairer(proposer larder.SelectorProposer, updates *[]larder.SourceUpdate) *search.Repairer {
	broken := testSource("example.com")
	broken.NeedsAttention = true
	broken.ConsecutiveFailures = 3

	return &search.Repairer{
		Sources: &mock.SourceService{
			FindSourcesFn: func(_ context.Context, f larder.SourceFilter) ([]*larder.SearchSource, error) {
				if f.NeedsAttention == nil || !*f.NeedsAttention {
					return nil, errors.New("expected needs-attention filter")
				}
				return []*larder.SearchSource{broken}, nil
			},
			UpdateSourceFn: func(_ context.Context, host string, upd larder.SourceUpdate) (*larder.SearchSource, error) {
				*updates = append(*updates, upd)
				updated := *broken
				updated.Selector = *upd.Selector
				updated.NeedsAttention = false
				updated.ConsecutiveFailures = 0
				return &updated, nil
			},
		},
		Fetcher: &mock.Fetcher{
			FetchFn: func(context.Context, string) (string, error) { return repairPage, nil },
		},
		Validator: goquery.NewResultExtractor(),
		Proposer:  proposer,
		Condenser: goquery.Condenser{},
	}
}

func TestRepairer_Repair(t *testing.T) {
	t.Parallel()

	t.Run("installs a confident selector that extracts results", func(t *testing.T) {
		t.Parallel()

		var updates []larder.SourceUpdate
		outcomes, err := repairer(proposing(".tile", 0.9), &updates).Repair(context.Background())

		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.True(t, outcomes[0].Applied)
		assert.Equal(t, 2, outcomes[0].Results)
		require.Len(t, updates, 1)
		assert.Equal(t, ".tile", *updates[0].Selector)
		assert.True(t, updates[0].ClearAttention)
	})

	t.Run("rejects a low-confidence proposal", func(t *testing.T) {
		t.Parallel()

		var updates []larder.SourceUpdate
		outcomes, err := repairer(proposing(".tile", 0.5), &updates).Repair(context.Background())

		require.NoError(t, err)
		assert.False(t, outcomes[0].Applied)
		assert.Contains(t, outcomes[0].Reason, "confidence")
		assert.Empty(t, updates)
	})

	t.Run("honours a custom confidence threshold", func(t *testing.T) {
		t.Parallel()

		var updates []larder.SourceUpdate
		r := repairer(proposing(".tile", 0.5), &updates)
		r.MinConfidence = 0.4

		outcomes, err := r.Repair(context.Background())

		require.NoError(t, err)
		assert.True(t, outcomes[0].Applied)
	})

	t.Run("rejects a selector that matches no results", func(t *testing.T) {
		t.Parallel()

		var updates []larder.SourceUpdate
		outcomes, err := repairer(proposing(".missing", 0.95), &updates).Repair(context.Background())

		require.NoError(t, err)
		assert.False(t, outcomes[0].Applied)
		assert.Equal(t, "selector matched no results", outcomes[0].Reason)
		assert.Empty(t, updates)
	})

	t.Run("rejects an unparseable selector", func(t *testing.T) {
		t.Parallel()

		var updates []larder.SourceUpdate
		outcomes, err := repairer(proposing("div[", 0.95), &updates).Repair(context.Background())

		require.NoError(t, err)
		assert.False(t, outcomes[0].Applied)
		assert.Contains(t, outcomes[0].Reason, "invalid selector")
	})

	t.Run("reports proposer failures", func(t *testing.T) {
		t.Parallel()

		var updates []larder.SourceUpdate
		outcomes, err := repairer(&mock.SelectorProposer{
			ProposeSelectorFn: func(context.Context, *larder.SearchSource, string) (*larder.SelectorProposal, error) {
				return nil, larder.Errorf(larder.EUNAVAILABLE, "no API key")
			},
		}, &updates).Repair(context.Background())

		require.NoError(t, err)
		assert.False(t, outcomes[0].Applied)
		assert.Contains(t, outcomes[0].Reason, "propose selector")
	})

	t.Run("sends a condensed sample to the proposer", func(t *testing.T) {
		t.Parallel()

		var sample string
		var updates []larder.SourceUpdate
		r := repairer(&mock.SelectorProposer{
			ProposeSelectorFn: func(_ context.Context, _ *larder.SearchSource, s string) (*larder.SelectorProposal, error) {
				sample = s
				return &larder.SelectorProposal{}, nil
			},
		}, &updates)
		r.Fetcher = &mock.Fetcher{
			FetchFn: func(context.Context, string) (string, error) {
				return "<html><head><script>track()</script></head>" + repairPage[len("<html>"):], nil
			},
		}

		_, err := r.Repair(context.Background())

		require.NoError(t, err)
		assert.NotContains(t, sample, "track()")
		assert.Contains(t, sample, `class="tile"`)
	})

	t.Run("shrinks the sample to the token budget", func(t *testing.T) {
		t.Parallel()

		var budgets []int
		var updates []larder.SourceUpdate
		r := repairer(proposing(".tile", 0.9), &updates)
		r.MaxSampleBytes = 1000
		r.MaxSampleTokens = 10
		r.Condenser = &mock.SampleCondenser{
			CondenseFn: func(html string, maxBytes int) (string, error) {
				budgets = append(budgets, maxBytes)
				return strings.Repeat("x", maxBytes), nil
			},
		}
		r.TokenCounter = &mock.TokenCounter{
			CountTokensFn: func(_ context.Context, text string) (int, error) {
				return len(text) / 4, nil
			},
		}

		_, err := r.Repair(context.Background())

		require.NoError(t, err)
		require.Greater(t, len(budgets), 1)
		assert.Equal(t, 1000, budgets[0])
		assert.Less(t, budgets[len(budgets)-1], 1000)
	})

	t.Run("returns registry errors", func(t *testing.T) {
		t.Parallel()

		r := &search.Repairer{
			Sources: &mock.SourceService{
				FindSourcesFn: func(context.Context, larder.SourceFilter) ([]*larder.SearchSource, error) {
					return nil, errors.New("disk I/O error")
				},
			},
		}

		_, err := r.Repair(context.Background())

		require.Error(t, err)
	})
}
