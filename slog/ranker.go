package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/larder"
)

// Ensure LoggingRanker implements larder.Ranker.
var _ larder.Ranker = (*LoggingRanker)(nil)

// LoggingRanker wraps a Ranker with logging.
type LoggingRanker struct {
	next   larder.Ranker
	logger *slog.Logger
}

// NewLoggingRanker creates a new LoggingRanker.
func NewLoggingRanker(next larder.Ranker, logger *slog.Logger) *LoggingRanker {
	return &LoggingRanker{next: next, logger: logger}
}

// Rank delegates to the wrapped ranker and logs the operation.
func (r *LoggingRanker) Rank(ctx context.Context, query string, results []larder.SearchResult) (ranked []larder.SearchResult, err error) {
	defer func(begin time.Time) {
		r.logger.Info("rank",
			"query", query,
			"count", len(results),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return r.next.Rank(ctx, query, results)
}
