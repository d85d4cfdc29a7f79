package slog

import (
	"context"
	"log/slog"

	"github.com/fwojciec/larder"
)

// Ensure LoggingHealthTracker implements larder.HealthTracker.
var _ larder.HealthTracker = (*LoggingHealthTracker)(nil)

// LoggingHealthTracker wraps a HealthTracker, logging failures and the
// moment a source becomes flagged for repair.
type LoggingHealthTracker struct {
	next   larder.HealthTracker
	logger *slog.Logger
}

// NewLoggingHealthTracker creates a new LoggingHealthTracker.
func NewLoggingHealthTracker(next larder.HealthTracker, logger *slog.Logger) *LoggingHealthTracker {
	return &LoggingHealthTracker{next: next, logger: logger}
}

func (h *LoggingHealthTracker) RecordSuccess(ctx context.Context, source *larder.SearchSource) error {
	err := h.next.RecordSuccess(ctx, source)
	if err != nil {
		h.logger.Warn("record source success", "host", source.Host, "err", err)
	}
	return err
}

func (h *LoggingHealthTracker) RecordFailure(ctx context.Context, source *larder.SearchSource) error {
	flagged := source.NeedsAttention
	err := h.next.RecordFailure(ctx, source)
	h.logger.Info("source failure",
		"host", source.Host,
		"count", source.ConsecutiveFailures,
		"err", err,
	)
	if !flagged && source.NeedsAttention {
		h.logger.Warn("source needs attention", "host", source.Host, "count", source.ConsecutiveFailures)
	}
	return err
}
