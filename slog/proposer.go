package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/larder"
)

// Ensure LoggingSelectorProposer implements larder.SelectorProposer.
var _ larder.SelectorProposer = (*LoggingSelectorProposer)(nil)

// LoggingSelectorProposer wraps a SelectorProposer with logging.
type LoggingSelectorProposer struct {
	next   larder.SelectorProposer
	logger *slog.Logger
}

// NewLoggingSelectorProposer creates a new LoggingSelectorProposer.
func NewLoggingSelectorProposer(next larder.SelectorProposer, logger *slog.Logger) *LoggingSelectorProposer {
	return &LoggingSelectorProposer{next: next, logger: logger}
}

// ProposeSelector delegates to the wrapped proposer and logs the proposal.
func (p *LoggingSelectorProposer) ProposeSelector(ctx context.Context, source *larder.SearchSource, sampleHTML string) (proposal *larder.SelectorProposal, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"host", source.Host,
			"bytes", len(sampleHTML),
			"duration", time.Since(begin),
			"err", err,
		}
		if proposal != nil {
			attrs = append(attrs, "selector", proposal.Selector, "confidence", proposal.Confidence)
		}
		p.logger.Info("propose selector", attrs...)
	}(time.Now())
	return p.next.ProposeSelector(ctx, source, sampleHTML)
}
