package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fwojciec/larder"
)

// Repair defaults.
const (
	// DefaultRepairConfidence is the lowest proposal confidence that is applied.
	DefaultRepairConfidence = 0.7

	// DefaultSampleBytes caps the condensed page sample sent to the proposer.
	DefaultSampleBytes = 100_000

	// DefaultSampleTokens caps the sample's token count when a counter is set.
	DefaultSampleTokens = 30_000

	// DefaultProbeQuery is searched to obtain a results page to repair against.
	DefaultProbeQuery = "chicken"
)

// maxShrinkAttempts bounds how often a sample is re-condensed to fit the
// token budget.
const maxShrinkAttempts = 4

// RepairOutcome describes what happened to one source during repair.
type RepairOutcome struct {
	Host     string
	Proposal *larder.SelectorProposal

	// Results is the number of results the proposed selector extracted from
	// the sample page.
	Results int

	Applied bool

	// Reason explains why the proposal was not applied.
	Reason string
}

// Repairer proposes and installs new result selectors for sources flagged as
// needing attention.
type Repairer struct {
	Sources   larder.SourceService
	Fetcher   larder.Fetcher
	Validator larder.SelectorValidator
	Proposer  larder.SelectorProposer

	// Condenser simplifies sample pages. Optional; without it the raw page
	// is truncated.
	Condenser larder.SampleCondenser

	// TokenCounter enforces MaxSampleTokens. Optional.
	TokenCounter larder.TokenCounter

	MinConfidence   float64
	MaxSampleBytes  int
	MaxSampleTokens int
	ProbeQuery      string

	// Logger receives per-source outcomes. Nil discards them.
	Logger *slog.Logger
}

// Repair attempts a selector repair for every source that needs attention.
// Per-source failures are reported in the outcomes; the error is only set
// when the flagged sources cannot be loaded.
func (r *Repairer) Repair(ctx context.Context) ([]RepairOutcome, error) {
	attention := true
	sources, err := r.Sources.FindSources(ctx, larder.SourceFilter{NeedsAttention: &attention})
	if err != nil {
		return nil, fmt.Errorf("find sources needing attention: %w", err)
	}

	outcomes := make([]RepairOutcome, 0, len(sources))
	for _, source := range sources {
		if ctx.Err() != nil {
			break
		}
		outcomes = append(outcomes, r.RepairSource(ctx, source))
	}
	return outcomes, nil
}

// RepairSource fetches a sample results page for source, asks the proposer
// for a selector, checks that the selector extracts at least one result and
// installs it when the proposer is confident enough. Installing a selector
// clears the source's failure streak and needs-attention flag.
func (r *Repairer) RepairSource(ctx context.Context, source *larder.SearchSource) RepairOutcome {
	out := RepairOutcome{Host: source.Host}
	log := r.logger().With("host", source.Host)

	pageURL := source.BuildSearchURL(r.probeQuery())
	html, err := r.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		out.Reason = fmt.Sprintf("fetch sample: %v", err)
		log.Warn("repair skipped", "reason", out.Reason)
		return out
	}

	sample, err := r.sample(ctx, html)
	if err != nil {
		out.Reason = fmt.Sprintf("condense sample: %v", err)
		log.Warn("repair skipped", "reason", out.Reason)
		return out
	}

	proposal, err := r.Proposer.ProposeSelector(ctx, source, sample)
	if err != nil {
		out.Reason = fmt.Sprintf("propose selector: %v", err)
		log.Warn("repair skipped", "reason", out.Reason)
		return out
	}
	out.Proposal = proposal

	if proposal.Selector == "" {
		out.Reason = "no selector proposed"
		log.Info("repair rejected", "reason", out.Reason)
		return out
	}

	results, err := r.Validator.ValidateSelector(html, source.Host, proposal.Selector, pageURL)
	if err != nil {
		out.Reason = fmt.Sprintf("validate selector: %s", larder.ErrorMessage(err))
		log.Info("repair rejected", "selector", proposal.Selector, "reason", out.Reason)
		return out
	}
	out.Results = len(results)
	if out.Results == 0 {
		out.Reason = "selector matched no results"
		log.Info("repair rejected", "selector", proposal.Selector, "reason", out.Reason)
		return out
	}

	if threshold := r.minConfidence(); proposal.Confidence < threshold {
		out.Reason = fmt.Sprintf("confidence %.2f below %.2f", proposal.Confidence, threshold)
		log.Info("repair rejected", "selector", proposal.Selector, "reason", out.Reason)
		return out
	}

	selector := proposal.Selector
	updated, err := r.Sources.UpdateSource(ctx, source.Host, larder.SourceUpdate{
		Selector:       &selector,
		ClearAttention: true,
	})
	if err != nil {
		out.Reason = fmt.Sprintf("save selector: %v", err)
		log.Error("repair failed", "selector", selector, "err", err)
		return out
	}
	*source = *updated

	out.Applied = true
	log.Info("repair applied", "selector", selector, "confidence", proposal.Confidence, "count", out.Results)
	return out
}

// sample condenses html to fit the byte and token budgets.
func (r *Repairer) sample(ctx context.Context, html string) (string, error) {
	maxBytes := r.MaxSampleBytes
	if maxBytes <= 0 {
		maxBytes = DefaultSampleBytes
	}

	sample, err := r.condense(html, maxBytes)
	if err != nil || r.TokenCounter == nil {
		return sample, err
	}

	maxTokens := r.MaxSampleTokens
	if maxTokens <= 0 {
		maxTokens = DefaultSampleTokens
	}
	for range maxShrinkAttempts {
		tokens, err := r.TokenCounter.CountTokens(ctx, sample)
		if err != nil {
			return "", err
		}
		if tokens <= maxTokens {
			return sample, nil
		}
		maxBytes = maxBytes * maxTokens / tokens * 9 / 10
		if sample, err = r.condense(html, maxBytes); err != nil {
			return "", err
		}
	}
	return sample, nil
}

func (r *Repairer) condense(html string, maxBytes int) (string, error) {
	if r.Condenser != nil {
		return r.Condenser.Condense(html, maxBytes)
	}
	if len(html) > maxBytes {
		return html[:maxBytes], nil
	}
	return html, nil
}

func (r *Repairer) probeQuery() string {
	if r.ProbeQuery == "" {
		return DefaultProbeQuery
	}
	return r.ProbeQuery
}

func (r *Repairer) minConfidence() float64 {
	if r.MinConfidence <= 0 {
		return DefaultRepairConfidence
	}
	return r.MinConfidence
}

func (r *Repairer) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.Logger
}
