package mock

import (
	"context"

	"github.com/fwojciec/larder"
)

var _ larder.SelectorProposer = (*SelectorProposer)(nil)

// SelectorProposer is a mock implementation of larder.SelectorProposer.
type SelectorProposer struct {
	ProposeSelectorFn func(ctx context.Context, source *larder.SearchSource, sampleHTML string) (*larder.SelectorProposal, error)
}

func (p *SelectorProposer) ProposeSelector(ctx context.Context, source *larder.SearchSource, sampleHTML string) (*larder.SelectorProposal, error) {
	return p.ProposeSelectorFn(ctx, source, sampleHTML)
}

var _ larder.SelectorValidator = (*SelectorValidator)(nil)

// SelectorValidator is a mock implementation of larder.SelectorValidator.
type SelectorValidator struct {
	ValidateSelectorFn func(html, host, selector, baseURL string) ([]larder.SearchResult, error)
}

func (v *SelectorValidator) ValidateSelector(html, host, selector, baseURL string) ([]larder.SearchResult, error) {
	return v.ValidateSelectorFn(html, host, selector, baseURL)
}

var _ larder.SampleCondenser = (*SampleCondenser)(nil)

// SampleCondenser is a mock implementation of larder.SampleCondenser.
type SampleCondenser struct {
	CondenseFn func(html string, maxBytes int) (string, error)
}

func (c *SampleCondenser) Condense(html string, maxBytes int) (string, error) {
	return c.CondenseFn(html, maxBytes)
}
