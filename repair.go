package larder

import "context"

// SelectorProposal is a suggested replacement selector for a source.
type SelectorProposal struct {
	Selector   string  `json:"selector"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// SelectorProposer suggests result selectors for sources whose pages changed.
type SelectorProposer interface {
	// ProposeSelector inspects a sample of the source's search page.
	ProposeSelector(ctx context.Context, source *SearchSource, sampleHTML string) (*SelectorProposal, error)
}

// SampleCondenser reduces a page to the markup that matters when choosing
// a result selector.
type SampleCondenser interface {
	// Condense returns at most maxBytes of simplified markup.
	Condense(html string, maxBytes int) (string, error)
}

// SelectorValidator checks a selector against a page without any fallback.
type SelectorValidator interface {
	// ValidateSelector returns the results selector alone yields from html.
	// Returns EINVALID if the selector cannot be parsed.
	ValidateSelector(html, host, selector, baseURL string) ([]SearchResult, error)
}
