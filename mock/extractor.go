package mock

import "github.com/fwojciec/larder"

var _ larder.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of larder.Extractor.
type Extractor struct {
	ExtractFn func(html, pageURL string) (*larder.ExtractResult, error)
}

func (e *Extractor) Extract(html, pageURL string) (*larder.ExtractResult, error) {
	return e.ExtractFn(html, pageURL)
}
