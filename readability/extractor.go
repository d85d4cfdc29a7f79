package readability

import (
	"net/url"
	"strings"

	"github.com/fwojciec/larder"
	"github.com/go-shiori/go-readability"
)

// Ensure Extractor implements larder.Extractor at compile time.
var _ larder.Extractor = (*Extractor)(nil)

// Extractor wraps go-readability to pull the article body out of recipe
// pages that carry no structured data.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract processes raw HTML and returns the main content. Relative image
// and link URLs are resolved against pageURL.
func (e *Extractor) Extract(rawHTML, pageURL string) (*larder.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, larder.Errorf(larder.EINVALID, "empty HTML input")
	}

	var base *url.URL
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		base = u
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), base)
	if err != nil {
		return nil, err
	}

	return &larder.ExtractResult{
		Title:       strings.TrimSpace(article.Title),
		Description: strings.TrimSpace(article.Excerpt),
		ImageURL:    article.Image,
		ContentHTML: article.Content,
	}, nil
}
