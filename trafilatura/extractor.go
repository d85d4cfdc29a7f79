package trafilatura

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/fwojciec/larder"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// Ensure Extractor implements larder.Extractor at compile time.
var _ larder.Extractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura to pull the main content out of recipe
// pages that carry no structured data.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract processes raw HTML and returns the main content.
func (e *Extractor) Extract(rawHTML, pageURL string) (*larder.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, larder.Errorf(larder.EINVALID, "empty HTML input")
	}

	opts := trafilatura.Options{
		EnableFallback: true,
		IncludeImages:  true,
	}
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		opts.OriginalURL = u
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), opts)
	if err != nil {
		return nil, err
	}

	var contentHTML string
	if result.ContentNode != nil {
		contentHTML, err = renderNode(result.ContentNode)
		if err != nil {
			return nil, err
		}
	}

	return &larder.ExtractResult{
		Title:       result.Metadata.Title,
		Description: result.Metadata.Description,
		ImageURL:    result.Metadata.Image,
		ContentHTML: contentHTML,
	}, nil
}

// renderNode converts an html.Node to a string.
func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
