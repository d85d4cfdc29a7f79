package larder

import "context"

// Result set limits.
const (
	// MaxResultsPerSource bounds the number of results extracted from one page.
	MaxResultsPerSource = 20

	// MaxTitleLength and MaxDescriptionLength bound extracted text, in characters.
	MaxTitleLength       = 200
	MaxDescriptionLength = 200
)

// SearchResult is a single recipe found on a source's search page.
// Results are not persisted.
type SearchResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Host        string `json:"host"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Description string `json:"description,omitempty"`
	RatingCount *int   `json:"ratingCount,omitempty"`
}

// SearchRequest is a query against the configured sources.
type SearchRequest struct {
	Query string `json:"query"`

	// Sources restricts the search to these hosts. Empty means all enabled sources.
	Sources []string `json:"sources,omitempty"`

	Page    int `json:"page"`
	PerPage int `json:"perPage"`
}

// Validate returns an error if the request violates the search contract.
func (r *SearchRequest) Validate() error {
	if r.Query == "" {
		return Errorf(EINVALID, "search query required")
	}
	if r.Page < 1 {
		return Errorf(EINVALID, "page must be >= 1")
	}
	if r.PerPage < 1 {
		return Errorf(EINVALID, "per page must be >= 1")
	}
	return nil
}

// SearchResponse is one page of an aggregated search.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"perPage"`
	HasMore bool           `json:"hasMore"`

	// SiteCounts maps each searched host to the number of results it
	// contributed before deduplication. Failed sources report 0.
	SiteCounts map[string]int `json:"siteCounts"`
}

// Searcher searches recipes across sources.
type Searcher interface {
	// Search fans the query out to the selected sources and returns one page
	// of deduplicated results. Failures of individual sources are absorbed.
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// ResultExtractor parses a source's search results page.
type ResultExtractor interface {
	// Extract returns at most MaxResultsPerSource results found in html.
	// An empty selector means fallback heuristics are used. Relative links
	// are resolved against baseURL and must point at host.
	Extract(html, host, selector, baseURL string) ([]SearchResult, error)
}

// Ranker reorders search results by relevance to a query.
type Ranker interface {
	// Rank returns the same results, possibly reordered.
	// Returns EUNAVAILABLE if ranking is not possible right now.
	Rank(ctx context.Context, query string, results []SearchResult) ([]SearchResult, error)
}
