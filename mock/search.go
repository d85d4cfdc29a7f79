package mock

import (
	"context"

	"github.com/fwojciec/larder"
)

var _ larder.Searcher = (*Searcher)(nil)

// Searcher is a mock implementation of larder.Searcher.
type Searcher struct {
	SearchFn func(ctx context.Context, req larder.SearchRequest) (*larder.SearchResponse, error)
}

func (s *Searcher) Search(ctx context.Context, req larder.SearchRequest) (*larder.SearchResponse, error) {
	return s.SearchFn(ctx, req)
}

var _ larder.ResultExtractor = (*ResultExtractor)(nil)

// ResultExtractor is a mock implementation of larder.ResultExtractor.
type ResultExtractor struct {
	ExtractFn func(html, host, selector, baseURL string) ([]larder.SearchResult, error)
}

func (e *ResultExtractor) Extract(html, host, selector, baseURL string) ([]larder.SearchResult, error) {
	return e.ExtractFn(html, host, selector, baseURL)
}

var _ larder.Ranker = (*Ranker)(nil)

// Ranker is a mock implementation of larder.Ranker.
type Ranker struct {
	RankFn func(ctx context.Context, query string, results []larder.SearchResult) ([]larder.SearchResult, error)
}

func (r *Ranker) Rank(ctx context.Context, query string, results []larder.SearchResult) ([]larder.SearchResult, error) {
	return r.RankFn(ctx, query, results)
}

var _ larder.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of larder.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return d.WaitFn(ctx, domain)
}

var _ larder.IdentityProvider = (*IdentityProvider)(nil)

// IdentityProvider is a mock implementation of larder.IdentityProvider.
type IdentityProvider struct {
	PickFn     func() larder.Identity
	ProfilesFn func() []larder.Identity
}

func (p *IdentityProvider) Pick() larder.Identity {
	return p.PickFn()
}

func (p *IdentityProvider) Profiles() []larder.Identity {
	return p.ProfilesFn()
}
