// Package search aggregates recipe searches across configured sources.
// It coordinates concurrent fetching, result extraction, source health
// tracking, deduplication, optional ranking and pagination.
package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/larder"
)

var _ larder.Searcher = (*Service)(nil)

// Service searches all enabled sources and merges their results.
type Service struct {
	Sources   larder.SourceService
	Fetcher   larder.Fetcher
	Extractor larder.ResultExtractor
	Health    larder.HealthTracker

	// Ranker reorders merged results. Optional.
	Ranker larder.Ranker

	// Limiter spaces out requests to the same site. Optional.
	Limiter larder.DomainLimiter

	// Logger receives absorbed failures. Nil discards them.
	Logger *slog.Logger
}

// Search fans the query out to the enabled sources (restricted to
// req.Sources when given), merges and deduplicates their results, ranks them
// when a Ranker is configured, and returns the requested page.
//
// Failures of individual sources, extraction and ranking are absorbed. The
// only errors returned are request validation errors and failures to read
// the source registry.
func (s *Service) Search(ctx context.Context, req larder.SearchRequest) (*larder.SearchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	enabled := true
	filter := larder.SourceFilter{Enabled: &enabled}
	if len(req.Sources) > 0 {
		filter.Hosts = req.Sources
	}
	sources, err := s.Sources.FindSources(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find sources: %w", err)
	}

	resp := &larder.SearchResponse{
		Results:    []larder.SearchResult{},
		Page:       req.Page,
		PerPage:    req.PerPage,
		SiteCounts: make(map[string]int, len(sources)),
	}
	if len(sources) == 0 {
		return resp, nil
	}

	var merged []larder.SearchResult
	for _, page := range FetchAll(ctx, s.Fetcher, s.Limiter, sources, req.Query) {
		results := s.collect(ctx, page)
		resp.SiteCounts[page.Source.Host] = len(results)
		merged = append(merged, results...)
	}

	merged = Dedup(merged)
	merged = s.rank(ctx, req.Query, merged)

	resp.Total = len(merged)
	resp.Results, resp.HasMore = Paginate(merged, req.Page, req.PerPage)
	return resp, nil
}

// collect extracts results from a fetched page and records the outcome on
// the source. A failed fetch or extraction contributes nothing.
func (s *Service) collect(ctx context.Context, page Page) []larder.SearchResult {
	source := page.Source
	log := s.logger().With("host", source.Host)

	if page.Err != nil {
		log.Warn("source fetch failed", "url", page.URL, "err", page.Err)
		s.recordFailure(ctx, source)
		return nil
	}

	results, err := s.Extractor.Extract(page.HTML, source.Host, source.Selector, page.URL)
	if err != nil {
		log.Warn("source extraction failed", "url", page.URL, "err", err)
		s.recordFailure(ctx, source)
		return nil
	}

	if err := s.Health.RecordSuccess(ctx, source); err != nil {
		log.Error("failed to record source success", "err", err)
	}
	return results
}

func (s *Service) recordFailure(ctx context.Context, source *larder.SearchSource) {
	if err := s.Health.RecordFailure(ctx, source); err != nil {
		s.logger().Error("failed to record source failure", "host", source.Host, "err", err)
	}
}

// rank applies the Ranker on a best-effort basis. Any error, or a ranking
// that is not a permutation of the input, leaves the order untouched.
func (s *Service) rank(ctx context.Context, query string, results []larder.SearchResult) []larder.SearchResult {
	if s.Ranker == nil || len(results) < 2 {
		return results
	}

	start := time.Now()
	ranked, err := s.Ranker.Rank(ctx, query, results)
	if err != nil {
		s.logger().Warn("ranking failed", "count", len(results), "duration", time.Since(start), "err", err)
		return results
	}
	if !samePermutation(results, ranked) {
		s.logger().Warn("ranking discarded: result set changed", "count", len(results), "ranked", len(ranked))
		return results
	}
	return ranked
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

// Dedup removes results whose URL was already seen, keeping the first
// occurrence and preserving order. URLs are compared exactly.
func Dedup(results []larder.SearchResult) []larder.SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]larder.SearchResult, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Paginate returns the 1-based page of results and whether more follow.
// page and perPage must be at least 1.
func Paginate(results []larder.SearchResult, page, perPage int) ([]larder.SearchResult, bool) {
	start := (page - 1) * perPage
	end := start + perPage
	hasMore := end < len(results)

	if start >= len(results) {
		return []larder.SearchResult{}, false
	}
	return results[start:min(end, len(results))], hasMore
}

// samePermutation reports whether b holds exactly the URLs of a.
func samePermutation(a, b []larder.SearchResult) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, r := range a {
		counts[r.URL]++
	}
	for _, r := range b {
		counts[r.URL]--
		if counts[r.URL] < 0 {
			return false
		}
	}
	return true
}
