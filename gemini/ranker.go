package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/larder"
	"google.golang.org/genai"
)

// RankCacheTTL is how long a ranking is reused for the same query and results.
const RankCacheTTL = time.Hour

// Ensure Ranker implements larder.Ranker at compile time.
var _ larder.Ranker = (*Ranker)(nil)

// Ranker orders search results by asking Gemini which best match the query.
type Ranker struct {
	client *genai.Client
	cache  larder.Cache
}

// NewRanker creates a new Ranker. A nil cache disables memoization.
func NewRanker(client *genai.Client, cache larder.Cache) *Ranker {
	return &Ranker{client: client, cache: cache}
}

// Rank returns results reordered by relevance to query.
func (r *Ranker) Rank(ctx context.Context, query string, results []larder.SearchResult) ([]larder.SearchResult, error) {
	if len(results) < 2 {
		return results, nil
	}

	key := RankCacheKey(query, results)
	if r.cache != nil {
		if cached, ok, err := r.cache.Get(ctx, key); err == nil && ok {
			if ranked, err := ParseRanking(results, string(cached)); err == nil {
				return ranked, nil
			}
		}
	}

	text, err := generate(ctx, r.client, Model, BuildRankPrompt(query, results), BuildRankConfig())
	if err != nil {
		return nil, err
	}

	ranked, err := ParseRanking(results, text)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		_ = r.cache.Set(ctx, key, []byte(text), RankCacheTTL)
	}
	return ranked, nil
}

// RankCacheKey identifies a ranking by query and result URLs.
func RankCacheKey(query string, results []larder.SearchResult) string {
	h := xxhash.New()
	h.WriteString(query)
	for _, res := range results {
		h.WriteString("\n")
		h.WriteString(res.URL)
	}
	return "rank:" + strconv.FormatUint(h.Sum64(), 16)
}

// BuildRankConfig returns the GenerateContentConfig for ranking calls.
func BuildRankConfig() *genai.GenerateContentConfig {
	return jsonConfig(
		"You rank recipe search results. Reply with a JSON array of result numbers, most relevant first. Prefer actual recipes that match the query over roundups, articles and videos.",
		&genai.Schema{
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeInteger},
		},
	)
}

// BuildRankPrompt lists the numbered results under the query.
func BuildRankPrompt(query string, results []larder.SearchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n\nResults:\n", query)
	for i, res := range results {
		fmt.Fprintf(&sb, "%d. %s (%s)", i+1, res.Title, res.Host)
		if res.Description != "" {
			fmt.Fprintf(&sb, " - %s", res.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// ParseRanking applies a JSON array of 1-based result numbers to results.
// Unknown and repeated numbers are ignored; results not mentioned keep
// their relative order after the ranked ones.
func ParseRanking(results []larder.SearchResult, text string) ([]larder.SearchResult, error) {
	var order []int
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &order); err != nil {
		return nil, larder.Errorf(larder.EUNAVAILABLE, "invalid ranking response: %v", err)
	}

	used := make([]bool, len(results))
	ranked := make([]larder.SearchResult, 0, len(results))
	for _, n := range order {
		i := n - 1
		if i < 0 || i >= len(results) || used[i] {
			continue
		}
		used[i] = true
		ranked = append(ranked, results[i])
	}
	for i, res := range results {
		if !used[i] {
			ranked = append(ranked, res)
		}
	}
	return ranked, nil
}
