package goquery

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/fwojciec/larder"
)

// Ensure ResultExtractor implements larder.ResultExtractor at compile time.
var _ larder.ResultExtractor = (*ResultExtractor)(nil)

// Fallback heuristics, tried in order when no selector is configured or the
// configured selector matches nothing.
const (
	articleSelector = "article"
	cardSelector    = `[class*="card"], [class*="result"], [class*="item"]`
	anchorSelector  = "a[href]"

	titleSelector       = `h1, h2, h3, h4, [class*="title"], [class*="name"]`
	descriptionSelector = `p, [class*="description"], [class*="summary"]`

	// minAnchorTextLength is the shortest anchor text the anchor heuristic accepts.
	minAnchorTextLength = 5
)

// ratingSuffix matches review counts that sites render into result titles,
// e.g. "Chicken Curry1,392Ratings".
var ratingSuffix = regexp.MustCompile(`(?i)(\d[\d,]*)\s?ratings?\s*$`)

// ResultExtractor extracts search results from a source's results page.
type ResultExtractor struct{}

// NewResultExtractor creates a new ResultExtractor.
func NewResultExtractor() *ResultExtractor {
	return &ResultExtractor{}
}

// Extract parses html and returns at most larder.MaxResultsPerSource results.
//
// A configured selector is tried first and its results are returned if there
// are any. Otherwise these heuristics run in order, stopping at the first
// that yields results:
//   - every <article> element
//   - elements whose class mentions card, result or item
//   - anchors that look like recipe links with meaningful text
func (e *ResultExtractor) Extract(html, host, selector, baseURL string) ([]larder.SearchResult, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, larder.Errorf(larder.EINVALID, "invalid base URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, larder.Errorf(larder.EINVALID, "failed to parse HTML: %v", err)
	}

	if selector != "" {
		if results := extractElements(doc.Find(selector), base, host); len(results) > 0 {
			return results, nil
		}
	}

	if results := extractElements(doc.Find(articleSelector), base, host); len(results) > 0 {
		return results, nil
	}
	if results := extractElements(doc.Find(cardSelector), base, host); len(results) > 0 {
		return results, nil
	}
	return extractAnchors(doc.Find(anchorSelector), base, host), nil
}

// extractElements runs element extraction over the first
// larder.MaxResultsPerSource matches.
func extractElements(sel *goquery.Selection, base *url.URL, host string) []larder.SearchResult {
	var results []larder.SearchResult
	sel.Slice(0, min(sel.Length(), larder.MaxResultsPerSource)).Each(func(_ int, el *goquery.Selection) {
		if r, ok := extractElement(el, base, host); ok {
			results = append(results, r)
		}
	})
	return results
}

// extractElement builds a result from one result container.
func extractElement(el *goquery.Selection, base *url.URL, host string) (larder.SearchResult, bool) {
	anchor := el
	if !el.Is(anchorSelector) {
		anchor = el.Find(anchorSelector).First()
	}
	href, ok := anchor.Attr("href")
	if !ok || href == "" || isNonHTTPLink(href) {
		return larder.SearchResult{}, false
	}

	resolved := resolveURL(base, href)
	if resolved == "" || !IsRecipeURL(resolved, host) {
		return larder.SearchResult{}, false
	}

	title := cleanText(el.Find(titleSelector).First().Text())
	if title == "" {
		title = cleanText(anchor.Text())
	}
	if title == "" {
		title = cleanText(anchor.AttrOr("title", ""))
	}
	if title == "" {
		title = cleanText(anchor.AttrOr("aria-label", ""))
	}

	title, ratingCount := stripRatingCount(title)
	if title == "" {
		return larder.SearchResult{}, false
	}

	result := larder.SearchResult{
		URL:         resolved,
		Title:       truncate(title, larder.MaxTitleLength),
		Host:        host,
		RatingCount: ratingCount,
		Description: truncate(cleanText(el.Find(descriptionSelector).First().Text()), larder.MaxDescriptionLength),
	}
	if img := el.Find("img").First(); img.Length() > 0 {
		result.ImageURL = imageURL(img, base)
	}
	return result, true
}

// extractAnchors is the last-resort heuristic: every anchor that points at a
// recipe-looking URL on host and carries enough text to serve as a title.
func extractAnchors(sel *goquery.Selection, base *url.URL, host string) []larder.SearchResult {
	var results []larder.SearchResult
	sel.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := a.AttrOr("href", "")
		if href == "" || isNonHTTPLink(href) {
			return true
		}
		resolved := resolveURL(base, href)
		if resolved == "" || !IsRecipeURL(resolved, host) {
			return true
		}

		text := cleanText(a.Text())
		if utf8.RuneCountInString(text) <= minAnchorTextLength {
			return true
		}
		title, ratingCount := stripRatingCount(text)
		if title == "" {
			return true
		}

		results = append(results, larder.SearchResult{
			URL:         resolved,
			Title:       truncate(title, larder.MaxTitleLength),
			Host:        host,
			RatingCount: ratingCount,
		})
		return len(results) < larder.MaxResultsPerSource
	})
	return results
}

// stripRatingCount removes a trailing "<n> Ratings" suffix from title and
// returns the remaining title with the parsed count.
func stripRatingCount(title string) (string, *int) {
	m := ratingSuffix.FindStringSubmatchIndex(title)
	if m == nil {
		return title, nil
	}
	digits := strings.ReplaceAll(title[m[2]:m[3]], ",", "")
	stripped := strings.TrimSpace(title[:m[0]])

	n, err := strconv.Atoi(digits)
	if err != nil {
		return stripped, nil
	}
	return stripped, &n
}

// imageURL returns the absolute image URL from the first of src, data-src
// and data-lazy-src that holds a usable value.
func imageURL(img *goquery.Selection, base *url.URL) string {
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		v := strings.TrimSpace(img.AttrOr(attr, ""))
		if v == "" || strings.HasPrefix(strings.ToLower(v), "data:") {
			continue
		}
		ref, err := url.Parse(v)
		if err != nil {
			continue
		}
		return base.ResolveReference(ref).String()
	}
	return ""
}

// cleanText collapses runs of whitespace and trims the result.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate shortens s to at most n characters.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Ensure ResultExtractor implements larder.SelectorValidator at compile time.
var _ larder.SelectorValidator = (*ResultExtractor)(nil)

// ValidateSelector extracts results using only selector, with no fallback
// heuristics.
func (e *ResultExtractor) ValidateSelector(html, host, selector, baseURL string) ([]larder.SearchResult, error) {
	if _, err := cascadia.Compile(selector); err != nil {
		return nil, larder.Errorf(larder.EINVALID, "invalid selector %q: %v", selector, err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, larder.Errorf(larder.EINVALID, "invalid base URL: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, larder.Errorf(larder.EINVALID, "failed to parse HTML: %v", err)
	}
	return extractElements(doc.Find(selector), base, host), nil
}
