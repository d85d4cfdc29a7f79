// Package scrape turns a single recipe page into a larder.Recipe.
package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/larder"
)

// Ensure Scraper implements larder.RecipeScraper at compile time.
var _ larder.RecipeScraper = (*Scraper)(nil)

// Scraper reads schema.org recipe data from a page and falls back to main
// content extraction when the page has none.
type Scraper struct {
	Fetcher larder.Fetcher
	Parser  larder.RecipeParser

	// Extractors are tried in order until one yields content.
	Extractors []larder.Extractor
	Converter  larder.Converter

	// RetryDelays are waited between fetch attempts. Nil fetches once.
	RetryDelays []time.Duration

	// Logger receives extractor failures. Nil discards them.
	Logger *slog.Logger
}

// Scrape fetches url and returns the recipe it describes.
// Returns EINVALID for non-HTTP URLs and ENOTFOUND when the page has no
// usable content.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*larder.Recipe, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, larder.Errorf(larder.EINVALID, "invalid recipe URL: %q", rawURL)
	}

	html, err := fetchWithRetry(ctx, s.Fetcher, rawURL, s.RetryDelays, s.logger())
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	if recipe, ok := s.Parser.ParseRecipe(html, rawURL); ok {
		recipe.SourceURL = rawURL
		if err := recipe.Validate(); err == nil {
			return recipe, nil
		}
	}

	for _, ext := range s.Extractors {
		recipe, err := s.extract(ext, html, rawURL)
		if err != nil {
			s.logger().Debug("extractor failed", "url", rawURL, "err", err)
			continue
		}
		return recipe, nil
	}

	return nil, larder.Errorf(larder.ENOTFOUND, "no recipe content found at %s", rawURL)
}

func (s *Scraper) extract(ext larder.Extractor, html, pageURL string) (*larder.Recipe, error) {
	res, err := ext.Extract(html, pageURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.ContentHTML) == "" {
		return nil, larder.Errorf(larder.ENOTFOUND, "no main content")
	}

	content, err := s.Converter.Convert(res.ContentHTML, pageURL)
	if err != nil {
		return nil, err
	}

	recipe := &larder.Recipe{
		SourceURL:   pageURL,
		Title:       res.Title,
		Description: res.Description,
		ImageURL:    res.ImageURL,
		Content:     content,
	}
	return recipe, recipe.Validate()
}

func (s *Scraper) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}
