package mock

import (
	"context"

	"github.com/fwojciec/larder"
)

var _ larder.RecipeParser = (*RecipeParser)(nil)

// RecipeParser is a mock implementation of larder.RecipeParser.
type RecipeParser struct {
	ParseRecipeFn func(html, pageURL string) (*larder.Recipe, bool)
}

func (p *RecipeParser) ParseRecipe(html, pageURL string) (*larder.Recipe, bool) {
	return p.ParseRecipeFn(html, pageURL)
}

var _ larder.RecipeScraper = (*RecipeScraper)(nil)

// RecipeScraper is a mock implementation of larder.RecipeScraper.
type RecipeScraper struct {
	ScrapeFn func(ctx context.Context, url string) (*larder.Recipe, error)
}

func (s *RecipeScraper) Scrape(ctx context.Context, url string) (*larder.Recipe, error) {
	return s.ScrapeFn(ctx, url)
}
