package larder

import "context"

// Recipe is a recipe scraped from a single page.
type Recipe struct {
	SourceURL    string   `json:"sourceUrl"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	Ingredients  []string `json:"ingredients,omitempty"`
	Instructions []string `json:"instructions,omitempty"`
	Yields       string   `json:"yields,omitempty"`
	PrepTime     string   `json:"prepTime,omitempty"`
	CookTime     string   `json:"cookTime,omitempty"`
	TotalTime    string   `json:"totalTime,omitempty"`

	// Content is the page body as markdown, set when no structured recipe
	// data was found.
	Content string `json:"content,omitempty"`
}

// Validate returns an error if the recipe has no source or no usable content.
func (r *Recipe) Validate() error {
	if r.SourceURL == "" {
		return Errorf(EINVALID, "recipe source URL required")
	}
	if r.Title == "" && r.Content == "" && len(r.Ingredients) == 0 {
		return Errorf(EINVALID, "recipe has no content")
	}
	return nil
}

// RecipeParser reads structured recipe data embedded in a page.
type RecipeParser interface {
	// ParseRecipe returns the recipe described by html. The bool is false
	// if the page carries no structured recipe.
	ParseRecipe(html, pageURL string) (*Recipe, bool)
}

// RecipeScraper scrapes a recipe from an arbitrary cooking site.
type RecipeScraper interface {
	Scrape(ctx context.Context, url string) (*Recipe, error)
}

// Optional returns the value produced by get, or def if get fails or panics.
// It keeps one malformed field from aborting a whole parse.
func Optional[T any](def T, get func() (T, error)) (v T) {
	defer func() {
		if recover() != nil {
			v = def
		}
	}()
	val, err := get()
	if err != nil {
		return def
	}
	return val
}
