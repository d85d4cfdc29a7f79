package goquery_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/fwojciec/larder"
	"github.com/fwojciec/larder/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "https://example.com/search?q=curry"

func TestResultExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("extracts results using the configured selector", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<div class="recipe-card">
	<a href="/recipe/123/chicken-curry"><h3>Chicken Curry1,392Ratings</h3></a>
	<img src="/img/curry.jpg">
	<p>Spicy and warm.</p>
</div>
<div class="recipe-card">
	<a href="/recipe/456/rice"><h3>500Ratings</h3></a>
</div>
</body></html>`

		results, err := goquery.NewResultExtractor().Extract(html, "example.com", ".recipe-card", baseURL)

		require.NoError(t, err)
		require.Len(t, results, 1)
		r := results[0]
		assert.Equal(t, "https://example.com/recipe/123/chicken-curry", r.URL)
		assert.Equal(t, "Chicken Curry", r.Title)
		assert.Equal(t, "example.com", r.Host)
		assert.Equal(t, "https://example.com/img/curry.jpg", r.ImageURL)
		assert.Equal(t, "Spicy and warm.", r.Description)
		require.NotNil(t, r.RatingCount)
		assert.Equal(t, 1392, *r.RatingCount)
	})

	t.Run("falls through to articles when the selector matches nothing", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<article><a href="https://example.com/recipes/pancakes">Fluffy Pancakes</a></article>
</body></html>`

		results, err := goquery.NewResultExtractor().Extract(html, "example.com", ".card", baseURL)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "https://example.com/recipes/pancakes", results[0].URL)
		assert.Equal(t, "Fluffy Pancakes", results[0].Title)
		assert.Nil(t, results[0].RatingCount)
	})

	t.Run("falls back to card-like containers", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<div class="search-result"><a href="/recipes/tacos"><span class="title">Fish Tacos</span></a></div>
</body></html>`

		results, err := goquery.NewResultExtractor().Extract(html, "example.com", "", baseURL)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "https://example.com/recipes/tacos", results[0].URL)
		assert.Equal(t, "Fish Tacos", results[0].Title)
	})

	t.Run("falls back to recipe anchors with meaningful text", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><ul>
<li><a href="/recipes/lemon-bars">Lemon Bars Deluxe</a></li>
<li><a href="/about/us">About our kitchen</a></li>
<li><a href="/recipes/eggs">Eggs</a></li>
<li><a href="https://other.com/recipes/stew">Someone else's stew</a></li>
</ul></body></html>`

		results, err := goquery.NewResultExtractor().Extract(html, "example.com", "", baseURL)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "https://example.com/recipes/lemon-bars", results[0].URL)
		assert.Equal(t, "Lemon Bars Deluxe", results[0].Title)
		assert.Empty(t, results[0].ImageURL)
	})

	t.Run("measures anchor text in characters", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><ul>
<li><a href="/recipes/creme">Crème</a></li>
<li><a href="/recipes/brulee">Brûlée</a></li>
</ul></body></html>`

		results, err := goquery.NewResultExtractor().Extract(html, "example.com", "", baseURL)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "https://example.com/recipes/brulee", results[0].URL)
		assert.Equal(t, "Brûlée", results[0].Title)
	})

	t.Run("returns no results when nothing looks like a recipe", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><p>No results found.</p></body></html>`

		results, err := goquery.NewResultExtractor().Extract(html, "example.com", "", baseURL)

		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("caps results per source", func(t *testing.T) {
		t.Parallel()

		var b strings.Builder
		for i := range 25 {
			fmt.Fprintf(&b, `<article><a href="/recipe/%d">Recipe number %d</a></article>`, i+1, i+1)
		}

		results, err := goquery.NewResultExtractor().Extract(b.String(), "example.com", "", baseURL)

		require.NoError(t, err)
		assert.Len(t, results, larder.MaxResultsPerSource)
		assert.Equal(t, "https://example.com/recipe/1", results[0].URL)
	})

	t.Run("skips containers without a usable link", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<article><h2>Sponsored</h2></article>
<article><a href="javascript:void(0)">Click me please</a></article>
<article><a href="/recipe/9/soup"><h2>Tomato Soup</h2></a></article>
</body></html>`

		results, err := goquery.NewResultExtractor().Extract(html, "example.com", "", baseURL)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Tomato Soup", results[0].Title)
	})

	t.Run("prefers lazy image sources over inline placeholders", func(t *testing.T) {
		t.Parallel()

		html := `<article>
<a href="/recipe/7/bread"><h2>Sourdough Bread</h2></a>
<img src="data:image/gif;base64,R0lGOD" data-src="/img/bread.jpg">
</article>`

		results, err := goquery.NewResultExtractor().Extract(html, "example.com", "", baseURL)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "https://example.com/img/bread.jpg", results[0].ImageURL)
	})

	t.Run("truncates long titles", func(t *testing.T) {
		t.Parallel()

		long := strings.Repeat("a", 300)
		html := `<article><a href="/recipe/1/long"><h2>` + long + `</h2></a></article>`

		results, err := goquery.NewResultExtractor().Extract(html, "example.com", "", baseURL)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Len(t, results[0].Title, larder.MaxTitleLength)
	})

	t.Run("returns EINVALID for an unparseable base URL", func(t *testing.T) {
		t.Parallel()

		_, err := goquery.NewResultExtractor().Extract("<html></html>", "example.com", "", "://bad")

		assert.Equal(t, larder.EINVALID, larder.ErrorCode(err))
	})
}

func TestIsRecipeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"recipe path on subdomain", "https://www.example.com/recipe/123", true},
		{"search page", "https://example.com/search?q=curry", false},
		{"tag listing", "https://example.com/tag/chicken/", false},
		{"other host", "https://other.com/recipe/1", false},
		{"numeric segment", "https://example.com/12345/slug", true},
		{"dated post", "https://example.com/2019/05/lemon-bars", true},
		{"single segment", "https://example.com/lemon-bars", false},
		{"long two-segment path", "https://example.com/desserts/lemon-bars-deluxe", true},
		{"short two-segment path", "https://example.com/a/b", false},
		{"recipes index", "https://example.com/recipes", false},
		{"blocklist wins over allowlist", "https://example.com/author/recipes/x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, goquery.IsRecipeURL(tt.url, "example.com"))
		})
	}
}
