package larder

// ExtractResult holds the main content of a page without structured recipe data.
type ExtractResult struct {
	Title       string
	Description string

	// ImageURL is the page's lead image, absolute when the page URL is known.
	ImageURL string

	// ContentHTML is the main content as clean HTML.
	// Boilerplate (nav, footer, sidebar, ads) has been removed.
	ContentHTML string
}

// Extractor extracts main content from HTML pages, removing boilerplate.
type Extractor interface {
	// Extract processes raw HTML fetched from pageURL and returns the main
	// content. Returns EINVALID for empty input.
	Extract(html, pageURL string) (*ExtractResult, error)
}
