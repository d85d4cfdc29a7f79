package larder

// Converter converts HTML to Markdown.
type Converter interface {
	// Convert transforms HTML content into Markdown. Relative links and
	// images are resolved against pageURL when it is not empty.
	Convert(html, pageURL string) (string, error)
}
