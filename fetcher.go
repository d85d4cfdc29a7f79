package larder

import "context"

// Fetcher retrieves HTML from URLs.
// Implementations may use browser automation to handle JavaScript-rendered content.
type Fetcher interface {
	// Fetch retrieves the page at url and returns its HTML.
	// Non-200 responses are errors. The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (html string, err error)

	// Close releases resources.
	// Must be called when the Fetcher is no longer needed.
	Close() error
}

// Identity is a browser fingerprint presented to remote sites.
type Identity struct {
	Name      string
	UserAgent string
	Headers   map[string]string
}

// IdentityProvider chooses which browser identity a request presents.
type IdentityProvider interface {
	// Pick returns an identity for the next request.
	Pick() Identity

	// Profiles returns every configured identity in preference order.
	Profiles() []Identity
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}
