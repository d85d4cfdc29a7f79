// Package rod fetches JavaScript-rendered pages with a headless Chrome.
package rod

import (
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/larder"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultTimeout bounds a single page load.
const DefaultTimeout = 30 * time.Second

// Ensure Fetcher implements larder.Fetcher at compile time.
var _ larder.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves rendered HTML from URLs using Chrome browser automation.
// Images, fonts and media are not downloaded since only markup is needed.
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	manager    *BrowserManager
	identities larder.IdentityProvider
	timeout    time.Duration
	maxPages   int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithIdentities sets the provider of the user agent and headers each
// browser presents. An identity is picked per launched browser, so pages
// rendered by the same browser look alike. By default Chrome's own headers
// are sent.
func WithIdentities(p larder.IdentityProvider) Option {
	return func(f *Fetcher) {
		f.identities = p
	}
}

// WithTimeout sets the page load timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithRecycleAfter sets how many pages are loaded before the browser is
// restarted.
func WithRecycleAfter(n int64) Option {
	return func(f *Fetcher) {
		f.maxPages = n
	}
}

// NewFetcher creates a new Fetcher that launches a headless Chrome browser.
// Close must be called when the Fetcher is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		timeout:  DefaultTimeout,
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(f)
	}

	manager, err := NewBrowserManager(WithMaxPages(f.maxPages), WithBrowserIdentities(f.identities))
	if err != nil {
		return nil, err
	}
	f.manager = manager
	return f, nil
}

// Fetch navigates to the URL and returns the rendered HTML.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s, err := f.manager.acquire()
	if err != nil {
		return "", err
	}
	defer f.manager.release(s)

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("opening page: %w", err)
	}
	defer page.Close()

	if err := setHeaders(page, s.identity.Headers); err != nil {
		return "", err
	}

	router := page.HijackRequests()
	for _, rt := range []proto.NetworkResourceType{
		proto.NetworkResourceTypeImage,
		proto.NetworkResourceTypeFont,
		proto.NetworkResourceTypeMedia,
	} {
		if err := router.Add("*", rt, func(h *rod.Hijack) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		}); err != nil {
			return "", err
		}
	}
	go router.Run()
	defer router.Stop()

	page = page.Context(ctx).Timeout(f.timeout)

	if err := page.Navigate(url); err != nil {
		return "", err
	}
	if err := page.WaitLoad(); err != nil {
		return "", err
	}
	return page.HTML()
}

// setHeaders sends headers with every request page makes.
func setHeaders(page *rod.Page, headers map[string]string) error {
	if len(headers) == 0 {
		return nil
	}
	dict := make([]string, 0, 2*len(headers))
	for k, v := range headers {
		if k == "User-Agent" {
			continue
		}
		dict = append(dict, k, v)
	}
	_, err := page.SetExtraHeaders(dict)
	return err
}

// LauncherPID returns the process ID of the current browser launcher.
func (f *Fetcher) LauncherPID() int {
	return f.manager.LauncherPID()
}

// Close releases browser resources.
func (f *Fetcher) Close() error {
	return f.manager.Close()
}
