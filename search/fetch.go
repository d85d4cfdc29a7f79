package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/fwojciec/larder"
	"golang.org/x/sync/semaphore"
)

// MaxConcurrentFetches limits how many source pages are fetched at once
// during a single search.
const MaxConcurrentFetches = 10

// Page is the outcome of fetching one source's search page. Exactly one of
// HTML and Err is meaningful.
type Page struct {
	Source *larder.SearchSource
	URL    string
	HTML   string
	Err    error
}

// FetchAll fetches the search page of every source for query and returns one
// Page per source in the order given. A failing source never affects the
// others: errors, including panics inside the fetcher, are captured on its
// Page. The limiter may be nil.
func FetchAll(ctx context.Context, fetcher larder.Fetcher, limiter larder.DomainLimiter, sources []*larder.SearchSource, query string) []Page {
	pages := make([]Page, len(sources))
	sem := semaphore.NewWeighted(MaxConcurrentFetches)

	var wg sync.WaitGroup
	for i, source := range sources {
		pages[i] = Page{Source: source, URL: source.BuildSearchURL(query)}

		wg.Add(1)
		go func(p *Page) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				p.Err = err
				return
			}
			defer sem.Release(1)

			p.HTML, p.Err = fetchPage(ctx, fetcher, limiter, p.Source.Host, p.URL)
		}(&pages[i])
	}
	wg.Wait()

	return pages
}

func fetchPage(ctx context.Context, fetcher larder.Fetcher, limiter larder.DomainLimiter, host, url string) (html string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch %s panicked: %v", url, r)
		}
	}()

	if limiter != nil {
		if err := limiter.Wait(ctx, host); err != nil {
			return "", err
		}
	}
	return fetcher.Fetch(ctx, url)
}
