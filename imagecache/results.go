package imagecache

import (
	"context"

	"github.com/fwojciec/larder"
)

// LocalizeImages rewrites ImageURL on results that have a cached local copy
// and returns the image URLs that are not cached yet, without duplicates.
// Results are modified in place.
func LocalizeImages(ctx context.Context, cache larder.ImageCache, results []larder.SearchResult) ([]string, error) {
	var urls []string
	for _, r := range results {
		if r.ImageURL != "" {
			urls = append(urls, r.ImageURL)
		}
	}
	urls = dedup(urls)
	if len(urls) == 0 {
		return nil, nil
	}

	cached, err := cache.CachedURLs(ctx, urls)
	if err != nil {
		return nil, err
	}

	for i := range results {
		if local, ok := cached[results[i].ImageURL]; ok {
			results[i].ImageURL = local
		}
	}

	var missing []string
	for _, u := range urls {
		if _, ok := cached[u]; !ok {
			missing = append(missing, u)
		}
	}
	return missing, nil
}
