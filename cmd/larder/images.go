package main

import (
	"fmt"

	"github.com/fwojciec/larder"
)

// Run executes the images cache command.
func (c *ImagesCacheCmd) Run(deps *Dependencies) error {
	deps.Images.CacheAll(deps.Ctx, c.URLs)

	cached, err := deps.Images.CachedURLs(deps.Ctx, c.URLs)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", larder.ErrorMessage(err))
		return err
	}

	failed := 0
	for _, u := range c.URLs {
		if local, ok := cached[u]; ok {
			fmt.Fprintf(deps.Stdout, "%s -> %s\n", u, local)
			continue
		}
		failed++
		fmt.Fprintf(deps.Stdout, "%s -> not cached\n", u)
	}

	if failed > 0 {
		return larder.Errorf(larder.EUNAVAILABLE, "%d of %d images could not be cached", failed, len(c.URLs))
	}
	return nil
}

// Run executes the images lookup command.
func (c *ImagesLookupCmd) Run(deps *Dependencies) error {
	cached, err := deps.Images.CachedURLs(deps.Ctx, c.URLs)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", larder.ErrorMessage(err))
		return err
	}

	for _, u := range c.URLs {
		local, ok := cached[u]
		if !ok {
			local = u
		}
		fmt.Fprintln(deps.Stdout, local)
	}
	return nil
}

// Run executes the images cleanup command.
func (c *ImagesCleanupCmd) Run(deps *Dependencies) error {
	n, err := deps.Cache.Cleanup(deps.Ctx, c.Retention)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", larder.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Removed %d images not accessed in %s\n", n, c.Retention)
	return nil
}
