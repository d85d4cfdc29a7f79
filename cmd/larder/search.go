package main

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/fatih/color"
	"github.com/fwojciec/larder"
	"github.com/fwojciec/larder/imagecache"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	resp, err := deps.Searcher.Search(deps.Ctx, larder.SearchRequest{
		Query:   c.Query,
		Sources: c.Source,
		Page:    c.Page,
		PerPage: c.PerPage,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", larder.ErrorMessage(err))
		return err
	}

	if c.CacheImages && deps.Images != nil {
		var urls []string
		for _, r := range resp.Results {
			if r.ImageURL != "" {
				urls = append(urls, r.ImageURL)
			}
		}
		deps.Images.CacheAll(deps.Ctx, urls)
		if _, err := imagecache.LocalizeImages(deps.Ctx, deps.Images, resp.Results); err != nil {
			fmt.Fprintf(deps.Stderr, "warning: image lookup failed: %s\n", larder.ErrorMessage(err))
		}
	}

	if c.JSON {
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if len(resp.Results) == 0 {
		fmt.Fprintf(deps.Stdout, "No results for %q.\n", c.Query)
	}

	title := color.New(color.FgCyan, color.Bold).SprintFunc()
	link := color.New(color.FgGreen).SprintFunc()
	first := (resp.Page-1)*resp.PerPage + 1
	for i, r := range resp.Results {
		fmt.Fprintf(deps.Stdout, "%3d. %s  (%s)\n", first+i, title(r.Title), r.Host)
		fmt.Fprintf(deps.Stdout, "     %s\n", link(r.URL))
		if r.Description != "" {
			fmt.Fprintf(deps.Stdout, "     %s\n", r.Description)
		}
		if r.ImageURL != "" {
			fmt.Fprintf(deps.Stdout, "     image: %s\n", r.ImageURL)
		}
	}

	fmt.Fprintf(deps.Stdout, "\nPage %d, %d of %d results", resp.Page, len(resp.Results), resp.Total)
	if resp.HasMore {
		fmt.Fprint(deps.Stdout, " (more available)")
	}
	fmt.Fprintln(deps.Stdout)

	hosts := make([]string, 0, len(resp.SiteCounts))
	for host := range resp.SiteCounts {
		hosts = append(hosts, host)
	}
	slices.Sort(hosts)
	for _, host := range hosts {
		fmt.Fprintf(deps.Stdout, "  %-32s %d\n", host, resp.SiteCounts[host])
	}
	return nil
}
