package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/larder"
	"github.com/fwojciec/larder/fs"
)

// Run executes the scrape command.
func (c *ScrapeCmd) Run(deps *Dependencies) error {
	recipe, err := deps.Scraper.Scrape(deps.Ctx, c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", larder.ErrorMessage(err))
		return err
	}

	if deps.Recipes != nil {
		path, err := deps.Recipes.WriteRecipe(deps.Ctx, recipe)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", larder.ErrorMessage(err))
			return err
		}
		fmt.Fprintf(deps.Stdout, "Wrote %s\n", path)
		return nil
	}

	doc, err := fs.FormatRecipe(recipe, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprint(deps.Stdout, doc)
	return nil
}
