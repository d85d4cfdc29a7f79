package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/larder"
	larderhttp "github.com/fwojciec/larder/http"
	"github.com/fwojciec/larder/search"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	Sources  larder.SourceService
	Searcher larder.Searcher
	Images   larder.ImageCache
	Cache    ImageMaintainer
	Repairer Repairer
	Scraper  larder.RecipeScraper
	Recipes  RecipeWriter
	Server   *larderhttp.Server
}

// Repairer installs new selectors for sources that need attention.
type Repairer interface {
	Repair(ctx context.Context) ([]search.RepairOutcome, error)
}

// ImageMaintainer runs background and housekeeping work on the image cache.
type ImageMaintainer interface {
	Detach(urls []string)
	Cleanup(ctx context.Context, retention time.Duration) (int, error)
}

// RecipeWriter stores a scraped recipe and returns where it was written.
type RecipeWriter interface {
	WriteRecipe(ctx context.Context, r *larder.Recipe) (string, error)
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	DB        string `type:"path" env:"LARDER_DB" default:"~/.larder/larder.db" help:"SQLite database path"`
	MediaDir  string `type:"path" env:"LARDER_MEDIA_DIR" default:"~/.larder/media" help:"Directory for cached images"`
	MediaURL  string `env:"LARDER_MEDIA_URL" default:"/media/recipe_images/" help:"URL prefix for cached images"`
	GeminiKey string `env:"GEMINI_API_KEY" help:"Gemini API key, enables ranking and selector repair"`
	RedisURL  string `env:"LARDER_REDIS_URL" help:"Redis URL for the shared TTL cache"`
	Verbose   bool   `short:"v" help:"Log to stderr"`

	Search  SearchCmd  `cmd:"" help:"Search recipes across enabled sources"`
	Sources SourcesCmd `cmd:"" help:"Manage search sources"`
	Health  HealthCmd  `cmd:"" help:"Show source health"`
	Repair  RepairCmd  `cmd:"" help:"Propose new selectors for sources needing attention"`
	Images  ImagesCmd  `cmd:"" help:"Manage the recipe image cache"`
	Scrape  ScrapeCmd  `cmd:"" help:"Scrape a single recipe page"`
	Serve   ServeCmd   `cmd:"" help:"Serve the search API, cached images and metrics"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query       string   `arg:"" help:"Search query"`
	Source      []string `short:"s" help:"Restrict to source host (repeatable)"`
	Page        int      `default:"1" help:"Result page"`
	PerPage     int      `default:"20" help:"Results per page"`
	NoRank      bool     `help:"Skip AI ranking"`
	CacheImages bool     `help:"Cache result images before printing"`
	JSON        bool     `help:"Print the response as JSON"`
}

// SourcesCmd groups source management subcommands.
type SourcesCmd struct {
	List    SourcesListCmd    `cmd:"" default:"1" help:"List sources"`
	Add     SourcesAddCmd     `cmd:"" help:"Add a source"`
	Enable  SourcesEnableCmd  `cmd:"" help:"Enable a source"`
	Disable SourcesDisableCmd `cmd:"" help:"Disable a source"`
	Remove  SourcesRemoveCmd  `cmd:"" help:"Remove a source"`
	Import  SourcesImportCmd  `cmd:"" help:"Import sources from YAML (built-in list by default)"`
}

// SourcesListCmd is the "sources list" subcommand.
type SourcesListCmd struct{}

// SourcesAddCmd is the "sources add" subcommand.
type SourcesAddCmd struct {
	Host      string `arg:"" help:"Site host, e.g. www.allrecipes.com"`
	SearchURL string `arg:"" help:"Search URL containing {query}"`
	Name      string `help:"Display name (defaults to host)"`
	Selector  string `help:"CSS selector for result elements"`
	Disabled  bool   `help:"Add the source disabled"`
}

// SourcesEnableCmd is the "sources enable" subcommand.
type SourcesEnableCmd struct {
	Host string `arg:"" help:"Source host"`
}

// SourcesDisableCmd is the "sources disable" subcommand.
type SourcesDisableCmd struct {
	Host string `arg:"" help:"Source host"`
}

// SourcesRemoveCmd is the "sources remove" subcommand.
type SourcesRemoveCmd struct {
	Host  string `arg:"" help:"Source host"`
	Force bool   `help:"Confirm removal"`
}

// SourcesImportCmd is the "sources import" subcommand.
type SourcesImportCmd struct {
	File string `arg:"" optional:"" type:"existingfile" help:"YAML file of sources"`
}

// HealthCmd is the "health" subcommand.
type HealthCmd struct {
	Attention bool `short:"a" help:"Only show sources needing attention"`
}

// RepairCmd is the "repair" subcommand.
type RepairCmd struct {
	Browser       bool    `short:"b" help:"Render sample pages in a headless browser"`
	MinConfidence float64 `default:"0.7" help:"Lowest proposal confidence to apply"`
}

// ImagesCmd groups image cache subcommands.
type ImagesCmd struct {
	Cache   ImagesCacheCmd   `cmd:"" help:"Download and cache images"`
	Lookup  ImagesLookupCmd  `cmd:"" help:"Show local URLs of cached images"`
	Cleanup ImagesCleanupCmd `cmd:"" help:"Remove images not accessed recently"`
}

// ImagesCacheCmd is the "images cache" subcommand.
type ImagesCacheCmd struct {
	URLs []string `arg:"" name:"url" help:"Image URLs"`
}

// ImagesLookupCmd is the "images lookup" subcommand.
type ImagesLookupCmd struct {
	URLs []string `arg:"" name:"url" help:"Image URLs"`
}

// ImagesCleanupCmd is the "images cleanup" subcommand.
type ImagesCleanupCmd struct {
	Retention time.Duration `default:"720h" help:"Keep images accessed within this window"`
}

// ScrapeCmd is the "scrape" subcommand.
type ScrapeCmd struct {
	URL     string `arg:"" help:"Recipe page URL"`
	Browser bool   `short:"b" help:"Render the page in a headless browser"`
	Out     string `short:"o" type:"path" help:"Write markdown under this directory instead of stdout"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr            string        `default:":8080" help:"Listen address"`
	RepairInterval  time.Duration `default:"6h" help:"Selector repair interval (0 disables)"`
	CleanupInterval time.Duration `default:"24h" help:"Image cleanup interval (0 disables)"`
	Retention       time.Duration `default:"720h" help:"Image retention for cleanup"`
}
