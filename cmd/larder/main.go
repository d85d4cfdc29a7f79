package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"
	"github.com/fwojciec/larder"
	"github.com/fwojciec/larder/fs"
	"github.com/fwojciec/larder/gemini"
	"github.com/fwojciec/larder/goquery"
	"github.com/fwojciec/larder/htmltomarkdown"
	larderhttp "github.com/fwojciec/larder/http"
	"github.com/fwojciec/larder/imagecache"
	"github.com/fwojciec/larder/imaging"
	"github.com/fwojciec/larder/inmem"
	"github.com/fwojciec/larder/prometheus"
	"github.com/fwojciec/larder/readability"
	"github.com/fwojciec/larder/redis"
	"github.com/fwojciec/larder/rod"
	"github.com/fwojciec/larder/scrape"
	"github.com/fwojciec/larder/search"
	larderslog "github.com/fwojciec/larder/slog"
	"github.com/fwojciec/larder/sqlite"
	"github.com/fwojciec/larder/trafilatura"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/genai"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// ConfigPaths are YAML files supplying flag defaults. Missing files are
	// ignored.
	ConfigPaths []string

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	closers []io.Closer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		ConfigPaths: []string{"~/.larder/config.yaml"},
	}
}

// Close gracefully stops the program, releasing resources in reverse order
// of acquisition.
func (m *Main) Close() error {
	var first error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	m.closers = nil
	if m.DB != nil {
		if err := m.DB.Close(); err != nil && first == nil {
			first = err
		}
		m.DB = nil
	}
	return first
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("larder"),
		kong.Description("Search recipe sites and keep a local image cache"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Configuration(kongyaml.Loader, m.ConfigPaths...),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'larder --help' to see available commands")
	}

	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	deps.Logger = newLogger(cli.Verbose, stderr)

	if err := os.MkdirAll(filepath.Dir(cli.DB), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	m.DB = sqlite.NewDB(cli.DB)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set LARDER_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", cli.DB, err)
	}
	defer m.Close()

	deps.Sources = sqlite.NewSourceService(m.DB)

	w := &wiring{m: m, cli: cli, deps: deps}
	switch cmd := strings.Fields(kongCtx.Command())[0]; cmd {
	case "search":
		if err := w.searcher(ctx, !cli.Search.NoRank); err != nil {
			return err
		}
		if cli.Search.CacheImages {
			w.imageCache()
		}
	case "repair":
		if err := w.repairer(ctx, cli.Repair.Browser, cli.Repair.MinConfidence, true); err != nil {
			return err
		}
	case "images":
		w.imageCache()
	case "scrape":
		if err := w.scraper(cli.Scrape.Browser); err != nil {
			return err
		}
		if cli.Scrape.Out != "" {
			deps.Recipes = fs.NewWriter(cli.Scrape.Out)
		}
	case "serve":
		if err := w.searcher(ctx, true); err != nil {
			return err
		}
		w.imageCache()
		if err := w.repairer(ctx, false, search.DefaultRepairConfidence, false); err != nil {
			return err
		}
		w.server()
	}

	return kongCtx.Run(deps)
}

func newLogger(verbose bool, stderr io.Writer) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// wiring builds command-specific dependencies on demand, sharing the
// pieces several commands need.
type wiring struct {
	m    *Main
	cli  *CLI
	deps *Dependencies

	metrics  *prometheus.Metrics
	registry *prom.Registry
	cache    larder.Cache
	client   *genai.Client
	keyDone  bool
	fetcher  larder.Fetcher
	pipeline *imagecache.Pipeline
}

func (w *wiring) instruments() *prometheus.Metrics {
	if w.metrics == nil {
		w.metrics = prometheus.NewMetrics()
		w.registry = prom.NewRegistry()
		w.metrics.Register(w.registry)
	}
	return w.metrics
}

func (w *wiring) ttlCache(ctx context.Context) (larder.Cache, error) {
	if w.cache != nil {
		return w.cache, nil
	}
	if w.cli.RedisURL == "" {
		w.cache = inmem.NewCache()
		return w.cache, nil
	}
	c, err := redis.Open(ctx, w.cli.RedisURL)
	if err != nil {
		fmt.Fprintln(w.deps.Stderr, "Hint: Check LARDER_REDIS_URL or unset it to use the in-memory cache")
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	w.m.closers = append(w.m.closers, c)
	w.cache = c
	return c, nil
}

// gemini returns a client for a validated key, or nil when no usable key is
// configured.
func (w *wiring) gemini(ctx context.Context) (*genai.Client, error) {
	if w.keyDone {
		return w.client, nil
	}
	w.keyDone = true

	if w.cli.GeminiKey == "" {
		return nil, nil
	}
	cache, err := w.ttlCache(ctx)
	if err != nil {
		return nil, err
	}
	ok, err := gemini.NewKeyValidator(cache).Valid(ctx, w.cli.GeminiKey)
	if err != nil {
		w.deps.Logger.Warn("could not validate gemini key", "error", err)
		return nil, nil
	}
	if !ok {
		fmt.Fprintln(w.deps.Stderr, "warning: GEMINI_API_KEY was rejected; AI features are disabled")
		return nil, nil
	}
	client, err := gemini.NewClient(ctx, w.cli.GeminiKey)
	if err != nil {
		return nil, err
	}
	w.client = client
	return client, nil
}

func (w *wiring) httpFetcher() larder.Fetcher {
	if w.fetcher == nil {
		f := larderhttp.NewFetcher(larderhttp.WithIdentities(larderhttp.DefaultIdentities()))
		w.fetcher = w.instrument(f)
		w.m.closers = append(w.m.closers, w.fetcher)
	}
	return w.fetcher
}

func (w *wiring) browserFetcher() (larder.Fetcher, error) {
	f, err := rod.NewFetcher(rod.WithIdentities(larderhttp.DefaultIdentities()))
	if err != nil {
		fmt.Fprintln(w.deps.Stderr, "Hint: Chrome or Chromium must be installed")
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	fetcher := w.instrument(f)
	w.m.closers = append(w.m.closers, fetcher)
	return fetcher, nil
}

func (w *wiring) instrument(f larder.Fetcher) larder.Fetcher {
	return larderslog.NewLoggingFetcher(prometheus.NewFetcher(f, w.instruments()), w.deps.Logger)
}

func (w *wiring) searcher(ctx context.Context, rank bool) error {
	health := larderslog.NewLoggingHealthTracker(
		prometheus.NewHealthTracker(search.NewHealthTracker(w.deps.Sources), w.instruments()),
		w.deps.Logger,
	)
	svc := &search.Service{
		Sources:   w.deps.Sources,
		Fetcher:   w.httpFetcher(),
		Extractor: goquery.NewResultExtractor(),
		Health:    health,
		Limiter:   search.NewDomainLimiter(1, 1),
		Logger:    w.deps.Logger,
	}

	if rank {
		client, err := w.gemini(ctx)
		if err != nil {
			return err
		}
		if client != nil {
			cache, err := w.ttlCache(ctx)
			if err != nil {
				return err
			}
			svc.Ranker = larderslog.NewLoggingRanker(gemini.NewRanker(client, cache), w.deps.Logger)
		}
	}

	w.deps.Searcher = svc
	return nil
}

func (w *wiring) imageCache() {
	if w.pipeline != nil {
		return
	}
	images := sqlite.NewImageService(w.m.DB)
	store := fs.NewImageStore(w.cli.MediaDir, w.cli.MediaURL)
	p := imagecache.NewPipeline(images, store, larderhttp.NewImageDownloader(larderhttp.DefaultIdentities()), imaging.NewNormalizer())
	p.Logger = w.deps.Logger
	w.m.closers = append(w.m.closers, p)
	w.pipeline = p

	w.deps.Images = larderslog.NewLoggingImageCache(prometheus.NewImageCache(p, w.instruments()), w.deps.Logger)
	w.deps.Cache = p
	p.Worker = w.deps.Images
}

// repairer wires selector repair. When required is false a missing Gemini
// key leaves Repairer unset instead of failing.
func (w *wiring) repairer(ctx context.Context, browser bool, minConfidence float64, required bool) error {
	client, err := w.gemini(ctx)
	if err != nil {
		return err
	}
	if client == nil {
		if !required {
			return nil
		}
		fmt.Fprintln(w.deps.Stderr, "Selector repair needs a valid GEMINI_API_KEY. Get an API key at https://aistudio.google.com/apikey")
		return larder.Errorf(larder.EINVALID, "GEMINI_API_KEY not set or invalid")
	}

	proposer := gemini.NewSelectorProposer(client)
	fetcher := w.httpFetcher()
	if browser {
		if fetcher, err = w.browserFetcher(); err != nil {
			return err
		}
	}

	w.deps.Repairer = &search.Repairer{
		Sources:       w.deps.Sources,
		Fetcher:       fetcher,
		Validator:     goquery.NewResultExtractor(),
		Proposer:      larderslog.NewLoggingSelectorProposer(proposer, w.deps.Logger),
		Condenser:     goquery.Condenser{},
		TokenCounter:  proposer,
		MinConfidence: minConfidence,
		Logger:        w.deps.Logger,
	}
	return nil
}

func (w *wiring) scraper(browser bool) error {
	fetcher := w.httpFetcher()
	if browser {
		var err error
		if fetcher, err = w.browserFetcher(); err != nil {
			return err
		}
	}
	w.deps.Scraper = &scrape.Scraper{
		Fetcher:     fetcher,
		Parser:      goquery.NewRecipeParser(),
		Extractors:  []larder.Extractor{trafilatura.NewExtractor(), readability.NewExtractor()},
		Converter:   htmltomarkdown.NewConverter(),
		RetryDelays: scrape.DefaultRetryDelays(),
		Logger:      w.deps.Logger,
	}
	return nil
}

func (w *wiring) server() {
	w.instruments()
	w.deps.Server = &larderhttp.Server{
		Searcher: w.deps.Searcher,
		Sources:  w.deps.Sources,
		Images:   w.deps.Images,
		Detach:   w.pipeline.Detach,
		Metrics:  promhttp.HandlerFor(w.registry, promhttp.HandlerOpts{}),
		MediaDir: w.cli.MediaDir,
		MediaURL: w.cli.MediaURL,
		Logger:   w.deps.Logger,
	}
}
