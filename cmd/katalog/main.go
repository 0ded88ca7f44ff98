// Package main is the katalog CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/hyperjump/katalog/internal/cli"
	"github.com/hyperjump/katalog/internal/config"
	"github.com/hyperjump/katalog/internal/embedding"
	"github.com/hyperjump/katalog/internal/extract"
	"github.com/hyperjump/katalog/internal/indexer"
	"github.com/hyperjump/katalog/internal/keyword"
	"github.com/hyperjump/katalog/internal/models"
	"github.com/hyperjump/katalog/internal/search"
	"github.com/hyperjump/katalog/internal/server"
	"github.com/hyperjump/katalog/internal/storage"
	"github.com/hyperjump/katalog/internal/vector"
	"github.com/hyperjump/katalog/internal/watcher"
	"github.com/hyperjump/katalog/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/katalog/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "similar":
		runSimilar()
	case "item":
		runItem()
	case "stats":
		runStats()
	case "ingest":
		runIngest()
	case "version", "--version", "-v":
		fmt.Printf("katalog version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// setup loads the config at path and builds a logger; debug forces debug logging.
func setup(path string, debug bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug, zap.String("version", version))
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	return cfg, resolved, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := setup(*configPath, *debug)
	defer logger.Sync()
	debugMode := cfg.Debug || *debug
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("source", cfg.Storage.Source),
		zap.String("provider", cfg.Embedding.Provider),
		zap.Bool("debug", debugMode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	keywords := keyword.NewIndex(keyword.WithFuzziness(cfg.Search.KeywordFuzziness))
	defer keywords.Close()
	components.Loader.OnReload(keywords.Rebuild)

	// The server starts even without a catalog; searches answer 503 until a reload succeeds.
	if err := components.Loader.Reload(ctx); err != nil {
		logger.Warn("catalog not loaded at startup", zap.Error(err))
	}

	if cfg.Watch.Enabled {
		watchOpts := []watcher.WatcherOption{watcher.WithDebounce(cfg.Watch.Debounce)}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc := watcher.NewWatcher(catalogFiles(cfg), func() {
			_ = components.Loader.Reload(ctx)
		}, watchOpts...)
		if err := watchSvc.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(components.Engine, components.Loader, cfg, logger, server.WithKeywordIndex(keywords))
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// catalogFiles lists the files a reload reads for the configured source.
func catalogFiles(cfg *config.Config) []string {
	if cfg.Storage.Source == config.SourceSQLite {
		return []string{cfg.Storage.DatabasePath}
	}
	return []string{cfg.Storage.ItemsPath, cfg.Storage.EmbeddingsPath}
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: katalog search [flags] [text...]\n\n")
	fmt.Fprintf(fs.Output(), "Text is all remaining arguments joined by spaces. Give --image for image or multimodal search.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  katalog search white standing desk
  katalog search --image ./photo.jpg
  katalog search --image ./photo.jpg minimalist     # multimodal
  katalog search --top-k 5 --threshold 0.3 ergonomic chair
  katalog search --format json desk lamp
`)
}

// buildSearchText joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchText(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// configPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func configPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if v, ok := strings.CutPrefix(a, "-config="); ok {
			return v
		}
	}
	return defaultPath
}

// searchDefaultsFromConfig loads config at path and returns the default top-k and threshold.
// On load failure, returns 12 and 0.5.
func searchDefaultsFromConfig(path string) (topK int, threshold float64) {
	topK, threshold = 12, 0.5
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil {
		return topK, threshold
	}
	return cfg.Search.DefaultTopK, cfg.Search.ThresholdOrDefault()
}

// argsReorder moves any flags (and their values) that appear after the
// positional arguments to the front so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// searchMode picks the query mode from which inputs are present.
func searchMode(text string, hasImage bool) (models.SearchMode, error) {
	switch {
	case text != "" && hasImage:
		return models.ModeMultimodal, nil
	case hasImage:
		return models.ModeImage, nil
	case text != "":
		return models.ModeText, nil
	default:
		return "", errors.New("give query text, --image, or both")
	}
}

func runSearch() {
	args := argsReorder(os.Args[2:])
	defaultTopK, defaultThreshold := searchDefaultsFromConfig(configPathFromArgs(args, defaultConfigPath))

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = load the catalog directly)")
	imagePath := fs.String("image", "", "query image file")
	topK := fs.Int("top-k", defaultTopK, "number of results")
	threshold := fs.Float64("threshold", defaultThreshold, "minimum similarity in [-1, 1]")
	outputFormat := fs.String("format", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(args)

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	query := &models.SearchQuery{Text: buildSearchText(fs.Args()), TopK: *topK, Threshold: threshold}
	if *imagePath != "" {
		if query.Image, err = os.ReadFile(*imagePath); err != nil {
			fatalf("Failed to read image: %v", err)
		}
	}
	if query.Mode, err = searchMode(query.Text, *imagePath != ""); err != nil {
		printSearchUsage(fs)
		os.Exit(1)
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		response, err = searchViaHTTP(*serverURL, query)
	} else {
		response, err = searchDirect(*configPath, query)
	}
	if err != nil {
		fatalf("Search failed: %v", err)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runSimilar() {
	args := argsReorder(os.Args[2:])
	defaultTopK, _ := searchDefaultsFromConfig(configPathFromArgs(args, defaultConfigPath))

	fs := flag.NewFlagSet("similar", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = load the catalog directly)")
	topK := fs.Int("top-k", defaultTopK, "number of results")
	includeSelf := fs.Bool("include-self", false, "keep the query item in the results")
	outputFormat := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fatalf("Usage: katalog similar [flags] <product-id>")
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	excludeSelf := !*includeSelf
	query := &models.SearchQuery{Mode: models.ModeSimilar, ItemID: fs.Arg(0), TopK: *topK, ExcludeSelf: &excludeSelf}

	var response *models.SearchResponse
	if *serverURL != "" {
		response, err = searchViaHTTP(*serverURL, query)
	} else {
		response, err = searchDirect(*configPath, query)
	}
	if err != nil {
		fatalf("Search failed: %v", err)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func searchDirect(configPath string, query *models.SearchQuery) (*models.SearchResponse, error) {
	cfg, _, logger := setup(configPath, false)
	defer logger.Sync()
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	if err := components.Loader.Reload(ctx); err != nil {
		return nil, err
	}
	return components.Engine.Search(ctx, query)
}

// searchViaHTTP sends query to the endpoint matching its mode.
func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	var (
		resp *http.Response
		err  error
	)
	switch query.Mode {
	case models.ModeText:
		body, _ := json.Marshal(map[string]interface{}{
			"text": query.Text, "top_k": query.TopK, "threshold": query.Threshold,
		})
		resp, err = http.Post(serverURL+"/api/v1/search/text", "application/json", bytes.NewReader(body))
	case models.ModeImage, models.ModeMultimodal:
		body, contentType, buildErr := multipartQuery(query)
		if buildErr != nil {
			return nil, buildErr
		}
		resp, err = http.Post(serverURL+"/api/v1/search/"+string(query.Mode), contentType, body)
	case models.ModeSimilar:
		v := url.Values{}
		v.Set("top_k", strconv.Itoa(query.TopK))
		v.Set("exclude_self", strconv.FormatBool(query.ExcludeSelfOrDefault()))
		resp, err = http.Get(serverURL + "/api/v1/items/" + url.PathEscape(query.ItemID) + "/similar?" + v.Encode())
	default:
		return nil, fmt.Errorf("unknown search mode: %s", query.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	var response models.SearchResponse
	if err := decodeHTTP(resp, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func multipartQuery(query *models.SearchQuery) (io.Reader, string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if query.Text != "" {
		_ = mw.WriteField("text", query.Text)
	}
	_ = mw.WriteField("top_k", strconv.Itoa(query.TopK))
	if query.Threshold != nil {
		_ = mw.WriteField("threshold", strconv.FormatFloat(*query.Threshold, 'f', -1, 64))
	}
	fw, err := mw.CreateFormFile("image", "query")
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(query.Image); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &body, mw.FormDataContentType(), nil
}

// decodeHTTP decodes a 200 response into v and turns any other status into an error.
func decodeHTTP(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func runItem() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("item", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = load the catalog directly)")
	outputFormat := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fatalf("Usage: katalog item [flags] <product-id>")
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	id := fs.Arg(0)

	var item models.Item
	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/items/" + url.PathEscape(id))
		if err != nil {
			fatalf("Request failed: %v", err)
		}
		if err := decodeHTTP(resp, &item); err != nil {
			fatalf("Lookup failed: %v", err)
		}
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			fatalf("Failed to initialize: %v", err)
		}
		defer components.Close()
		if err := components.Loader.Reload(ctx); err != nil {
			fatalf("Failed to load catalog: %v", err)
		}
		if item, err = components.Engine.Item(id); err != nil {
			fatalf("Lookup failed: %v", err)
		}
	}
	if err := cli.WriteItem(os.Stdout, item, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = load the catalog directly)")
	outputFormat := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}

	var (
		stats models.Stats
		run   *models.IngestRun
	)
	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/stats")
		if err != nil {
			fatalf("Request failed: %v", err)
		}
		var out struct {
			Stats models.Stats `json:"stats"`
		}
		if err := decodeHTTP(resp, &out); err != nil {
			fatalf("Stats failed: %v", err)
		}
		stats = out.Stats
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			fatalf("Failed to initialize: %v", err)
		}
		defer components.Close()
		if err := components.Loader.Reload(ctx); err != nil {
			fatalf("Failed to load catalog: %v", err)
		}
		stats = components.Engine.Stats()
		if r, err := components.Catalog.LatestRun(ctx); err == nil {
			run = r
		}
	}
	if err := cli.WriteStats(os.Stdout, stats, run, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	itemsPath := fs.String("items", "", "product list to embed, JSON or .xlsx (default: storage.items_path)")
	imagesDir := fs.String("images", "", "directory for relative image paths (default: storage.images_dir)")
	toSQLite := fs.Bool("sqlite", false, "write the snapshot to the SQLite database regardless of storage.source")
	reloadURL := fs.String("reload", "", "server URL to ask for a reload after a successful run")
	quiet := fs.Bool("quiet", false, "hide the progress bar")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, *debug)
	defer logger.Sync()
	if *itemsPath == "" {
		*itemsPath = cfg.Storage.ItemsPath
	}
	if *imagesDir == "" {
		*imagesDir = cfg.Storage.ImagesDir
	}
	if *toSQLite {
		cfg.Storage.Source = config.SourceSQLite
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var source vector.ItemSource = vector.ItemsFile{Path: *itemsPath}
	if extract.IsSheet(*itemsPath) {
		source = extract.SheetItems{Path: *itemsPath}
	}
	items, err := source.ReadItems(ctx)
	if err != nil {
		fatalf("Failed to read items: %v", err)
	}
	catalog, err := newCatalog(cfg)
	if err != nil {
		fatalf("Failed to open catalog: %v", err)
	}
	defer catalog.Close()
	provider, err := newProvider(ctx, cfg, logger)
	if err != nil {
		fatalf("Failed to initialize embedding provider: %v", err)
	}
	defer provider.Close()

	opts := []indexer.IndexerOption{indexer.WithLogger(logger), indexer.WithImagesDir(*imagesDir)}
	if !*quiet {
		bar := progressbar.NewOptions(len(items),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
			progressbar.OptionOnCompletion(func() {
				fmt.Println()
			}),
		)
		opts = append(opts, indexer.WithProgress(func(done, _ int) { _ = bar.Set(done) }))
	}
	idx := indexer.NewIndexer(provider, catalog, &cfg.Ingest, opts...)
	run, err := idx.Run(ctx, items)
	if err != nil {
		fatalf("Ingest failed: %v", err)
	}
	cli.WriteIngestRun(os.Stdout, run)

	if *reloadURL != "" {
		resp, err := http.Post(*reloadURL+"/api/v1/reload", "application/json", nil)
		if err != nil {
			fatalf("Reload request failed: %v", err)
		}
		var out map[string]interface{}
		if err := decodeHTTP(resp, &out); err != nil {
			fatalf("Reload failed: %v", err)
		}
		fmt.Println("Server reloaded")
	}
}

// Components holds initialized services.
type Components struct {
	Catalog  storage.Catalog
	Provider embedding.Provider
	Store    *vector.Store
	Engine   *search.Engine
	Loader   *storage.Loader
}

// Close releases the catalog and provider.
func (c *Components) Close() {
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
	if c.Provider != nil {
		_ = c.Provider.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	catalog, err := newCatalog(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	provider, err := newProvider(ctx, cfg, logger)
	if err != nil {
		_ = catalog.Close()
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	if cfg.Embedding.CacheSize > 0 {
		cached, err := embedding.NewCachedProvider(provider, cfg.Embedding.CacheSize)
		if err != nil {
			_ = catalog.Close()
			return nil, err
		}
		provider = cached
	}

	storeOpts := []vector.StoreOption{vector.WithLogger(logger)}
	if cfg.Search.UniqueIDs {
		storeOpts = append(storeOpts, vector.WithUniqueIDs())
	}
	store, err := vector.NewStore(cfg.Embedding.Dimensions, storeOpts...)
	if err != nil {
		_ = catalog.Close()
		return nil, err
	}

	return &Components{
		Catalog:  catalog,
		Provider: provider,
		Store:    store,
		Engine:   search.NewEngine(store, provider, &cfg.Search, logger),
		Loader:   storage.NewLoader(store, catalog, logger),
	}, nil
}

func newCatalog(cfg *config.Config) (storage.Catalog, error) {
	if cfg.Storage.Source == config.SourceSQLite {
		return storage.NewSQLiteCatalog(cfg.Storage.DatabasePath)
	}
	return &storage.FileCatalog{
		ItemsPath:      cfg.Storage.ItemsPath,
		EmbeddingsPath: cfg.Storage.EmbeddingsPath,
		MetadataPath:   cfg.Storage.MetadataPath,
	}, nil
}

// newProvider builds the configured provider wrapped with retries and a circuit breaker.
func newProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (embedding.Provider, error) {
	var base embedding.Provider
	switch cfg.Embedding.Provider {
	case config.ProviderMock:
		base = embedding.NewMockProvider(cfg.Embedding.Dimensions)
	default:
		p, err := embedding.NewBedrockProvider(ctx, cfg.Embedding.Region, cfg.Embedding.ModelID, cfg.Embedding.Dimensions)
		if err != nil {
			return nil, err
		}
		base = p
	}
	retry := embedding.DefaultRetryConfig()
	retry.MaxRetries = cfg.Embedding.MaxRetries
	retry.RequestTimeout = cfg.Embedding.RequestTimeout
	return embedding.NewResilientProvider(base, retry, logger), nil
}

func printUsage() {
	fmt.Println(`katalog - multimodal product search over a catalog embedding store

Usage:
  katalog server [flags]              Start the HTTP server
  katalog search [flags] [text...]    Search by text, --image, or both
  katalog similar [flags] <id>        Find products similar to a product
  katalog item [flags] <id>           Show one product
  katalog stats [flags]               Show catalog statistics
  katalog ingest [flags]              Embed the product list and write a new snapshot
  katalog version                     Show version
  katalog help                        Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/katalog/config.yaml, or ./config.yaml if present)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to load the catalog directly.
  --format string    Output format: text or json (default: text)

Search Flags:
  --image string       Query image file
  --top-k int          Number of results (default from config, or 12)
  --threshold float    Minimum similarity (default from config, or 0.5)

Similar Flags:
  --top-k int          Number of results
  --include-self       Keep the query product in the results

Ingest Flags:
  --items string     Product list, JSON or .xlsx (default: storage.items_path)
  --images string    Directory for relative image paths (default: storage.images_dir)
  --sqlite           Write to the SQLite database
  --reload string    Server URL to reload afterwards
  --quiet            Hide the progress bar

Examples:
  katalog server
  katalog search white standing desk
  katalog search --image photo.jpg --top-k 5
  katalog similar --top-k 6 P-10234
  katalog ingest --reload http://localhost:8080
  katalog stats --format json`)
}
