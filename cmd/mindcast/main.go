// Package main is the mindcast CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/mindcast/internal/classifier"
	"github.com/hyperjump/mindcast/internal/cli"
	"github.com/hyperjump/mindcast/internal/config"
	"github.com/hyperjump/mindcast/internal/decision"
	"github.com/hyperjump/mindcast/internal/embedding"
	"github.com/hyperjump/mindcast/internal/index"
	"github.com/hyperjump/mindcast/internal/models"
	"github.com/hyperjump/mindcast/internal/observability/metrics"
	"github.com/hyperjump/mindcast/internal/resilience"
	"github.com/hyperjump/mindcast/internal/server"
	"github.com/hyperjump/mindcast/internal/similarity"
	"github.com/hyperjump/mindcast/internal/storage"
	"github.com/hyperjump/mindcast/internal/taxonomy"
	"github.com/hyperjump/mindcast/internal/watcher"
	"github.com/hyperjump/mindcast/pkg/utils"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/mindcast/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config %s: %w", path, err)
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
	case "classify":
		runClassify()
	case "explain":
		runExplain()
	case "index":
		runIndex()
	case "taxonomy":
		runTaxonomy()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("mindcast version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config, builds a logger and initializes components. It exits on failure.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger, *Components) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, resolved, logger, components
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("taxonomy_dir", cfg.Storage.TaxonomyDir),
		zap.String("encoder", cfg.Encoder.Backend),
	)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Enabled {
		svc := components.Service
		w := watcher.NewWatcher(cfg.Storage.TaxonomyDir, svc.Invalidate,
			watcher.WithLogger(logger),
			watcher.WithDebounce(cfg.Watch.Debounce),
		)
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(components.Service, cfg, logger,
		server.WithStorage(components.Storage),
		server.WithMetrics(components.Metrics),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse() sees them. Go's flag package stops at
// the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' && a != "-" {
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

// joinArgs joins positional args with spaces so a multi-word title works with or
// without shell quoting.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// collectTitles returns titles from file when set, else from args (one title per
// argument), else from stdin.
func collectTitles(file, column string, args []string, stdin io.Reader) ([]string, error) {
	switch {
	case file == "-":
		return cli.ReadLines(stdin)
	case file != "":
		return cli.ReadTitles(file, column)
	case len(args) > 0:
		var titles []string
		for _, a := range args {
			if t := strings.TrimSpace(a); t != "" {
				titles = append(titles, t)
			}
		}
		return titles, nil
	default:
		return cli.ReadLines(stdin)
	}
}

func runClassify() {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	versionFlag := fs.String("version", "", "taxonomy version YYYY-MM (default from config, else newest)")
	file := fs.String("file", "", "read titles from a .txt, .csv or .xlsx file (- for stdin)")
	column := fs.String("column", "", "header of the title column in .csv/.xlsx input")
	outputFormat := fs.String("format", "text", "output format: text, json or xlsx")
	outPath := fs.String("out", "", "write output to this file instead of stdout")
	save := fs.Bool("save", false, "persist the run to the results database")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if format == cli.OutputXLSX && *outPath == "" {
		fmt.Fprintln(os.Stderr, "xlsx output needs --out")
		os.Exit(1)
	}
	titles, err := collectTitles(*file, *column, fs.Args(), os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read titles: %v\n", err)
		os.Exit(1)
	}

	_, _, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	resp, err := components.Service.Classify(ctx, *versionFlag, titles)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Classification failed: %v\n", err)
		os.Exit(1)
	}
	if *save {
		run := &models.Run{
			ID:           uuid.NewString(),
			Version:      resp.Version,
			TitleCount:   resp.Total,
			RelatedCount: resp.TotalRelated,
			StaleIndex:   resp.StaleIndex,
			CreatedAt:    time.Now().UTC(),
		}
		if err := components.Storage.CreateRun(ctx, run, resp.Results); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save run: %v\n", err)
			os.Exit(1)
		}
		resp.RunID = run.ID
	}
	tax, err := components.Service.Taxonomy(resp.Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load taxonomy: %v\n", err)
		os.Exit(1)
	}

	if err := writeOutput(*outPath, func(w io.Writer) error {
		return cli.WriteResults(w, resp, tax, format)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func writeOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func runExplain() {
	fs := flag.NewFlagSet("explain", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	versionFlag := fs.String("version", "", "taxonomy version YYYY-MM")
	outputFormat := fs.String("format", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	title := joinArgs(fs.Args())
	if title == "" {
		fmt.Fprintln(os.Stderr, "Usage: mindcast explain [flags] <title>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	_, _, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	exp, err := components.Service.Explain(context.Background(), *versionFlag, title)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Explain failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteExplanation(os.Stdout, exp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	versionFlag := fs.String("version", "", "taxonomy version YYYY-MM (default from config, else newest)")
	all := fs.Bool("all", false, "build indexes for every version on disk")
	force := fs.Bool("force", false, "rebuild even when the cached index is current")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	_, _, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	svc := components.Service
	versions := []string{*versionFlag}
	if *all {
		var err error
		versions, err = svc.Versions()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list versions: %v\n", err)
			os.Exit(1)
		}
	}

	ctx := context.Background()
	failed := false
	for _, v := range versions {
		ix, err := buildIndex(ctx, svc, v, *force)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Index %s failed: %v\n", v, err)
			failed = true
			continue
		}
		state := "ready"
		if ix.Stale() {
			state = "stale"
		}
		fmt.Printf("%s: %d sub-tags, %d dims, %s (%s)\n", ix.Version(), ix.Len(), ix.Dimensions(), state, shortFingerprint(ix.Fingerprint()))
	}
	if failed {
		os.Exit(1)
	}
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

func buildIndex(ctx context.Context, svc *classifier.Service, version string, force bool) (*index.Index, error) {
	if force {
		return svc.Rebuild(ctx, version)
	}
	_, ix, err := svc.Prepare(ctx, version)
	return ix, err
}

func runTaxonomy() {
	fs := flag.NewFlagSet("taxonomy", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	versionFlag := fs.String("version", "", "taxonomy version YYYY-MM (default from config, else newest)")
	list := fs.Bool("list", false, "list available versions")
	outputFormat := fs.String("format", "yaml", "output format: yaml or json")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	store := taxonomy.NewStore(cfg.Storage.TaxonomyDir)

	if *list {
		versions, err := store.Versions()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list versions: %v\n", err)
			os.Exit(1)
		}
		for _, v := range versions {
			fmt.Println(v)
		}
		return
	}

	v := *versionFlag
	if v == "" {
		v = cfg.Classifier.DefaultVersion
	}
	if v == "" {
		versions, err := store.Versions()
		if err != nil || len(versions) == 0 {
			fmt.Fprintf(os.Stderr, "No taxonomy documents in %s\n", store.Root())
			os.Exit(1)
		}
		v = versions[len(versions)-1]
	}
	tax, err := store.Load(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load taxonomy: %v\n", err)
		os.Exit(1)
	}
	if err := writeTaxonomy(os.Stdout, tax, *outputFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func writeTaxonomy(w io.Writer, tax *taxonomy.Taxonomy, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tax.Document())
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tax); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read local storage)")
	outputFormat := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status map[string]interface{}
	if *serverURL != "" {
		var err error
		status, err = statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		status = localStatus(*configPath)
	}

	if *outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(status)
		return
	}
	writeStatusText(os.Stdout, status)
}

func statusViaHTTP(serverURL string) (map[string]interface{}, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(strings.TrimRight(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return status, nil
}

func localStatus(configPath string) map[string]interface{} {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	status := map[string]interface{}{}

	versions, err := taxonomy.NewStore(cfg.Storage.TaxonomyDir).Versions()
	if err == nil {
		status["versions"] = len(versions)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	if n, err := store.CountRuns(ctx); err == nil {
		status["runs"] = n
	}
	if n, err := store.CountResults(ctx); err == nil {
		status["results"] = n
	}
	if _, total, err := storage.DiskUsage(
		storage.Usage{Name: "taxonomies", Path: cfg.Storage.TaxonomyDir},
		storage.Usage{Name: "index_cache", Path: cfg.Storage.CacheDir},
		storage.Usage{Name: "database", Path: cfg.Storage.DatabasePath},
	); err == nil {
		status["disk_usage_bytes"] = total
	}
	status["config"] = map[string]interface{}{
		"encoder_backend": cfg.Encoder.Backend,
		"dimensions":      cfg.Encoder.Dimensions,
		"cache_backend":   cfg.Storage.CacheBackend,
		"default_version": cfg.Classifier.DefaultVersion,
	}
	return status
}

func writeStatusText(w io.Writer, status map[string]interface{}) {
	fmt.Fprintf(w, "Taxonomy versions: %v\n", valueOr(status["versions"], 0))
	fmt.Fprintf(w, "Saved runs:        %v\n", valueOr(status["runs"], 0))
	fmt.Fprintf(w, "Saved results:     %v\n", valueOr(status["results"], 0))
	if b, ok := status["disk_usage_bytes"].(float64); ok {
		fmt.Fprintf(w, "Disk usage:        %s\n", formatBytes(int64(b)))
	} else if b, ok := status["disk_usage_bytes"].(int64); ok {
		fmt.Fprintf(w, "Disk usage:        %s\n", formatBytes(b))
	}
	if cfg, ok := status["config"].(map[string]interface{}); ok {
		fmt.Fprintln(w, "Config:")
		for _, key := range []string{"encoder_backend", "dimensions", "cache_backend", "default_version"} {
			if v, ok := cfg[key]; ok && v != "" {
				fmt.Fprintf(w, "  %-16s %v\n", key+":", v)
			}
		}
	}
}

func valueOr(v, def interface{}) interface{} {
	if v == nil {
		return def
	}
	return v
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Components holds initialized services.
type Components struct {
	Encoder embedding.Encoder
	Cache   index.Cache
	Builder *index.Builder
	Service *classifier.Service
	Storage storage.Storage
	Metrics *metrics.Metrics
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Encoder != nil {
		_ = c.Encoder.Close()
	}
	if closer, ok := c.Cache.(io.Closer); ok {
		_ = closer.Close()
	}
}

// newEncoder returns the configured encoder wrapped with retry and breaker, or nil
// when the ONNX model cannot be loaded. A nil encoder still serves cached indexes.
func newEncoder(cfg *config.Config, logger *zap.Logger) embedding.Encoder {
	var enc embedding.Encoder
	switch cfg.Encoder.Backend {
	case config.EncoderBackendMock:
		enc = embedding.NewMockEncoder(cfg.Encoder.Dimensions)
	default:
		onnx, err := embedding.NewONNXEncoder(
			cfg.Encoder.ModelPath,
			cfg.Encoder.Dimensions,
			cfg.Encoder.MaxTokens,
			cfg.Encoder.CacheSize,
		)
		if err != nil {
			logger.Warn("encoder unavailable, serving cached indexes only",
				zap.String("model_path", cfg.Encoder.ModelPath), zap.Error(err))
			return nil
		}
		enc = onnx
	}
	exec := resilience.NewExecutor(resiliencePolicy(cfg.Resilience), logger)
	return resilience.WrapEncoder(enc, exec)
}

func newIndexCache(cfg *config.Config) (index.Cache, error) {
	switch cfg.Storage.CacheBackend {
	case config.CacheBackendSQLite:
		return index.NewSQLiteCache(filepath.Join(cfg.Storage.CacheDir, "indexes.db"))
	default:
		return index.NewDiskCache(cfg.Storage.CacheDir)
	}
}

func resiliencePolicy(c config.ResilienceConfig) resilience.Policy {
	return resilience.Policy{
		MaxAttempts:    c.RetryMaxAttempts,
		InitialBackoff: c.RetryInitialBackoff,
		MaxBackoff:     c.RetryMaxBackoff,
		Multiplier:     c.RetryMultiplier,
		Breaker:        c.BreakerEnabledOrDefault(),
		TripAfter:      c.BreakerMinRequests,
		TripRatio:      c.BreakerFailureRatio,
		Cooldown:       c.BreakerOpenTimeout,
	}
}

func serviceConfig(cfg *config.Config) classifier.Config {
	w := cfg.Classifier.Weights
	return classifier.Config{
		DefaultVersion: cfg.Classifier.DefaultVersion,
		BatchSize:      cfg.Encoder.BatchSize,
		EncodeTimeout:  cfg.Classifier.EncodeTimeout,
		Options: classifier.Options{
			Weights: similarity.Weights{
				TokenSubtag:   w.TokenSubtag,
				SentSubtag:    w.SentSubtag,
				TokenCentroid: w.TokenCentroid,
				SentCentroid:  w.SentCentroid,
			},
			Policy: decision.Policy{
				LowRelevanceThreshold: cfg.Classifier.LowRelevanceThreshold,
				CentroidThreshold:     cfg.Classifier.CentroidThreshold,
			},
			Workers: cfg.Classifier.Workers,
		},
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{Storage: store, Metrics: metrics.New()}

	cache, err := newIndexCache(cfg)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize index cache: %w", err)
	}
	c.Cache = cache
	c.Encoder = newEncoder(cfg, logger)

	c.Builder = index.NewBuilder(cache, cfg.Classifier.Template,
		index.WithLogger(logger),
		index.WithObserver(c.Metrics),
		index.WithBuildTimeout(cfg.Classifier.BuildTimeout),
	)
	svc, err := classifier.NewService(
		taxonomy.NewStore(cfg.Storage.TaxonomyDir, taxonomy.WithLogger(logger)),
		c.Builder,
		c.Encoder,
		serviceConfig(cfg),
		classifier.WithLogger(logger),
		classifier.WithRecorder(c.Metrics),
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize classifier: %w", err)
	}
	c.Service = svc
	logger.Info("components initialized",
		zap.String("cache_backend", cfg.Storage.CacheBackend),
		zap.Bool("encoder_available", c.Encoder != nil))
	return c, nil
}

func printUsage() {
	fmt.Println(`mindcast - Taxonomy similarity classifier for news titles

Usage:
  mindcast classify [flags] [title...]   Classify titles (args, --file, or stdin)
  mindcast explain [flags] <title>       Show every score behind one title
  mindcast index [flags]                 Build or refresh embedding indexes
  mindcast taxonomy [flags]              Print or list taxonomy versions
  mindcast server [flags]                Start the HTTP server
  mindcast status [flags]                Show storage and config status
  mindcast version                       Show version
  mindcast help                          Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/mindcast/config.yaml,
                     ./config.yaml is preferred when present)
  --version string   Taxonomy version YYYY-MM (default from config, else newest)
  --debug            Enable debug logging

Classify Flags:
  --file string      Read titles from .txt, .csv or .xlsx (- for stdin)
  --column string    Header of the title column in .csv/.xlsx input
  --format string    Output format: text, json or xlsx (default: text)
  --out string       Write output to a file (required for xlsx)
  --save             Persist the run to the results database

Index Flags:
  --all              Build every version on disk
  --force            Rebuild even when the cached index is current

Taxonomy Flags:
  --list             List available versions
  --format string    yaml or json (default: yaml)

Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for local storage.
  --format string    text or json (default: text)

Examples:
  mindcast classify "한강 다리서 투신"
  mindcast classify --file titles.csv --column title --format xlsx --out tagged.xlsx
  mindcast explain --version 2022-06 "한강 다리서 투신"
  mindcast index --all --force
  mindcast taxonomy --list
  mindcast status --server ""`)
}
