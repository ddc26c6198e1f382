// Package main is the fuda CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/fuda/internal/cli"
	"github.com/hyperjump/fuda/internal/config"
	"github.com/hyperjump/fuda/internal/dataset"
	"github.com/hyperjump/fuda/internal/embedding"
	"github.com/hyperjump/fuda/internal/keyword"
	"github.com/hyperjump/fuda/internal/models"
	"github.com/hyperjump/fuda/internal/project"
	"github.com/hyperjump/fuda/internal/search"
	"github.com/hyperjump/fuda/internal/server"
	"github.com/hyperjump/fuda/internal/vector"
	"github.com/hyperjump/fuda/internal/watcher"
	"github.com/hyperjump/fuda/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/fuda/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "fuda server" from the project dir uses the project's
// config (including debug). Returns the config and the path actually loaded.
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
	case "import":
		runImport()
	case "search":
		runSearch()
	case "list":
		runList()
	case "version", "--version", "-v":
		fmt.Printf("fuda version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (dataset changes, index builds, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.EnabledOrDefault() {
		watchOpts := []watcher.Option{
			watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS) * time.Millisecond),
		}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		manager := components.Manager
		filter := components.Filter
		watchSvc := watcher.NewWatcher(cfg.Storage.DataDir, func(name string) {
			manager.Invalidate(name)
			if err := filter.Invalidate(name); err != nil {
				logger.Warn("filter invalidate failed", zap.String("dataset", name), zap.Error(err))
			}
			logger.Info("dataset changed, indexes invalidated", zap.String("dataset", name))
		}, watchOpts...)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Datasets,
		components.Projects,
		components.Manager,
		components.Searcher,
		components.Filter,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil {
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

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	name := fs.String("name", "", "dataset name (default: filename without extension)")
	textColumn := fs.String("text-column", "", "column holding the text to annotate (required)")
	description := fs.String("description", "", "dataset description")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: fuda import [flags] <file.csv|tsv|xls|xlsx>")
		os.Exit(1)
	}
	if *textColumn == "" {
		fmt.Println("--text-column is required")
		os.Exit(1)
	}
	path := fs.Arg(0)
	datasetName := *name
	if datasetName == "" {
		base := filepath.Base(path)
		datasetName = strings.TrimSuffix(base, filepath.Ext(base))
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Failed to read file: %v\n", err)
		os.Exit(1)
	}
	tbl, err := dataset.ParseUpload(filepath.Base(path), content)
	if err != nil {
		fmt.Printf("Failed to parse file: %v\n", err)
		os.Exit(1)
	}
	if !tbl.HasColumn(*textColumn) {
		fmt.Printf("Column %q not present in %s\n", *textColumn, path)
		os.Exit(1)
	}
	ds, err := components.Datasets.Create(tbl, datasetName, *description, *textColumn)
	if err != nil {
		fmt.Printf("Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Dataset imported: %s (%d rows)\n", ds.Name, ds.Size)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	datasetName := fs.String("dataset", "", "dataset to search (required)")
	k := fs.Int("k", 0, "number of neighbors (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *datasetName == "" || fs.NArg() < 1 {
		fmt.Println("Usage: fuda search --dataset <name> [flags] <text>")
		os.Exit(1)
	}
	queryText := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if queryText == "" {
		fmt.Println("Usage: fuda search --dataset <name> [flags] <text>")
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
		format = cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	ds, err := components.Datasets.Get(*datasetName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if _, err := components.Manager.Ensure(ctx, ds.Name, ds.TextColumn); err != nil {
		fmt.Fprintf(os.Stderr, "Index build failed: %v\n", err)
		os.Exit(1)
	}
	neighbors := *k
	if neighbors <= 0 {
		neighbors = cfg.Search.SimilarityK
	}
	ids, err := components.Searcher.SearchText(ctx, ds.Name, queryText, neighbors)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	units := make([]models.TextUnit, 0, len(ids))
	for _, id := range ids {
		unit, err := components.Datasets.GetByID(ds.Name, id)
		if err != nil {
			continue
		}
		units = append(units, unit)
	}
	if err := cli.WriteUnits(os.Stdout, units, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	list, err := components.Datasets.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteDatasets(os.Stdout, list, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Datasets *dataset.Store
	Projects *project.Store
	Embedder embedding.Embedder
	Manager  *vector.Manager
	Searcher *search.Service
	Filter   *keyword.Filter
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Filter != nil {
		_ = c.Filter.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	datasets, err := dataset.NewStore(cfg.Storage.DataDir, dataset.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dataset store: %w", err)
	}
	projects := project.NewStore(datasets, project.WithLogger(logger))

	var embedder embedding.Embedder
	onnxEmbedder, err := embedding.NewONNXEmbedder(
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		if logger != nil {
			logger.Warn("ONNX embedder unavailable, using mock embedder", zap.Error(err))
		}
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		embedder = onnxEmbedder
	}

	managerOpts := []vector.ManagerOption{}
	if debug && logger != nil {
		managerOpts = append(managerOpts, vector.WithLogger(logger))
	}
	manager := vector.NewManager(cfg.Storage.IndexDir, cfg.Storage.EmbeddingDir,
		embedder, datasets, managerOpts...)

	searcher := search.NewService(manager, embedder, datasets, search.WithLogger(logger))

	filterOpts := []keyword.FilterOption{}
	if debug && logger != nil {
		filterOpts = append(filterOpts, keyword.WithLogger(logger))
	}
	filter, err := keyword.NewFilter(cfg.Storage.FilterIndexDir, datasets, filterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize filter index: %w", err)
	}

	return &Components{
		Datasets: datasets,
		Projects: projects,
		Embedder: embedder,
		Manager:  manager,
		Searcher: searcher,
		Filter:   filter,
	}, nil
}

func printUsage() {
	fmt.Println(`fuda - Bulk text annotation with similarity search

Usage:
  fuda server [flags]                 Start the HTTP server
  fuda import [flags] <file>          Import a dataset (csv, tsv, xls, xlsx)
  fuda search [flags] <text>          Similarity search over a dataset
  fuda list [flags]                   List known datasets
  fuda version                        Show version
  fuda help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/fuda/config.yaml)
  --debug            Enable debug logging (dataset changes, index builds, etc.)

Import Flags:
  --config string       Config file path
  --name string         Dataset name (default: filename without extension)
  --text-column string  Column holding the text to annotate (required)
  --description string  Dataset description

Search Flags:
  --config string    Config file path
  --dataset string   Dataset to search (required)
  --k int            Number of neighbors (default from config)
  --output string    Output format: text or json (default: text)

List Flags:
  --config string    Config file path
  --output string    Output format: text or json (default: text)

Examples:
  fuda server
  fuda import --text-column text comments.csv
  fuda search --dataset comments "slow delivery"
  fuda search --dataset comments --output json refund
  fuda list`)
}
