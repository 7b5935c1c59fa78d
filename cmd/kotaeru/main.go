// Package main is the Kotaeru CLI entry point.
package main

import (
	"context"
	"encoding/json"
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

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kotaeru/internal/chain"
	"github.com/hyperjump/kotaeru/internal/cli"
	"github.com/hyperjump/kotaeru/internal/config"
	"github.com/hyperjump/kotaeru/internal/embedding"
	"github.com/hyperjump/kotaeru/internal/ingest"
	"github.com/hyperjump/kotaeru/internal/llm"
	"github.com/hyperjump/kotaeru/internal/loader"
	"github.com/hyperjump/kotaeru/internal/retrieval"
	"github.com/hyperjump/kotaeru/internal/server"
	"github.com/hyperjump/kotaeru/internal/splitter"
	"github.com/hyperjump/kotaeru/internal/tui"
	"github.com/hyperjump/kotaeru/internal/vector"
	"github.com/hyperjump/kotaeru/internal/watcher"
	"github.com/hyperjump/kotaeru/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotaeru/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "kotaeru server" from the project dir uses the project's
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
	// Secrets (API keys) may live in a local .env file.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "chat":
		runChat()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotaeru version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Store     vector.Store
	Embedder  embedding.Embedder
	Generator llm.Generator
	Chain     *chain.Chain
	Ingestor  *ingest.Ingestor
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	inner, err := vector.NewInMemory(vector.SimilarityMetric(cfg.Store.Metric))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	store := vector.NewGuarded(inner)

	var embedder embedding.Embedder
	if os.Getenv(cfg.Embedding.APIKeyEnv) == "" && strings.Contains(cfg.Embedding.BaseURL, "api.openai.com") {
		// No key for the hosted endpoint: run on the deterministic mock
		// so ingest and chat still work offline.
		logger.Warn("embedding API key not set, using mock embedder",
			zap.String("env", cfg.Embedding.APIKeyEnv))
		embedder = embedding.NewMockEmbedder(0)
	} else {
		embedder = embedding.NewOpenAI(embedding.OpenAIConfig{
			BaseURL:   cfg.Embedding.BaseURL,
			APIKeyEnv: cfg.Embedding.APIKeyEnv,
			Model:     cfg.Embedding.Model,
			BatchSize: cfg.Embedding.BatchSize,
			Logger:    logger,
		})
	}
	if cfg.Embedding.CacheSize > 0 {
		embedder = embedding.NewCache(embedder, cfg.Embedding.CacheSize)
	}

	var generator llm.Generator = llm.NewOpenAI(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKeyEnv:   cfg.LLM.APIKeyEnv,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Logger:      logger,
	})

	retriever := retrieval.New(store, embedder,
		retrieval.WithTopK(cfg.Retrieval.TopK),
		retrieval.WithThreshold(cfg.Retrieval.ThresholdOrDefault()),
		retrieval.WithLogger(logger),
	)
	ch := chain.New(retriever, generator, chain.WithLogger(logger))

	var loaders loader.Multi
	for _, root := range cfg.Ingest.Paths {
		loaders = append(loaders, loader.NewDirectory(root,
			loader.WithPatterns(cfg.Ingest.Patterns),
			loader.WithLogger(logger),
		))
	}
	split := splitter.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlapOrDefault(), cfg.Splitter.Separators)
	ingestor := ingest.New(loaders, split, embedder, store,
		ingest.WithSnapshotPath(cfg.Store.SnapshotPath),
		ingest.WithLogger(logger),
	)

	return &Components{
		Store:     store,
		Embedder:  embedder,
		Generator: generator,
		Chain:     ch,
		Ingestor:  ingestor,
	}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Logging.Debug || *debug
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

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	stats, err := components.Ingestor.Hydrate(context.Background())
	if err != nil {
		logger.Fatal("Initial ingest failed", zap.Error(err))
	}
	logger.Info("corpus ready",
		zap.Int("chunks", stats.Chunks),
		zap.Bool("hydrated", stats.Hydrated))

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Ingest.Paths) > 0 {
		watchOpts := []watcher.Option{watcher.WithPatterns(cfg.Ingest.Patterns)}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc := watcher.New(cfg.Ingest.Paths, func() {
			if _, err := components.Ingestor.Rebuild(context.Background()); err != nil {
				logger.Warn("watch re-ingest failed", zap.Error(err))
			}
		}, watchOpts...)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Chain,
		components.Store,
		cfg.Store.Metric,
		cfg.LLM.Model,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
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

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Logging.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	stats, err := components.Ingestor.Rebuild(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	color.Green("Ingested %d document(s) into %d chunk(s)", stats.Documents, stats.Chunks)
	if cfg.Store.SnapshotPath != "" {
		fmt.Printf("Snapshot: %s\n", cfg.Store.SnapshotPath)
	}
}

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	stream := fs.Bool("stream", false, "print the answer token by token as it is generated")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotaeru ask [flags] <question>")
		os.Exit(1)
	}
	question := buildQuestion(fs.Args())
	if question == "" {
		fmt.Println("Usage: kotaeru ask [flags] <question>")
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
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Logging.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	if _, err := components.Ingestor.Hydrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}

	if *stream && format == cli.OutputText {
		tokens, sources, err := components.Chain.RunStream(ctx, question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		for tok := range tokens {
			fmt.Print(tok)
		}
		fmt.Println()
		cli.WriteSources(os.Stdout, sources)
		return
	}

	answer, err := components.Chain.Run(ctx, question)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, answer, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	// The TUI owns the terminal; keep zap quiet unless debugging.
	logger := zap.NewNop()
	if cfg.Logging.Debug {
		logger, err = utils.NewLogger(true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	if _, err := components.Ingestor.Hydrate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}

	if err := tui.Run(components.Chain); err != nil {
		fmt.Fprintf(os.Stderr, "Chat failed: %v\n", err)
		os.Exit(1)
	}
}

// statusResponse is the shape of GET /api/status.
type statusResponse struct {
	Documents int    `json:"documents"`
	Metric    string `json:"metric"`
	Model     string `json:"model"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	status, err := statusViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:  %d   # count of indexed chunks\n", status.Documents)
		fmt.Printf("metric:     %s\n", status.Metric)
		fmt.Printf("model:      %s\n", status.Model)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func printUsage() {
	fmt.Println(`kotaeru - Local document Q&A over your own files

Usage:
  kotaeru server [flags]          Start the HTTP chat server
  kotaeru ingest [flags]          Re-ingest the configured source directories
  kotaeru ask [flags] <question>  Ask a one-shot question
  kotaeru chat [flags]            Interactive terminal chat
  kotaeru status [flags]          Show status of a running server
  kotaeru version                 Show version
  kotaeru help                    Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotaeru/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --config string    Config file path
  --output string    Output format: text or json (default: text)
  --stream           Print the answer token by token

Status Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Examples:
  kotaeru server
  kotaeru ingest
  kotaeru ask what does the contract say about notice periods
  kotaeru ask --output json "notice periods"   # structured JSON for other apps
  kotaeru ask --stream "summarize chapter 2"
  kotaeru chat
  kotaeru status --output json`)
}
