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
	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/config"
	"github.com/fwojciec/docchat/crawl"
	"github.com/fwojciec/docchat/gemini"
	"github.com/fwojciec/docchat/goquery"
	dchttp "github.com/fwojciec/docchat/http"
	"github.com/fwojciec/docchat/ingest"
	"github.com/fwojciec/docchat/jobs"
	dcprom "github.com/fwojciec/docchat/prometheus"
	"github.com/fwojciec/docchat/rag"
	dcredis "github.com/fwojciec/docchat/redis"
	"github.com/fwojciec/docchat/rod"
	dcslog "github.com/fwojciec/docchat/slog"
	"github.com/fwojciec/docchat/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
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
	// Stdin is read by commands that accept "-" as a file name.
	Stdin io.Reader

	// Config is loaded by Run from the --config file and the environment.
	Config config.Config

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	closers []func() error
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{Stdin: os.Stdin}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	var firstErr error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.closers = nil
	if m.DB != nil {
		if err := m.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdin:  m.Stdin,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("docchat"),
		kong.Description("Turn a website into a knowledge base and ask it questions."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'docchat --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd = strings.Fields(kongCtx.Command())[0]

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	m.Config = cfg
	deps.Config = cfg

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	deps.Logger = logger

	if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	m.DB = sqlite.NewDB(cfg.SQLite.Path)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set %s_SQLITE_PATH to use a different database path\n", config.EnvPrefix)
		return fmt.Errorf("failed to open database at %q: %w", cfg.SQLite.Path, err)
	}
	defer m.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := dcprom.NewMetrics(registry)
	deps.MetricsHandler = dcprom.Handler(registry)

	progressLog := sqlite.NewProgressLog(m.DB, logger)
	vectors := sqlite.NewVectorStore(m.DB)
	embedders := dcslog.NewLoggingEmbedderProvider(&gemini.Provider{
		DefaultAPIKey: cfg.Gemini.APIKey,
		Model:         cfg.Gemini.EmbeddingModel,
	}, logger)

	deps.Projects = sqlite.NewProjectService(m.DB)
	deps.ProgressLog = progressLog

	switch cmd {
	case "serve", "submit", "job", "crawl":
		orchestrator, publisher, err := m.openOrchestrator(ctx, cmd, logger, metrics)
		if err != nil {
			return err
		}
		reporters := docchat.ProgressReporters{dcslog.NewProgressReporter(logger), progressLog}
		if publisher != nil {
			reporters = append(reporters, publisher)
		}
		orchestrator.Projects = deps.Projects
		orchestrator.Progress = reporters
		orchestrator.Alerter = dcslog.NewAlerter(logger)

		if cmd == "serve" || cmd == "crawl" {
			crawler, err := m.openCrawler(logger, metrics)
			if err != nil {
				fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed, or set crawl.renderer to http")
				return fmt.Errorf("failed to start fetcher: %w", err)
			}
			orchestrator.Crawler = crawler

			manager := &ingest.Manager{
				Indexes:      vectors,
				Embedders:    embedders,
				BatchSize:    cfg.Ingest.BatchSize,
				Concurrency:  cfg.Ingest.Concurrency,
				ScopedDelete: cfg.Ingest.ScopedDelete,
			}
			if cfg.Ingest.CountTokens {
				tokens, err := gemini.NewTokenCounter(cfg.Gemini.TokenizerModel)
				if err != nil {
					return fmt.Errorf("failed to create token counter: %w", err)
				}
				manager.Tokens = tokens
			}
			orchestrator.Ingester = dcprom.NewIngester(manager, metrics)
		}
		deps.Jobs = orchestrator

	case "ask":
		if cfg.Gemini.APIKey == "" {
			fmt.Fprintln(stderr, "GEMINI_API_KEY environment variable not set. Get an API key at https://aistudio.google.com/apikey")
			return fmt.Errorf("GEMINI_API_KEY not set. Get a key at https://aistudio.google.com/apikey")
		}
		models, err := gemini.NewModels(ctx, cfg.Gemini.APIKey)
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Check your GEMINI_API_KEY is valid")
			return fmt.Errorf("failed to connect to Gemini API: %w", err)
		}
		engine := &rag.Engine{
			Indexes:   vectors,
			Embedders: embedders,
			Generator: dcslog.NewLoggingGenerator(gemini.NewGenerator(models, cfg.Gemini.GenerationModel), logger),
			Logger:    logger,
		}
		deps.Answerer = dcprom.NewAnswerer(engine, metrics)
	}

	return kongCtx.Run(deps)
}

// openOrchestrator builds the job queue for cmd. crawl always runs on an
// in-process queue; the other job commands share the configured backend,
// whose progress publisher is returned when it has one.
func (m *Main) openOrchestrator(ctx context.Context, cmd string, logger *slog.Logger, metrics *dcprom.Metrics) (*jobs.Orchestrator, docchat.ProgressReporter, error) {
	cfg := m.Config
	orchestrator := &jobs.Orchestrator{
		Logger:           logger,
		RejectConcurrent: cfg.Jobs.RejectConcurrent,
		MarkFailed:       cfg.Jobs.MarkFailed,
		StaleAfter:       cfg.Jobs.StaleAfter,
		ValidatePatterns: crawl.ValidatePatterns,
	}

	var queue docchat.JobQueue
	var publisher docchat.ProgressReporter
	switch {
	case cmd == "crawl":
		queue = jobs.NewMemoryQueue()
	case cfg.Jobs.Backend == config.BackendRedis:
		client, err := dcredis.Connect(ctx, dcredis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		q := dcredis.NewQueue(client, dcredis.QueueConfig{
			Prefix:   cfg.Redis.Prefix,
			Group:    cfg.Redis.Group,
			Consumer: cfg.Redis.Consumer,
			Block:    cfg.Redis.Block,
			Logger:   logger,
		})
		if err := q.Init(ctx); err != nil {
			client.Close()
			return nil, nil, err
		}
		queue = q
		publisher = dcredis.NewProgressPublisher(client, cfg.Redis.Prefix, logger)
	default:
		return nil, nil, fmt.Errorf("%s needs a shared queue: set jobs.backend to redis (%s_JOBS_BACKEND=redis), or use 'docchat crawl' to run in this process", cmd, config.EnvPrefix)
	}

	orchestrator.Queue = dcprom.NewJobQueue(queue, metrics)
	m.closers = append(m.closers, orchestrator.Queue.Close)
	return orchestrator, publisher, nil
}

// openCrawler builds the crawler with the configured renderer.
func (m *Main) openCrawler(logger *slog.Logger, metrics *dcprom.Metrics) (*crawl.Crawler, error) {
	cfg := m.Config.Crawl

	var fetcher docchat.Fetcher
	switch cfg.Renderer {
	case config.RendererHTTP:
		fetcher = dchttp.NewFetcher(
			dchttp.WithTimeout(cfg.FetchTimeout),
			dchttp.WithUserAgent(cfg.UserAgent),
		)
	default:
		managerOpts := []rod.ManagerOption{rod.WithRecycleAfter(cfg.RecycleAfter)}
		if cfg.BrowserBin != "" {
			managerOpts = append(managerOpts, rod.WithBrowserBin(cfg.BrowserBin))
		}
		f, err := rod.NewFetcher(
			rod.WithFetchTimeout(cfg.FetchTimeout),
			rod.WithSelectorTimeout(cfg.SelectorTimeout),
			rod.WithManagerOptions(managerOpts...),
		)
		if err != nil {
			return nil, err
		}
		fetcher = f
	}
	m.closers = append(m.closers, fetcher.Close)

	crawler := &crawl.Crawler{
		Fetcher:         dcprom.NewFetcher(dcslog.NewLoggingFetcher(fetcher, logger), metrics),
		Extractor:       goquery.NewExtractor(),
		RetryDelays:     cfg.RetryDelays,
		SelectorTimeout: cfg.SelectorTimeout,
		Logf: func(format string, args ...any) {
			logger.Warn(fmt.Sprintf(format, args...))
		},
	}
	if cfg.RPS > 0 {
		crawler.RateLimiter = crawl.NewDomainLimiter(cfg.RPS)
	}
	return crawler, nil
}
