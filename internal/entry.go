package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/loaderd/internal/api"
	"github.com/starford/loaderd/internal/cleanup"
	"github.com/starford/loaderd/internal/mcpserver"
	"github.com/starford/loaderd/internal/snapshot"
	"github.com/starford/loaderd/internal/store"
	"github.com/starford/loaderd/internal/tracker"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("data_dir", cfg.Data.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Data.UploadsDir(), 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	snaps, err := snapshot.NewStore(cfg.Data.SnapshotsDir())
	if err != nil {
		return fmt.Errorf("init snapshot store: %w", err)
	}

	orch := buildOrchestrator(cfg, db, snaps, logger)
	scheduler := tracker.NewScheduler(db, orch,
		cfg.Tracker.SweepInterval(), cfg.Tracker.TopicDelay(), logger)
	runner := tracker.NewRunner(db, orch, cfg.Tracker.RunQueueSize, logger)
	sweeper := cleanup.NewSweeper(db, logger)

	apiRouter := api.NewRouter(api.Deps{
		DB:         db,
		Snapshots:  snaps,
		Runner:     runner,
		UploadsDir: cfg.Data.UploadsDir(),
		MaxUpload:  cfg.Uploads.MaxBytes(),
		UploadTTL:  cfg.Uploads.TTL(),
		Logger:     logger,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scheduler.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		runner.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		sweeper.Run(gCtx)
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools over stdio instead of starting the HTTP
// server. The scheduler and run queue stay off: an MCP session is a
// read-only view of the data.
func RunMCP(cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	snaps, err := snapshot.NewStore(cfg.Data.SnapshotsDir())
	if err != nil {
		return fmt.Errorf("init snapshot store: %w", err)
	}

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(db, snaps).ServeStdio()
}

// buildOrchestrator assembles the pipeline from whichever providers are
// configured. Missing keys degrade the pipeline rather than fail it.
func buildOrchestrator(cfg *Config, db *store.DB, snaps *snapshot.Store, logger *slog.Logger) *tracker.Orchestrator {
	timeout := cfg.Providers.Timeout()

	var searcher tracker.Searcher
	if cfg.Providers.TavilyAPIKey != "" {
		searcher = tracker.NewTavilyClient(cfg.Providers.TavilyAPIKey, timeout)
	} else {
		logger.Warn("no search provider configured, pipeline runs will find no results")
	}

	var model tracker.ModelClient
	switch {
	case cfg.Providers.AnthropicAPIKey != "":
		model = tracker.NewAnthropicClient(cfg.Providers.AnthropicAPIKey, cfg.Providers.AnthropicModel, timeout)
	case cfg.Providers.OpenAIAPIKey != "":
		model = tracker.NewOpenAIClient(cfg.Providers.OpenAIAPIKey, cfg.Providers.OpenAIModel, timeout)
	default:
		logger.Warn("no model provider configured, snapshots will carry placeholder summaries")
	}

	md := tracker.MdPublisherFunc(func(content, filename, purpose, installPath string) (string, error) {
		m, err := db.NewMdFile(content, filename, purpose, installPath)
		if err != nil {
			return "", err
		}
		return m.Code, nil
	})

	return tracker.NewOrchestrator(db, snaps,
		tracker.NewSearchAgent(searcher, logger),
		tracker.NewGraphAgent(model, logger),
		tracker.NewContentAgent(model, logger),
		md, logger, cfg.Tracker.StepTimeout())
}
