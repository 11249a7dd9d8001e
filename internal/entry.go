// Package internal provides the main application initialization and runtime
// logic for saga.
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

	"github.com/starford/saga/internal/api"
	"github.com/starford/saga/internal/index"
	"github.com/starford/saga/internal/reader"
	"github.com/starford/saga/internal/sse"
	"github.com/starford/saga/internal/validate"
	"github.com/starford/saga/internal/validate/characters"
	"github.com/starford/saga/internal/validate/linkgraph"
	"github.com/starford/saga/internal/vault"
)

// Check runs one validation pass and returns its outcome. Lifecycle events
// go to the sink configured with WithEventSink, if any.
func Check(ctx context.Context, opts ...Option) (*validate.RunInfo, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := newLogger(cfg)
	svc, db, err := buildService(cfg, app.sink, logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	info, runID, err := svc.Validate(ctx, validate.Request{})
	if err != nil {
		return nil, err
	}
	logger.Info("validation run finished",
		slog.Int64("run_id", runID),
		slog.Bool("valid", info.Result.Valid),
		slog.Int("files", len(info.Files)),
		slog.Int("errors", len(info.Result.Errors)),
		slog.Int("warnings", len(info.Result.Warnings)))
	return info, nil
}

// Run starts the HTTP server with the given options and blocks until
// shutdown.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := newLogger(cfg)
	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Lifecycle events stream to SSE clients.
	broker := sse.NewBroker()
	defer broker.Close()

	sink := validate.EventSink(broker)
	if app.sink != nil {
		extra := app.sink
		sink = validate.SinkFunc(func(e validate.Event) {
			broker.Publish(e)
			extra.Publish(e)
		})
	}

	svc, db, err := buildService(cfg, sink, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

// newLogger initializes the structured JSON logger and installs it as the
// process default.
func newLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// buildService wires the validation pipeline: vault, reader, plugin
// registry, runner, run-history index, and the API service on top.
func buildService(cfg *Config, sink validate.EventSink, logger *slog.Logger) (*api.Service, *index.DB, error) {
	fs, err := vault.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init vault: %w", err)
	}

	rd := reader.New(fs, reader.Config{
		SizeThreshold: cfg.Reader.SizeThreshold,
		DisableCache:  cfg.Reader.DisableCache,
	})

	registry := validate.NewRegistry()
	if cfg.Validators.Links.Enabled {
		registry.Register(linkgraph.New(linkgraph.Config{
			EntryPoints:      cfg.Validators.Links.EntryPoints,
			CheckOrphans:     cfg.Validators.Links.CheckOrphans,
			ExternalPrefixes: cfg.Validators.Links.ExternalPrefixes,
		}))
	}
	if cfg.Validators.Characters.Enabled {
		registry.Register(characters.New(characters.Config{
			Aliases: cfg.Validators.Characters.Aliases,
		}))
	}

	runner := validate.NewRunner(registry, fs, rd, sink, logger)

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init index: %w", err)
	}

	svc := api.NewService(runner, db, validate.Request{
		Include: cfg.Vault.Include,
		Exclude: cfg.Vault.Exclude,
	})
	return svc, db, nil
}
