package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-testlab/internal/appstate"
	"github.com/p-n-ai/pai-testlab/internal/catalog"
	"github.com/p-n-ai/pai-testlab/internal/httpapi"
	"github.com/p-n-ai/pai-testlab/internal/learner"
	"github.com/p-n-ai/pai-testlab/internal/platform/config"
	"github.com/p-n-ai/pai-testlab/internal/progress"
	"github.com/p-n-ai/pai-testlab/internal/storage"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	srv, cleanup, err := newServer(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newServer wires the catalog, storage and learning service into an HTTP
// server. cleanup releases the storage connections.
func newServer(ctx context.Context, cfg *config.Config) (*http.Server, func(), error) {
	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, nil, err
	}

	backend, err := storage.Open(ctx, storage.Options{
		Driver:      cfg.Store.Driver,
		Namespace:   cfg.Store.Namespace,
		SQLitePath:  cfg.Store.Path,
		PostgresURL: cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		RedisURL:    cfg.Cache.URL,
	})
	if err != nil {
		return nil, nil, err
	}
	closers := []io.Closer{backend}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				slog.Warn("close failed", "error", err)
			}
		}
	}

	var events learner.EventLogger = learner.NopEventLogger{}
	if cfg.Events.Enabled {
		pg, ok := backend.(*storage.PostgresStore)
		if !ok {
			pg, err = storage.OpenPostgres(ctx, cfg.Database.URL, cfg.Store.Namespace, cfg.Database.MaxConns, cfg.Database.MinConns)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("open event database: %w", err)
			}
			closers = append(closers, pg)
		}
		events = learner.NewPostgresEventLogger(pg.Pool(), cfg.Store.Namespace)
		slog.Info("learning events enabled")
	}

	hub := httpapi.NewHub()
	svc, err := learner.New(learner.Config{
		Catalog:  cat,
		Progress: progress.NewStore(backend),
		Badges:   progress.NewBadgeStore(backend),
		Events:   events,
		Notifier: hub,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	// The catalog may have gained badges since the last run.
	if awarded := svc.EvaluateBadges(ctx); len(awarded) > 0 {
		slog.Info("awarded badges on startup", "count", len(awarded))
	}

	api := httpapi.New(httpapi.Config{
		Service: svc,
		State:   appstate.NewStore(backend),
		Hub:     hub,
		Storage: backend,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv, cleanup, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.LoadEmbedded()
	}
	c, err := catalog.LoadDir(path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog from %s: %w", path, err)
	}
	return c, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
