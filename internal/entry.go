// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/draft"
	"github.com/starford/ansuz/internal/events"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/notestore"
	"github.com/starford/ansuz/internal/prefs"
	"github.com/starford/ansuz/internal/watch"
)

// Run starts the HTTP application with the given options.
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
		slog.String("drafts_path", cfg.Drafts.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, db, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	// SSE broker; note listings change at most once a second per burst.
	broker := events.NewBroker(time.Second)
	defer broker.Close()

	// Folder watcher feeds external file changes into the broker.
	watcher := watch.New(logger, broker.PublishNoteEvent)
	if folder := store.Folder(); folder != "" {
		watcher.SetRoot(folder)
	}

	apiRouter := api.NewRouter(store, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, watcher)

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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start the folder watcher.
	g.Go(func() error {
		return watcher.Run(gCtx)
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

// RunMCP starts the MCP stdio server with the given options. Stdout
// belongs to the MCP transport, so logs go to stderr.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, db, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("Starting MCP server on stdio", slog.String("folder", store.Folder()))

	return mcpserver.New(store).ServeStdio()
}

// openStore builds the note store shared by the HTTP and MCP entry
// points: draft database, preference file, and last-folder restore.
func openStore(cfg *Config, logger *slog.Logger) (*notestore.Store, *draft.DB, error) {
	if dir := filepath.Dir(cfg.Drafts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create drafts dir: %w", err)
		}
	}

	db, err := draft.Open(cfg.Drafts.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init drafts: %w", err)
	}

	prefsPath := cfg.Notes.PrefsPath
	if prefsPath == "" {
		prefsPath, err = prefs.DefaultPath()
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("resolve prefs path: %w", err)
		}
	}

	store := notestore.New(db, prefs.New(prefsPath), logger)
	store.Restore(cfg.Notes.Folder)

	if store.Folder() == "" {
		logger.Warn("no notes folder selected, waiting for folder switch")
	}

	return store, db, nil
}
