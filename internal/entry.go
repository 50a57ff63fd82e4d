// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/starford/journalsync/internal/api"
	"github.com/starford/journalsync/internal/journalservice"
	"github.com/starford/journalsync/internal/mcpserver"
	"github.com/starford/journalsync/internal/reconcile"
	"github.com/starford/journalsync/internal/session"
	"github.com/starford/journalsync/internal/sse"
	"github.com/starford/journalsync/internal/storage"
	"github.com/starford/journalsync/internal/store"
)

func configure(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the JSON logger. The returned LevelVar lets the config
// watcher change the level at runtime.
func newLogger(cfg ApplicationConfig, stdout io.Writer) (*slog.Logger, *slog.LevelVar, func()) {
	level := new(slog.LevelVar)
	level.Set(cfg.LogLevel)

	out, closeLog := stdout, func() {}
	if cfg.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		out, closeLog = lj, func() { _ = lj.Close() }
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})), level, closeLog
}

// openBlobs creates the configured storage backend.
func openBlobs(ctx context.Context, cfg *Config) (storage.Provider, error) {
	switch cfg.Storage.Backend {
	case StorageS3:
		return storage.NewS3(ctx, cfg.Storage.S3.Options(cfg.Storage.PublicBaseURL), cfg.Sync.ProbeTimeout)
	default:
		return storage.NewFS(cfg.Storage.FS.Root, cfg.Storage.PublicBaseURL, cfg.Sync.ProbeTimeout)
	}
}

// mediaMount returns the local route that serves FS-backed files, derived
// from the public base URL's path. It is empty when nothing should be served.
func mediaMount(cfg *Config) string {
	if cfg.Storage.Backend != StorageFS {
		return ""
	}
	u, err := url.Parse(cfg.Storage.PublicBaseURL)
	if err != nil {
		return ""
	}
	p := "/" + strings.Trim(u.Path, "/")
	if p == "/" || p == "/api" || strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/health") {
		return ""
	}
	return p
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := configure(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger, level, closeLog := newLogger(cfg.App, os.Stdout)
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("db_driver", cfg.Database.Driver),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("quiet_period", cfg.Sync.QuietPeriod.String()),
		slog.Bool("serialize_saves", cfg.Sync.SerializeSaves),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	engine := reconcile.New(db, blobs, reconcile.WithLogger(logger))
	sessions := session.NewRegistry(engine, session.Options{
		QuietPeriod:    cfg.Sync.QuietPeriod,
		SerializeSaves: cfg.Sync.SerializeSaves,
		SaveTimeout:    cfg.Sync.SaveTimeout,
		Logger:         logger,
		Observer: func(kind string, st session.Status) {
			broker.PublishEntryEvent(kind, st.EntryID, st)
		},
	})

	svc := journalservice.NewService(db, blobs, logger, journalservice.WithOpenDocuments(sessions))
	apiRouter := api.NewRouter(api.Deps{
		Service:     svc,
		Sessions:    sessions,
		Events:      broker,
		SSE:         broker,
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	if mount := mediaMount(cfg); mount != "" {
		if fsBlobs, ok := blobs.(*storage.FS); ok {
			r.Handle(mount+"/*", http.StripPrefix(mount, http.FileServer(http.Dir(fsBlobs.Root()))))
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(runCtx)

	if app.configPath != "" {
		g.Go(func() error {
			err := WatchConfig(gCtx, app.configPath, logger, func(next *Config) {
				level.Set(next.App.LogLevel)
			})
			if err != nil {
				logger.Warn("config watcher unavailable", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Closing the broker ends open event streams so Shutdown is not held
		// up by them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Pending countdowns are dropped; saves already running finish.
		sessions.CloseAll()
		stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr, or to the
// configured log file, since stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := configure(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger, _, closeLog := newLogger(cfg.App, os.Stderr)
	defer closeLog()
	slog.SetDefault(logger)

	db, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(journalservice.NewService(db, blobs, logger)).ServeStdio()
}
