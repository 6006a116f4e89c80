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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/sowilo/internal/api"
	"github.com/starford/sowilo/internal/attrstore"
	"github.com/starford/sowilo/internal/connections"
	"github.com/starford/sowilo/internal/index"
	"github.com/starford/sowilo/internal/mcpserver"
	"github.com/starford/sowilo/internal/metrics"
	"github.com/starford/sowilo/internal/noteservice"
	"github.com/starford/sowilo/internal/persist"
	"github.com/starford/sowilo/internal/sse"
	"github.com/starford/sowilo/internal/storage"
	"github.com/starford/sowilo/internal/syntax"
	"github.com/starford/sowilo/internal/workspace"
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
	if app.logOut == nil {
		app.logOut = os.Stdout
		if app.mode == modeMCP {
			app.logOut = os.Stderr
		}
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_dir", cfg.Data.Dir),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Duration("persist_debounce", cfg.Persist.Debounce),
		slog.String("log_level", cfg.App.LogLevel.String()))

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.close()

	if app.mode == modeMCP {
		return rt.serveMCP(ctx)
	}
	return rt.serveHTTP(ctx, cfg)
}

// runtime holds the wired components shared by the HTTP and MCP modes.
type runtime struct {
	logger    *slog.Logger
	store     *storage.FS
	db        *index.DB
	broker    *sse.Broker
	metrics   *metrics.Metrics
	session   *connections.Session
	svc       *noteservice.Service
	notesSave *persist.Debouncer
	attrsSave *persist.Debouncer
}

func newRuntime(ctx context.Context, cfg *Config, logger *slog.Logger) (*runtime, error) {
	store, err := storage.NewFS(cfg.Data.Dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if blobs, err := store.List(); err == nil {
		for _, b := range blobs {
			logger.Info("data blob found", slog.String("key", b.Key), slog.Time("updated_at", b.UpdatedAt))
		}
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	m := metrics.New()
	broker := sse.NewBroker(cfg.Events.GraphThrottle, sse.WithPublishHook(m.EventPublished))

	ws := workspace.New(logger)
	if data, ok := persist.Load(store, storage.KeyNotes, logger); ok {
		ws.Restore(data)
	}
	attrs := attrstore.New()
	if data, ok := persist.Load(store, storage.KeyEntityAttributes, logger); ok {
		if err := attrs.UnmarshalJSON(data); err != nil {
			logger.Warn("attribute table unreadable, starting empty", slog.String("error", err.Error()))
		}
	}

	writer := persist.NewWriter(store,
		persist.WithSaveHook(m.PersistSucceeded),
		persist.WithErrorHook(m.PersistFailed),
	)
	notesSave := writer.Debounced(storage.KeyNotes, ws, cfg.Persist.Debounce, logger)
	attrsSave := writer.Debounced(storage.KeyEntityAttributes, attrs, cfg.Persist.Debounce, logger)

	recognizer := syntax.New(syntax.WithObserver(func(k syntax.Kind) { m.MarkerRecognized(string(k)) }))
	session := connections.NewSession(broker, logger, connections.WithExtractObserver(m.ObserveExtraction))

	svc := noteservice.NewService(ws, attrs, db, session,
		noteservice.WithEvents(broker),
		noteservice.WithPersistence(notesSave, attrsSave),
		noteservice.WithRecognizer(recognizer),
		noteservice.WithReload(store, writer),
		noteservice.WithNoteCounter(m.SetNotes),
		noteservice.WithLogger(logger),
	)

	// Initial sync.
	if err := svc.Rebuild(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &runtime{
		logger:    logger,
		store:     store,
		db:        db,
		broker:    broker,
		metrics:   m,
		session:   session,
		svc:       svc,
		notesSave: notesSave,
		attrsSave: attrsSave,
	}, nil
}

// close flushes pending writes and releases resources.
func (rt *runtime) close() {
	for _, d := range []*persist.Debouncer{rt.notesSave, rt.attrsSave} {
		if err := d.Flush(); err != nil {
			rt.logger.Error("final save failed", slog.String("error", err.Error()))
		}
	}
	rt.broker.Close()
	if err := rt.db.Close(); err != nil {
		rt.logger.Error("index close failed", slog.String("error", err.Error()))
	}
}

func (rt *runtime) serveMCP(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = rt.session.Run(ctx) }()

	rt.logger.Info("Serving MCP on stdio")
	if err := mcpserver.New(rt.svc).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func (rt *runtime) serveHTTP(ctx context.Context, cfg *Config) error {
	logger := rt.logger
	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, rt.broker)

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
		if err := rt.svc.Ready(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", rt.metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Deferred connection emission.
	g.Go(func() error {
		return rt.session.Run(gCtx)
	})

	// Reload blobs edited outside the process.
	g.Go(func() error {
		return index.Watch(gCtx, rt.store.Root(), logger, func(key string) {
			rt.svc.Reload(gCtx, key)
		})
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
		defer signal.Stop(quit)

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the session loop and watcher stop once
// the HTTP server has shut down.
var errShutdown = errors.New("shutdown")
