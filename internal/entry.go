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

	"golang.org/x/sync/errgroup"

	"github.com/starford/mdserve/internal/index"
	"github.com/starford/mdserve/internal/mcpserver"
	"github.com/starford/mdserve/internal/server"
	"github.com/starford/mdserve/internal/site"
	"github.com/starford/mdserve/internal/sse"
)

// runtime is what both transports share once startup succeeds.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	site   *site.Site
	db     *index.DB
}

func (rt *runtime) close() {
	if rt.db != nil {
		_ = rt.db.Close()
	}
}

// documentIndex returns the index as an interface, nil when disabled.
func (rt *runtime) documentIndex() index.DocumentIndex {
	if rt.db == nil {
		return nil
	}
	return rt.db
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.cwd == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
		app.cwd = cwd
	}
	return app, nil
}

// prepare builds the logger, serve root, site and index.
func prepare(ctx context.Context, app *application) (*runtime, error) {
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	layout, err := DeriveLayout(app.cwd, cfg.Serve)
	if errors.Is(err, ErrEntryNotFound) && cfg.Serve.Entry == DefaultEntry {
		logger.Warn("startup: no README.md, serving without an entry document")
		serve := cfg.Serve
		serve.Entry = ""
		layout, err = DeriveLayout(app.cwd, serve)
	}
	if err != nil {
		return nil, err
	}
	if layout.OutsideCwd {
		logger.Warn("startup: serving files from outside the working directory",
			slog.String("serve_root", layout.Root))
	}

	rt := &runtime{cfg: cfg, logger: logger}
	siteOpts := []site.Option{site.WithLogger(logger)}
	if cfg.Index.Enabled {
		db, err := index.Open(cfg.Index.Path, cfg.Serve.IndexNames...)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		rt.db = db
		siteOpts = append(siteOpts, site.WithBacklinks(db))
	}

	s, err := site.New(site.Config{
		Root:          layout.Root,
		EntryURL:      layout.EntryURL,
		MaxFileSize:   cfg.Serve.MaxFileSize,
		IndexNames:    cfg.Serve.IndexNames,
		ListingIgnore: cfg.Serve.ListingIgnore,
		Workers:       cfg.Serve.Workers,
	}, siteOpts...)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("init site: %w", err)
	}
	rt.site = s

	logger.Info("Configuration loaded",
		slog.String("serve_root", layout.Root),
		slog.String("entry", layout.EntryURL),
		slog.Bool("index", cfg.Index.Enabled),
		slog.Bool("watch", cfg.Watch.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if rt.db != nil {
		if err := index.Sync(ctx, rt.db, s.Tree(), logger); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
	}
	return rt, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if app.logOutput == nil {
		app.logOutput = os.Stdout
	}

	rt, err := prepare(ctx, app)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg := rt.cfg
	logger := rt.logger

	deps := server.Deps{
		Site:        rt.site,
		Index:       rt.documentIndex(),
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
	}

	var broker *sse.Broker
	watching := cfg.Watch.Enabled && rt.db != nil
	if cfg.Watch.Enabled && rt.db == nil {
		logger.Warn("watch: disabled because the index is disabled")
	}
	if watching {
		broker = sse.NewBroker(cfg.Watch.TreeThrottle)
		defer broker.Close()
		deps.Events = broker
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           server.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Index changes are pushed to open pages.
	if watching {
		g.Go(func() error {
			w := index.NewWatcher(rt.db, rt.site.Tree(), rt.site.Tree().Root(), logger, broker.PublishDocumentEvent)
			if err := w.Run(gCtx); err != nil {
				logger.Warn("watcher stopped", slog.String("error", err.Error()))
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
		if broker != nil {
			broker.Close()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Unblock the watcher even when shutdown came from a signal.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

// RunMCP serves the same tree over MCP on stdin/stdout until the client
// disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if app.logOutput == nil {
		app.logOutput = os.Stderr
	}

	rt, err := prepare(ctx, app)
	if err != nil {
		return err
	}
	defer rt.close()

	rt.logger.Info("MCP server starting on stdio")
	if err := mcpserver.New(rt.site, rt.documentIndex()).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
