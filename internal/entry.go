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

	"github.com/starford/folio/internal/api"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/metrics"
	"github.com/starford/folio/internal/postservice"
	"github.com/starford/folio/internal/sse"
)

const (
	feedThrottle  = 2 * time.Second
	sseHeartbeat  = 30 * time.Second
	shutdownGrace = 10 * time.Second
)

// Run starts the HTTP server, the content watcher and the event broker, and
// blocks until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_path", cfg.Content.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("links_source", cfg.Links.Source),
		slog.String("log_level", cfg.App.LogLevel.String()))

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(app.version)
	}

	content, err := app.openContent(logger)
	if err != nil {
		return err
	}
	defer content.db.Close()

	rules, err := app.ruleStore(m, logger)
	if err != nil {
		return err
	}

	broker := sse.NewBroker(feedThrottle, sse.WithHeartbeat(sseHeartbeat))
	defer broker.Close()

	svc := postservice.NewService(content.store, content.db, rules, app.renderer(m, logger),
		postservice.WithSite(cfg.Links.Site),
		postservice.WithPublisher(broker),
		postservice.WithMetrics(m),
		postservice.WithLogger(logger))
	svc.RefreshPostCount()

	apiRouter := api.NewRouter(svc, api.Options{
		AuthEnabled:      cfg.Auth.AuthEnabled(),
		Token:            cfg.Auth.Token,
		RevalidateSecret: cfg.Revalidate.Secret,
		Events:           broker,
		Metrics:          m,
		MetricsPath:      cfg.Metrics.Path,
		Ready: func(context.Context) error {
			_, err := content.db.Count()
			return err
		},
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher; every index change drops cached renders and is
	// pushed to SSE subscribers.
	g.Go(func() error {
		if err := index.Watch(gCtx, content.db, content.store, cfg.Content.Path, logger, svc.HandleIndexEvent); err != nil {
			logger.Error("content watcher stopped", slog.String("error", err.Error()))
		}
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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
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

// errShutdown cancels the errgroup context so the watcher stops with the
// HTTP server.
var errShutdown = errors.New("shutdown")
