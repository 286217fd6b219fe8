package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/folio/internal/cms"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/metrics"
	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/rulestore"
	"github.com/starford/folio/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// logger builds the structured JSON logger and makes it the default.
func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

type vault struct {
	store *storage.FS
	db    *index.DB
}

// openContent prepares the content directory and the SQLite index, then
// brings the index up to date with the files on disk.
func (a *application) openContent(logger *slog.Logger) (*vault, error) {
	cfg := a.config
	if err := os.MkdirAll(cfg.Content.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create content dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Content.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	stats, err := index.Sync(db, store, logger)
	if err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	} else {
		logger.Info("initial sync complete",
			slog.Int("indexed", stats.Indexed),
			slog.Int("removed", stats.Removed),
			slog.Int("failed", stats.Failed))
	}
	return &vault{store: store, db: db}, nil
}

// cmsClient returns a client for the configured CMS.
func (a *application) cmsClient(m *metrics.Metrics, logger *slog.Logger) (*cms.Client, error) {
	cfg := a.config.CMS
	if !cfg.Enabled() {
		return nil, fmt.Errorf("cms: base_url is not configured")
	}
	return cms.New(cfg.BaseURL, cfg.Timeout,
		cms.WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
		cms.WithMetrics(m),
		cms.WithLogger(logger))
}

// ruleStore returns the configured rule source behind a per-site cache.
func (a *application) ruleStore(m *metrics.Metrics, logger *slog.Logger) (*rulestore.Cached, error) {
	cfg := a.config.Links
	var next rulestore.Store
	switch cfg.Source {
	case rulestore.SourceCMS:
		client, err := a.cmsClient(m, logger)
		if err != nil {
			return nil, err
		}
		next = rulestore.NewCMSStore(client)
	default:
		next = rulestore.NewFileStore(cfg.File)
	}
	return rulestore.NewCached(next, cfg.Source, cfg.CacheTTL,
		rulestore.WithCacheLogger(logger),
		rulestore.WithCacheMetrics(m)), nil
}

func (a *application) renderer(m *metrics.Metrics, logger *slog.Logger) *render.Renderer {
	cfg := a.config
	opts := []render.Option{
		render.WithLogger(logger),
		render.WithMetrics(m),
		render.WithLinkLimits(cfg.Links.MaxTotalLinks, cfg.Links.AvoidTags),
	}
	if cfg.Render.Sanitize {
		opts = append(opts, render.WithSanitizer(render.ArticlePolicy()))
	}
	return render.New(opts...)
}

// stderrIfUnset makes w default to os.Stderr.
func stderrIfUnset(w io.Writer) io.Writer {
	if w == nil {
		return os.Stderr
	}
	return w
}
