package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/metrics"
	"github.com/starford/folio/internal/postservice"
)

// Options configures NewRouter.
type Options struct {
	// AuthEnabled enforces Bearer token auth on /api routes other than
	// the revalidation webhook.
	AuthEnabled bool
	Token       string
	// RevalidateSecret guards /api/revalidate. Empty disables the webhook.
	RevalidateSecret string
	// Events, if non-nil, is mounted at GET /api/events.
	Events http.Handler
	// Metrics, if non-nil, instruments every route and is exposed at
	// MetricsPath (default /metrics).
	Metrics     *metrics.Metrics
	MetricsPath string
	// Ready reports whether the service can take traffic.
	Ready func(ctx context.Context) error
}

// NewRouter creates a chi router with the health, metrics, media and API
// routes mounted.
func NewRouter(svc *postservice.Service, opts Options) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(MetricsMiddleware(opts.Metrics))

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready(req.Context()); err != nil {
				slog.Warn("readiness check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, opts.Metrics.Handler())
	}

	// Public media files.
	r.Get("/media/{filename}", h.ServeMedia)

	r.Route("/api", func(r chi.Router) {
		// CMS webhook, authenticated by its shared secret.
		r.Group(func(r chi.Router) {
			r.Use(RevalidateSecretMiddleware(opts.RevalidateSecret))
			r.Post("/revalidate", h.Revalidate)
			r.Get("/revalidate", h.RevalidatePath)
		})

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(opts.AuthEnabled, opts.Token))

			r.Get("/posts", h.ListPosts)
			r.Get("/posts/{slug}", h.GetPost)
			r.Get("/posts/{slug}/html", h.GetPostHTML)

			r.Get("/search", h.Search)
			r.Get("/backlinks", h.Backlinks)

			r.Get("/rules", h.Rules)
			r.Post("/render", h.Render)

			r.Post("/media", h.UploadMedia)

			if opts.Events != nil {
				r.Get("/events", opts.Events.ServeHTTP)
			}
		})
	})

	return r
}
