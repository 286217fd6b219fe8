package render

import (
	"context"
	"log/slog"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/starford/folio/internal/linking"
	"github.com/starford/folio/internal/metrics"
	"github.com/starford/folio/internal/richtext"
)

// Article is a fully rendered document.
type Article struct {
	HTML    string                  `json:"html"`
	Outline []richtext.OutlineEntry `json:"outline"`
	Stats   linking.Stats           `json:"stats"`
}

// Renderer renders documents with links. It holds no per-call state and is
// safe for concurrent use.
type Renderer struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	policy   *bluemonday.Policy
	maxLinks int
	avoid    []string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger used for rule diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// WithMetrics records render counts and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Renderer) { r.metrics = m }
}

// WithSanitizer runs the final HTML through p. Use ArticlePolicy for the
// markup the serializer produces.
func WithSanitizer(p *bluemonday.Policy) Option {
	return func(r *Renderer) { r.policy = p }
}

// WithLinkLimits overrides the page link cap and the avoided elements.
// Zero and nil keep the defaults.
func WithLinkLimits(maxTotal int, avoidTags []string) Option {
	return func(r *Renderer) {
		r.maxLinks = maxTotal
		r.avoid = avoidTags
	}
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render serializes root, injects links from the rules that apply to site and
// sanitizes the result when a policy is configured. The only error is ctx
// being done before rendering starts.
func (r *Renderer) Render(ctx context.Context, root *richtext.Root, rules []linking.Rule, site string) (*Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	res := richtext.Render(root)

	opts := linking.DefaultOptions()
	if r.maxLinks > 0 {
		opts.MaxTotalLinks = r.maxLinks
	}
	if r.avoid != nil {
		opts.AvoidTags = r.avoid
	}
	opts.Logger = r.logger.With(slog.String("site", site))

	html, stats := linking.Inject(res.HTML, FilterRules(rules, site), opts)
	if r.policy != nil {
		html = r.policy.Sanitize(html)
	}

	if r.metrics != nil {
		r.metrics.RendersTotal.WithLabelValues(site).Inc()
		r.metrics.RenderDurationSeconds.WithLabelValues(site).Observe(time.Since(start).Seconds())
		r.metrics.LinksInjectedTotal.WithLabelValues(site).Add(float64(stats.TotalLinksInjected))
		r.metrics.InvalidRulesTotal.WithLabelValues(site).Add(float64(len(stats.Diagnostics)))
	}

	outline := res.Outline
	if outline == nil {
		outline = []richtext.OutlineEntry{}
	}
	return &Article{HTML: html, Outline: outline, Stats: stats}, nil
}
