// Package metrics holds the Prometheus collectors for folio.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all custom folio collectors on an isolated registry, so tests
// can create as many instances as they like.
type Metrics struct {
	Registry *prometheus.Registry

	// Rendering
	RendersTotal          *prometheus.CounterVec
	RenderDurationSeconds *prometheus.HistogramVec
	LinksInjectedTotal    *prometheus.CounterVec
	InvalidRulesTotal     *prometheus.CounterVec
	RenderCacheTotal      *prometheus.CounterVec

	// Rule stores and the CMS
	RuleLoadsTotal    *prometheus.CounterVec
	CMSRequestsTotal  *prometheus.CounterVec
	RevalidationTotal *prometheus.CounterVec

	// Content index
	IndexedPosts prometheus.Gauge

	// HTTP API
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec

	BuildInfo *prometheus.GaugeVec
}

// New registers every collector on a fresh registry. version is recorded on
// the folio_info gauge.
func New(version string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RendersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_renders_total",
				Help: "Documents rendered to HTML.",
			},
			[]string{"site"},
		),
		RenderDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "folio_render_duration_seconds",
				Help:    "Time spent serializing a document and injecting links.",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
			},
			[]string{"site"},
		),
		LinksInjectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_links_injected_total",
				Help: "Internal links added to rendered documents.",
			},
			[]string{"site"},
		),
		InvalidRulesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_invalid_rules_total",
				Help: "Link rules skipped because their pattern did not compile.",
			},
			[]string{"site"},
		),
		RenderCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_render_cache_total",
				Help: "Rendered article cache lookups.",
			},
			[]string{"result"},
		),
		RuleLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_rule_loads_total",
				Help: "Link rule loads from the backing store.",
			},
			[]string{"source", "result"},
		),
		CMSRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_cms_requests_total",
				Help: "Requests made to the headless CMS.",
			},
			[]string{"collection", "status"},
		),
		RevalidationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_revalidations_total",
				Help: "Revalidation requests accepted, by collection.",
			},
			[]string{"collection"},
		),
		IndexedPosts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "folio_indexed_posts",
				Help: "Posts currently present in the index.",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_http_requests_total",
				Help: "HTTP requests served.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "folio_http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "folio_info",
				Help: "Build information.",
			},
			[]string{"version"},
		),
	}

	reg.MustRegister(
		m.RendersTotal,
		m.RenderDurationSeconds,
		m.LinksInjectedTotal,
		m.InvalidRulesTotal,
		m.RenderCacheTotal,
		m.RuleLoadsTotal,
		m.CMSRequestsTotal,
		m.RevalidationTotal,
		m.IndexedPosts,
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.BuildInfo,
	)

	m.BuildInfo.WithLabelValues(version).Set(1)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
