// Package cms is a client for the headless CMS REST API that stores blog
// posts and internal link rules.
package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/linking"
	"github.com/starford/folio/internal/metrics"
)

// Collection slugs used by the CMS.
const (
	CollectionBlogs         = "blogs"
	CollectionInternalLinks = "internal-links"
	CollectionSEOPages      = "seo-pages"
	CollectionSEOImages     = "seo-images"
)

// RulePageLimit is the page size used when fetching link rules.
const RulePageLimit = 100

// maxBody bounds a single CMS response.
const maxBody = 32 << 20

// Client talks to the CMS REST API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit caps outgoing requests. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics records request outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the CMS at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("cms: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("cms: base url must be http or https: %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// page is the list envelope the CMS wraps every collection query in.
type page[T any] struct {
	Docs        []T  `json:"docs"`
	TotalDocs   int  `json:"totalDocs"`
	Page        int  `json:"page"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
}

// LinkRules fetches the internal link rules for site.
func (c *Client) LinkRules(ctx context.Context, site string) ([]linking.Rule, error) {
	q := url.Values{}
	q.Set("where[site][equals]", site)
	q.Set("limit", strconv.Itoa(RulePageLimit))

	var p page[linking.Rule]
	if err := c.get(ctx, CollectionInternalLinks, q, &p); err != nil {
		return nil, err
	}
	if p.Docs == nil {
		p.Docs = []linking.Rule{}
	}
	return p.Docs, nil
}

// Blogs fetches every blog post, following pagination. pageSize <= 0 uses 20.
func (c *Client) Blogs(ctx context.Context, pageSize int) ([]Blog, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	var out []Blog
	for n := 1; ; n++ {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(pageSize))
		q.Set("page", strconv.Itoa(n))
		q.Set("depth", "1")

		var p page[Blog]
		if err := c.get(ctx, CollectionBlogs, q, &p); err != nil {
			return nil, err
		}
		out = append(out, p.Docs...)
		if !p.HasNextPage || len(p.Docs) == 0 {
			break
		}
	}
	return out, nil
}

// Blog fetches a single post by slug.
func (c *Client) Blog(ctx context.Context, slug string) (*Blog, error) {
	q := url.Values{}
	q.Set("where[slug][equals]", slug)
	q.Set("limit", "1")
	q.Set("depth", "1")

	var p page[Blog]
	if err := c.get(ctx, CollectionBlogs, q, &p); err != nil {
		return nil, err
	}
	if len(p.Docs) == 0 {
		return nil, fmt.Errorf("cms: blog %q: %w", slug, apperr.ErrNotFound)
	}
	return &p.Docs[0], nil
}

func (c *Client) get(ctx context.Context, collection string, q url.Values, v any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("cms: rate limit: %w", err)
		}
	}

	u := c.baseURL.JoinPath("api", collection)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("cms: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.record(collection, "error")
		return fmt.Errorf("cms: %s: %w: %w", collection, apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()
	c.record(collection, strconv.Itoa(resp.StatusCode))

	c.logger.Debug("cms: request",
		slog.String("collection", collection),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("cms: %s: unexpected status %d: %w", collection, resp.StatusCode, apperr.ErrUpstream)
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("cms: %s: empty response: %w", collection, apperr.ErrUpstream)
		}
		return fmt.Errorf("cms: %s: decode: %w", collection, err)
	}
	return nil
}

func (c *Client) record(collection, status string) {
	if c.metrics != nil {
		c.metrics.CMSRequestsTotal.WithLabelValues(collection, status).Inc()
	}
}
