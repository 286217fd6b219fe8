package rulestore

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/folio/internal/linking"
	"github.com/starford/folio/internal/metrics"
)

// DefaultTTL is how long cached rules stay fresh.
const DefaultTTL = time.Hour

// Cached wraps a Store with a per-site TTL cache. Concurrent misses for the
// same site share one upstream load. When a reload fails and an expired entry
// exists, the expired rules are served.
type Cached struct {
	next    Store
	source  string
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]cacheEntry
	gen     uint64
}

type cacheEntry struct {
	rules   []linking.Rule
	expires time.Time
}

// CacheOption configures a Cached store.
type CacheOption func(*Cached)

// WithCacheLogger sets the logger.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *Cached) { c.logger = l }
}

// WithCacheMetrics records loads on m.
func WithCacheMetrics(m *metrics.Metrics) CacheOption {
	return func(c *Cached) { c.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cached) { c.now = now }
}

// NewCached wraps next. source labels metrics and logs; ttl <= 0 uses DefaultTTL.
func NewCached(next Store, source string, ttl time.Duration, opts ...CacheOption) *Cached {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cached{
		next:    next,
		source:  source,
		ttl:     ttl,
		logger:  slog.Default(),
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Rules implements Store. The returned slice is a copy.
func (c *Cached) Rules(ctx context.Context, site string) ([]linking.Rule, error) {
	c.mu.Lock()
	e, ok := c.entries[site]
	gen := c.gen
	c.mu.Unlock()
	if ok && c.now().Before(e.expires) {
		return slices.Clone(e.rules), nil
	}

	ch := c.group.DoChan(site, func() (any, error) {
		return c.next.Rules(context.WithoutCancel(ctx), site)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}

	if res.Err != nil {
		if ok {
			c.record("stale")
			c.logger.Warn("rulestore: reload failed, serving stale rules",
				slog.String("source", c.source),
				slog.String("site", site),
				slog.String("error", res.Err.Error()))
			return slices.Clone(e.rules), nil
		}
		c.record("error")
		return nil, res.Err
	}

	rules := res.Val.([]linking.Rule)
	c.mu.Lock()
	if c.gen == gen {
		c.entries[site] = cacheEntry{rules: rules, expires: c.now().Add(c.ttl)}
	}
	c.mu.Unlock()
	c.record("ok")
	c.logger.Debug("rulestore: loaded rules",
		slog.String("source", c.source),
		slog.String("site", site),
		slog.Int("count", len(rules)))
	return slices.Clone(rules), nil
}

// Invalidate drops the cached rules for site, or for every site when site is
// empty. Loads already in flight do not repopulate the cache.
func (c *Cached) Invalidate(site string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if site == "" {
		for k := range c.entries {
			c.group.Forget(k)
		}
		clear(c.entries)
		return
	}
	delete(c.entries, site)
	c.group.Forget(site)
}

func (c *Cached) record(result string) {
	if c.metrics != nil {
		c.metrics.RuleLoadsTotal.WithLabelValues(c.source, result).Inc()
	}
}
