// Package postservice coordinates the content store, the post index, link
// rules and the renderer to produce published articles.
package postservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/linking"
	"github.com/starford/folio/internal/metrics"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/parser"
	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/richtext"
	"github.com/starford/folio/internal/rulestore"
	"github.com/starford/folio/internal/sse"
	"github.com/starford/folio/internal/storage"
)

// Article is a post rendered for publishing.
type Article struct {
	models.Post
	HTML      string                  `json:"html"`
	Outline   []richtext.OutlineEntry `json:"outline"`
	Stats     linking.Stats           `json:"stats"`
	Backlinks []string                `json:"backlinks"`
}

// Publisher receives change notifications. *sse.Broker implements it.
type Publisher interface {
	PublishPostEvent(kind, path string)
	PublishRevalidation(r sse.Revalidation)
}

// invalidator is implemented by caching rule stores.
type invalidator interface {
	Invalidate(site string)
}

type cachedArticle struct {
	checksum string
	rules    string
	article  Article
}

// Service coordinates storage, index and rendering.
type Service struct {
	store    storage.Provider
	db       index.PostIndex
	rules    rulestore.Store
	renderer *render.Renderer
	site     string
	pub      Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[string]cachedArticle
}

// Option configures a Service.
type Option func(*Service)

// WithSite sets the site used for posts that do not name one.
func WithSite(site string) Option {
	return func(s *Service) { s.site = site }
}

// WithPublisher sends post and revalidation events to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithMetrics records cache and revalidation counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new post service.
func NewService(store storage.Provider, db index.PostIndex, rules rulestore.Store, renderer *render.Renderer, opts ...Option) *Service {
	s := &Service{
		store:    store,
		db:       db,
		rules:    rules,
		renderer: renderer,
		logger:   slog.Default(),
		cache:    make(map[string]cachedArticle),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Site returns the default site.
func (s *Service) Site() string { return s.site }

// PostURL is the public path of the post with the given slug.
func PostURL(slug string) string { return "/blogs/" + slug }

// GetArticle renders the post with the given slug. Renders are cached until
// the file or the applicable rules change. When rules cannot be loaded the
// article is rendered without internal links.
func (s *Service) GetArticle(ctx context.Context, slug string) (*Article, error) {
	post, err := s.db.GetPostBySlug(slug)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(post.Path)
	if err != nil {
		return nil, err
	}
	sum := checksum.Sum(data)
	site := s.siteFor(post.Site)

	rules, err := s.rules.Rules(ctx, site)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("postservice: rules unavailable, rendering without links",
			slog.String("slug", slug),
			slog.String("site", site),
			slog.String("error", err.Error()))
		rules = nil
	}
	rulesSum := rulesFingerprint(rules)

	if art, ok := s.cached(post.Path, sum, rulesSum); ok {
		return art, nil
	}

	res, err := parser.Parse(post.Path, data)
	if err != nil {
		return nil, fmt.Errorf("postservice: parse %s: %w", post.Path, err)
	}
	out, err := s.renderer.Render(ctx, res.Document, rules, site)
	if err != nil {
		return nil, err
	}
	backlinks, err := s.db.Backlinks(PostURL(post.Slug))
	if err != nil {
		return nil, err
	}

	art := Article{
		Post:      *post,
		HTML:      out.HTML,
		Outline:   out.Outline,
		Stats:     out.Stats,
		Backlinks: backlinks,
	}
	art.Checksum = sum

	s.mu.Lock()
	s.cache[post.Path] = cachedArticle{checksum: sum, rules: rulesSum, article: art}
	s.mu.Unlock()
	return &art, nil
}

func (s *Service) cached(path, sum, rulesSum string) (*Article, bool) {
	s.mu.Lock()
	e, ok := s.cache[path]
	s.mu.Unlock()
	hit := ok && e.checksum == sum && e.rules == rulesSum
	if s.metrics != nil {
		result := "miss"
		if hit {
			result = "hit"
		}
		s.metrics.RenderCacheTotal.WithLabelValues(result).Inc()
	}
	if !hit {
		return nil, false
	}
	art := e.article
	return &art, true
}

func rulesFingerprint(rules []linking.Rule) string {
	if len(rules) == 0 {
		return ""
	}
	data, _ := json.Marshal(rules)
	return checksum.Sum(data)
}

func (s *Service) siteFor(postSite string) string {
	if postSite != "" {
		return postSite
	}
	return s.site
}

// ListPosts returns a page of posts and the total match count.
func (s *Service) ListPosts(_ context.Context, opts index.ListOptions) ([]models.Post, int, error) {
	return s.db.ListPosts(opts)
}

// Search runs a full-text query over post titles and bodies.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if query == "" {
		return []index.SearchResult{}, nil
	}
	return s.db.Search(query, limit)
}

// Backlinks returns the paths of posts linking to target.
func (s *Service) Backlinks(_ context.Context, target string) ([]string, error) {
	return s.db.Backlinks(target)
}

// Rules returns the link rules for site, or for the default site when site
// is empty.
func (s *Service) Rules(ctx context.Context, site string) ([]linking.Rule, error) {
	return s.rules.Rules(ctx, s.siteFor(site))
}

// RenderDocument renders an arbitrary document. A nil rules slice loads the
// configured rules for site.
func (s *Service) RenderDocument(ctx context.Context, root *richtext.Root, rules []linking.Rule, site string) (*render.Article, error) {
	if root == nil {
		return nil, fmt.Errorf("postservice: %w: missing root", apperr.ErrInvalidDocument)
	}
	site = s.siteFor(site)
	if rules == nil {
		var err error
		if rules, err = s.rules.Rules(ctx, site); err != nil {
			return nil, err
		}
	}
	return s.renderer.Render(ctx, root, rules, site)
}

// HandleIndexEvent reacts to a watcher-driven index change: the cached render
// of path is dropped and subscribers are notified. It matches
// index.EventCallback.
func (s *Service) HandleIndexEvent(kind, path string) {
	s.mu.Lock()
	delete(s.cache, path)
	s.mu.Unlock()
	s.RefreshPostCount()
	if s.pub != nil {
		s.pub.PublishPostEvent(kind, path)
	}
}

// RefreshPostCount updates the indexed posts gauge.
func (s *Service) RefreshPostCount() {
	if s.metrics == nil {
		return
	}
	n, err := s.db.Count()
	if err != nil {
		s.logger.Warn("postservice: count posts", slog.String("error", err.Error()))
		return
	}
	s.metrics.IndexedPosts.Set(float64(n))
}

// Resolve returns the post with the given slug, or apperr.ErrNotFound.
func (s *Service) Resolve(_ context.Context, slug string) (*models.Post, error) {
	p, err := s.db.GetPostBySlug(slug)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("postservice: post %q: %w", slug, apperr.ErrNotFound)
	}
	return p, err
}

// ReadSource returns the raw file of the post with the given slug.
func (s *Service) ReadSource(ctx context.Context, slug string) ([]byte, error) {
	p, err := s.Resolve(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.store.Read(p.Path)
}

// Source returns the raw file of the post with the given slug and its parse
// result.
func (s *Service) Source(ctx context.Context, slug string) (*models.Post, *parser.Result, error) {
	p, err := s.Resolve(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.store.Read(p.Path)
	if err != nil {
		return nil, nil, err
	}
	res, err := parser.Parse(p.Path, data)
	if err != nil {
		return nil, nil, fmt.Errorf("postservice: parse %s: %w", p.Path, err)
	}
	return p, res, nil
}

func (s *Service) invalidateRules(site string) {
	if inv, ok := s.rules.(invalidator); ok {
		inv.Invalidate(site)
	}
}

func (s *Service) dropRenders(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(paths) == 0 {
		clear(s.cache)
		return
	}
	for _, p := range paths {
		delete(s.cache, p)
	}
}
