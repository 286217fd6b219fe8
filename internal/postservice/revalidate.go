package postservice

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/cms"
	"github.com/starford/folio/internal/sse"
)

// RevalidateRequest names what changed upstream. All fields are optional.
type RevalidateRequest struct {
	Collection string `json:"collection"`
	Slug       string `json:"slug"`
	Path       string `json:"path"`
}

// Revalidate drops cached renders and rules affected by a content change and
// returns the public paths that went stale.
//
//   - blogs: the post render (when slug is known) and the listing
//   - internal-links, seo-pages, seo-images: the rule cache and every render
//   - anything else: the given path, or everything when no path is given
func (s *Service) Revalidate(ctx context.Context, req RevalidateRequest) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var paths []string
	switch req.Collection {
	case cms.CollectionBlogs:
		paths = []string{"/blogs"}
		if req.Slug != "" {
			s.dropSlug(req.Slug)
			paths = append(paths, PostURL(req.Slug))
		} else {
			s.dropRenders()
		}
	case cms.CollectionInternalLinks, cms.CollectionSEOPages, cms.CollectionSEOImages:
		s.invalidateRules("")
		s.dropRenders()
		paths = []string{"/"}
	default:
		if slug, ok := strings.CutPrefix(req.Path, "/blogs/"); ok && slug != "" {
			s.dropSlug(slug)
			paths = []string{req.Path}
		} else if req.Path != "" && req.Path != "/" {
			s.dropRenders()
			paths = []string{req.Path}
		} else {
			s.invalidateRules("")
			s.dropRenders()
			paths = []string{"/"}
		}
	}

	label := req.Collection
	if label == "" {
		label = "path"
	}
	if s.metrics != nil {
		s.metrics.RevalidationTotal.WithLabelValues(label).Inc()
	}
	s.logger.Info("postservice: revalidated",
		slog.String("collection", label),
		slog.Any("paths", paths))
	if s.pub != nil {
		s.pub.PublishRevalidation(sse.Revalidation{Collection: req.Collection, Paths: paths})
	}
	return paths, nil
}

func (s *Service) dropSlug(slug string) {
	p, err := s.db.GetPostBySlug(slug)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("postservice: resolve slug for revalidation",
				slog.String("slug", slug),
				slog.String("error", err.Error()))
		}
		// Unknown post: nothing cached under its path.
		return
	}
	s.dropRenders(p.Path)
}
