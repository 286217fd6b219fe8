package postservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/cms"
	"github.com/starford/folio/internal/storage"
)

// BlogSource lists posts held by the CMS. *cms.Client implements it.
type BlogSource interface {
	Blogs(ctx context.Context, pageSize int) ([]cms.Blog, error)
}

// PullStats reports what a Pull changed.
type PullStats struct {
	Written   int `json:"written"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// Pull copies every CMS post into dir (relative to the content root) as a
// JSON post file named after its slug. Files whose content is unchanged are
// left alone so the watcher does not reindex them.
func Pull(ctx context.Context, src BlogSource, store storage.Provider, dir string, logger *slog.Logger) (PullStats, error) {
	var stats PullStats
	blogs, err := src.Blogs(ctx, 0)
	if err != nil {
		return stats, fmt.Errorf("postservice: pull: %w", err)
	}

	for i := range blogs {
		b := &blogs[i]
		if b.Slug == "" {
			stats.Failed++
			logger.Warn("pull: skipping post without slug", slog.String("id", string(b.ID)))
			continue
		}
		data, err := b.PostFile()
		if err != nil {
			stats.Failed++
			logger.Warn("pull: encode failed", slog.String("slug", b.Slug), slog.String("error", err.Error()))
			continue
		}

		rel := path.Join(dir, SanitizeFilename(b.Slug)+".json")
		existing, err := store.Read(rel)
		switch {
		case err == nil && checksum.Sum(existing) == checksum.Sum(data):
			stats.Unchanged++
			continue
		case err != nil && !errors.Is(err, apperr.ErrNotFound):
			return stats, err
		}

		if err := store.Write(rel, data); err != nil {
			stats.Failed++
			logger.Warn("pull: write failed", slog.String("path", rel), slog.String("error", err.Error()))
			continue
		}
		stats.Written++
	}

	logger.Info("pull complete",
		slog.Int("written", stats.Written),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("failed", stats.Failed))
	return stats, nil
}
