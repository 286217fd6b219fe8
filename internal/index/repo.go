package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// Sort orders accepted by ListPosts.
const (
	SortPublished = "published"
	SortUpdated   = "updated"
	SortTitle     = "title"
)

// ListOptions filters and pages ListPosts.
type ListOptions struct {
	Limit  int
	Offset int
	Tag    string
	Site   string
	Sort   string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

const postColumns = `path, slug, title, excerpt, site, tags, categories, meta, published_at, checksum, updated_at`

// UpsertPost inserts or replaces a post, its FTS entry, and links within a transaction.
func (db *DB) UpsertPost(p models.Post, body string, links []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(nonNil(p.Tags))
	catsJSON, _ := json.Marshal(nonNil(p.Categories))
	metaJSON, _ := json.Marshal(p.Meta)

	var published any
	if p.PublishedAt != nil {
		published = p.PublishedAt.UTC()
	}
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err = tx.Exec(`
		INSERT INTO posts (path, slug, title, excerpt, site, tags, categories, meta, published_at, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			slug         = excluded.slug,
			title        = excluded.title,
			excerpt      = excluded.excerpt,
			site         = excluded.site,
			tags         = excluded.tags,
			categories   = excluded.categories,
			meta         = excluded.meta,
			published_at = excluded.published_at,
			checksum     = excluded.checksum,
			body         = excluded.body,
			updated_at   = excluded.updated_at
	`, p.Path, p.Slug, p.Title, p.Excerpt, p.Site, string(tagsJSON), string(catsJSON), string(metaJSON),
		published, p.Checksum, body, updated.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert post: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, p.Path, p.Title, body, p.Tags); err != nil {
		return err
	}

	// Replace links: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, p.Path)
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, type) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			if _, err := stmt.Exec(p.Path, target, linkType(target)); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeletePost removes a post, its FTS entry, and outgoing links.
func (db *DB) DeletePost(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM posts WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a post, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM posts WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetPost returns the post stored under path.
func (db *DB) GetPost(path string) (*models.Post, error) {
	row := db.conn.QueryRow(`SELECT `+postColumns+` FROM posts WHERE path = ?`, path)
	return scanOne(row, path)
}

// GetPostBySlug returns the post with the given slug. When several files
// share a slug the lexically first path wins.
func (db *DB) GetPostBySlug(slug string) (*models.Post, error) {
	row := db.conn.QueryRow(`SELECT `+postColumns+` FROM posts WHERE slug = ? ORDER BY path LIMIT 1`, slug)
	return scanOne(row, slug)
}

// ListPosts returns a page of posts and the total matching count.
func (db *DB) ListPosts(opts ListOptions) ([]models.Post, int, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	var (
		where []string
		args  []any
	)
	if opts.Tag != "" {
		where = append(where, `EXISTS (SELECT 1 FROM json_each(posts.tags) WHERE json_each.value = ?)`)
		args = append(args, opts.Tag)
	}
	if opts.Site != "" {
		where = append(where, `(site = ? OR site = '')`)
		args = append(args, opts.Site)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM posts`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count posts: %w", err)
	}

	order := ` ORDER BY published_at IS NULL, published_at DESC, path`
	switch opts.Sort {
	case SortTitle:
		order = ` ORDER BY title COLLATE NOCASE, path`
	case SortUpdated:
		order = ` ORDER BY updated_at DESC, path`
	}

	rows, err := db.conn.Query(`SELECT `+postColumns+` FROM posts`+clause+order+` LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list posts: %w", err)
	}
	defer rows.Close()

	out := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

// Count returns the number of indexed posts.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

// AllPaths returns every indexed post path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns path to checksum for every indexed post.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Backlinks returns all post paths that link to the given target.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT source FROM links WHERE target = ? ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row, key string) (*models.Post, error) {
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: post %q: %w", key, apperr.ErrNotFound)
	}
	return p, err
}

func scanPost(s scanner) (*models.Post, error) {
	var (
		p                models.Post
		tags, cats, meta string
		published        sql.NullTime
	)
	err := s.Scan(&p.Path, &p.Slug, &p.Title, &p.Excerpt, &p.Site, &tags, &cats, &meta, &published, &p.Checksum, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("index: decode tags for %s: %w", p.Path, err)
	}
	if err := json.Unmarshal([]byte(cats), &p.Categories); err != nil {
		return nil, fmt.Errorf("index: decode categories for %s: %w", p.Path, err)
	}
	if err := json.Unmarshal([]byte(meta), &p.Meta); err != nil {
		return nil, fmt.Errorf("index: decode meta for %s: %w", p.Path, err)
	}
	if published.Valid {
		t := published.Time
		p.PublishedAt = &t
	}
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// linkType classifies a link target as internal (site-relative) or external.
func linkType(target string) string {
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") {
		return "internal"
	}
	if strings.HasPrefix(target, "#") || !strings.Contains(target, ":") {
		return "internal"
	}
	return "external"
}
