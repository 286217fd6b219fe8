// Package parser reads post files: YAML frontmatter with a Markdown body, or
// JSON with an editor document under "content".
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/richtext"
)

// Post file extensions.
const (
	ExtMarkdown = ".md"
	ExtJSON     = ".json"
)

// Supported reports whether p names a post file.
func Supported(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ExtMarkdown, ExtJSON:
		return true
	}
	return false
}

// Result holds the output of parsing a post file.
type Result struct {
	Frontmatter map[string]any
	Title       string
	Slug        string
	Excerpt     string
	Site        string
	Tags        []string
	Categories  []string
	Meta        models.Meta
	PublishedAt *time.Time
	Document    *richtext.Root
	// Text is the plain text of the document, for search.
	Text string
	// Links lists the distinct link targets in the document, in order.
	Links []string
}

// header is the metadata shared by both file formats.
type header struct {
	Title       string      `yaml:"title" json:"title"`
	Slug        string      `yaml:"slug" json:"slug"`
	Excerpt     string      `yaml:"excerpt" json:"excerpt"`
	Site        string      `yaml:"site" json:"site"`
	Tags        []string    `yaml:"tags" json:"tags"`
	Categories  []string    `yaml:"categories" json:"categories"`
	Meta        models.Meta `yaml:"meta" json:"meta"`
	PublishedAt *time.Time  `yaml:"published_at" json:"published_at"`
}

// File is the JSON post file layout.
type File struct {
	header
	Content *richtext.Root `json:"content"`
}

// Parse parses the post file at path p (used for its extension and the
// fallback slug).
func Parse(p string, data []byte) (*Result, error) {
	var (
		h   header
		fm  map[string]any
		doc *richtext.Root
	)
	switch strings.ToLower(path.Ext(p)) {
	case ExtJSON:
		var f File
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parser: %s: %w", p, err)
		}
		h, doc = f.header, f.Content
	case ExtMarkdown:
		var body string
		fm, body, h = splitFrontmatter(data)
		doc = Markdown([]byte(body))
	default:
		return nil, fmt.Errorf("parser: unsupported file type: %s", p)
	}
	if doc == nil {
		doc = &richtext.Root{}
	}

	res := &Result{
		Frontmatter: fm,
		Title:       h.Title,
		Slug:        h.Slug,
		Excerpt:     h.Excerpt,
		Site:        h.Site,
		Tags:        normalizeList(h.Tags),
		Categories:  normalizeList(h.Categories),
		Meta:        h.Meta,
		PublishedAt: h.PublishedAt,
		Document:    doc,
		Text:        documentText(doc),
		Links:       extractLinks(doc),
	}
	if res.Slug == "" {
		res.Slug = SlugFromPath(p)
	}
	if res.Title == "" {
		res.Title = firstHeading(doc)
	}
	if res.Excerpt == "" {
		res.Excerpt = excerpt(res.Text, 160)
	}
	return res, nil
}

// SlugFromPath returns the file stem of p.
func SlugFromPath(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. Missing or invalid frontmatter leaves the whole
// input as body.
func splitFrontmatter(data []byte) (map[string]any, string, header) {
	const delim = "---"
	var h header
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), h
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), h
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data), h
	}
	if err := yaml.Unmarshal(yamlBlock, &h); err != nil {
		h = header{}
		if t, ok := fm["title"].(string); ok {
			h.Title = t
		}
	}
	return fm, body, h
}

// normalizeList trims and de-duplicates entries, dropping empty ones.
func normalizeList(in []string) []string {
	out := []string{}
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func extractLinks(root *richtext.Root) []string {
	var out []string
	seen := make(map[string]struct{})
	var walk func(n richtext.Node)
	walk = func(n richtext.Node) {
		switch v := n.(type) {
		case *richtext.Link:
			if _, dup := seen[v.URL]; v.URL != "" && !dup {
				seen[v.URL] = struct{}{}
				out = append(out, v.URL)
			}
		case *richtext.Block:
			if v.BlockType == richtext.BlockCustomButton {
				if href, ok := v.Fields["buttonLink"].(string); ok && href != "" {
					if _, dup := seen[href]; !dup {
						seen[href] = struct{}{}
						out = append(out, href)
					}
				}
			}
		}
		for _, c := range richtext.Children(n) {
			walk(c)
		}
	}
	walk(root)
	return out
}

// documentText flattens the document to single-spaced text, separating
// top-level blocks.
func documentText(root *richtext.Root) string {
	parts := make([]string, 0, len(root.Children))
	for _, n := range root.Children {
		parts = append(parts, richtext.PlainText(n))
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func firstHeading(root *richtext.Root) string {
	for _, n := range root.Children {
		if h, ok := n.(*richtext.Heading); ok {
			return strings.TrimSpace(richtext.PlainText(h))
		}
	}
	return ""
}

// excerpt cuts text at a word boundary near limit runes.
func excerpt(text string, limit int) string {
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	cut := string(r[:limit])
	if i := strings.LastIndexByte(cut, ' '); i > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
