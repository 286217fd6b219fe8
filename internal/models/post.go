// Package models defines the domain types for folio.
package models

import "time"

// Meta holds the SEO fields of a post.
type Meta struct {
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Canonical   string `json:"canonical,omitempty" yaml:"canonical,omitempty"`
	OGImage     string `json:"og_image,omitempty" yaml:"og_image,omitempty"`
	NoIndex     bool   `json:"noindex,omitempty" yaml:"noindex,omitempty"`
}

// Post is an indexed blog post without its rendered body.
type Post struct {
	Path        string     `json:"path"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Site        string     `json:"site,omitempty"`
	Tags        []string   `json:"tags"`
	Categories  []string   `json:"categories"`
	Meta        Meta       `json:"meta"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Checksum    string     `json:"checksum"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PostMetadata is the lightweight file listing entry used by sync.
type PostMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link is a hyperlink found in a post body.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	// Type is "internal" for site-relative targets and "external" otherwise.
	Type string `json:"type"`
}
