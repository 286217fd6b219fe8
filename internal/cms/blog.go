package cms

import (
	"encoding/json"
	"time"

	"github.com/starford/folio/internal/linking"
	"github.com/starford/folio/internal/models"
)

// Blog is a post as the CMS returns it.
type Blog struct {
	ID          linking.ID      `json:"id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Excerpt     string          `json:"excerpt"`
	Site        string          `json:"site"`
	Content     json.RawMessage `json:"content"`
	Tags        []BlogTag       `json:"tags"`
	Categories  []BlogCategory  `json:"categories"`
	Meta        BlogMeta        `json:"meta"`
	PublishedAt *time.Time      `json:"publishedAt"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// BlogTag is one entry of the tags array field.
type BlogTag struct {
	Tag string `json:"tag"`
}

// BlogCategory is one entry of the categories array field.
type BlogCategory struct {
	Category string `json:"category"`
}

// BlogMeta is the SEO group of a post.
type BlogMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Canonical   string `json:"canonical"`
	OGImage     Media  `json:"ogImage"`
}

// Media is an upload relation. Unpopulated relations arrive as a bare id.
type Media struct {
	ID  linking.ID `json:"id"`
	URL string     `json:"url"`
	Alt string     `json:"alt"`
}

// UnmarshalJSON accepts a populated media object, an id, or null.
func (m *Media) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		type plain Media
		return json.Unmarshal(data, (*plain)(m))
	}
	return json.Unmarshal(data, &m.ID)
}

// postFile is the JSON post file layout read by the parser package.
type postFile struct {
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Excerpt     string          `json:"excerpt,omitempty"`
	Site        string          `json:"site,omitempty"`
	Tags        []string        `json:"tags"`
	Categories  []string        `json:"categories"`
	Meta        models.Meta     `json:"meta"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
	Content     json.RawMessage `json:"content"`
}

// PostFile encodes the blog as a JSON post file.
func (b *Blog) PostFile() ([]byte, error) {
	f := postFile{
		Title:      b.Title,
		Slug:       b.Slug,
		Excerpt:    b.Excerpt,
		Site:       b.Site,
		Tags:       make([]string, 0, len(b.Tags)),
		Categories: make([]string, 0, len(b.Categories)),
		Meta: models.Meta{
			Title:       b.Meta.Title,
			Description: b.Meta.Description,
			Canonical:   b.Meta.Canonical,
			OGImage:     b.Meta.OGImage.URL,
		},
		PublishedAt: b.PublishedAt,
		Content:     b.Content,
	}
	if f.PublishedAt == nil && !b.CreatedAt.IsZero() {
		created := b.CreatedAt
		f.PublishedAt = &created
	}
	for _, t := range b.Tags {
		if t.Tag != "" {
			f.Tags = append(f.Tags, t.Tag)
		}
	}
	for _, c := range b.Categories {
		if c.Category != "" {
			f.Categories = append(f.Categories, c.Category)
		}
	}
	if len(f.Content) == 0 {
		f.Content = json.RawMessage("null")
	}
	return json.MarshalIndent(f, "", "  ")
}
