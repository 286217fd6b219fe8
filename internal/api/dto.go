package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/linking"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/postservice"
	"github.com/starford/folio/internal/richtext"
)

// Article is the rendered post response type (aliased from the domain layer).
type Article = postservice.Article

// PostListResponse wraps paginated post listings.
type PostListResponse struct {
	Posts []models.Post `json:"posts" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// BacklinksResponse lists the posts linking to a target URL.
type BacklinksResponse struct {
	Target    string   `json:"target" example:"/blogs/taxes" validate:"required"`
	Backlinks []string `json:"backlinks" validate:"required"`
}

// RulesResponse lists the link rules in effect for a site.
type RulesResponse struct {
	Site  string         `json:"site" example:"example.com"`
	Rules []linking.Rule `json:"rules" validate:"required"`
}

// RenderRequest is the request body for POST /api/render. Omitting rules
// uses the configured rule store; an empty list disables link injection.
type RenderRequest struct {
	Document *richtext.Root `json:"document" validate:"required"`
	Rules    []linking.Rule `json:"rules"`
	Site     string         `json:"site" example:"example.com"`
}

// Validate implements validation.Validatable.
func (r RenderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Document, validation.NotNil),
		validation.Field(&r.Site, validation.Length(0, 253)),
	)
}

// RevalidateRequest is the webhook body for POST /api/revalidate.
type RevalidateRequest = postservice.RevalidateRequest

// RevalidateResponse acknowledges a revalidation.
type RevalidateResponse struct {
	Revalidated bool     `json:"revalidated" validate:"required"`
	Now         int64    `json:"now" example:"1718000000000" validate:"required"`
	Paths       []string `json:"paths" validate:"required"`
	Message     string   `json:"message,omitempty"`
}

// MediaUploadResponse is returned after a successful media upload.
type MediaUploadResponse = postservice.Media
