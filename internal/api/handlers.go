package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/postservice"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *postservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *postservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListPosts handles GET /api/posts.
//
//	@Summary		List posts with optional pagination and filtering
//	@Tags			posts
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			site	query		string	false	"Filter by site"
//	@Param			sort	query		string	false	"Sort field"	Enums(published, updated, title)
//	@Success		200		{object}	PostListResponse
//	@Security		BearerAuth
//	@Router			/posts [get]
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	posts, total, err := h.svc.ListPosts(r.Context(), index.ListOptions{
		Limit:  limit,
		Offset: offset,
		Tag:    q.Get("tag"),
		Site:   q.Get("site"),
		Sort:   q.Get("sort"),
	})
	if err != nil {
		writeError(w, "list posts", err)
		return
	}
	writeJSON(w, http.StatusOK, PostListResponse{Posts: posts, Total: total})
}

// GetPost handles GET /api/posts/{slug}.
//
//	@Summary		Get a rendered post by slug
//	@Tags			posts
//	@Produce		json
//	@Param			slug	path		string	true	"Post slug"
//	@Success		200		{object}	Article
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/posts/{slug} [get]
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	art, err := h.svc.GetArticle(r.Context(), slug)
	if err != nil {
		writeError(w, "get post", err, "slug", slug)
		return
	}
	w.Header().Set("ETag", strconv.Quote(art.Checksum))
	writeJSON(w, http.StatusOK, art)
}

// GetPostHTML handles GET /api/posts/{slug}/html and returns the article
// body as text/html.
func (h *Handler) GetPostHTML(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	art, err := h.svc.GetArticle(r.Context(), slug)
	if err != nil {
		writeError(w, "get post html", err, "slug", slug)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", strconv.Quote(art.Checksum))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(art.HTML))
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across posts
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err, "query", q)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Backlinks handles GET /api/backlinks?target=/blogs/slug.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'target' is required"))
		return
	}
	links, err := h.svc.Backlinks(r.Context(), target)
	if err != nil {
		writeError(w, "backlinks", err, "target", target)
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Target: target, Backlinks: links})
}

// Rules handles GET /api/rules?site=.
func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	site := r.URL.Query().Get("site")
	if site == "" {
		site = h.svc.Site()
	}
	rules, err := h.svc.Rules(r.Context(), site)
	if err != nil {
		writeError(w, "list rules", err, "site", site)
		return
	}
	writeJSON(w, http.StatusOK, RulesResponse{Site: site, Rules: rules})
}

// Render handles POST /api/render.
//
//	@Summary		Render a document with internal links
//	@Tags			render
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenderRequest	true	"Document and optional rules"
//	@Success		200		{object}	render.Article
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/render [post]
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	out, err := h.svc.RenderDocument(r.Context(), req.Document, req.Rules, req.Site)
	if err != nil {
		writeError(w, "render", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Revalidate handles POST /api/revalidate (CMS webhook).
func (h *Handler) Revalidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req RevalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	h.revalidate(w, r, req)
}

// RevalidatePath handles GET /api/revalidate?path=, for manual use.
func (h *Handler) RevalidatePath(w http.ResponseWriter, r *http.Request) {
	h.revalidate(w, r, RevalidateRequest{Path: r.URL.Query().Get("path")})
}

func (h *Handler) revalidate(w http.ResponseWriter, r *http.Request, req RevalidateRequest) {
	paths, err := h.svc.Revalidate(r.Context(), req)
	if err != nil {
		writeError(w, "revalidate", err, "collection", req.Collection)
		return
	}
	msg := "revalidated " + paths[0]
	if req.Collection != "" {
		msg = "revalidated collection " + req.Collection
	}
	writeJSON(w, http.StatusOK, RevalidateResponse{
		Revalidated: true,
		Now:         time.Now().UnixMilli(),
		Paths:       paths,
		Message:     msg,
	})
}
