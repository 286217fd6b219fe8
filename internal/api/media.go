package api

import (
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/postservice"
)

// ServeMedia handles GET /media/{filename}.
func (h *Handler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	abs, err := h.svc.MediaPath(chi.URLParam(r, "filename"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// UploadMedia handles POST /api/media (multipart/form-data, field "file").
//
//	@Summary		Upload an image or PDF
//	@Tags			media
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Media file"
//	@Success		201		{object}	MediaUploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/media [post]
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, postservice.MaxMediaSize+1<<20)

	if err := r.ParseMultipartForm(postservice.MaxMediaSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, postservice.MaxMediaSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	m, err := h.svc.SaveMedia(r.Context(), header.Filename, "", data)
	if err != nil {
		writeError(w, "upload media", err, "filename", header.Filename)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}
