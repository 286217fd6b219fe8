package postservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/storage"
)

// MaxMediaSize caps uploaded media files.
const MaxMediaSize = 10 << 20 // 10 MB

var (
	allowedExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true,
		".gif": true, ".webp": true, ".svg": true, ".pdf": true,
	}

	// MimeToExt maps accepted content types to file extensions.
	MimeToExt = map[string]string{
		"image/png":       ".png",
		"image/jpeg":      ".jpg",
		"image/gif":       ".gif",
		"image/webp":      ".webp",
		"image/svg+xml":   ".svg",
		"application/pdf": ".pdf",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// ErrInvalidMedia is returned for rejected uploads.
var ErrInvalidMedia = errors.New("invalid media")

// Media describes a stored media file.
type Media struct {
	Filename string `json:"filename"`
	Size     int    `json:"size"`
	URL      string `json:"url"`
}

// MediaURL is the public URL of a media file.
func MediaURL(filename string) string { return "/" + storage.MediaDir + "/" + filename }

// SaveMedia validates data against the extension of filename and stores it
// under the media directory. An empty filename gets a random name with ext.
// Existing files are never overwritten.
func (s *Service) SaveMedia(_ context.Context, filename, ext string, data []byte) (*Media, error) {
	if len(data) > MaxMediaSize {
		return nil, fmt.Errorf("%w: file too large: %d bytes (max %d)", ErrInvalidMedia, len(data), MaxMediaSize)
	}
	if filename == "" {
		if ext == "" {
			ext = ".bin"
		}
		filename = uuid.New().String() + ext
	}
	filename = SanitizeFilename(filename)

	fext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[fext] {
		return nil, fmt.Errorf("%w: unsupported file extension %q (allowed: png, jpg, jpeg, gif, webp, svg, pdf)", ErrInvalidMedia, fext)
	}
	if err := validateMagicBytes(data, fext); err != nil {
		return nil, err
	}

	rel := path.Join(storage.MediaDir, filename)
	if _, err := s.store.Read(rel); err == nil {
		return nil, fmt.Errorf("postservice: media %s: %w", filename, apperr.ErrAlreadyExists)
	}
	if err := s.store.Write(rel, data); err != nil {
		return nil, fmt.Errorf("postservice: save media: %w", err)
	}
	return &Media{Filename: filename, Size: len(data), URL: MediaURL(filename)}, nil
}

// MediaPath resolves a media filename to its absolute file-system path. Names
// containing separators or traversal are rejected.
func (s *Service) MediaPath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("%w: filename is required", ErrInvalidMedia)
	}
	cleaned := filepath.Clean(filename)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("%w: invalid filename %q", ErrInvalidMedia, filename)
	}
	return s.store.Abs(path.Join(storage.MediaDir, cleaned))
}

// SanitizeFilename strips path separators and unsafe characters.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == "_" {
		name = uuid.New().String()
	}
	return name
}

// validateMagicBytes verifies file content matches the declared extension.
func validateMagicBytes(data []byte, ext string) error {
	if ext == ".svg" {
		prefix := data
		if len(prefix) > 1024 {
			prefix = prefix[:1024]
		}
		if !bytes.Contains(prefix, []byte("<svg")) {
			return fmt.Errorf("%w: content is not an SVG document", ErrInvalidMedia)
		}
		return nil
	}

	detected := http.DetectContentType(data)
	got := MimeToExt[strings.Split(detected, ";")[0]]
	want := ext
	if want == ".jpeg" {
		want = ".jpg"
	}
	if got != want {
		return fmt.Errorf("%w: content does not match extension %s (detected: %s)", ErrInvalidMedia, ext, detected)
	}
	return nil
}
