// Package storage defines the content directory abstraction.
package storage

import "github.com/starford/folio/internal/models"

// MediaDir is the directory, relative to the content root, that holds
// uploaded media. It is skipped when listing posts.
const MediaDir = "media"

// Provider is the interface for content file operations.
type Provider interface {
	// List returns metadata for every post file (.md or .json) under dir
	// (relative to the content root).
	List(dir string) ([]models.PostMetadata, error)
	// Read returns the raw bytes of the file at path. A missing file yields
	// an error wrapping apperr.ErrNotFound.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Abs resolves path to an absolute file-system path inside the root.
	Abs(path string) (string, error)
}
