// Package apperr defines sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidDocument = errors.New("invalid document")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUpstream        = errors.New("upstream unavailable")
)
