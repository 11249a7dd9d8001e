// Package apperr defines sentinel errors shared across saga packages.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrBodyUnavailable signals that body-derived data was requested for a
	// file read under the header-only streaming strategy.
	ErrBodyUnavailable = errors.New("body unavailable for large file")
)
