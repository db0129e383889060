// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrDenied   = errors.New("denied")
	ErrTooLarge = errors.New("too large")
)
