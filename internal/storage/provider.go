// Package storage defines the read-only serve-root file-system abstraction.
package storage

import (
	"context"

	"github.com/starford/mdserve/internal/models"
)

// Provider is the interface for read-only document access.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to the root).
	List(ctx context.Context, dir string) ([]models.DocumentMeta, error)
	// Read returns the raw bytes of the file at path (relative to the root).
	Read(ctx context.Context, path string) ([]byte, error)
}

var _ Provider = (*Tree)(nil)
