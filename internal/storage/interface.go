package storage

import (
	"context"
	"io"
)

// ObjectStorage holds the binary side of the system: uploaded source
// documents, per-job parsed artifacts, and generated document exports.
// Database rows keep only the keys.
type ObjectStorage interface {
	// Upload stores an object under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download opens an object for reading. The caller closes it.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns an externally usable URL for an object.
	GetURL(key string) string

	// Delete removes an object.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
}
