package storage

import (
	"context"
	"io"
	"net/http"
)

// Store defines the interface for a file storage backend.
type Store interface {
	Save(ctx context.Context, path string, reader io.Reader) (int64, error)
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	// HTTP exposes the stored files for serving.
	HTTP() http.FileSystem
}
