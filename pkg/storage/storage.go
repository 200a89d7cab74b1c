// Package storage persists uploaded file bytes. The database keeps only the
// returned storage path.
package storage

import (
	"context"
	"io"
)

type Store interface {
	// Save streams r to the blob under dir/name and returns the storage path
	// and the number of bytes written.
	Save(ctx context.Context, dir, name string, r io.Reader) (string, int64, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}
