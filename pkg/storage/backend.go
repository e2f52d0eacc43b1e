// Package storage persists run artifacts (checkpoints, CSV exports, run
// summaries) on the local filesystem or in S3.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("object not found")

// BlobStore defines the interface for abstract storage backends. Keys are
// slash-separated and relative to the store root.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	// Location renders key as a user-facing path or URL.
	Location(key string) string
}

// Join builds a clean slash-separated key.
func Join(parts ...string) string {
	return strings.TrimPrefix(path.Join(parts...), "/")
}
