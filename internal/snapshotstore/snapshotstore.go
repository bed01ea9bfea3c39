// Package snapshotstore is the local cache tier: opaque blobs addressed by key.
package snapshotstore

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var ErrNotFound = errors.New("snapshot not found")

type SnapshotStore interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// StatementKey is the cache key of a project's statement.
func StatementKey(projectID string) string {
	return fmt.Sprintf("statement-%s", projectID)
}
