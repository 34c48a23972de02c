package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been set or was
// cleared.
var ErrNotFound = errors.New("store: key not found")

// Store is a durable key-value store holding opaque blobs. Set replaces the
// whole value; there is no append.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, blob []byte) error
	// Clear removes every key owned by this store.
	Clear(ctx context.Context) error
}
