// Package objectstore provides read access to the remote artifact tier.
package objectstore

import (
	"context"
	"io"
)

// Store is the read side of an object store.
type Store interface {
	// Exists reports whether key is present. Errors mean the backend could
	// not answer, not that the key is absent.
	Exists(ctx context.Context, key string) (bool, error)

	// Open streams the object at key. Returns ErrNotFound if it is absent.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
