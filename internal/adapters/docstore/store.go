// Package docstore persists JSON documents addressed by collection and key.
package docstore

import (
	"context"
	"time"
)

// Document is one stored document.
type Document struct {
	Collection string
	Key        string
	Data       []byte
	UpdatedAt  time.Time
}

// Store provides keyed document access. Writes are full overwrites; there is
// no cross-document transaction.
type Store interface {
	// Get returns the document body. Returns ErrNotFound if the key is absent.
	Get(ctx context.Context, collection, key string) ([]byte, error)

	// Put creates or replaces the document.
	Put(ctx context.Context, collection, key string, data []byte) error

	// Delete removes the document. Deleting an absent key is not an error.
	Delete(ctx context.Context, collection, key string) error

	// List returns every document of collection ordered by key.
	List(ctx context.Context, collection string) ([]Document, error)
}
