// Package repository gives typed access to the canonical registry document
// and its mirror records on top of a document store.
package repository

import (
	"context"
	"time"

	"github.com/okian/leaguemodel/internal/domain/registry"
)

// StoredMirror is a mirror record as found in the store. DecodeErr is set
// when the stored body could not be decoded; Record is then zero and Raw
// holds the body as stored.
type StoredMirror struct {
	Key       string
	Record    registry.MirrorRecord
	Raw       []byte
	UpdatedAt time.Time
	DecodeErr error
}

// Store provides read/write access to registry state.
type Store interface {
	// Canonical returns the aggregate registry document.
	// Returns ErrNotFound if it was never published.
	Canonical(ctx context.Context) (*registry.Registry, error)
	// PutCanonical overwrites the aggregate registry document.
	PutCanonical(ctx context.Context, reg *registry.Registry) error

	// Mirror returns the mirror record stored under key.
	// Returns ErrNotFound if the key is absent.
	Mirror(ctx context.Context, key string) (registry.MirrorRecord, error)
	// PutMirror overwrites the mirror record under key.
	PutMirror(ctx context.Context, key string, rec registry.MirrorRecord) error
	// Mirrors lists every stored mirror record ordered by key.
	Mirrors(ctx context.Context) ([]StoredMirror, error)
	// DeleteMirror removes the mirror record under key.
	DeleteMirror(ctx context.Context, key string) error
}
