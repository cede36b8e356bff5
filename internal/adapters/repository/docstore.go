package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/leaguemodel/internal/adapters/docstore"
	"github.com/okian/leaguemodel/internal/domain/registry"
)

// DocRepository implements Store over a docstore.Store using the
// model_registry/optimized and league_metrics/{id} layout.
type DocRepository struct {
	docs docstore.Store
}

// New creates a repository over docs.
func New(docs docstore.Store) *DocRepository {
	return &DocRepository{docs: docs}
}

func notFound(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

// Canonical loads and decodes the aggregate registry.
func (r *DocRepository) Canonical(ctx context.Context) (*registry.Registry, error) {
	data, err := r.docs.Get(ctx, registry.RegistryCollection, registry.RegistryKey)
	if err != nil {
		return nil, notFound(err)
	}
	return registry.Unmarshal(data)
}

// PutCanonical encodes and overwrites the aggregate registry.
func (r *DocRepository) PutCanonical(ctx context.Context, reg *registry.Registry) error {
	data, err := reg.Marshal()
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	return r.docs.Put(ctx, registry.RegistryCollection, registry.RegistryKey, data)
}

// Mirror loads and decodes one mirror record.
func (r *DocRepository) Mirror(ctx context.Context, key string) (registry.MirrorRecord, error) {
	data, err := r.docs.Get(ctx, registry.MirrorCollection, key)
	if err != nil {
		return registry.MirrorRecord{}, notFound(err)
	}
	return registry.UnmarshalMirror(data)
}

// PutMirror encodes and overwrites one mirror record.
func (r *DocRepository) PutMirror(ctx context.Context, key string, rec registry.MirrorRecord) error {
	data, err := rec.Marshal()
	if err != nil {
		return fmt.Errorf("encode mirror %s: %w", key, err)
	}
	return r.docs.Put(ctx, registry.MirrorCollection, key, data)
}

// Mirrors lists every mirror record. Undecodable bodies are returned with
// DecodeErr set rather than failing the listing.
func (r *DocRepository) Mirrors(ctx context.Context) ([]StoredMirror, error) {
	docs, err := r.docs.List(ctx, registry.MirrorCollection)
	if err != nil {
		return nil, err
	}
	out := make([]StoredMirror, 0, len(docs))
	for _, doc := range docs {
		m := StoredMirror{Key: doc.Key, UpdatedAt: doc.UpdatedAt}
		m.Record, m.DecodeErr = registry.UnmarshalMirror(doc.Data)
		if m.DecodeErr != nil {
			m.Raw = doc.Data
		}
		out = append(out, m)
	}
	return out, nil
}

// DeleteMirror removes one mirror record.
func (r *DocRepository) DeleteMirror(ctx context.Context, key string) error {
	return r.docs.Delete(ctx, registry.MirrorCollection, key)
}

var _ Store = (*DocRepository)(nil)
