package docstore

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]Document
	opts options
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{docs: make(map[string]map[string]Document), opts: defaultOptions()}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// Get returns a copy of the document body.
func (s *MemoryStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validate(collection, key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[collection][key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, key)
	}
	return bytes.Clone(doc.Data), nil
}

// Put stores a copy of data.
func (s *MemoryStore) Put(ctx context.Context, collection, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(collection, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]Document)
	}
	s.docs[collection][key] = Document{
		Collection: collection,
		Key:        key,
		Data:       bytes.Clone(data),
		UpdatedAt:  s.opts.now(),
	}
	return nil
}

// Delete removes the document if present.
func (s *MemoryStore) Delete(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(collection, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[collection], key)
	return nil
}

// List returns copies of the documents of collection ordered by key.
func (s *MemoryStore) List(ctx context.Context, collection string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validate(collection, "-"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]Document, 0, len(s.docs[collection]))
	for _, doc := range s.docs[collection] {
		doc.Data = bytes.Clone(doc.Data)
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Key < docs[j].Key })
	return docs, nil
}

var _ Store = (*MemoryStore)(nil)
