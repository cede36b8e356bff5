package objectstore

import "gocloud.dev/blob/memblob"

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...Option) *BlobStore {
	return NewBlobStore(memblob.OpenBucket(nil), opts...)
}
