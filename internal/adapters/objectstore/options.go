package objectstore

import "time"

// Option applies a configuration option to the BlobStore.
type Option func(*BlobStore)

// WithPrefix scopes every key under prefix, e.g. "leagues/".
func WithPrefix(prefix string) Option {
	return func(s *BlobStore) {
		s.prefix = prefix
	}
}

// WithTimeout bounds each call.
func WithTimeout(timeout time.Duration) Option {
	return func(s *BlobStore) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}
