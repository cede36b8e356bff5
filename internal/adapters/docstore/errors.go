package docstore

import "errors"

// Sentinel kinds for document store errors.
var (
	ErrNotFound      = errors.New("document not found")
	ErrInvalidKey    = errors.New("invalid document key")
	ErrNotConfigured = errors.New("document store is not configured")
)
