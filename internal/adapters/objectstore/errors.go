package objectstore

import "errors"

// Sentinel kinds for object store errors.
var (
	ErrNotFound     = errors.New("object not found")
	ErrUnavailable  = errors.New("object store unavailable")
	ErrUnauthorized = errors.New("object store rejected credentials")
	ErrInvalidKey   = errors.New("invalid object key")
)
