package registry

import "errors"

// Sentinel kinds for registry documents.
var (
	ErrMalformedRegistry = errors.New("malformed registry document")
	ErrDuplicateLeague   = errors.New("duplicate league in registry")
	ErrMalformedMirror   = errors.New("malformed mirror record")
)
