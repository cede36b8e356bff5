package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound = errors.New("registry document not found")
)
