package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
	ErrInternal   = errors.New("internal error")
)

// newKind tags an operation with an error kind.
func newKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// wrapKind tags an upstream error with an operation and kind.
func wrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
