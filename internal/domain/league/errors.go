package league

import "errors"

// Sentinel kinds for league id errors.
var (
	ErrInvalidID = errors.New("invalid league id")
)
