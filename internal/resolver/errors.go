package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/leaguemodel/internal/domain/league"
	"github.com/okian/leaguemodel/internal/domain/probe"
)

// Sentinel kinds for resolver errors.
var (
	ErrNotFound          = errors.New("model artifact not found")
	ErrRemoteUnavailable = errors.New("remote tier unavailable")
	ErrCache             = errors.New("artifact cache write failed")
)

// ConfigurationError reports a remote tier that is disabled, misconfigured
// or unreachable. The resolver logs it and falls back to local tiers.
type ConfigurationError struct {
	Op  string
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s: %v", ErrRemoteUnavailable, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", ErrRemoteUnavailable, e.Op, e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Is matches ErrRemoteUnavailable.
func (e *ConfigurationError) Is(target error) bool { return target == ErrRemoteUnavailable }

// NotFoundError is returned when no candidate exists. Checked is the full
// candidate list in probe order.
type NotFoundError struct {
	League    league.ID
	Checked   []probe.Candidate
	RemoteErr error
}

func (e *NotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s for league %s; checked %d candidates: %s",
		ErrNotFound, e.League, len(e.Checked), strings.Join(probe.Keys(e.Checked), ", "))
	if e.RemoteErr != nil {
		fmt.Fprintf(&b, " (remote skipped: %v)", e.RemoteErr)
	}
	return b.String()
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
