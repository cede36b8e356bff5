package publisher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/leaguemodel/internal/domain/league"
)

// Sentinel kinds for publisher errors.
var (
	ErrPartialPublish = errors.New("partial publish")
	ErrInvalidInput   = errors.New("invalid publish input")
)

// LeagueFailure records a league whose mirror could not be written.
type LeagueFailure struct {
	League league.ID
	Key    string
	Err    error
}

// PartialPublishError lists what a publish run failed to write. Mirrors of
// the leagues not listed were written.
type PartialPublishError struct {
	Canonical error
	Failed    []LeagueFailure
	Attempted int
}

func (e *PartialPublishError) Error() string {
	var b strings.Builder
	b.WriteString(ErrPartialPublish.Error())
	if e.Canonical != nil {
		fmt.Fprintf(&b, ": canonical registry: %v", e.Canonical)
	}
	if len(e.Failed) > 0 {
		fmt.Fprintf(&b, ": %d of %d leagues failed", len(e.Failed), e.Attempted)
		for _, f := range e.Failed {
			fmt.Fprintf(&b, "; %s (%s): %v", f.League, f.Key, f.Err)
		}
	}
	return b.String()
}

// Is matches ErrPartialPublish.
func (e *PartialPublishError) Is(target error) bool { return target == ErrPartialPublish }
