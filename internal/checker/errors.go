package checker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/leaguemodel/internal/domain/league"
)

// Sentinel kinds for checker errors.
var (
	ErrDrift             = errors.New("mirror drift")
	ErrCanonicalMissing  = errors.New("canonical registry missing")
	ErrInvalidVerifyArgs = errors.New("invalid verify arguments")
)

// DriftError reports a league whose mirrors disagree with the canonical entry.
type DriftError struct {
	League      league.ID
	Differences []Difference
}

func (e *DriftError) Error() string {
	parts := make([]string, len(e.Differences))
	for i, d := range e.Differences {
		parts[i] = d.String()
	}
	return fmt.Sprintf("%s for league %s: %s", ErrDrift, e.League, strings.Join(parts, "; "))
}

// Is matches ErrDrift.
func (e *DriftError) Is(target error) bool { return target == ErrDrift }

// FindingsError reports a store-wide sweep that flagged mirrors.
type FindingsError struct {
	Findings []Finding
}

func (e *FindingsError) Error() string {
	return fmt.Sprintf("%s: %d mirror records flagged", ErrDrift, len(e.Findings))
}

// Is matches ErrDrift.
func (e *FindingsError) Is(target error) bool { return target == ErrDrift }

// FindingsErr returns a *FindingsError when findings is non-empty.
func FindingsErr(findings []Finding) error {
	if len(findings) == 0 {
		return nil
	}
	return &FindingsError{Findings: findings}
}
