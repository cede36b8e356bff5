// Package checker compares stored mirror records with the canonical registry
// and reports drift. It never rewrites a mirror; repairs go through Purge and
// a fresh publish.
package checker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/okian/leaguemodel/internal/adapters/repository"
	"github.com/okian/leaguemodel/internal/domain/league"
	"github.com/okian/leaguemodel/internal/domain/registry"
	"github.com/okian/leaguemodel/pkg/logger"
	"github.com/okian/leaguemodel/pkg/metrics"
)

// Defaults.
const (
	DefaultModelType = "xgboost"
	DefaultTolerance = 0.1
)

// Compared fields.
const (
	FieldModelType = "model_type"
	FieldAccuracy  = "accuracy"
	FieldMirror    = "mirror"
	FieldCanonical = "canonical"
)

// Difference is one disagreement between a mirror and its canonical entry.
type Difference struct {
	Key       string
	Field     string
	Canonical string
	Mirror    string
	// Forced marks a model type that publish set to the authoritative tag.
	// Republishing reproduces it; only correcting the canonical entry clears it.
	Forced bool
}

func (d Difference) String() string {
	var s string
	if d.Key == "" {
		s = fmt.Sprintf("%s: canonical %s, mirror %s", d.Field, d.Canonical, d.Mirror)
	} else {
		s = fmt.Sprintf("%s[%s]: canonical %s, mirror %s", d.Field, d.Key, d.Canonical, d.Mirror)
	}
	if d.Forced {
		s += " (forced on publish)"
	}
	return s
}

// MirrorView is a mirror record found under Key.
type MirrorView struct {
	Key    string
	Record registry.MirrorRecord
}

// Verification is the result of checking one league.
//
// A league whose canonical model_type differs from the authoritative tag never
// matches: publish forces the mirror to the authoritative tag, so the mirror
// disagrees with its canonical entry after every publish and reconcile. Such
// differences carry Forced and Repairable reports false.
type Verification struct {
	League      league.ID
	Matches     bool
	Canonical   *registry.PerformanceRecord
	Mirrors     []MirrorView
	Differences []Difference
}

// Err returns a *DriftError when the league does not match.
func (v Verification) Err() error {
	if v.Matches {
		return nil
	}
	return &DriftError{League: v.League, Differences: v.Differences}
}

// Repairable reports whether a reconcile can clear the drift, i.e. at least
// one difference was not produced by publish itself.
func (v Verification) Repairable() bool {
	for _, d := range v.Differences {
		if !d.Forced {
			return true
		}
	}
	return false
}

// Checker verifies mirror records against the canonical registry.
type Checker struct {
	store     repository.Store
	modelType string
	tolerance float64
	logger    logger.Logger
}

// New creates a Checker.
func New(store repository.Store, opts ...Option) *Checker {
	c := &Checker{
		store:     store,
		modelType: DefaultModelType,
		tolerance: DefaultTolerance,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verify compares every mirror key of id with the canonical entry. model_type
// must match exactly and accuracy within the tolerance. A league with no
// mirror or no canonical entry does not match.
func (c *Checker) Verify(ctx context.Context, id league.ID) (Verification, error) {
	if id.IsZero() {
		return Verification{}, fmt.Errorf("%w: empty league id", ErrInvalidVerifyArgs)
	}
	reg, err := c.store.Canonical(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Verification{}, fmt.Errorf("%w: %w", ErrCanonicalMissing, err)
		}
		return Verification{}, err
	}

	v := Verification{League: id}
	keys := id.Keys(true)
	entry, ok := reg.Lookup(id)
	if ok {
		rec := entry.Record
		v.Canonical = &rec
		keys = mergeKeys(keys, entry.ID.Keys(true))
	} else {
		v.Differences = append(v.Differences, Difference{Field: FieldCanonical, Canonical: "missing", Mirror: "-"})
	}

	for _, key := range keys {
		m, err := c.store.Mirror(ctx, key)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return Verification{}, fmt.Errorf("read mirror %s: %w", key, err)
		}
		v.Mirrors = append(v.Mirrors, MirrorView{Key: key, Record: m})
		if v.Canonical != nil {
			v.Differences = append(v.Differences, c.compare(key, *v.Canonical, m)...)
		}
	}
	if len(v.Mirrors) == 0 {
		v.Differences = append(v.Differences, Difference{Field: FieldMirror, Canonical: "present", Mirror: "missing"})
	}

	v.Matches = len(v.Differences) == 0
	metrics.RecordVerification(v.Matches)
	for _, d := range v.Differences {
		metrics.RecordDriftFinding(d.Field)
	}
	if !v.Matches {
		c.logger.Warn(ctx, "mirror drift detected",
			logger.String("league", id.String()),
			logger.Int("differences", len(v.Differences)),
		)
	}
	return v, nil
}

func (c *Checker) compare(key string, canonical registry.PerformanceRecord, m registry.MirrorRecord) []Difference {
	var diffs []Difference
	if m.ModelType != canonical.ModelType {
		diffs = append(diffs, Difference{
			Key:       key,
			Field:     FieldModelType,
			Canonical: strconv.Quote(canonical.ModelType),
			Mirror:    strconv.Quote(m.ModelType),
			Forced:    m.ModelType == c.modelType,
		})
	}
	want := registry.AccuracyPercent(canonical.Performance.WinnerAccuracy)
	if math.Abs(m.Accuracy-want) >= c.tolerance {
		diffs = append(diffs, Difference{
			Key:       key,
			Field:     FieldAccuracy,
			Canonical: strconv.FormatFloat(want, 'f', -1, 64),
			Mirror:    strconv.FormatFloat(m.Accuracy, 'f', -1, 64),
		})
	}
	return diffs
}

func mergeKeys(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, k := range append(append([]string{}, a...), b...) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
