// Package registry models the canonical model registry document and the
// per-league mirror records derived from it.
package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/okian/leaguemodel/internal/domain/league"
)

// Document-store layout.
const (
	RegistryCollection = "model_registry"
	RegistryKey        = "optimized"
	MirrorCollection   = "league_metrics"
)

// Performance holds the evaluation metrics of one trained model.
type Performance struct {
	WinnerAccuracy float64 `json:"winner_accuracy"`
	OverallMAE     float64 `json:"overall_mae"`
	HomeMAE        float64 `json:"home_mae"`
	AwayMAE        float64 `json:"away_mae"`
}

// PerformanceRecord is one league entry of the canonical registry.
type PerformanceRecord struct {
	Name          string      `json:"name,omitempty"`
	TrainingGames int         `json:"training_games"`
	TrainedAt     string      `json:"trained_at"`
	ModelType     string      `json:"model_type"`
	Performance   Performance `json:"performance"`
}

// Registry is the canonical aggregate document. Leagues is keyed by the raw
// id as written by the training step.
type Registry struct {
	Leagues     map[string]PerformanceRecord `json:"leagues"`
	LastUpdated string                       `json:"last_updated"`
}

// Entry pairs a parsed league id with its record.
type Entry struct {
	ID     league.ID
	Record PerformanceRecord
}

// Decode reads a registry document and validates its league keys.
func Decode(r io.Reader) (*Registry, error) {
	var reg Registry
	dec := json.NewDecoder(r)
	if err := dec.Decode(&reg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRegistry, err)
	}
	if _, err := reg.Entries(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Unmarshal is Decode for an in-memory document.
func Unmarshal(data []byte) (*Registry, error) {
	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRegistry, err)
	}
	if _, err := reg.Entries(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Marshal encodes the registry as stored in the document store.
func (r *Registry) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Entries returns the leagues in stable order. Two raw keys that normalize
// to the same league are rejected.
func (r *Registry) Entries() ([]Entry, error) {
	entries := make([]Entry, 0, len(r.Leagues))
	seen := make(map[string]string, len(r.Leagues))
	for raw, rec := range r.Leagues {
		id, err := league.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRegistry, err)
		}
		if prev, dup := seen[id.String()]; dup {
			return nil, fmt.Errorf("%w: keys %q and %q name league %s", ErrDuplicateLeague, prev, raw, id)
		}
		seen[id.String()] = raw
		entries = append(entries, Entry{ID: id, Record: rec})
	}
	ids := make([]league.ID, len(entries))
	byID := make(map[string]Entry, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		byID[e.ID.String()] = e
	}
	league.Sort(ids)
	for i, id := range ids {
		entries[i] = byID[id.String()]
	}
	return entries, nil
}

// Lookup finds the entry for id regardless of which encoding the document used.
func (r *Registry) Lookup(id league.ID) (Entry, bool) {
	if rec, ok := r.Leagues[id.Raw()]; ok {
		return Entry{ID: id, Record: rec}, true
	}
	for raw, rec := range r.Leagues {
		parsed, err := league.Parse(raw)
		if err == nil && parsed.Equal(id) {
			return Entry{ID: parsed, Record: rec}, true
		}
	}
	return Entry{}, false
}

// AccuracyPercent converts a winner accuracy fraction to a percentage
// rounded to two decimals.
func AccuracyPercent(winnerAccuracy float64) float64 {
	return math.Round(winnerAccuracy*10_000) / 100
}

// RatingBand maps an accuracy percentage to its display rating. Each band
// includes its lower bound.
func RatingBand(accuracy float64) string {
	switch {
	case accuracy >= 80:
		return "9/10"
	case accuracy >= 75:
		return "8/10"
	case accuracy >= 70:
		return "7/10"
	case accuracy >= 65:
		return "6/10"
	case accuracy >= 60:
		return "5/10"
	default:
		return "4/10"
	}
}
