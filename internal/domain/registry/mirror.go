package registry

import (
	"encoding/json"
	"fmt"

	"github.com/okian/leaguemodel/internal/domain/league"
)

// MirrorRecord is the denormalized per-league projection stored for point lookups.
type MirrorRecord struct {
	LeagueID      string  `json:"league_id"`
	Name          string  `json:"name,omitempty"`
	ModelType     string  `json:"model_type"`
	Accuracy      float64 `json:"accuracy"`
	OverallMAE    float64 `json:"overall_mae"`
	HomeMAE       float64 `json:"home_mae"`
	AwayMAE       float64 `json:"away_mae"`
	TrainingGames int     `json:"training_games"`
	TrainedAt     string  `json:"trained_at"`
	AIRating      string  `json:"ai_rating"`
	LastUpdated   string  `json:"last_updated"`
}

// BuildMirror projects a canonical entry. modelType replaces the entry's own
// tag; lastUpdated is the registry-wide timestamp, so the result depends on
// the inputs only.
func BuildMirror(id league.ID, rec PerformanceRecord, modelType, lastUpdated string) MirrorRecord {
	accuracy := AccuracyPercent(rec.Performance.WinnerAccuracy)
	return MirrorRecord{
		LeagueID:      id.String(),
		Name:          rec.Name,
		ModelType:     modelType,
		Accuracy:      accuracy,
		OverallMAE:    rec.Performance.OverallMAE,
		HomeMAE:       rec.Performance.HomeMAE,
		AwayMAE:       rec.Performance.AwayMAE,
		TrainingGames: rec.TrainingGames,
		TrainedAt:     rec.TrainedAt,
		AIRating:      RatingBand(accuracy),
		LastUpdated:   lastUpdated,
	}
}

// Marshal encodes the mirror record.
func (m MirrorRecord) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalMirror decodes a stored mirror record.
func UnmarshalMirror(data []byte) (MirrorRecord, error) {
	var m MirrorRecord
	if err := json.Unmarshal(data, &m); err != nil {
		return MirrorRecord{}, fmt.Errorf("%w: %w", ErrMalformedMirror, err)
	}
	return m, nil
}
