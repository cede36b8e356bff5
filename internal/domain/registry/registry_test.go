package registry

import (
	"errors"
	"strings"
	"testing"

	"github.com/okian/leaguemodel/internal/domain/league"
	. "github.com/smartystreets/goconvey/convey"
)

const sampleRegistry = `{
  "leagues": {
    "4414": {"name": "Premier", "training_games": 1520, "trained_at": "2026-09-30T04:00:00Z",
             "model_type": "xgboost",
             "performance": {"winner_accuracy": 0.879, "overall_mae": 1.1, "home_mae": 0.9, "away_mae": 0.8}},
    "39":   {"training_games": 800, "trained_at": "2026-09-30T04:00:00Z", "model_type": "random_forest",
             "performance": {"winner_accuracy": 0.61}}
  },
  "last_updated": "2026-09-30T04:10:00Z"
}`

func TestRatingBand(t *testing.T) {
	Convey("Given accuracy percentages", t, func() {
		cases := map[float64]string{
			100: "9/10", 82: "9/10", 80: "9/10",
			79.99: "8/10", 77: "8/10", 75: "8/10",
			71: "7/10", 70: "7/10",
			66: "6/10", 65: "6/10",
			61: "5/10", 60: "5/10",
			59.99: "4/10", 50: "4/10", 0: "4/10",
		}

		Convey("Then each maps to its band, lower bounds inclusive", func() {
			for accuracy, want := range cases {
				So(RatingBand(accuracy), ShouldEqual, want)
			}
		})
	})
}

func TestAccuracyPercent(t *testing.T) {
	Convey("Given a winner accuracy fraction", t, func() {
		Convey("Then it converts to a rounded percentage", func() {
			So(AccuracyPercent(0.879), ShouldEqual, 87.9)
			So(AccuracyPercent(0.61234), ShouldEqual, 61.23)
			So(AccuracyPercent(0), ShouldEqual, 0.0)
		})
	})
}

func TestDecode(t *testing.T) {
	Convey("Given a registry document", t, func() {
		reg, err := Decode(strings.NewReader(sampleRegistry))
		So(err, ShouldBeNil)

		Convey("Then entries come back in numeric order", func() {
			entries, err := reg.Entries()
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 2)
			So(entries[0].ID.String(), ShouldEqual, "39")
			So(entries[1].ID.String(), ShouldEqual, "4414")
			So(entries[1].Record.Performance.WinnerAccuracy, ShouldEqual, 0.879)
		})

		Convey("Then lookup accepts either encoding", func() {
			entry, ok := reg.Lookup(league.MustParse("04414"))
			So(ok, ShouldBeTrue)
			So(entry.Record.Name, ShouldEqual, "Premier")

			_, ok = reg.Lookup(league.MustParse("5069"))
			So(ok, ShouldBeFalse)
		})

		Convey("Then it round-trips through Marshal", func() {
			data, err := reg.Marshal()
			So(err, ShouldBeNil)
			back, err := Unmarshal(data)
			So(err, ShouldBeNil)
			So(back, ShouldResemble, reg)
		})
	})

	Convey("Given a document with two encodings of one league", t, func() {
		doc := `{"leagues": {"4414": {"model_type": "xgboost"}, "04414": {"model_type": "xgboost"}}}`
		_, err := Decode(strings.NewReader(doc))

		Convey("Then it is rejected", func() {
			So(errors.Is(err, ErrDuplicateLeague), ShouldBeTrue)
		})
	})

	Convey("Given malformed JSON", t, func() {
		_, err := Decode(strings.NewReader(`{"leagues": [`))

		Convey("Then it is rejected", func() {
			So(errors.Is(err, ErrMalformedRegistry), ShouldBeTrue)
		})
	})
}

func TestBuildMirror(t *testing.T) {
	Convey("Given a canonical entry whose model type differs", t, func() {
		rec := PerformanceRecord{
			Name:          "Premier",
			TrainingGames: 1520,
			TrainedAt:     "2026-09-30T04:00:00Z",
			ModelType:     "random_forest",
			Performance:   Performance{WinnerAccuracy: 0.879, OverallMAE: 1.1, HomeMAE: 0.9, AwayMAE: 0.8},
		}
		m := BuildMirror(league.MustParse("4414"), rec, "xgboost", "2026-09-30T04:10:00Z")

		Convey("Then the authoritative type is forced and the band computed", func() {
			So(m.LeagueID, ShouldEqual, "4414")
			So(m.ModelType, ShouldEqual, "xgboost")
			So(m.Accuracy, ShouldEqual, 87.9)
			So(m.AIRating, ShouldEqual, "9/10")
			So(m.TrainingGames, ShouldEqual, 1520)
			So(m.LastUpdated, ShouldEqual, "2026-09-30T04:10:00Z")
		})

		Convey("Then it survives a storage round trip", func() {
			data, err := m.Marshal()
			So(err, ShouldBeNil)
			back, err := UnmarshalMirror(data)
			So(err, ShouldBeNil)
			So(back, ShouldResemble, m)
		})
	})

	Convey("Given a corrupt stored mirror", t, func() {
		_, err := UnmarshalMirror([]byte("not json"))

		Convey("Then decoding fails with a typed error", func() {
			So(errors.Is(err, ErrMalformedMirror), ShouldBeTrue)
		})
	})
}
