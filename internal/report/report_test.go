package report

import (
	"bytes"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/leaguemodel/internal/checker"
	"github.com/okian/leaguemodel/internal/domain/league"
	"github.com/okian/leaguemodel/internal/domain/probe"
	"github.com/okian/leaguemodel/internal/domain/registry"
	"github.com/okian/leaguemodel/internal/publisher"
	"github.com/okian/leaguemodel/internal/resolver"
)

func TestTables(t *testing.T) {
	Convey("Given league 4414", t, func() {
		id := league.MustParse("4414")
		var buf bytes.Buffer

		Convey("When rendering its candidates", func() {
			cs := probe.New("models", "models/artifacts").Candidates(id, true)
			Candidates(&buf, id, cs)

			Convey("Then every key is listed", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "candidates for league 4414")
				for _, c := range cs {
					So(out, ShouldContainSubstring, c.Key)
				}
			})
		})

		Convey("When rendering a not-found resolution", func() {
			cs := probe.New("models", "models/artifacts").Candidates(id, false)
			NotFound(&buf, &resolver.NotFoundError{League: id, Checked: cs, RemoteErr: errors.New("token expired")})

			Convey("Then the checked list and remote error are shown", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "checked 4 locations")
				So(out, ShouldContainSubstring, "token expired")
				So(out, ShouldContainSubstring, "league_4414_model.pkl")
			})
		})

		Convey("When rendering a publish summary with a failure", func() {
			Publish(&buf, publisher.Summary{
				ModelType:  "xgboost",
				Succeeded:  []league.ID{id},
				Failed:     []publisher.LeagueFailure{{League: league.MustParse("5069"), Key: "5069", Err: errors.New("write rejected")}},
				Overridden: []publisher.Override{{League: id, From: "random_forest", To: "xgboost"}},
			})

			Convey("Then statuses and overrides are shown", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "model_registry/optimized: written")
				So(out, ShouldContainSubstring, "failed")
				So(out, ShouldContainSubstring, "write rejected")
				So(out, ShouldContainSubstring, `forced from "random_forest"`)
				So(out, ShouldContainSubstring, "published 1/2 leagues")
			})
		})

		Convey("When rendering a drifted verification", func() {
			canonical := registry.PerformanceRecord{ModelType: "xgboost", Performance: registry.Performance{WinnerAccuracy: 0.879}}
			Verification(&buf, checker.Verification{
				League:    id,
				Canonical: &canonical,
				Mirrors: []checker.MirrorView{{Key: "4414", Record: registry.MirrorRecord{
					ModelType: "lightgbm", Accuracy: 87.9, AIRating: "9/10",
				}}},
				Differences: []checker.Difference{{Key: "4414", Field: checker.FieldModelType, Canonical: `"xgboost"`, Mirror: `"lightgbm"`}},
			})

			Convey("Then both sides and the difference are shown", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "league 4414: DRIFT")
				So(out, ShouldContainSubstring, "87.90")
				So(out, ShouldContainSubstring, "mirror 4414")
				So(out, ShouldContainSubstring, `model_type[4414]`)
				So(out, ShouldNotContainSubstring, "reconcile will not clear")
			})
		})

		Convey("When rendering drift that publish itself produces", func() {
			canonical := registry.PerformanceRecord{ModelType: "random_forest", Performance: registry.Performance{WinnerAccuracy: 0.71}}
			Verification(&buf, checker.Verification{
				League:    league.MustParse("5069"),
				Canonical: &canonical,
				Mirrors: []checker.MirrorView{{Key: "5069", Record: registry.MirrorRecord{
					ModelType: "xgboost", Accuracy: 71, AIRating: "7/10",
				}}},
				Differences: []checker.Difference{{
					Key: "5069", Field: checker.FieldModelType,
					Canonical: `"random_forest"`, Mirror: `"xgboost"`, Forced: true,
				}},
			})

			Convey("Then the operator is told reconcile will not help", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "(forced on publish)")
				So(out, ShouldContainSubstring, "reconcile will not clear this drift")
			})
		})

		Convey("When rendering sweeps", func() {
			Findings(&buf, nil)
			Findings(&buf, []checker.Finding{{Key: "777", Reason: checker.ReasonOrphan, Detail: "no canonical registry entry"}})

			Convey("Then clean and flagged sweeps read differently", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "all mirror records consistent")
				So(out, ShouldContainSubstring, "orphan")
			})
		})
	})
}

func TestMirrorDiff(t *testing.T) {
	Convey("Given two mirror snapshots", t, func() {
		before := Snapshot{
			Records: map[string]registry.MirrorRecord{
				"4414": {LeagueID: "4414", ModelType: "lightgbm", Accuracy: 87.9},
			},
			Malformed: map[string]string{"777": `{"league_id":`},
		}
		after := Snapshot{
			Records: map[string]registry.MirrorRecord{
				"4414": {LeagueID: "4414", ModelType: "xgboost", Accuracy: 87.9},
			},
		}

		Convey("When they differ", func() {
			diff := MirrorDiff(before, after)
			var buf bytes.Buffer
			Diff(&buf, diff)

			Convey("Then the changed field is rendered", func() {
				So(diff, ShouldNotBeEmpty)
				So(diff, ShouldContainSubstring, "lightgbm")
				So(diff, ShouldContainSubstring, "xgboost")
				So(diff, ShouldContainSubstring, `"777"`)
				So(buf.String(), ShouldContainSubstring, "-before +after")
			})
		})

		Convey("When they are equal", func() {
			var buf bytes.Buffer
			empty := Snapshot{Records: after.Records, Malformed: map[string]string{}}
			Diff(&buf, MirrorDiff(after, empty))

			Convey("Then nothing changed is reported", func() {
				So(buf.String(), ShouldContainSubstring, "unchanged")
			})
		})
	})
}
