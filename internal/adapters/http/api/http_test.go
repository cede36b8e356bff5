package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/leaguemodel/internal/adapters/http/api"
	service "github.com/okian/leaguemodel/internal/app"
	"github.com/okian/leaguemodel/internal/checker"
	"github.com/okian/leaguemodel/internal/domain/league"
	"github.com/okian/leaguemodel/internal/domain/probe"
	"github.com/okian/leaguemodel/internal/domain/registry"
	"github.com/okian/leaguemodel/internal/resolver"
)

type mockDependencies struct {
	started    bool
	prober     *probe.Prober
	resolution resolver.Resolution
	resolveErr error
	verify     checker.Verification
	verifyErr  error
	findings   []checker.Finding
	findErr    error
}

func (m *mockDependencies) Status() service.Status {
	return service.Status{Started: m.started, ModelType: "xgboost"}
}

func (m *mockDependencies) Candidates(raw string) (league.ID, []probe.Candidate, error) {
	id, err := league.Parse(raw)
	if err != nil {
		return league.ID{}, nil, err
	}
	return id, m.prober.Candidates(id, false), nil
}

func (m *mockDependencies) Resolve(ctx context.Context, raw string) (resolver.Resolution, error) {
	if m.resolveErr != nil {
		return resolver.Resolution{}, m.resolveErr
	}
	return m.resolution, nil
}

func (m *mockDependencies) Verify(ctx context.Context, raw string) (checker.Verification, error) {
	return m.verify, m.verifyErr
}

func (m *mockDependencies) VerifyAll(ctx context.Context) ([]checker.Finding, error) {
	return m.findings, m.findErr
}

func serve(mux *http.ServeMux, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	So(json.NewDecoder(w.Body).Decode(&body), ShouldBeNil)
	return body
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		id := league.MustParse("4414")
		deps := &mockDependencies{
			started: true,
			prober:  probe.New("models", "models/artifacts"),
			resolution: resolver.Resolution{
				League:    id,
				Path:      "models/league_4414_model_optimized.pkl",
				Candidate: probe.Candidate{Tier: probe.TierLocalPrimary, Scheme: probe.SchemeCurrent, Key: "models/league_4414_model_optimized.pkl"},
			},
		}
		mux := http.NewServeMux()
		api.NewServer(deps).Register(mux)

		Convey("When the health endpoint is called", func() {
			w := serve(mux, http.MethodGet, "/healthz")

			Convey("Then it reports ok with the running configuration", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["status"], ShouldEqual, "ok")
				So(body["authoritative_model_type"], ShouldEqual, "xgboost")
			})
		})

		Convey("When the service is not started", func() {
			deps.started = false
			w := serve(mux, http.MethodGet, "/healthz")

			Convey("Then health is unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When candidates are requested", func() {
			w := serve(mux, http.MethodGet, "/candidates/04414")

			Convey("Then the normalized id and candidate list are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["league"], ShouldEqual, "4414")
				So(body["candidates"], ShouldHaveLength, 4)
			})
		})

		Convey("When an artifact resolves", func() {
			w := serve(mux, http.MethodGet, "/resolve/4414")

			Convey("Then its location is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["path"], ShouldEqual, "models/league_4414_model_optimized.pkl")
				So(body["tier"], ShouldEqual, "local_primary")
			})
		})

		Convey("When an artifact is missing", func() {
			deps.resolveErr = fmt.Errorf("locate: %w", &resolver.NotFoundError{
				League:  id,
				Checked: deps.prober.Candidates(id, false),
			})
			w := serve(mux, http.MethodGet, "/resolve/4414")

			Convey("Then 404 lists every checked location", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				body := decode(w)
				So(body["code"], ShouldEqual, "not_found")
				So(body["checked"], ShouldHaveLength, 4)
			})
		})

		Convey("When the league id is malformed", func() {
			deps.resolveErr = fmt.Errorf("%w: %q", league.ErrInvalidID, "a\\b")
			w := serve(mux, http.MethodGet, "/resolve/x")
			nested := serve(mux, http.MethodGet, "/resolve/44/14")

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(nested.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the resolver fails otherwise", func() {
			deps.resolveErr = errors.New("disk on fire")
			w := serve(mux, http.MethodGet, "/resolve/4414")

			Convey("Then it is an internal error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldContainSubstring, "disk on fire")
			})
		})

		Convey("When a drifted league is verified", func() {
			deps.verify = checker.Verification{
				League: id,
				Mirrors: []checker.MirrorView{{Key: "4414", Record: registry.MirrorRecord{
					LeagueID: "4414", ModelType: "lightgbm", Accuracy: 87.9,
				}}},
				Differences: []checker.Difference{{Key: "4414", Field: checker.FieldModelType, Canonical: `"xgboost"`, Mirror: `"lightgbm"`}},
			}
			w := serve(mux, http.MethodGet, "/verify/4414")

			Convey("Then the body reports the drift", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["matches"], ShouldEqual, false)
				So(body["differences"], ShouldHaveLength, 1)
				So(body["repairable"], ShouldEqual, true)
			})
		})

		Convey("When nothing was ever published", func() {
			deps.verifyErr = checker.ErrCanonicalMissing
			w := serve(mux, http.MethodGet, "/verify/4414")

			Convey("Then verify answers 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When all mirrors are swept", func() {
			deps.findings = []checker.Finding{{Key: "777", Reason: checker.ReasonOrphan, Detail: "no canonical registry entry"}}
			w := serve(mux, http.MethodGet, "/verify")

			Convey("Then findings are listed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["consistent"], ShouldEqual, false)
				So(body["findings"], ShouldHaveLength, 1)
			})
		})

		Convey("When a route is called with the wrong method", func() {
			w := serve(mux, http.MethodPost, "/resolve/4414")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When metrics are scraped after traffic", func() {
			serve(mux, http.MethodGet, "/resolve/4414")
			w := serve(mux, http.MethodGet, "/metrics")

			Convey("Then the request counters are exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.Contains(w.Body.String(), "leaguemodel_registry_http_requests_total"), ShouldBeTrue)
			})
		})
	})
}
