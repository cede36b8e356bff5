package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/leaguemodel/internal/checker"
	"github.com/okian/leaguemodel/internal/domain/registry"
)

// VerifyDependencies defines the operations the verify routes need.
type VerifyDependencies interface {
	Verify(ctx context.Context, raw string) (checker.Verification, error)
	VerifyAll(ctx context.Context) ([]checker.Finding, error)
}

// VerifyHandler handles mirror consistency requests.
type VerifyHandler struct {
	deps VerifyDependencies
}

// NewVerifyHandler creates a new verify handler.
func NewVerifyHandler(deps VerifyDependencies) *VerifyHandler {
	return &VerifyHandler{deps: deps}
}

type mirrorEntry struct {
	Key    string                `json:"key"`
	Record registry.MirrorRecord `json:"record"`
}

type difference struct {
	Key       string `json:"key,omitempty"`
	Field     string `json:"field"`
	Canonical string `json:"canonical"`
	Mirror    string `json:"mirror"`
	Forced    bool   `json:"forced,omitempty"`
}

type verifyResponse struct {
	League      string                      `json:"league"`
	Matches     bool                        `json:"matches"`
	Repairable  bool                        `json:"repairable"`
	Canonical   *registry.PerformanceRecord `json:"canonical,omitempty"`
	Mirrors     []mirrorEntry               `json:"mirrors"`
	Differences []difference                `json:"differences"`
}

type finding struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

type verifyAllResponse struct {
	Consistent bool      `json:"consistent"`
	Findings   []finding `json:"findings"`
}

// HandleVerify handles GET /verify/{league} requests. Drift is reported in
// the body with status 200.
func (h *VerifyHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	const op = "api.verify"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	raw, ok := leagueParam(r, "/verify/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", newKind(op, ErrBadRequest))
		return
	}
	v, err := h.deps.Verify(r.Context(), raw)
	if errors.Is(err, checker.ErrCanonicalMissing) {
		writeError(w, http.StatusNotFound, "not_found", wrapKind(op, ErrNotFound, err))
		return
	}
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}

	resp := verifyResponse{
		League:      v.League.String(),
		Matches:     v.Matches,
		Repairable:  v.Repairable(),
		Canonical:   v.Canonical,
		Mirrors:     make([]mirrorEntry, len(v.Mirrors)),
		Differences: make([]difference, len(v.Differences)),
	}
	for i, m := range v.Mirrors {
		resp.Mirrors[i] = mirrorEntry{Key: m.Key, Record: m.Record}
	}
	for i, d := range v.Differences {
		resp.Differences[i] = difference{Key: d.Key, Field: d.Field, Canonical: d.Canonical, Mirror: d.Mirror, Forced: d.Forced}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleVerifyAll handles GET /verify requests.
func (h *VerifyHandler) HandleVerifyAll(w http.ResponseWriter, r *http.Request) {
	const op = "api.verify_all"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	findings, err := h.deps.VerifyAll(r.Context())
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	resp := verifyAllResponse{Consistent: len(findings) == 0, Findings: make([]finding, len(findings))}
	for i, f := range findings {
		resp.Findings[i] = finding{Key: f.Key, Reason: string(f.Reason), Detail: f.Detail}
	}
	writeJSON(w, http.StatusOK, resp)
}
