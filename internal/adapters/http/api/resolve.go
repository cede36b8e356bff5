package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/leaguemodel/internal/domain/league"
	"github.com/okian/leaguemodel/internal/domain/probe"
	"github.com/okian/leaguemodel/internal/resolver"
)

// ResolveDependencies defines the operations the resolve routes need.
type ResolveDependencies interface {
	Candidates(raw string) (league.ID, []probe.Candidate, error)
	Resolve(ctx context.Context, raw string) (resolver.Resolution, error)
}

// ResolveHandler handles artifact resolution requests.
type ResolveHandler struct {
	deps ResolveDependencies
}

// NewResolveHandler creates a new resolve handler.
func NewResolveHandler(deps ResolveDependencies) *ResolveHandler {
	return &ResolveHandler{deps: deps}
}

type candidatesResponse struct {
	League     string            `json:"league"`
	Candidates []probe.Candidate `json:"candidates"`
}

type resolveResponse struct {
	League string `json:"league"`
	Path   string `json:"path"`
	Tier   string `json:"tier"`
	Scheme string `json:"scheme"`
	Key    string `json:"key"`
	Digest string `json:"digest,omitempty"`
	Size   int64  `json:"size,omitempty"`
}

type notFoundResponse struct {
	errorResponse
	Checked   []probe.Candidate `json:"checked"`
	RemoteErr string            `json:"remote_error,omitempty"`
}

// HandleCandidates handles GET /candidates/{league} requests.
func (h *ResolveHandler) HandleCandidates(w http.ResponseWriter, r *http.Request) {
	const op = "api.candidates"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	raw, ok := leagueParam(r, "/candidates/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", newKind(op, ErrBadRequest))
		return
	}
	id, cs, err := h.deps.Candidates(raw)
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, candidatesResponse{League: id.String(), Candidates: cs})
}

// HandleResolve handles GET /resolve/{league} requests. A miss answers 404
// with every checked location.
func (h *ResolveHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	const op = "api.resolve"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	raw, ok := leagueParam(r, "/resolve/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", newKind(op, ErrBadRequest))
		return
	}
	res, err := h.deps.Resolve(r.Context(), raw)
	var nf *resolver.NotFoundError
	if errors.As(err, &nf) {
		body := notFoundResponse{
			errorResponse: errorResponse{Code: "not_found", Message: wrapKind(op, ErrNotFound, err).Error()},
			Checked:       nf.Checked,
		}
		if nf.RemoteErr != nil {
			body.RemoteErr = nf.RemoteErr.Error()
		}
		writeJSON(w, http.StatusNotFound, body)
		return
	}
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{
		League: res.League.String(),
		Path:   res.Path,
		Tier:   string(res.Candidate.Tier),
		Scheme: string(res.Candidate.Scheme),
		Key:    res.Candidate.Key,
		Digest: res.Digest.String(),
		Size:   res.Size,
	})
}

// writeUpstreamError maps service errors to status codes.
func writeUpstreamError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, league.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", wrapKind(op, ErrInternal, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", wrapKind(op, ErrInternal, err))
	}
}
