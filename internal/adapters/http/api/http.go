// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/leaguemodel/internal/checker"
	"github.com/okian/leaguemodel/internal/domain/league"
	"github.com/okian/leaguemodel/internal/domain/probe"
	"github.com/okian/leaguemodel/internal/resolver"
	"github.com/okian/leaguemodel/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatusProvider

	Candidates(raw string) (league.ID, []probe.Candidate, error)
	Resolve(ctx context.Context, raw string) (resolver.Resolution, error)
	Verify(ctx context.Context, raw string) (checker.Verification, error)
	VerifyAll(ctx context.Context) ([]checker.Finding, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	resolveHandler *ResolveHandler
	verifyHandler  *VerifyHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		resolveHandler: NewResolveHandler(deps),
		verifyHandler:  NewVerifyHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/candidates/", MetricsMiddleware(s.resolveHandler.HandleCandidates, "candidates"))
	mux.HandleFunc("/resolve/", MetricsMiddleware(s.resolveHandler.HandleResolve, "resolve"))
	mux.HandleFunc("/verify/", MetricsMiddleware(s.verifyHandler.HandleVerify, "verify"))
	mux.HandleFunc("/verify", MetricsMiddleware(s.verifyHandler.HandleVerifyAll, "verify_all"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// leagueParam extracts the single path segment after prefix.
func leagueParam(r *http.Request, prefix string) (string, bool) {
	raw := strings.TrimPrefix(r.URL.Path, prefix)
	if strings.TrimSpace(raw) == "" || strings.Contains(raw, "/") {
		return "", false
	}
	return raw, true
}
