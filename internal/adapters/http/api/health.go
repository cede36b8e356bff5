package api

import (
	"net/http"

	service "github.com/okian/leaguemodel/internal/app"
)

// StatusProvider reports the running configuration.
type StatusProvider interface {
	Status() service.Status
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	status StatusProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(status StatusProvider) *HealthHandler {
	return &HealthHandler{status: status}
}

type healthResponse struct {
	State string `json:"status"`
	service.Status
}

// HandleHealth handles GET /healthz requests. It answers 503 until the
// service is started.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	st := h.status.Status()
	if !st.Started {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{State: "starting", Status: st})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{State: "ok", Status: st})
}
