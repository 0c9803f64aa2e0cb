package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/onnwee/clip-roulette/backend/telemetry"
)

// Handlers carries the dependencies for the plain HTTP endpoints.
type Handlers struct {
	deps Deps
}

// HandleHealthz responds to liveness probe requests.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleStatus reports live engine state for the frontend and for debugging.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status := struct {
		ConnectedClients  int     `json:"connected_clients"`
		State             string  `json:"state"`
		MutingEnabled     bool    `json:"muting_enabled"`
		CooldownRemaining float64 `json:"cooldown_remaining_seconds"`
		TracingEnabled    bool    `json:"tracing_enabled"`
	}{
		ConnectedClients:  h.deps.Registry.Count(),
		State:             h.deps.Orchestrator.State().String(),
		MutingEnabled:     h.deps.Orchestrator.MutingEnabled(),
		CooldownRemaining: h.deps.Gate.Remaining(time.Now()).Seconds(),
		TracingEnabled:    telemetry.IsTracingEnabled(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}
