package api

import (
	"net/http"

	"github.com/pagecraft/ai-router/internal/domain"
)

// HealthReporter exposes the per-model availability view. Optional; when
// nil the health endpoint reports only process liveness.
type HealthReporter interface {
	Statuses() map[string]domain.ModelAvailability
}

// ReadinessCheck verifies a hard dependency before the instance accepts
// traffic. Wired from main with the database and redis pings.
type ReadinessCheck func(r *http.Request) error

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if h.health != nil {
		models := map[string]string{}
		for id, st := range h.health.Statuses() {
			models[id] = string(st)
		}
		resp["models"] = models
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	for _, check := range h.ready {
		if err := check(r); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"reason": err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
