package handler

import (
	"net/http"

	"komyut/internal/realtime"
	"komyut/internal/transit"
)

type stopDetail struct {
	transit.Stop
	Alerts []realtime.Alert `json:"alerts,omitempty"`
}

// StopDetail serves GET /api/stops/{id}.
func (h *Handler) StopDetail(w http.ResponseWriter, r *http.Request) {
	stop, ok := h.Catalog.Stop(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusNotFound, "stop not found")
		return
	}
	d := stopDetail{Stop: stop}
	if h.Alerts != nil {
		d.Alerts = h.Alerts.AlertsForStop(stop.ID)
	}
	respondJSON(w, http.StatusOK, d)
}
