package handler

import (
	"net/http"

	"komyut/internal/realtime"
)

type alertsResponse struct {
	Alerts []realtime.Alert `json:"alerts"`
}

// ListAlerts serves GET /api/alerts[?route=], the service alerts in effect.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := []realtime.Alert{}
	if h.Alerts != nil {
		if route := r.URL.Query().Get("route"); route != "" {
			alerts = h.Alerts.AlertsForRoute(route)
		} else {
			alerts = h.Alerts.AllAlerts()
		}
	}
	if alerts == nil {
		alerts = []realtime.Alert{}
	}
	respondJSON(w, http.StatusOK, alertsResponse{Alerts: alerts})
}
