package handler

import (
	"net/http"

	"komyut/internal/realtime"
	"komyut/internal/transit"
)

type connectedRoute struct {
	transit.ConnectedRoute
	Alerts []realtime.Alert `json:"alerts,omitempty"`
}

type routesResponse struct {
	Routes []connectedRoute `json:"routes"`
}

// ConnectingRoutes serves GET /api/routes?from=&to= with stop ids.
func (h *Handler) ConnectingRoutes(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		respondError(w, http.StatusBadRequest, "from and to stop ids are required")
		return
	}

	routes, err := h.Routes.FindRoutes(r.Context(), from, to)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	resp := routesResponse{Routes: make([]connectedRoute, len(routes))}
	for i, cr := range routes {
		resp.Routes[i] = connectedRoute{ConnectedRoute: cr}
		if h.Alerts != nil {
			resp.Routes[i].Alerts = h.Alerts.AlertsForRoute(cr.Route.ID)
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// RouteDetail serves GET /api/routes/{id}.
func (h *Handler) RouteDetail(w http.ResponseWriter, r *http.Request) {
	route, ok := h.Catalog.Route(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusNotFound, "route not found")
		return
	}
	respondJSON(w, http.StatusOK, struct {
		transit.Route
		ModeLabel string `json:"mode_label"`
	}{route, transit.ClassifyMode(route)})
}
