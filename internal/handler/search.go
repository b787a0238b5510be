package handler

import (
	"net/http"

	"komyut/internal/transit"
)

type stopsResponse struct {
	Stops []transit.Stop `json:"stops"`
}

// SearchStops serves GET /api/stops?q=, the type-ahead stop lookup.
// Queries shorter than two characters return an empty list.
func (h *Handler) SearchStops(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	respondJSON(w, http.StatusOK, stopsResponse{Stops: h.Catalog.Search(q)})
}
