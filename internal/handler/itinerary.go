package handler

import (
	"net/http"
	"strings"

	"komyut/internal/geo"
	"komyut/internal/itinerary"
)

// Itineraries serves GET /api/itineraries.
//
// Either side may be given as free text (from, to) or a stop id (from_stop,
// to_stop). With lat and lon set, an empty or "current location" origin
// resolves to the stop nearest that point.
func (h *Handler) Itineraries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := itinerary.Query{
		FromText:   strings.TrimSpace(q.Get("from")),
		ToText:     strings.TrimSpace(q.Get("to")),
		FromStopID: q.Get("from_stop"),
		ToStopID:   q.Get("to_stop"),
	}
	if q.Get("lat") != "" || q.Get("lon") != "" {
		lat, lon, ok := parseLatLon(r)
		if !ok {
			respondError(w, http.StatusBadRequest, "lat and lon must be valid coordinates")
			return
		}
		query.Here = itinerary.Fixed(geo.Point{Lat: lat, Lon: lon})
	}
	if query.ToText == "" && query.ToStopID == "" {
		respondError(w, http.StatusBadRequest, "destination is required")
		return
	}

	res, err := h.Planner.Search(r.Context(), query)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
