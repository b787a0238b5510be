package handler

import (
	"math"
	"net/http"
	"strconv"

	"komyut/internal/fare"
	"komyut/internal/geo"
	"komyut/internal/transit"
)

type faresResponse struct {
	DistanceKm float64         `json:"distance_km"`
	Distance   string          `json:"distance"`
	Fares      []fare.Estimate `json:"fares"`
}

// EstimateFares serves GET /api/fares?mode_code=&route_id=[&distance_km=][&from=&to=].
// from and to are stop ids; they are needed for station-priced rail lines and
// supply the distance when distance_km is omitted.
func (h *Handler) EstimateFares(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	modeCode, err := strconv.Atoi(q.Get("mode_code"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "mode_code must be a GTFS route_type")
		return
	}

	var origin, dest transit.Stop
	if id := q.Get("from"); id != "" {
		if origin, err = h.stop(id); err != nil {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
	}
	if id := q.Get("to"); id != "" {
		if dest, err = h.stop(id); err != nil {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
	}

	var km float64
	switch s := q.Get("distance_km"); {
	case s != "":
		km, err = strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(km) || math.IsInf(km, 0) || km < 0 {
			respondError(w, http.StatusBadRequest, "distance_km must be a non-negative number")
			return
		}
	case origin.ID != "" && dest.ID != "":
		km = geo.HaversineKm(origin.Lat, origin.Lon, dest.Lat, dest.Lon)
	default:
		respondError(w, http.StatusBadRequest, "distance_km or both from and to are required")
		return
	}

	estimates := h.Fares.EstimateFare(r.Context(), km, modeCode, origin, dest, q.Get("route_id"))
	respondJSON(w, http.StatusOK, faresResponse{
		DistanceKm: km,
		Distance:   geo.FormatKm(km),
		Fares:      estimates,
	})
}

type stopNotFound string

func (e stopNotFound) Error() string { return "stop " + string(e) + " not found" }

func (h *Handler) stop(id string) (transit.Stop, error) {
	s, ok := h.Catalog.Stop(id)
	if !ok {
		return transit.Stop{}, stopNotFound(id)
	}
	return s, nil
}
