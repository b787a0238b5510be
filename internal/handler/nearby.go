package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"komyut/internal/geo"
	"komyut/internal/storage"
)

// radiusTiers are the progressive search radii in meters.
var radiusTiers = []float64{300, 600, 1200, 2400, 4800}

// nextRadius returns the next radius tier above the given radius.
// Returns 0, false if already at or above the maximum.
func nextRadius(current float64) (float64, bool) {
	for _, tier := range radiusTiers {
		if tier > current {
			return tier, true
		}
	}
	return 0, false
}

// limitForRadius scales the result cap with the search area.
func limitForRadius(radiusMeters float64) int {
	switch {
	case radiusMeters <= 300:
		return 10
	case radiusMeters <= 600:
		return 20
	case radiusMeters <= 1200:
		return 30
	case radiusMeters <= 2400:
		return 50
	default:
		return 75
	}
}

// formatDistance renders a walking distance for display.
func formatDistance(meters float64) string {
	if meters < 1000 {
		return strconv.Itoa(int(meters+0.5)) + " m"
	}
	return geo.FormatKm(meters / 1000)
}

type nearbyStop struct {
	storage.NearbyStop
	Distance string `json:"distance"`
}

type nearbyResponse struct {
	Stops   []nearbyStop `json:"stops"`
	RadiusM float64      `json:"radius_m"`
}

// NearbyStops serves GET /api/stops/nearby?lat=&lon=[&radius=].
// When nothing is within the radius it widens through the radius tiers.
func (h *Handler) NearbyStops(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := parseLatLon(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "lat and lon must be valid coordinates")
		return
	}
	radius := radiusTiers[0]
	if s := r.URL.Query().Get("radius"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 || v > radiusTiers[len(radiusTiers)-1] {
			respondError(w, http.StatusBadRequest, "radius must be between 0 and 4800 meters")
			return
		}
		radius = v
	}

	stops, err := h.Nearby.NearbyStops(r.Context(), lat, lon, radius, limitForRadius(radius))
	for err == nil && len(stops) == 0 {
		next, more := nextRadius(radius)
		if !more {
			break
		}
		radius = next
		stops, err = h.Nearby.NearbyStops(r.Context(), lat, lon, radius, limitForRadius(radius))
	}
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	resp := nearbyResponse{Stops: make([]nearbyStop, len(stops)), RadiusM: radius}
	for i, s := range stops {
		resp.Stops[i] = nearbyStop{NearbyStop: s, Distance: formatDistance(s.DistanceMeters)}
	}
	respondJSON(w, http.StatusOK, resp)
}

type locationResponse struct {
	Label string `json:"label"`
}

// LocationLabel serves GET /api/location?lat=&lon=, the street address shown
// for "current location". Returns 204 when no address is available.
func (h *Handler) LocationLabel(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := parseLatLon(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "lat and lon must be valid coordinates")
		return
	}
	if h.Geocoder == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 4*time.Second)
	defer cancel()

	addr, err := h.Geocoder.Reverse(ctx, lat, lon)
	if err != nil || addr == "" {
		if err != nil {
			h.logger.Debug("reverse geocode failed", "error", err)
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, locationResponse{Label: addr})
}

// parseLatLon reads and validates the lat and lon query parameters.
func parseLatLon(r *http.Request) (lat, lon float64, ok bool) {
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err1 != nil || err2 != nil || !geo.ValidCoordinate(lat, lon) {
		return 0, 0, false
	}
	return lat, lon, true
}
