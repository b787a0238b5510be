package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"komyut/internal/itinerary"
	"komyut/internal/journey"
)

const (
	maxBodyBytes     = 64 << 10
	defaultTripLimit = 20
	maxTripLimit     = 100
)

type startTripRequest struct {
	journey.StartParams
	Candidate *itinerary.Candidate `json:"candidate,omitempty"`
}

// StartTrip serves POST /api/trips. The body is either {"candidate": ...}
// holding an itinerary candidate as returned by /api/itineraries, or the
// loose fields from_location, to_location, transit_type, route_name,
// distance_km and fare_paid.
func (h *Handler) StartTrip(w http.ResponseWriter, r *http.Request) {
	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	var req startTripRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid trip body: "+err.Error())
		return
	}
	p := req.StartParams
	if req.Candidate != nil {
		p = journey.FromCandidate(userID, *req.Candidate)
	}
	p.UserID = userID

	t, err := h.Trips.Start(r.Context(), p)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// CompleteTrip serves POST /api/trips/{id}/complete.
// Completing twice, or completing another user's trip, is a 409.
func (h *Handler) CompleteTrip(w http.ResponseWriter, r *http.Request) {
	userID := requireUser(w, r)
	if userID == "" {
		return
	}
	t, err := h.Trips.CompleteFor(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

type tripsResponse struct {
	Trips []journey.UserTrip `json:"trips"`
}

// MyTrips serves GET /api/trips[?limit=], newest first.
func (h *Handler) MyTrips(w http.ResponseWriter, r *http.Request) {
	userID := requireUser(w, r)
	if userID == "" {
		return
	}
	limit := defaultTripLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxTripLimit)
	}

	trips, err := h.Trips.TripsForUser(r.Context(), userID, limit)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tripsResponse{Trips: trips})
}

type pointsResponse struct {
	UserID string `json:"user_id"`
	Points int    `json:"points"`
}

// MyPoints serves GET /api/me/points.
func (h *Handler) MyPoints(w http.ResponseWriter, r *http.Request) {
	userID := requireUser(w, r)
	if userID == "" {
		return
	}
	p, err := h.Trips.Points(r.Context(), userID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pointsResponse{UserID: userID, Points: p})
}
