// Package handler implements the komyut JSON HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"komyut/internal/fare"
	"komyut/internal/itinerary"
	"komyut/internal/journey"
	"komyut/internal/realtime"
	"komyut/internal/storage"
	"komyut/internal/transit"
)

// StopCatalog looks up reference data from the in-memory snapshot.
type StopCatalog interface {
	Search(query string) []transit.Stop
	Stop(id string) (transit.Stop, bool)
	Route(id string) (transit.Route, bool)
}

// NearbyFinder returns boarding stops around a point, closest first.
type NearbyFinder interface {
	NearbyStops(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]storage.NearbyStop, error)
}

// RouteFinder lists the routes connecting two stops.
type RouteFinder interface {
	FindRoutes(ctx context.Context, fromStopID, toStopID string) ([]transit.ConnectedRoute, error)
}

// Planner assembles itineraries.
type Planner interface {
	Search(ctx context.Context, q itinerary.Query) (itinerary.Result, error)
}

// FareEstimator prices one ride.
type FareEstimator interface {
	EstimateFare(ctx context.Context, distanceKm float64, modeCode int, origin, dest transit.Stop, routeID string) []fare.Estimate
}

// TripService runs the trip session state machine.
type TripService interface {
	Start(ctx context.Context, p journey.StartParams) (journey.UserTrip, error)
	CompleteFor(ctx context.Context, userID, tripID string) (journey.UserTrip, error)
	TripsForUser(ctx context.Context, userID string, limit int) ([]journey.UserTrip, error)
	Points(ctx context.Context, userID string) (int, error)
}

// ReverseGeocoder labels a coordinate with an address.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// AlertLister serves the current service alerts.
type AlertLister interface {
	AllAlerts() []realtime.Alert
	AlertsForRoute(routeID string) []realtime.Alert
	AlertsForStop(stopID string) []realtime.Alert
}

// Deps are the collaborators of a Handler. Geocoder and Alerts may be nil.
type Deps struct {
	Catalog  StopCatalog
	Nearby   NearbyFinder
	Routes   RouteFinder
	Planner  Planner
	Fares    FareEstimator
	Trips    TripService
	Geocoder ReverseGeocoder
	Alerts   AlertLister
}

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	Deps
	logger *slog.Logger
}

// New creates a Handler.
func New(d Deps, logger *slog.Logger) *Handler {
	return &Handler{Deps: d, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
	Side  string `json:"side,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondErr maps a service error to a status code. Unexpected errors are
// logged and reported without detail.
func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var locErr *itinerary.LocationError
	switch {
	case errors.As(err, &locErr):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: locErr.Error(), Side: locErr.Side})
	case errors.Is(err, journey.ErrMissingFields):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, journey.ErrNotFoundOrCompleted):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "request timed out")
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
