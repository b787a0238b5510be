// Package journey runs the lifecycle of a commuter's trip: started from an
// itinerary candidate, completed once, and rewarded with points.
package journey

import (
	"errors"
	"strings"
	"time"

	"komyut/internal/fare"
	"komyut/internal/itinerary"
)

var (
	// ErrMissingFields rejects a start without a user or both locations.
	ErrMissingFields = errors.New("missing required fields")
	// ErrNotFoundOrCompleted rejects completing an unknown or finished trip.
	ErrNotFoundOrCompleted = errors.New("trip not found or already completed")
)

// Status of a UserTrip. A trip that was never started has no record.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// UserTrip is a persisted journey.
type UserTrip struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	FromLocation string     `json:"from_location"`
	ToLocation   string     `json:"to_location"`
	TransitType  string     `json:"transit_type"`
	RouteName    string     `json:"route_name"`
	DistanceKm   float64    `json:"distance_km"`
	FarePaid     fare.Price `json:"fare_paid"`
	Status       Status     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// StartParams describe the trip to start.
type StartParams struct {
	UserID       string     `json:"-"`
	FromLocation string     `json:"from_location"`
	ToLocation   string     `json:"to_location"`
	TransitType  string     `json:"transit_type"`
	RouteName    string     `json:"route_name"`
	DistanceKm   float64    `json:"distance_km"`
	FarePaid     fare.Price `json:"fare_paid"`
}

func (p StartParams) validate() error {
	if strings.TrimSpace(p.UserID) == "" ||
		strings.TrimSpace(p.FromLocation) == "" ||
		strings.TrimSpace(p.ToLocation) == "" {
		return ErrMissingFields
	}
	return nil
}

// FromCandidate builds StartParams for riding an itinerary candidate.
func FromCandidate(userID string, c itinerary.Candidate) StartParams {
	return StartParams{
		UserID:       userID,
		FromLocation: c.Origin.Name,
		ToLocation:   c.Destination.Name,
		TransitType:  c.ModeLabel,
		RouteName:    c.Route.DisplayName(),
		DistanceKm:   c.DistanceKm,
		FarePaid:     c.Fare.Regular,
	}
}

// Event types published on trip transitions.
const (
	EventTripStarted   = "trip.started"
	EventTripCompleted = "trip.completed"
)

// Event describes one trip transition.
type Event struct {
	Type          string    `json:"type"`
	TripID        string    `json:"trip_id"`
	UserID        string    `json:"user_id"`
	RouteName     string    `json:"route_name,omitempty"`
	PointsAwarded int       `json:"points_awarded,omitempty"`
	At            time.Time `json:"at"`
}
