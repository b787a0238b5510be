package journey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Store persists trips and points. CompleteTrip must move the trip from
// active to completed and add points to the user in one atomic step, and
// return ErrNotFoundOrCompleted when no active trip had the id.
type Store interface {
	CreateTrip(ctx context.Context, t UserTrip) error
	Trip(ctx context.Context, tripID string) (UserTrip, error)
	CompleteTrip(ctx context.Context, tripID string, completedAt time.Time, points int) (UserTrip, error)
	TripsForUser(ctx context.Context, userID string, limit int) ([]UserTrip, error)
	UserPoints(ctx context.Context, userID string) (int, error)
}

// Notifier receives trip events. Delivery is best effort.
type Notifier interface {
	TripEvent(ctx context.Context, e Event) error
}

// Metrics counts trip transitions.
type Metrics interface {
	TripStarted(transitType string)
	TripCompleted(points int)
}

// DefaultCompletionPoints is awarded for each completed trip.
const DefaultCompletionPoints = 10

// Service starts and completes trips.
type Service struct {
	store    Store
	points   int
	notifier Notifier
	metrics  Metrics
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier publishes trip events.
func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

// WithMetrics counts trip transitions.
func WithMetrics(m Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService creates a Service awarding points per completed trip.
func NewService(store Store, points int, logger *slog.Logger, opts ...Option) *Service {
	if points <= 0 {
		points = DefaultCompletionPoints
	}
	s := &Service{store: store, points: points, now: time.Now, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start records a new active trip. A user may have several active trips.
func (s *Service) Start(ctx context.Context, p StartParams) (UserTrip, error) {
	if err := p.validate(); err != nil {
		return UserTrip{}, err
	}
	t := UserTrip{
		ID:           uuid.NewString(),
		UserID:       p.UserID,
		FromLocation: p.FromLocation,
		ToLocation:   p.ToLocation,
		TransitType:  p.TransitType,
		RouteName:    p.RouteName,
		DistanceKm:   p.DistanceKm,
		FarePaid:     p.FarePaid,
		Status:       StatusActive,
		StartedAt:    s.now().UTC(),
	}
	if err := s.store.CreateTrip(ctx, t); err != nil {
		return UserTrip{}, fmt.Errorf("create trip: %w", err)
	}

	s.logger.Info("trip started", "trip", t.ID, "user", t.UserID, "route", t.RouteName)
	if s.metrics != nil {
		s.metrics.TripStarted(t.TransitType)
	}
	s.notify(ctx, Event{Type: EventTripStarted, TripID: t.ID, UserID: t.UserID, RouteName: t.RouteName, At: t.StartedAt})
	return t, nil
}

// Complete finishes an active trip and awards points exactly once.
// Completing an unknown or already completed trip returns
// ErrNotFoundOrCompleted and changes nothing.
func (s *Service) Complete(ctx context.Context, tripID string) (UserTrip, error) {
	if tripID == "" {
		return UserTrip{}, ErrNotFoundOrCompleted
	}
	t, err := s.store.CompleteTrip(ctx, tripID, s.now().UTC(), s.points)
	if errors.Is(err, ErrNotFoundOrCompleted) {
		return UserTrip{}, err
	}
	if err != nil {
		return UserTrip{}, fmt.Errorf("complete trip %s: %w", tripID, err)
	}

	s.logger.Info("trip completed", "trip", t.ID, "user", t.UserID, "points", s.points)
	if s.metrics != nil {
		s.metrics.TripCompleted(s.points)
	}
	at := s.now().UTC()
	if t.CompletedAt != nil {
		at = *t.CompletedAt
	}
	s.notify(ctx, Event{Type: EventTripCompleted, TripID: t.ID, UserID: t.UserID, RouteName: t.RouteName, PointsAwarded: s.points, At: at})
	return t, nil
}

// CompleteFor completes a trip on behalf of userID. A trip owned by someone
// else is reported as ErrNotFoundOrCompleted, same as a missing one.
func (s *Service) CompleteFor(ctx context.Context, userID, tripID string) (UserTrip, error) {
	if userID == "" || tripID == "" {
		return UserTrip{}, ErrNotFoundOrCompleted
	}
	t, err := s.store.Trip(ctx, tripID)
	if errors.Is(err, ErrNotFoundOrCompleted) {
		return UserTrip{}, err
	}
	if err != nil {
		return UserTrip{}, fmt.Errorf("load trip %s: %w", tripID, err)
	}
	if t.UserID != userID {
		return UserTrip{}, ErrNotFoundOrCompleted
	}
	return s.Complete(ctx, tripID)
}

// TripsForUser returns a user's trips, newest first.
func (s *Service) TripsForUser(ctx context.Context, userID string, limit int) ([]UserTrip, error) {
	if userID == "" {
		return nil, ErrMissingFields
	}
	trips, err := s.store.TripsForUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("trips for user: %w", err)
	}
	if trips == nil {
		trips = []UserTrip{}
	}
	return trips, nil
}

// Points returns a user's cumulative score.
func (s *Service) Points(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrMissingFields
	}
	p, err := s.store.UserPoints(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("user points: %w", err)
	}
	return p, nil
}

func (s *Service) notify(ctx context.Context, e Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.TripEvent(ctx, e); err != nil {
		s.logger.Warn("trip event not published", "type", e.Type, "trip", e.TripID, "error", err)
	}
}
