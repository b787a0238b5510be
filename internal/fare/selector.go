package fare

import (
	"context"
	"log/slog"

	"komyut/internal/transit"
)

// Selector picks the fare strategy for a route's mode.
type Selector struct {
	road   *DistanceBanded
	rail   *StationPair
	logger *slog.Logger
}

// NewSelector creates a Selector over the two fare table sources.
func NewSelector(distance DistanceSource, stations StationSource, logger *slog.Logger) *Selector {
	return &Selector{
		road:   NewDistanceBanded(distance),
		rail:   NewStationPair(stations, logger),
		logger: logger,
	}
}

// EstimateFare returns at least one estimate for a ride. Errors and panics
// inside a strategy are logged and replaced by a single placeholder.
func (s *Selector) EstimateFare(ctx context.Context, distanceKm float64, modeCode int, origin, dest transit.Stop, routeID string) (estimates []Estimate) {
	label := transit.ClassifyMode(transit.Route{ID: routeID, ModeCode: modeCode})
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("fare estimation panicked", "route", routeID, "mode", label, "panic", r)
			estimates = []Estimate{Placeholder(label)}
		}
	}()

	estimates, err := s.estimate(ctx, label, distanceKm, origin, dest)
	if err != nil {
		s.logger.Error("fare estimation failed", "route", routeID, "mode", label, "error", err)
		return []Estimate{Placeholder(label)}
	}
	if len(estimates) == 0 {
		return []Estimate{Placeholder(label)}
	}
	return estimates
}

func (s *Selector) estimate(ctx context.Context, label string, distanceKm float64, origin, dest transit.Stop) ([]Estimate, error) {
	switch label {
	case transit.LabelJeepney:
		e, err := s.road.Estimate(ctx, label, distanceKm)
		if err != nil {
			return nil, err
		}
		return []Estimate{e}, nil
	case transit.LabelRail:
		return []Estimate{{
			ModeLabel:   label,
			Fare:        Unavailable,
			Description: "Fare table not available for this rail line",
		}}, nil
	default:
		return s.rail.Estimate(ctx, label, origin, dest)
	}
}
