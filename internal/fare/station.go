package fare

import (
	"context"
	"fmt"
	"log/slog"

	"komyut/internal/transit"
)

// StationFare is one row of a rail fare matrix. Rows come in two shapes:
// single-journey/stored-value tariffs (LRT-1, LRT-2) or a single Fare
// tariff (MRT-3, PNR). Columns absent from a row are NA.
type StationFare struct {
	System        string `json:"system"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	SingleJourney Price  `json:"single_journey"`
	StoredValue   Price  `json:"stored_value"`
	Fare          Price  `json:"fare"`
	Discounted    Price  `json:"discounted"`
}

// Estimates normalizes either row shape into fare estimates. It returns
// false when the row carries no usable tariff.
func (r StationFare) Estimates() ([]Estimate, bool) {
	if r.SingleJourney.Available || r.StoredValue.Available {
		var out []Estimate
		if r.SingleJourney.Available {
			out = append(out, Estimate{
				ModeLabel:   r.System,
				Fare:        r.withDiscount(r.SingleJourney, r.Discounted),
				Description: "Single journey ticket",
			})
		}
		if r.StoredValue.Available {
			out = append(out, Estimate{
				ModeLabel:   r.System,
				Fare:        r.withDiscount(r.StoredValue, NA),
				Description: "Stored value card",
			})
		}
		return out, true
	}
	if r.Fare.Available {
		return []Estimate{{
			ModeLabel:   r.System,
			Fare:        r.withDiscount(r.Fare, r.Discounted),
			Description: fmt.Sprintf("%s fare", r.System),
		}}, true
	}
	return nil, false
}

func (r StationFare) withDiscount(regular, discounted Price) Fare {
	if !discounted.Available {
		discounted = Amount(regular.Amount.Discounted())
	}
	return Fare{Regular: regular, Discounted: discounted}
}

// StationSource looks up a fare row by normalized station keys.
type StationSource interface {
	StationFare(ctx context.Context, system, originKey, destinationKey string) (StationFare, bool, error)
}

// StationPair prices rail rides from origin/destination station tables.
type StationPair struct {
	src    StationSource
	logger *slog.Logger
}

// NewStationPair creates the rail strategy.
func NewStationPair(src StationSource, logger *slog.Logger) *StationPair {
	return &StationPair{src: src, logger: logger}
}

// Estimate prices a ride between two stops of system. The pair is tried in
// both directions. An unmatched pair is logged and returned as N/A.
func (s *StationPair) Estimate(ctx context.Context, system string, origin, dest transit.Stop) ([]Estimate, error) {
	from, to := NormalizeStation(origin.Name), NormalizeStation(dest.Name)

	row, ok, err := s.src.StationFare(ctx, system, from, to)
	if err != nil {
		return nil, fmt.Errorf("station fare %s %q -> %q: %w", system, from, to, err)
	}
	if !ok {
		row, ok, err = s.src.StationFare(ctx, system, to, from)
		if err != nil {
			return nil, fmt.Errorf("station fare %s %q -> %q: %w", system, to, from, err)
		}
	}
	if ok {
		if estimates, usable := row.Estimates(); usable {
			return estimates, nil
		}
	}

	s.logger.Warn("station fare not found",
		"system", system,
		"origin", origin.Name, "origin_key", from,
		"destination", dest.Name, "destination_key", to)
	return []Estimate{{
		ModeLabel:   system,
		Fare:        Unavailable,
		Description: fmt.Sprintf("No %s fare for %s to %s", system, origin.Name, dest.Name),
	}}, nil
}
