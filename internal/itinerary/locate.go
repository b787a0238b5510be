package itinerary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"komyut/internal/geo"
	"komyut/internal/transit"
)

// ErrLocationNotResolvable is matched by every *LocationError.
var ErrLocationNotResolvable = errors.New("location not resolvable")

// Sides of a search.
const (
	SideOrigin      = "origin"
	SideDestination = "destination"
)

// LocationError reports free text that matched no stop and no geocoded
// address near a stop.
type LocationError struct {
	Side string
	Text string
}

func (e *LocationError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("could not resolve %s: no location given", e.Side)
	}
	return fmt.Sprintf("could not resolve %s %q", e.Side, e.Text)
}

func (e *LocationError) Unwrap() error {
	return ErrLocationNotResolvable
}

// LocationProvider supplies the commuter's current position.
type LocationProvider interface {
	CurrentLocation(ctx context.Context) (geo.Point, error)
}

// Fixed is a LocationProvider that always returns the same point.
type Fixed geo.Point

func (f Fixed) CurrentLocation(context.Context) (geo.Point, error) {
	return geo.Point(f), nil
}

const currentLocationText = "current location"

func isCurrentLocation(text string) bool {
	return text == "" || strings.EqualFold(text, currentLocationText)
}

// resolve turns the text of one side into a stop: a stop id, then a Stop
// Index match, then a geocoded address snapped to the nearest stop.
func (a *Assembler) resolve(ctx context.Context, side, stopID, text string, here LocationProvider) (transit.Stop, error) {
	if stopID != "" {
		if s, ok := a.stops.Stop(stopID); ok {
			return s, nil
		}
		return transit.Stop{}, &LocationError{Side: side, Text: stopID}
	}

	text = strings.TrimSpace(text)
	if side == SideOrigin && isCurrentLocation(text) {
		return a.resolveCurrent(ctx, here)
	}
	if text == "" {
		return transit.Stop{}, &LocationError{Side: side}
	}

	if s, ok := bestMatch(a.stops.Search(text), text); ok {
		return s, nil
	}

	if a.geocoder == nil {
		return transit.Stop{}, &LocationError{Side: side, Text: text}
	}
	results, err := a.geocoder.Search(ctx, text)
	if err != nil {
		a.logger.Warn("geocode failed", "side", side, "text", text, "error", err)
		return transit.Stop{}, &LocationError{Side: side, Text: text}
	}
	for _, r := range results {
		s, ok, err := a.snap(ctx, geo.Point{Lat: r.Lat, Lon: r.Lon})
		if err != nil {
			return transit.Stop{}, err
		}
		if ok {
			a.logger.Debug("snapped geocoded address to stop",
				"side", side, "text", text, "address", r.DisplayName, "stop", s.ID)
			return s, nil
		}
	}
	return transit.Stop{}, &LocationError{Side: side, Text: text}
}

func (a *Assembler) resolveCurrent(ctx context.Context, here LocationProvider) (transit.Stop, error) {
	if here == nil {
		return transit.Stop{}, &LocationError{Side: SideOrigin, Text: currentLocationText}
	}
	p, err := here.CurrentLocation(ctx)
	if err != nil || !geo.ValidCoordinate(p.Lat, p.Lon) {
		return transit.Stop{}, &LocationError{Side: SideOrigin, Text: currentLocationText}
	}
	s, ok, err := a.snap(ctx, p)
	if err != nil {
		return transit.Stop{}, err
	}
	if !ok {
		return transit.Stop{}, &LocationError{Side: SideOrigin, Text: currentLocationText}
	}
	return s, nil
}

// snap returns the stop nearest to p within the snap radius.
func (a *Assembler) snap(ctx context.Context, p geo.Point) (transit.Stop, bool, error) {
	stops, err := a.nearest.NearestStops(ctx, p.Lat, p.Lon, a.opts.SnapRadiusMeters, snapCandidates)
	if err != nil {
		return transit.Stop{}, false, fmt.Errorf("nearest stops: %w", err)
	}
	var best transit.Stop
	bestDist, found := 0.0, false
	for _, s := range stops {
		d := geo.Haversine(p.Lat, p.Lon, s.Lat, s.Lon)
		if d > a.opts.SnapRadiusMeters {
			continue
		}
		if !found || d < bestDist {
			best, bestDist, found = s, d, true
		}
	}
	return best, found, nil
}

// bestMatch prefers a stop whose name equals text, else the first hit.
func bestMatch(hits []transit.Stop, text string) (transit.Stop, bool) {
	for _, s := range hits {
		if strings.EqualFold(strings.TrimSpace(s.Name), text) {
			return s, true
		}
	}
	if len(hits) > 0 {
		return hits[0], true
	}
	return transit.Stop{}, false
}
