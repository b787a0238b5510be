package itinerary

import (
	"context"

	"golang.org/x/sync/errgroup"

	"komyut/internal/fare"
	"komyut/internal/geo"
	"komyut/internal/transit"
)

// gather builds one candidate per route concurrently and waits for all of
// them. A task never fails: its errors and panics degrade its own fare to
// a placeholder.
func (a *Assembler) gather(ctx context.Context, origin, dest transit.Stop, routes []transit.ConnectedRoute) []Candidate {
	candidates := make([]Candidate, len(routes))

	var g errgroup.Group
	g.SetLimit(a.opts.Concurrency)
	for i, cr := range routes {
		g.Go(func() error {
			candidates[i] = a.candidate(ctx, origin, dest, cr)
			return nil
		})
	}
	_ = g.Wait()

	for i := range candidates {
		c := &candidates[i]
		c.Distance = geo.FormatKm(c.DistanceKm)
		if !c.Fare.Available() && a.metrics != nil {
			a.metrics.FareUnavailable(c.ModeLabel)
		}
	}
	return candidates
}

func (a *Assembler) candidate(ctx context.Context, origin, dest transit.Stop, cr transit.ConnectedRoute) (c Candidate) {
	c = Candidate{
		Origin:      origin,
		Destination: dest,
		Route:       cr.Route,
		Headsign:    cr.Headsign,
		ModeLabel:   cr.ModeLabel,
		DistanceKm:  geo.HaversineKm(origin.Lat, origin.Lon, dest.Lat, dest.Lon),
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("itinerary candidate panicked", "route", cr.Route.ID, "panic", r)
			p := fare.Placeholder(cr.ModeLabel)
			c.Fares = []fare.Estimate{p}
			c.Fare = p.Fare
		}
	}()

	if a.opts.PathDistance && a.paths != nil {
		c.DistanceKm = a.pathDistance(ctx, cr.Route.ID, origin, dest, c.DistanceKm)
	}

	c.Fares = a.fares.EstimateFare(ctx, c.DistanceKm, cr.Route.ModeCode, origin, dest, cr.Route.ID)
	if len(c.Fares) == 0 {
		c.Fares = []fare.Estimate{fare.Placeholder(cr.ModeLabel)}
	}
	c.Fare = c.Fares[0].Fare

	if a.alerts != nil {
		c.Alerts = a.alerts.AlertsForRoute(cr.Route.ID)
	}
	return c
}

// pathDistance sums the legs between consecutive stops of the route,
// falling back to direct when the path is unknown.
func (a *Assembler) pathDistance(ctx context.Context, routeID string, origin, dest transit.Stop, direct float64) float64 {
	points, err := a.paths.StopPath(ctx, routeID, origin.ID, dest.ID)
	if err != nil {
		a.logger.Warn("stop path unavailable", "route", routeID, "error", err)
		return direct
	}
	if len(points) < 2 {
		return direct
	}
	return geo.PathKm(points)
}
