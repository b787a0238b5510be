// Package itinerary turns a free-text origin and destination into candidate
// rides: one per route connecting the two resolved stops, each with its
// distance and fare.
package itinerary

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"komyut/internal/fare"
	"komyut/internal/geo"
	"komyut/internal/geocode"
	"komyut/internal/realtime"
	"komyut/internal/transit"
)

const (
	snapCandidates          = 5
	defaultSnapRadiusMeters = 1000
	defaultConcurrency      = 8
)

// StopLookup finds stops by text or id.
type StopLookup interface {
	Search(query string) []transit.Stop
	Stop(id string) (transit.Stop, bool)
}

// NearestStopFinder returns stops near a point, closest first.
type NearestStopFinder interface {
	NearestStops(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]transit.Stop, error)
}

// Geocoder resolves free text to addresses.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]geocode.Result, error)
}

// RouteFinder lists the routes connecting two stops.
type RouteFinder interface {
	FindRoutes(ctx context.Context, fromStopID, toStopID string) ([]transit.ConnectedRoute, error)
}

// FareEstimator prices one ride. It never returns an empty slice.
type FareEstimator interface {
	EstimateFare(ctx context.Context, distanceKm float64, modeCode int, origin, dest transit.Stop, routeID string) []fare.Estimate
}

// PathSource returns the stop positions a route visits between two stops.
type PathSource interface {
	StopPath(ctx context.Context, routeID, fromStopID, toStopID string) ([]geo.Point, error)
}

// AlertSource returns active service alerts for a route.
type AlertSource interface {
	AlertsForRoute(routeID string) []realtime.Alert
}

// Metrics records search outcomes.
type Metrics interface {
	SearchCompleted(outcome string, candidates int, elapsed time.Duration)
	FareUnavailable(mode string)
}

// Search outcomes reported to Metrics.
const (
	OutcomeFound      = "found"
	OutcomeNoRoute    = "no_route"
	OutcomeUnresolved = "unresolved"
	OutcomeError      = "error"
)

// Options tune an Assembler.
type Options struct {
	SnapRadiusMeters float64
	// Concurrency bounds the per-route fare tasks of one search.
	Concurrency int
	// PathDistance sums stop-to-stop legs instead of the direct distance
	// when a PathSource is set.
	PathDistance bool
}

// Query is one itinerary search.
type Query struct {
	FromText   string
	ToText     string
	FromStopID string
	ToStopID   string
	// Here is used when FromText is empty or "current location".
	Here LocationProvider
}

// Candidate is one way to ride from Origin to Destination.
type Candidate struct {
	Origin      transit.Stop     `json:"origin"`
	Destination transit.Stop     `json:"destination"`
	Route       transit.Route    `json:"route"`
	Headsign    string           `json:"headsign,omitempty"`
	ModeLabel   string           `json:"mode_label"`
	DistanceKm  float64          `json:"distance_km"`
	Distance    string           `json:"distance"`
	Fare        fare.Fare        `json:"fare"`
	Fares       []fare.Estimate  `json:"fares"`
	Alerts      []realtime.Alert `json:"alerts,omitempty"`
}

// Result of a search. No candidates is a normal outcome; Suggestions then
// tells the commuter what to try next.
type Result struct {
	Origin      transit.Stop `json:"origin"`
	Destination transit.Stop `json:"destination"`
	Candidates  []Candidate  `json:"candidates"`
	Suggestions []string     `json:"suggestions,omitempty"`
}

var noRouteSuggestions = []string{
	"Try a nearby stop on a major road",
	"Consider a transfer: search to an interchange stop, then onward",
}

// Assembler builds itinerary candidates.
type Assembler struct {
	stops    StopLookup
	nearest  NearestStopFinder
	routes   RouteFinder
	fares    FareEstimator
	geocoder Geocoder
	paths    PathSource
	alerts   AlertSource
	metrics  Metrics
	opts     Options
	logger   *slog.Logger
}

// Option sets an optional Assembler collaborator.
type Option func(*Assembler)

// WithGeocoder enables the geocode-and-snap fallback.
func WithGeocoder(g Geocoder) Option { return func(a *Assembler) { a.geocoder = g } }

// WithPaths enables stop-sequence distances.
func WithPaths(p PathSource) Option { return func(a *Assembler) { a.paths = p } }

// WithAlerts annotates candidates with service alerts.
func WithAlerts(s AlertSource) Option { return func(a *Assembler) { a.alerts = s } }

// WithMetrics records search outcomes.
func WithMetrics(m Metrics) Option { return func(a *Assembler) { a.metrics = m } }

// New creates an Assembler.
func New(stops StopLookup, nearest NearestStopFinder, routes RouteFinder, fares FareEstimator, opts Options, logger *slog.Logger, options ...Option) *Assembler {
	if opts.SnapRadiusMeters <= 0 {
		opts.SnapRadiusMeters = defaultSnapRadiusMeters
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	a := &Assembler{
		stops:   stops,
		nearest: nearest,
		routes:  routes,
		fares:   fares,
		opts:    opts,
		logger:  logger,
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// Search resolves both sides of q and returns one candidate per connecting
// route, in resolver order. An unresolvable side is a *LocationError.
func (a *Assembler) Search(ctx context.Context, q Query) (Result, error) {
	start := time.Now()
	res, degraded, err := a.search(ctx, q)

	outcome := OutcomeFound
	switch {
	case errors.Is(err, ErrLocationNotResolvable):
		outcome = OutcomeUnresolved
	case err != nil, degraded:
		outcome = OutcomeError
	case len(res.Candidates) == 0:
		outcome = OutcomeNoRoute
	}
	if a.metrics != nil {
		a.metrics.SearchCompleted(outcome, len(res.Candidates), time.Since(start))
	}
	return res, err
}

// search reports degraded when the route finder failed and the result was
// replaced by the empty one.
func (a *Assembler) search(ctx context.Context, q Query) (res Result, degraded bool, err error) {
	origin, err := a.resolve(ctx, SideOrigin, q.FromStopID, q.FromText, q.Here)
	if err != nil {
		return Result{}, false, err
	}
	dest, err := a.resolve(ctx, SideDestination, q.ToStopID, q.ToText, nil)
	if err != nil {
		return Result{}, false, err
	}

	res = Result{Origin: origin, Destination: dest, Candidates: []Candidate{}}

	routes, err := a.routes.FindRoutes(ctx, origin.ID, dest.ID)
	if err != nil {
		a.logger.Warn("find routes failed", "from", origin.ID, "to", dest.ID, "error", err)
		res.Suggestions = noRouteSuggestions
		return res, true, nil
	}
	if len(routes) == 0 {
		res.Suggestions = noRouteSuggestions
		return res, false, nil
	}

	res.Candidates = a.gather(ctx, origin, dest, routes)
	return res, false, nil
}
