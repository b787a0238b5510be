// Package transit holds the read-only reference data of the transit network
// (stops, routes, trips) and the lookups built over it: the stop index, route
// mode classification, and the route connectivity resolver.
package transit

// Stop is a named boarding/alighting point. Identity is ID; names are not unique.
type Stop struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	City string  `json:"city,omitempty"`
}

// Route is a transit service. ModeCode is the raw GTFS route_type.
type Route struct {
	ID        string `json:"id"`
	ShortName string `json:"short_name"`
	LongName  string `json:"long_name"`
	ModeCode  int    `json:"mode_code"`
	AgencyID  string `json:"agency_id,omitempty"`
}

// DisplayName returns the short name, falling back to the long name.
func (r Route) DisplayName() string {
	if r.ShortName != "" {
		return r.ShortName
	}
	return r.LongName
}

// Trip carries the human-readable direction label of a route.
type Trip struct {
	TripID   string `json:"trip_id"`
	RouteID  string `json:"route_id"`
	Headsign string `json:"headsign"`
}

// ConnectedRoute is one route serving both stops of a query.
type ConnectedRoute struct {
	Route     Route  `json:"route"`
	Headsign  string `json:"headsign"`
	ModeLabel string `json:"mode_label"`
	// Forward is true when at least one trip visits the origin before the destination.
	Forward bool `json:"forward"`
}
