// Package realtime keeps the GTFS-realtime service alerts that annotate
// itinerary candidates.
package realtime

import (
	"sync"
)

// Alert represents a parsed service alert.
type Alert struct {
	ID          string   `json:"id"`
	HeaderText  string   `json:"header"`
	DescText    string   `json:"description,omitempty"`
	RouteIDs    []string `json:"route_ids,omitempty"`
	StopIDs     []string `json:"stop_ids,omitempty"`
	Effect      string   `json:"effect"` // "NO_SERVICE", "REDUCED_SERVICE", "DETOUR", etc.
	EffectLabel string   `json:"effect_label"`
	Cause       string   `json:"cause,omitempty"`
}

// Store holds alerts in a thread-safe manner.
type Store struct {
	mu      sync.RWMutex
	alerts  []Alert
	byRoute map[string][]Alert
}

// NewStore creates an empty alert store.
func NewStore() *Store {
	return &Store{byRoute: map[string][]Alert{}}
}

// SetAlerts replaces all alerts.
func (s *Store) SetAlerts(alerts []Alert) {
	byRoute := make(map[string][]Alert)
	for _, a := range alerts {
		for _, r := range a.RouteIDs {
			byRoute[r] = append(byRoute[r], a)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = alerts
	s.byRoute = byRoute
}

// AlertsForRoute returns alerts affecting a specific route.
func (s *Store) AlertsForRoute(routeID string) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Alert(nil), s.byRoute[routeID]...)
}

// AlertsForStop returns alerts affecting a specific stop.
func (s *Store) AlertsForStop(stopID string) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Alert
	for _, a := range s.alerts {
		for _, sid := range a.StopIDs {
			if sid == stopID {
				result = append(result, a)
				break
			}
		}
	}
	return result
}

// AllAlerts returns all active alerts.
func (s *Store) AllAlerts() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}
