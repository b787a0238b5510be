package transit

import (
	"strings"
	"unicode/utf8"
)

const (
	maxSearchResults = 8
	minQueryLength   = 2
)

// StopIndex is an immutable in-memory snapshot of stops.
type StopIndex struct {
	stops []Stop
	lower []string // lowercased names, parallel to stops
	byID  map[string]int
}

// NewStopIndex builds an index over stops, preserving load order.
func NewStopIndex(stops []Stop) *StopIndex {
	idx := &StopIndex{
		stops: make([]Stop, len(stops)),
		lower: make([]string, len(stops)),
		byID:  make(map[string]int, len(stops)),
	}
	copy(idx.stops, stops)
	for i, s := range idx.stops {
		idx.lower[i] = strings.ToLower(s.Name)
		if _, dup := idx.byID[s.ID]; !dup {
			idx.byID[s.ID] = i
		}
	}
	return idx
}

// Search returns up to 8 stops whose name contains query, case-insensitively,
// in load order. Queries shorter than 2 characters return nothing.
func (idx *StopIndex) Search(query string) []Stop {
	q := strings.ToLower(strings.TrimSpace(query))
	if utf8.RuneCountInString(q) < minQueryLength {
		return []Stop{}
	}
	results := make([]Stop, 0, maxSearchResults)
	for i, name := range idx.lower {
		if strings.Contains(name, q) {
			results = append(results, idx.stops[i])
			if len(results) == maxSearchResults {
				break
			}
		}
	}
	return results
}

// ByID returns the stop with the given id.
func (idx *StopIndex) ByID(id string) (Stop, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return Stop{}, false
	}
	return idx.stops[i], true
}

// Len returns the number of indexed stops.
func (idx *StopIndex) Len() int {
	return len(idx.stops)
}

// All returns a copy of every indexed stop in load order.
func (idx *StopIndex) All() []Stop {
	out := make([]Stop, len(idx.stops))
	copy(out, idx.stops)
	return out
}
