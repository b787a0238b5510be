package transit

import "strings"

// Mode labels produced by ClassifyMode.
const (
	LabelLRT1    = "LRT-1"
	LabelLRT2    = "LRT-2"
	LabelMRT3    = "MRT-3"
	LabelPNR     = "PNR"
	LabelRail    = "Rail"
	LabelJeepney = "Jeepney"
)

// railSystems maps route id substrings to rail system labels.
// Order matters: the first substring found in the route id wins.
var railSystems = []struct {
	idSubstring string
	label       string
}{
	{"LRT1", LabelLRT1},
	{"LRT2", LabelLRT2},
	{"MRT3", LabelMRT3},
	{"PNR", LabelPNR},
}

// IsRail reports whether a GTFS route_type is rail-based
// (tram/light rail, subway, rail, monorail).
func IsRail(modeCode int) bool {
	switch modeCode {
	case 0, 1, 2, 12:
		return true
	default:
		return false
	}
}

// ClassifyMode returns the fare-relevant mode label of a route.
// Rail routes resolve to a specific system by route id substring, or to the
// generic "Rail" label; every other route is road transit.
func ClassifyMode(r Route) string {
	if !IsRail(r.ModeCode) {
		return LabelJeepney
	}
	return RailSystem(r.ID)
}

// RailSystem returns the rail system label for a rail route id.
func RailSystem(routeID string) string {
	for _, rs := range railSystems {
		if strings.Contains(routeID, rs.idSubstring) {
			return rs.label
		}
	}
	return LabelRail
}
