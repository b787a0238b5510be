package gtfs

// Feed holds the parsed reference tables of a GTFS zip file.
// stop_times.txt is streamed during import and never held here.
type Feed struct {
	Agencies     []Agency
	Routes       []Route
	Stops        []Stop
	Trips        []Trip
	LastModified string // From HTTP response header
	ETag         string // From HTTP response header
}

type Agency struct {
	AgencyID       string `csv:"agency_id"`
	AgencyName     string `csv:"agency_name"`
	AgencyURL      string `csv:"agency_url"`
	AgencyTimezone string `csv:"agency_timezone"`
}

type Route struct {
	RouteID        string `csv:"route_id"`
	AgencyID       string `csv:"agency_id"`
	RouteShortName string `csv:"route_short_name"`
	RouteLongName  string `csv:"route_long_name"`
	RouteType      string `csv:"route_type"`
	RouteColor     string `csv:"route_color"`
	RouteTextColor string `csv:"route_text_color"`
	RouteSortOrder string `csv:"route_sort_order"`
}

type Stop struct {
	StopID             string `csv:"stop_id"`
	StopCode           string `csv:"stop_code"`
	StopName           string `csv:"stop_name"`
	StopDesc           string `csv:"stop_desc"`
	StopLat            string `csv:"stop_lat"`
	StopLon            string `csv:"stop_lon"`
	ZoneID             string `csv:"zone_id"`
	StopURL            string `csv:"stop_url"`
	LocationType       string `csv:"location_type"`
	ParentStation      string `csv:"parent_station"`
	WheelchairBoarding string `csv:"wheelchair_boarding"`
}

// Trip is kept for connectivity and headsigns; service calendars are ignored.
type Trip struct {
	TripID       string `csv:"trip_id"`
	RouteID      string `csv:"route_id"`
	ServiceID    string `csv:"service_id"`
	TripHeadsign string `csv:"trip_headsign"`
	DirectionID  string `csv:"direction_id"`
}

type StopTime struct {
	TripID        string `csv:"trip_id"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	StopID        string `csv:"stop_id"`
	StopSequence  string `csv:"stop_sequence"`
}

// DistanceFareRow is one line of distance_fares.csv.
type DistanceFareRow struct {
	Mode       string `csv:"mode"`
	DistanceKm string `csv:"distance_km"`
	Regular    string `csv:"regular"`
	Discounted string `csv:"discounted"`
}

// StationFareRow is one line of station_fares.csv. Lines use either the
// single_journey/stored_value pair or the flat fare/discounted pair.
type StationFareRow struct {
	System        string `csv:"system"`
	Origin        string `csv:"origin"`
	Destination   string `csv:"destination"`
	SingleJourney string `csv:"single_journey"`
	StoredValue   string `csv:"stored_value"`
	Fare          string `csv:"fare"`
	Discounted    string `csv:"discounted"`
}
