package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"komyut/internal/geo"
	"komyut/internal/transit"
)

// GetMetadata retrieves a value from the feed_metadata table.
func (db *DB) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM feed_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetMetadata stores a key-value pair in the feed_metadata table.
func (db *DB) SetMetadata(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO feed_metadata (key, value) VALUES (?, ?)`,
		key, value)
	return err
}

// NearbyStop is a stop with its distance from a query point.
type NearbyStop struct {
	transit.Stop
	DistanceMeters float64 `json:"distance_m"`
}

// NearbyStops finds boarding stops within radiusMeters of a point using the
// R-Tree index, closest first.
func (db *DB) NearbyStops(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]NearbyStop, error) {
	latDeg, lonDeg := geo.BoundingBoxRadius(lat, radiusMeters)
	rows, err := db.QueryContext(ctx, `
		SELECT s.stop_id, s.stop_name, s.stop_lat, s.stop_lon
		FROM stops_rtree AS r
		JOIN stops AS s ON s.rowid = r.id
		WHERE r.min_lat >= ? AND r.max_lat <= ?
		  AND r.min_lon >= ? AND r.max_lon <= ?
		  AND COALESCE(s.location_type, 0) = 0`,
		lat-latDeg, lat+latDeg,
		lon-lonDeg, lon+lonDeg,
	)
	if err != nil {
		return nil, fmt.Errorf("nearby stops query: %w", err)
	}
	defer rows.Close()

	var stops []NearbyStop
	for rows.Next() {
		var s NearbyStop
		if err := rows.Scan(&s.ID, &s.Name, &s.Lat, &s.Lon); err != nil {
			return nil, fmt.Errorf("scan stop: %w", err)
		}
		// The box corners lie outside the circle
		s.DistanceMeters = geo.Haversine(lat, lon, s.Lat, s.Lon)
		if s.DistanceMeters <= radiusMeters {
			stops = append(stops, s)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(stops, func(i, j int) bool { return stops[i].DistanceMeters < stops[j].DistanceMeters })
	if limit > 0 && len(stops) > limit {
		stops = stops[:limit]
	}
	return stops, nil
}

// NearestStops returns stops within radiusMeters, closest first.
func (db *DB) NearestStops(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]transit.Stop, error) {
	nearby, err := db.NearbyStops(ctx, lat, lon, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	stops := make([]transit.Stop, len(nearby))
	for i, n := range nearby {
		stops[i] = n.Stop
	}
	return stops, nil
}

// AllStops returns every boarding stop in import order.
func (db *DB) AllStops(ctx context.Context) ([]transit.Stop, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT stop_id, stop_name, stop_lat, stop_lon
		FROM stops
		WHERE COALESCE(location_type, 0) = 0
		ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("all stops query: %w", err)
	}
	defer rows.Close()

	var stops []transit.Stop
	for rows.Next() {
		var s transit.Stop
		if err := rows.Scan(&s.ID, &s.Name, &s.Lat, &s.Lon); err != nil {
			return nil, fmt.Errorf("scan stop: %w", err)
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

// AllRoutes returns all routes ordered by sort order then route short name.
func (db *DB) AllRoutes(ctx context.Context) ([]transit.Route, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT route_id, COALESCE(route_short_name, ''), COALESCE(route_long_name, ''),
		       route_type, COALESCE(agency_id, '')
		FROM routes
		ORDER BY route_sort_order, route_short_name`)
	if err != nil {
		return nil, fmt.Errorf("all routes query: %w", err)
	}
	defer rows.Close()

	var routes []transit.Route
	for rows.Next() {
		var r transit.Route
		if err := rows.Scan(&r.ID, &r.ShortName, &r.LongName, &r.ModeCode, &r.AgencyID); err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

// ConnectingRoutes returns every route with a trip visiting both stops.
// Forward reports whether some trip visits fromStopID before toStopID; the
// headsign is taken from such a trip when one exists.
func (db *DB) ConnectingRoutes(ctx context.Context, fromStopID, toStopID string) ([]transit.ConnectedRoute, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT r.route_id, COALESCE(r.route_short_name, ''), COALESCE(r.route_long_name, ''),
		       r.route_type, COALESCE(r.agency_id, ''),
		       MAX(a.stop_sequence < b.stop_sequence) AS forward,
		       COALESCE(
		         MAX(CASE WHEN a.stop_sequence < b.stop_sequence THEN t.trip_headsign END),
		         MAX(t.trip_headsign),
		         ''
		       ) AS headsign
		FROM stop_times a
		JOIN stop_times b ON b.trip_id = a.trip_id
		JOIN trips t ON t.trip_id = a.trip_id
		JOIN routes r ON r.route_id = t.route_id
		WHERE a.stop_id = ? AND b.stop_id = ?
		GROUP BY r.route_id
		ORDER BY r.route_sort_order, r.route_short_name, r.route_id`,
		fromStopID, toStopID,
	)
	if err != nil {
		return nil, fmt.Errorf("connecting routes query: %w", err)
	}
	defer rows.Close()

	routes := []transit.ConnectedRoute{}
	for rows.Next() {
		var cr transit.ConnectedRoute
		if err := rows.Scan(&cr.Route.ID, &cr.Route.ShortName, &cr.Route.LongName,
			&cr.Route.ModeCode, &cr.Route.AgencyID, &cr.Forward, &cr.Headsign); err != nil {
			return nil, fmt.Errorf("scan connecting route: %w", err)
		}
		routes = append(routes, cr)
	}
	return routes, rows.Err()
}

// StopPath returns the positions of the stops a trip of routeID visits from
// fromStopID to toStopID inclusive, in travel order. A trip running in
// either direction is accepted.
func (db *DB) StopPath(ctx context.Context, routeID, fromStopID, toStopID string) ([]geo.Point, error) {
	var tripID string
	var fromSeq, toSeq int
	err := db.QueryRowContext(ctx, `
		SELECT a.trip_id, a.stop_sequence, b.stop_sequence
		FROM stop_times a
		JOIN stop_times b ON b.trip_id = a.trip_id
		JOIN trips t ON t.trip_id = a.trip_id
		WHERE t.route_id = ? AND a.stop_id = ? AND b.stop_id = ?
		ORDER BY a.stop_sequence < b.stop_sequence DESC, ABS(b.stop_sequence - a.stop_sequence)
		LIMIT 1`,
		routeID, fromStopID, toStopID,
	).Scan(&tripID, &fromSeq, &toSeq)
	if err != nil {
		return nil, fmt.Errorf("find trip through stops: %w", err)
	}

	lo, hi := fromSeq, toSeq
	if lo > hi {
		lo, hi = hi, lo
	}
	rows, err := db.QueryContext(ctx, `
		SELECT s.stop_lat, s.stop_lon
		FROM stop_times st
		JOIN stops s ON s.stop_id = st.stop_id
		WHERE st.trip_id = ? AND st.stop_sequence BETWEEN ? AND ?
		ORDER BY st.stop_sequence`,
		tripID, lo, hi,
	)
	if err != nil {
		return nil, fmt.Errorf("stop path query: %w", err)
	}
	defer rows.Close()

	var points []geo.Point
	for rows.Next() {
		var p geo.Point
		if err := rows.Scan(&p.Lat, &p.Lon); err != nil {
			return nil, fmt.Errorf("scan stop position: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if fromSeq > toSeq {
		for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
			points[i], points[j] = points[j], points[i]
		}
	}
	return points, nil
}

// HasData returns true if the database has GTFS data imported.
func (db *DB) HasData(ctx context.Context) bool {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM routes`).Scan(&count)
	return err == nil && count > 0
}

// RebuildRTree repopulates the R-Tree index from the stops table.
func (db *DB) RebuildRTree(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM stops_rtree`); err != nil {
		return fmt.Errorf("clear rtree: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO stops_rtree(id, min_lat, max_lat, min_lon, max_lon)
		 SELECT rowid, stop_lat, stop_lat, stop_lon, stop_lon FROM stops`); err != nil {
		return fmt.Errorf("populate rtree: %w", err)
	}
	return nil
}
