package storage

import "fmt"

// migrate creates the schema if it doesn't exist.
func (db *DB) migrate() error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	db.logger.Info("database migrations applied")
	return nil
}

var migrations = []string{
	// Agency
	`CREATE TABLE IF NOT EXISTS agency (
		agency_id   TEXT PRIMARY KEY,
		agency_name TEXT NOT NULL,
		agency_url  TEXT NOT NULL DEFAULT '',
		agency_timezone TEXT NOT NULL DEFAULT 'Asia/Manila'
	)`,

	// Routes
	`CREATE TABLE IF NOT EXISTS routes (
		route_id         TEXT PRIMARY KEY,
		agency_id        TEXT,
		route_short_name TEXT,
		route_long_name  TEXT,
		route_type       INTEGER NOT NULL DEFAULT 3,
		route_color      TEXT,
		route_text_color TEXT,
		route_sort_order INTEGER
	)`,

	// Stops
	`CREATE TABLE IF NOT EXISTS stops (
		stop_id            TEXT PRIMARY KEY,
		stop_code          TEXT,
		stop_name          TEXT NOT NULL,
		stop_desc          TEXT,
		stop_lat           REAL NOT NULL,
		stop_lon           REAL NOT NULL,
		zone_id            TEXT,
		stop_url           TEXT,
		location_type      INTEGER DEFAULT 0,
		parent_station     TEXT,
		wheelchair_boarding INTEGER DEFAULT 0
	)`,

	// Trips (connectivity only; service calendars are not imported)
	`CREATE TABLE IF NOT EXISTS trips (
		trip_id       TEXT PRIMARY KEY,
		route_id      TEXT NOT NULL REFERENCES routes(route_id),
		service_id    TEXT NOT NULL DEFAULT '',
		trip_headsign TEXT,
		direction_id  INTEGER
	)`,

	// Stop Times
	`CREATE TABLE IF NOT EXISTS stop_times (
		trip_id        TEXT NOT NULL REFERENCES trips(trip_id),
		arrival_time   TEXT NOT NULL DEFAULT '',
		departure_time TEXT NOT NULL DEFAULT '',
		stop_id        TEXT NOT NULL REFERENCES stops(stop_id),
		stop_sequence  INTEGER NOT NULL,
		PRIMARY KEY (trip_id, stop_sequence)
	)`,

	// R-Tree spatial index on stops for nearest-stop queries
	`CREATE VIRTUAL TABLE IF NOT EXISTS stops_rtree USING rtree(
		id,
		min_lat, max_lat,
		min_lon, max_lon
	)`,

	// Feed metadata (last_modified, etag, imported_at, etc.)
	`CREATE TABLE IF NOT EXISTS feed_metadata (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_stop_times_stop ON stop_times(stop_id)`,
	`CREATE INDEX IF NOT EXISTS idx_stop_times_trip ON stop_times(trip_id)`,
	`CREATE INDEX IF NOT EXISTS idx_trips_route ON trips(route_id)`,

	// Road transit fare matrix: one row per band, amounts in centavos.
	`CREATE TABLE IF NOT EXISTS distance_fares (
		mode        TEXT NOT NULL,
		distance_km INTEGER NOT NULL,
		regular     INTEGER NOT NULL,
		discounted  INTEGER,
		PRIMARY KEY (mode, distance_km)
	)`,

	// Rail fare matrix keyed by normalized station names, amounts in centavos.
	`CREATE TABLE IF NOT EXISTS station_fares (
		system         TEXT NOT NULL,
		origin_key     TEXT NOT NULL,
		destination_key TEXT NOT NULL,
		origin         TEXT NOT NULL,
		destination    TEXT NOT NULL,
		single_journey INTEGER,
		stored_value   INTEGER,
		fare           INTEGER,
		discounted     INTEGER,
		PRIMARY KEY (system, origin_key, destination_key)
	)`,

	// Users known to the points ledger; identities live with the auth provider.
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		points     INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`,

	`CREATE TABLE IF NOT EXISTS user_trips (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		from_location TEXT NOT NULL,
		to_location   TEXT NOT NULL,
		transit_type  TEXT NOT NULL DEFAULT '',
		route_name    TEXT NOT NULL DEFAULT '',
		distance_km   REAL NOT NULL DEFAULT 0,
		fare_paid     INTEGER,
		status        TEXT NOT NULL DEFAULT 'active',
		started_at    TEXT NOT NULL,
		completed_at  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_trips_user ON user_trips(user_id, started_at)`,
}
