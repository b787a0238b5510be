package gtfs

import (
	"archive/zip"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"komyut/internal/geo"
	"komyut/internal/storage"
)

// Importer loads parsed GTFS data into SQLite.
type Importer struct {
	db     *storage.DB
	logger *slog.Logger
}

// NewImporter creates an Importer.
func NewImporter(db *storage.DB, logger *slog.Logger) *Importer {
	return &Importer{db: db, logger: logger}
}

// ImportFile parses a local GTFS zip and imports it.
func (imp *Importer) ImportFile(ctx context.Context, zipPath string) error {
	feed, err := ParseZip(zipPath, imp.logger)
	if err != nil {
		return err
	}
	return imp.Import(ctx, feed, zipPath)
}

// Import loads a parsed GTFS feed and streams stop_times from the zip file.
// The entire operation runs in a single transaction; readers keep seeing the
// previous data until it commits.
func (imp *Importer) Import(ctx context.Context, feed *Feed, zipPath string) error {
	start := time.Now()

	tx, err := imp.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Clear existing data
	if err := imp.clearTables(ctx, tx); err != nil {
		return err
	}

	// Import in-memory tables
	if err := imp.importAgencies(ctx, tx, feed.Agencies); err != nil {
		return err
	}
	if err := imp.importRoutes(ctx, tx, feed.Routes); err != nil {
		return err
	}
	skippedStops, err := imp.importStops(ctx, tx, feed.Stops)
	if err != nil {
		return err
	}
	if err := imp.importTrips(ctx, tx, feed.Trips); err != nil {
		return err
	}

	// Stream the large table directly from zip
	if err := imp.streamStopTimes(ctx, tx, zipPath, skippedStops); err != nil {
		return err
	}

	// Rebuild R-Tree spatial index
	if err := imp.db.RebuildRTree(ctx, tx); err != nil {
		return fmt.Errorf("rebuild rtree: %w", err)
	}

	// Store metadata
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO feed_metadata (key, value) VALUES ('imported_at', ?)`, now); err != nil {
		return fmt.Errorf("set imported_at: %w", err)
	}
	if feed.LastModified != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO feed_metadata (key, value) VALUES ('last_modified', ?)`, feed.LastModified); err != nil {
			return fmt.Errorf("set last_modified: %w", err)
		}
	}
	if feed.ETag != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO feed_metadata (key, value) VALUES ('etag', ?)`, feed.ETag); err != nil {
			return fmt.Errorf("set etag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	imp.logger.Info("GTFS import complete",
		"duration", time.Since(start).Round(time.Millisecond),
		"routes", len(feed.Routes),
		"stops", len(feed.Stops),
		"trips", len(feed.Trips),
	)
	return nil
}

func (imp *Importer) clearTables(ctx context.Context, tx *sql.Tx) error {
	tables := []string{
		"stop_times", "trips", "stops", "routes", "agency",
		"stops_rtree", "feed_metadata",
	}
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", t)); err != nil {
			return fmt.Errorf("clear %s: %w", t, err)
		}
	}
	return nil
}

func (imp *Importer) importAgencies(ctx context.Context, tx *sql.Tx, agencies []Agency) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO agency (agency_id, agency_name, agency_url, agency_timezone) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare agency: %w", err)
	}
	defer stmt.Close()

	for _, a := range agencies {
		if _, err := stmt.ExecContext(ctx, a.AgencyID, a.AgencyName, a.AgencyURL, a.AgencyTimezone); err != nil {
			return fmt.Errorf("insert agency %s: %w", a.AgencyID, err)
		}
	}
	imp.logger.Info("imported agencies", "count", len(agencies))
	return nil
}

func (imp *Importer) importRoutes(ctx context.Context, tx *sql.Tx, routes []Route) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO routes (route_id, agency_id, route_short_name, route_long_name,
		 route_type, route_color, route_text_color, route_sort_order)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare routes: %w", err)
	}
	defer stmt.Close()

	for _, r := range routes {
		routeType := r.RouteType
		if routeType == "" {
			routeType = defaultRouteType
		}
		if _, err := stmt.ExecContext(ctx, r.RouteID, r.AgencyID, r.RouteShortName,
			r.RouteLongName, routeType, r.RouteColor, r.RouteTextColor, nullIfEmpty(r.RouteSortOrder)); err != nil {
			return fmt.Errorf("insert route %s: %w", r.RouteID, err)
		}
	}
	imp.logger.Info("imported routes", "count", len(routes))
	return nil
}

// importStops inserts stops and returns the ids of those dropped for bad coordinates.
func (imp *Importer) importStops(ctx context.Context, tx *sql.Tx, stops []Stop) (map[string]bool, error) {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO stops (stop_id, stop_code, stop_name, stop_desc, stop_lat, stop_lon,
		 zone_id, stop_url, location_type, parent_station, wheelchair_boarding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare stops: %w", err)
	}
	defer stmt.Close()

	skipped := make(map[string]bool)
	for _, s := range stops {
		if !validStop(s) {
			skipped[s.StopID] = true
			continue
		}
		if _, err := stmt.ExecContext(ctx, s.StopID, s.StopCode, s.StopName, s.StopDesc,
			s.StopLat, s.StopLon, s.ZoneID, s.StopURL, nullIfEmpty(s.LocationType),
			s.ParentStation, nullIfEmpty(s.WheelchairBoarding)); err != nil {
			return nil, fmt.Errorf("insert stop %s: %w", s.StopID, err)
		}
	}
	imp.logger.Info("imported stops", "count", len(stops)-len(skipped), "skipped", len(skipped))
	return skipped, nil
}

func (imp *Importer) importTrips(ctx context.Context, tx *sql.Tx, trips []Trip) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trips (trip_id, route_id, service_id, trip_headsign, direction_id)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare trips: %w", err)
	}
	defer stmt.Close()

	for _, t := range trips {
		if _, err := stmt.ExecContext(ctx, t.TripID, t.RouteID, t.ServiceID,
			t.TripHeadsign, nullIfEmpty(t.DirectionID)); err != nil {
			return fmt.Errorf("insert trip %s: %w", t.TripID, err)
		}
	}
	imp.logger.Info("imported trips", "count", len(trips))
	return nil
}

// streamStopTimes reads stop_times.txt directly from the zip in a streaming fashion.
// Rows naming a skipped stop are dropped with it.
func (imp *Importer) streamStopTimes(ctx context.Context, tx *sql.Tx, zipPath string, skippedStops map[string]bool) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open zip for stop_times: %w", err)
	}
	defer r.Close()

	var stopTimesFile *zip.File
	for _, f := range r.File {
		if f.Name == "stop_times.txt" {
			stopTimesFile = f
			break
		}
	}
	if stopTimesFile == nil {
		return fmt.Errorf("stop_times.txt not found in zip")
	}

	rc, err := stopTimesFile.Open()
	if err != nil {
		return fmt.Errorf("open stop_times.txt: %w", err)
	}
	defer rc.Close()

	stream, err := NewCSVStream[StopTime](rc)
	if err != nil {
		return fmt.Errorf("open stop_times stream: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO stop_times (trip_id, arrival_time, departure_time, stop_id, stop_sequence)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare stop_times: %w", err)
	}
	defer stmt.Close()

	count := 0
	for {
		st, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read stop_time row %d: %w", count, err)
		}
		if skippedStops[st.StopID] {
			continue
		}

		if _, err := stmt.ExecContext(ctx, st.TripID, st.ArrivalTime, st.DepartureTime,
			st.StopID, st.StopSequence); err != nil {
			return fmt.Errorf("insert stop_time row %d: %w", count, err)
		}
		count++

		if count%500000 == 0 {
			imp.logger.Info("importing stop_times", "rows", count)
		}
	}

	imp.logger.Info("imported stop_times", "count", count)
	return nil
}

// defaultRouteType is the GTFS bus route_type, used when a feed omits it.
const defaultRouteType = "3"

// validStop rejects stops whose coordinates cannot be placed on the map.
func validStop(s Stop) bool {
	lat, err := strconv.ParseFloat(s.StopLat, 64)
	if err != nil {
		return false
	}
	lon, err := strconv.ParseFloat(s.StopLon, 64)
	if err != nil {
		return false
	}
	return geo.ValidCoordinate(lat, lon)
}

// nullIfEmpty stores a blank optional integer as NULL. SQLite keeps an empty
// string as TEXT, which no integer comparison matches.
func nullIfEmpty(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
