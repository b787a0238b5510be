package gtfs

import (
	"archive/zip"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"komyut/internal/fare"
	"komyut/internal/storage"
)

var testFeed = map[string]string{
	"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
		"LTFRB,LTFRB,https://ltfrb.gov.ph,Asia/Manila\n",
	"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type\n" +
		"R1,LTFRB,T1,Stop A - Stop B,3\n" +
		"LRT1,LTFRB,LRT-1,Baclaran - Roosevelt,\n",
	// BOM on the first header field
	"stops.txt": "\xef\xbb\xbfstop_id,stop_name,stop_lat,stop_lon,location_type,wheelchair_boarding\n" +
		"S1,Stop A,14.5,121.0,,\n" +
		"S2,Stop B,14.52,121.02,0,\n" +
		"BAD,Nowhere,,,,\n",
	"trips.txt": "route_id,service_id,trip_id,trip_headsign,shape_id\n" +
		"R1,,T1,Stop B,SH1\n" +
		"LRT1,WD,T2,Roosevelt,\n",
	"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence,pickup_type\n" +
		"T1,08:00:00,08:00:00,S1,1,0\n" +
		"T1,08:10:00,08:10:00,BAD,2,0\n" +
		"T1,08:20:00,08:20:00,S2,3,0\n" +
		"T2,09:00:00,09:00:00,S2,1,0\n",
	"calendar.txt": "service_id,monday\nWD,1\n",
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeZip(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, "gtfs.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(w, body); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "komyut.db"), discardLogger())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestParseZip(t *testing.T) {
	path := writeZip(t, t.TempDir(), testFeed)
	feed, err := ParseZip(path, discardLogger())
	if err != nil {
		t.Fatalf("ParseZip: %v", err)
	}
	if len(feed.Agencies) != 1 || len(feed.Routes) != 2 || len(feed.Stops) != 3 || len(feed.Trips) != 2 {
		t.Fatalf("feed counts = %d/%d/%d/%d", len(feed.Agencies), len(feed.Routes), len(feed.Stops), len(feed.Trips))
	}
	if feed.Stops[0].StopID != "S1" {
		t.Errorf("BOM not stripped: first stop id = %q", feed.Stops[0].StopID)
	}
	if feed.Trips[0].TripHeadsign != "Stop B" || feed.Trips[0].ServiceID != "" {
		t.Errorf("trip = %+v", feed.Trips[0])
	}
}

func TestParseCSV_IgnoresUnknownColumns(t *testing.T) {
	in := "mode,extra,distance_km,regular\nJeepney,x,4,13.00\n"
	rows, err := ParseCSV[DistanceFareRow](strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(rows) != 1 || rows[0].Mode != "Jeepney" || rows[0].DistanceKm != "4" || rows[0].Discounted != "" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestCSVStream_PlainReader(t *testing.T) {
	in := "\xef\xbb\xbfmode,distance_km,regular,discounted\nBus,5,15.00\nJeepney,4,13.00,10.40\n"
	s, err := NewCSVStream[DistanceFareRow](strings.NewReader(in))
	if err != nil {
		t.Fatalf("NewCSVStream: %v", err)
	}

	first, err := s.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if first.Mode != "Bus" || first.Regular != "15.00" || first.Discounted != "" {
		t.Errorf("first = %+v", first)
	}
	second, err := s.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if second.Discounted != "10.40" {
		t.Errorf("second = %+v", second)
	}
	if _, err := s.Next(); err != io.EOF {
		t.Errorf("Next after last record = %v, want io.EOF", err)
	}
}

func TestImporter_ImportFile(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	path := writeZip(t, t.TempDir(), testFeed)

	if err := NewImporter(db, discardLogger()).ImportFile(ctx, path); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if !db.HasData(ctx) {
		t.Fatal("no data after import")
	}

	stops, err := db.AllStops(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stops) != 2 {
		t.Errorf("stops = %d, want 2 (stop without coordinates skipped)", len(stops))
	}

	var blankTypes int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stops WHERE typeof(location_type) = 'text' OR typeof(wheelchair_boarding) = 'text'`,
	).Scan(&blankTypes); err != nil {
		t.Fatal(err)
	}
	if blankTypes != 0 {
		t.Errorf("%d stops stored a blank optional integer as text", blankTypes)
	}
	near, err := db.NearestStops(ctx, 14.5, 121.0, 500, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(near) == 0 || near[0].ID != "S1" {
		t.Errorf("NearestStops after import = %+v", near)
	}

	routes, err := db.AllRoutes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range routes {
		if r.ID == "LRT1" && r.ModeCode != 3 {
			t.Errorf("blank route_type imported as %d, want default 3", r.ModeCode)
		}
	}

	conn, err := db.ConnectingRoutes(ctx, "S1", "S2")
	if err != nil {
		t.Fatal(err)
	}
	if len(conn) != 1 || conn[0].Route.ID != "R1" || !conn[0].Forward {
		t.Errorf("ConnectingRoutes = %+v", conn)
	}

	if v, _ := db.GetMetadata(ctx, "imported_at"); v == "" {
		t.Error("imported_at not recorded")
	}

	// Re-import replaces rather than duplicates.
	if err := NewImporter(db, discardLogger()).ImportFile(ctx, path); err != nil {
		t.Fatalf("second ImportFile: %v", err)
	}
	if stops, _ := db.AllStops(ctx); len(stops) != 2 {
		t.Errorf("stops after re-import = %d", len(stops))
	}
}

func TestImporter_MissingStopTimes(t *testing.T) {
	db := openDB(t)
	files := map[string]string{}
	for k, v := range testFeed {
		if k != "stop_times.txt" {
			files[k] = v
		}
	}
	path := writeZip(t, t.TempDir(), files)
	if err := NewImporter(db, discardLogger()).ImportFile(context.Background(), path); err == nil {
		t.Fatal("expected error for feed without stop_times.txt")
	}
	if db.HasData(context.Background()) {
		t.Error("failed import left partial data behind")
	}
}

func TestDistanceBands(t *testing.T) {
	rows := []DistanceFareRow{
		{Mode: "Jeepney", DistanceKm: "4", Regular: "13", Discounted: "10.40"},
		{Mode: "Jeepney", DistanceKm: "5", Regular: "₱14.75", Discounted: ""},
	}
	bands, err := DistanceBands(rows)
	if err != nil {
		t.Fatalf("DistanceBands: %v", err)
	}
	if bands[0].Regular != fare.Pesos(13) || bands[0].Discounted != fare.Pesos(10.40) {
		t.Errorf("band 0 = %+v", bands[0])
	}
	if bands[1].Regular != fare.Pesos(14.75) || bands[1].Discounted != 0 {
		t.Errorf("band 1 = %+v", bands[1])
	}

	bad := []struct {
		name string
		row  DistanceFareRow
	}{
		{"missing mode", DistanceFareRow{DistanceKm: "4", Regular: "13"}},
		{"zero km", DistanceFareRow{Mode: "Jeepney", DistanceKm: "0", Regular: "13"}},
		{"fractional km", DistanceFareRow{Mode: "Jeepney", DistanceKm: "4.5", Regular: "13"}},
		{"missing regular", DistanceFareRow{Mode: "Jeepney", DistanceKm: "4", Regular: "N/A"}},
		{"negative", DistanceFareRow{Mode: "Jeepney", DistanceKm: "4", Regular: "-1"}},
		{"nan", DistanceFareRow{Mode: "Jeepney", DistanceKm: "4", Regular: "NaN"}},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DistanceBands([]DistanceFareRow{tt.row}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStationFares(t *testing.T) {
	rows := []StationFareRow{
		{System: "LRT-1", Origin: "Baclaran", Destination: "EDSA", SingleJourney: "15", StoredValue: "13"},
		{System: "MRT-3", Origin: "North Avenue", Destination: "Cubao", Fare: "16", Discounted: "n/a"},
	}
	got, err := StationFares(rows)
	if err != nil {
		t.Fatalf("StationFares: %v", err)
	}
	if got[0].SingleJourney != fare.Amount(fare.Pesos(15)) || got[0].Fare.Available {
		t.Errorf("row 0 = %+v", got[0])
	}
	if got[1].Fare != fare.Amount(fare.Pesos(16)) || got[1].Discounted.Available {
		t.Errorf("row 1 = %+v", got[1])
	}

	if _, err := StationFares([]StationFareRow{{System: "LRT-1", Origin: "Baclaran"}}); err == nil {
		t.Error("expected error for missing destination")
	}
	if _, err := StationFares([]StationFareRow{{System: "LRT-1", Origin: "A", Destination: "B", Fare: "abc"}}); err == nil {
		t.Error("expected error for non-numeric fare")
	}
}

func TestFareImporter(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, DistanceFaresFile), []byte(
		"mode,distance_km,regular,discounted\nJeepney,4,13.00,10.00\nJeepney,5,14.75,\n"), 0o644)
	os.WriteFile(filepath.Join(dir, StationFaresFile), []byte(
		"system,origin,destination,single_journey,stored_value,fare,discounted\n"+
			"LRT-1,Baclaran,EDSA Station,15,13,,\n"), 0o644)

	if err := NewFareImporter(db, discardLogger()).Import(ctx, dir); err != nil {
		t.Fatalf("Import: %v", err)
	}
	bands, err := db.DistanceBands(ctx, "Jeepney")
	if err != nil || len(bands) != 2 {
		t.Fatalf("DistanceBands = %v, %v", bands, err)
	}
	row, ok, err := db.StationFare(ctx, "LRT-1", "baclaran", "edsa")
	if err != nil || !ok {
		t.Fatalf("StationFare = %v, %v", ok, err)
	}
	if row.StoredValue != fare.Amount(fare.Pesos(13)) {
		t.Errorf("stored value = %v", row.StoredValue)
	}
}

func TestFareImporter_MissingFilesLeaveTables(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	if err := db.ReplaceDistanceFares(ctx, []fare.Band{{Mode: "Jeepney", MaxKm: 4, Regular: fare.Pesos(13)}}); err != nil {
		t.Fatal(err)
	}
	if err := NewFareImporter(db, discardLogger()).Import(ctx, t.TempDir()); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if bands, _ := db.DistanceBands(ctx, "Jeepney"); len(bands) != 1 {
		t.Errorf("existing bands = %d, want 1", len(bands))
	}
}

func TestNextCheck(t *testing.T) {
	manila := time.FixedZone("PHT", 8*60*60)
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before 3am", time.Date(2025, 3, 1, 1, 0, 0, 0, manila), time.Date(2025, 3, 1, 3, 0, 0, 0, manila)},
		{"exactly 3am", time.Date(2025, 3, 1, 3, 0, 0, 0, manila), time.Date(2025, 3, 2, 3, 0, 0, 0, manila)},
		{"afternoon", time.Date(2025, 3, 1, 15, 0, 0, 0, manila), time.Date(2025, 3, 2, 3, 0, 0, 0, manila)},
		{"utc input", time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC), time.Date(2025, 3, 3, 3, 0, 0, 0, manila)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextCheck(tt.now, manila); !got.Equal(tt.want) {
				t.Errorf("nextCheck(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestDownloader(t *testing.T) {
	zipPath := writeZip(t, t.TempDir(), testFeed)
	body, err := os.ReadFile(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write(body)
	}))
	defer srv.Close()

	d := NewDownloader(srv.URL, t.TempDir(), "komyut-test", discardLogger())
	ctx := context.Background()

	res, err := d.Check(ctx, "", `"v1"`)
	if err != nil || res.NeedsUpdate {
		t.Errorf("Check with current etag = %+v, %v", res, err)
	}
	res, err = d.Check(ctx, "", `"v0"`)
	if err != nil || !res.NeedsUpdate {
		t.Errorf("Check with stale etag = %+v, %v", res, err)
	}

	path, _, etag, err := d.Download(ctx)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer os.Remove(path)
	if etag != `"v1"` {
		t.Errorf("etag = %q", etag)
	}
	if gotUA != "komyut-test" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestScheduler_EnsureDataRunsHook(t *testing.T) {
	zipPath := writeZip(t, t.TempDir(), testFeed)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, zipPath)
	}))
	defer srv.Close()

	db := openDB(t)
	s := NewScheduler(NewDownloader(srv.URL, t.TempDir(), "", discardLogger()), db, time.UTC, discardLogger())
	calls := 0
	s.OnImport(func(context.Context) { calls++ })

	ctx := context.Background()
	if err := s.EnsureData(ctx); err != nil {
		t.Fatalf("EnsureData: %v", err)
	}
	if err := s.EnsureData(ctx); err != nil {
		t.Fatalf("EnsureData again: %v", err)
	}
	if calls != 1 {
		t.Errorf("import hook ran %d times, want 1", calls)
	}
}

func TestScheduler_CheckOncePerDay(t *testing.T) {
	heads := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		heads++
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	db := openDB(t)
	s := NewScheduler(NewDownloader(srv.URL, t.TempDir(), "", discardLogger()), db, time.UTC, discardLogger())
	now := time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	ctx := context.Background()
	s.CheckAndUpdate(ctx)
	s.CheckAndUpdate(ctx)
	if heads != 1 {
		t.Errorf("HEAD requests = %d, want 1 on the same day", heads)
	}
	now = now.AddDate(0, 0, 1)
	s.CheckAndUpdate(ctx)
	if heads != 2 {
		t.Errorf("HEAD requests = %d, want 2 after a day", heads)
	}
}
