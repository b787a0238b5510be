package realtime

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

func text(s string) *gtfs.TranslatedString {
	return &gtfs.TranslatedString{Translation: []*gtfs.TranslatedString_Translation{{Text: proto.String(s)}}}
}

func testFeed(now time.Time) *gtfs.FeedMessage {
	past := uint64(now.Add(-2 * time.Hour).Unix())
	hourAgo := uint64(now.Add(-time.Hour).Unix())
	later := uint64(now.Add(time.Hour).Unix())

	return &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: []*gtfs.FeedEntity{
			{
				Id: proto.String("detour-1"),
				Alert: &gtfs.Alert{
					HeaderText: text("Taft Ave jeepneys rerouted"),
					Effect:     gtfs.Alert_DETOUR.Enum(),
					Cause:      gtfs.Alert_CONSTRUCTION.Enum(),
					InformedEntity: []*gtfs.EntitySelector{
						{RouteId: proto.String("R1")},
						{RouteId: proto.String("R1"), StopId: proto.String("S1")},
						{RouteId: proto.String("R2")},
					},
					ActivePeriod: []*gtfs.TimeRange{{Start: proto.Uint64(hourAgo), End: proto.Uint64(later)}},
				},
			},
			{
				Id: proto.String("expired"),
				Alert: &gtfs.Alert{
					HeaderText:     text("Old news"),
					InformedEntity: []*gtfs.EntitySelector{{RouteId: proto.String("R1")}},
					ActivePeriod:   []*gtfs.TimeRange{{Start: proto.Uint64(past), End: proto.Uint64(hourAgo)}},
				},
			},
			{
				Id: proto.String("lrt-down"),
				Alert: &gtfs.Alert{
					HeaderText:     text("LRT-1 suspended"),
					Effect:         gtfs.Alert_NO_SERVICE.Enum(),
					InformedEntity: []*gtfs.EntitySelector{{RouteId: proto.String("LRT1")}},
				},
			},
			{Id: proto.String("vehicle-only")},
		},
	}
}

func TestParseAlerts(t *testing.T) {
	now := time.Now()
	alerts := ParseAlerts(testFeed(now), now)
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2 (expired and non-alert entities skipped)", len(alerts))
	}

	a := alerts[0]
	if a.ID != "detour-1" || a.HeaderText != "Taft Ave jeepneys rerouted" {
		t.Errorf("alert = %+v", a)
	}
	if a.Effect != "DETOUR" || a.EffectLabel != "Detour" || a.Cause != "CONSTRUCTION" {
		t.Errorf("effect/cause = %s/%s/%s", a.Effect, a.EffectLabel, a.Cause)
	}
	if len(a.RouteIDs) != 2 || a.RouteIDs[0] != "R1" || a.RouteIDs[1] != "R2" {
		t.Errorf("RouteIDs = %v, want deduplicated [R1 R2]", a.RouteIDs)
	}
	if len(a.StopIDs) != 1 || a.StopIDs[0] != "S1" {
		t.Errorf("StopIDs = %v", a.StopIDs)
	}
}

func TestStore(t *testing.T) {
	now := time.Now()
	s := NewStore()
	if got := s.AlertsForRoute("R1"); len(got) != 0 {
		t.Errorf("empty store returned %v", got)
	}
	s.SetAlerts(ParseAlerts(testFeed(now), now))

	if got := s.AlertsForRoute("R2"); len(got) != 1 || got[0].ID != "detour-1" {
		t.Errorf("AlertsForRoute(R2) = %v", got)
	}
	if got := s.AlertsForRoute("LRT1"); len(got) != 1 || got[0].EffectLabel != "No Service" {
		t.Errorf("AlertsForRoute(LRT1) = %v", got)
	}
	if got := s.AlertsForStop("S1"); len(got) != 1 {
		t.Errorf("AlertsForStop(S1) = %v", got)
	}
	if got := s.AllAlerts(); len(got) != 2 {
		t.Errorf("AllAlerts = %d alerts", len(got))
	}
}

func TestFetcher_Fetch(t *testing.T) {
	body, err := proto.Marshal(testFeed(time.Now()))
	if err != nil {
		t.Fatalf("marshal feed: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	store := NewStore()
	f := NewFetcher(srv.URL, 0, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	n, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if n != 2 || len(store.AllAlerts()) != 2 {
		t.Errorf("Fetch stored %d alerts (returned %d), want 2", len(store.AllAlerts()), n)
	}
}

func TestFetcher_FailureKeepsAlerts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	store := NewStore()
	store.SetAlerts([]Alert{{ID: "keep", RouteIDs: []string{"R1"}}})
	f := NewFetcher(srv.URL, time.Minute, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch should fail on a 502")
	}
	if got := store.AllAlerts(); len(got) != 1 || got[0].ID != "keep" {
		t.Errorf("alerts after failed fetch = %v", got)
	}
}

func TestFetcher_StartReportsCount(t *testing.T) {
	body, err := proto.Marshal(testFeed(time.Now()))
	if err != nil {
		t.Fatalf("marshal feed: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan int, 1)
	f := NewFetcher(srv.URL, time.Hour, NewStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.OnUpdate(func(n int) {
		got <- n
		cancel()
	})

	done := make(chan struct{})
	go func() {
		f.Start(ctx)
		close(done)
	}()

	select {
	case n := <-got:
		if n != 2 {
			t.Errorf("OnUpdate count = %d, want 2", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnUpdate not called")
	}
	<-done
}

func TestFormatAlertEffect(t *testing.T) {
	tests := map[string]string{
		"NO_SERVICE":     "No Service",
		"DETOUR":         "Detour",
		"STOP_MOVED":     "Stop Moved",
		"UNKNOWN_EFFECT": "Alert",
	}
	for in, want := range tests {
		if got := FormatAlertEffect(in); got != want {
			t.Errorf("FormatAlertEffect(%q) = %q, want %q", in, got, want)
		}
	}
}
