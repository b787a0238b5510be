package geocode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"komyut/internal/cache"
)

func newNominatim(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "komyut-test/1.0")
}

func TestSearch(t *testing.T) {
	c := newNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "quiapo church" || q.Get("countrycodes") != "ph" || q.Get("bounded") != "1" {
			t.Errorf("query = %v", q)
		}
		if ua := r.Header.Get("User-Agent"); ua != "komyut-test/1.0" {
			t.Errorf("User-Agent = %q", ua)
		}
		io.WriteString(w, `[{"lat":"14.5987","lon":"120.9839","display_name":"Quiapo Church, Manila"}]`)
	})

	got, err := c.Search(context.Background(), "quiapo church")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Lat != 14.5987 || got[0].Lon != 120.9839 || got[0].DisplayName != "Quiapo Church, Manila" {
		t.Errorf("Search = %+v", got)
	}
}

func TestSearch_Empty(t *testing.T) {
	c := newNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	})
	got, err := c.Search(context.Background(), "atlantis")
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("Search = %v, %v; want empty", got, err)
	}
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) }},
		{"bad json", func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, `{`) }},
		{"bad lat", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `[{"lat":"north","lon":"121","display_name":"x"}]`)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := newNominatim(t, tt.h).Search(context.Background(), "x"); err == nil {
				t.Error("Search should fail")
			}
		})
	}
}

func TestReverse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr error
	}{
		{"house and road", `{"address":{"house_number":"1200","road":"Taft Avenue"}}`, "1200 Taft Avenue", nil},
		{"road only", `{"address":{"road":"España Boulevard"}}`, "España Boulevard", nil},
		{"display name", `{"display_name":"Rizal Park, Ermita, Manila"}`, "Rizal Park", nil},
		{"nothing", `{}`, "", ErrNoAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newNominatim(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/reverse" {
					t.Errorf("path = %s", r.URL.Path)
				}
				io.WriteString(w, tt.body)
			})
			got, err := c.Reverse(context.Background(), 14.58, 120.98)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Reverse = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCached(t *testing.T) {
	var searches, reverses atomic.Int32
	c := newNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			searches.Add(1)
			io.WriteString(w, `[{"lat":"14.6","lon":"121.0","display_name":"Cubao"}]`)
		case "/reverse":
			reverses.Add(1)
			io.WriteString(w, `{"address":{"road":"EDSA"}}`)
		}
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cached := NewCached(c, cache.NewMemory(time.Minute, time.Minute), time.Minute, logger)
	ctx := context.Background()

	for _, q := range []string{"Cubao", " cubao "} {
		got, err := cached.Search(ctx, q)
		if err != nil || len(got) != 1 || got[0].DisplayName != "Cubao" {
			t.Fatalf("Search(%q) = %v, %v", q, got, err)
		}
	}
	if n := searches.Load(); n != 1 {
		t.Errorf("upstream searches = %d, want 1", n)
	}

	for i := 0; i < 2; i++ {
		if got, err := cached.Reverse(ctx, 14.61901, 121.05371); err != nil || got != "EDSA" {
			t.Fatalf("Reverse = %q, %v", got, err)
		}
	}
	if n := reverses.Load(); n != 1 {
		t.Errorf("upstream reverses = %d, want 1", n)
	}
}

func TestCached_DoesNotCacheErrors(t *testing.T) {
	var calls atomic.Int32
	c := newNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cached := NewCached(c, cache.NewMemory(time.Minute, time.Minute), time.Minute, logger)

	for i := 0; i < 2; i++ {
		if _, err := cached.Search(context.Background(), "x"); err == nil {
			t.Fatal("Search should fail")
		}
	}
	if calls.Load() != 2 {
		t.Errorf("upstream calls = %d, want 2", calls.Load())
	}
}
