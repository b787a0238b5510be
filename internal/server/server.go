// Package server wires the komyut HTTP API: routes, middleware, and the
// listener lifecycle.
package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"komyut/internal/config"
	"komyut/internal/handler"
	"komyut/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

// DataChecker reports whether a transit feed has been imported.
type DataChecker interface {
	HasData(ctx context.Context) bool
}

// Server is the HTTP server for komyut.
type Server struct {
	mux     *http.ServeMux
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Collector
	secret  []byte
	ready   chan struct{} // closed when GTFS data is available
}

// New creates a Server with all routes registered. m may be nil.
func New(cfg *config.Config, h *handler.Handler, data DataChecker, m *metrics.Collector, logger *slog.Logger) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		secret:  jwtSecret(cfg.JWTSecret, logger),
		ready:   make(chan struct{}),
	}
	if data.HasData(context.Background()) {
		close(s.ready)
	}

	// Stops
	s.route("GET /api/stops", h.SearchStops)
	s.route("GET /api/stops/nearby", h.NearbyStops)
	s.route("GET /api/stops/{id}", h.StopDetail)

	// Routes and planning
	s.route("GET /api/routes", h.ConnectingRoutes)
	s.route("GET /api/routes/{id}", h.RouteDetail)
	s.route("GET /api/itineraries", h.Itineraries)
	s.route("GET /api/fares", h.EstimateFares)
	s.route("GET /api/location", h.LocationLabel)
	s.route("GET /api/alerts", h.ListAlerts)

	// Trips
	s.authRoute("POST /api/trips", h.StartTrip)
	s.authRoute("GET /api/trips", h.MyTrips)
	s.authRoute("POST /api/trips/{id}/complete", h.CompleteTrip)
	s.authRoute("GET /api/me/points", h.MyPoints)

	s.route("GET /healthz", handler.Healthz)
	if m != nil && cfg.MetricsEnabled {
		s.mux.Handle("GET /metrics", m.Handler())
	}
	return s
}

func (s *Server) route(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.instrument(pattern, h))
}

func (s *Server) authRoute(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.instrument(pattern, requireAuth(h, s.secret)))
}

// instrument records request counts and latency per route pattern.
func (s *Server) instrument(pattern string, next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	_, route, _ := strings.Cut(pattern, " ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.metrics.RequestServed(r.Method, route, sw.status, time.Since(start))
	})
}

// SetReady signals that GTFS data is available and the API can serve requests.
func (s *Server) SetReady() {
	select {
	case <-s.ready:
		// already closed
	default:
		close(s.ready)
	}
}

// Handler returns the routed mux wrapped in middleware.
func (s *Server) Handler() http.Handler {
	return withMiddleware(s.mux, s.logger, s.cfg.CORSOrigins, s.ready)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// jwtSecret returns the configured signing secret, or a random one that no
// issued token can match.
func jwtSecret(configured string, logger *slog.Logger) []byte {
	if configured != "" {
		return []byte(configured)
	}
	logger.Warn("KOMYUT_JWT_SECRET not set, using a random secret; every bearer token will be rejected")
	b := make([]byte, 32)
	rand.Read(b)
	return b
}
