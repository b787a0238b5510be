// Package metrics exposes service counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every komyut metric. The zero value is not usable; call New.
type Collector struct {
	reg *prometheus.Registry

	Searches         *prometheus.CounterVec // outcome label
	SearchCandidates prometheus.Histogram
	SearchDuration   prometheus.Histogram
	FaresUnavailable *prometheus.CounterVec // mode label

	TripsStarted   *prometheus.CounterVec // transit_type label
	TripsCompleted prometheus.Counter
	PointsAwarded  prometheus.Counter

	EventsPublished  *prometheus.CounterVec // subject label
	EventPublishErrs *prometheus.CounterVec // subject label
	PublishDuration  prometheus.Histogram
	NATSUp           prometheus.Gauge

	HTTPRequests *prometheus.CounterVec // method, route, code labels
	HTTPDuration *prometheus.HistogramVec

	CatalogStops  prometheus.Gauge
	CatalogRoutes prometheus.Gauge
	ActiveAlerts  prometheus.Gauge
}

// New creates a Collector with Go runtime and process collectors registered.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "komyut_itinerary_searches_total",
			Help: "Itinerary searches by outcome.",
		}, []string{"outcome"}),
		SearchCandidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "komyut_itinerary_candidates",
			Help:    "Candidates returned per successful search.",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "komyut_itinerary_search_duration_seconds",
			Help:    "Time to assemble an itinerary result.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		FaresUnavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "komyut_fare_unavailable_total",
			Help: "Candidates whose fare could not be determined, by mode.",
		}, []string{"mode"}),
		TripsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "komyut_trips_started_total",
			Help: "Trips started, by transit type.",
		}, []string{"transit_type"}),
		TripsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "komyut_trips_completed_total",
			Help: "Trips completed.",
		}),
		PointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "komyut_points_awarded_total",
			Help: "Reward points credited to users.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "komyut_nats_published_total",
			Help: "Trip events published to NATS.",
		}, []string{"subject"}),
		EventPublishErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "komyut_nats_publish_errors_total",
			Help: "Trip event publish errors.",
		}, []string{"subject"}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "komyut_nats_publish_duration_seconds",
			Help:    "Duration to publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		NATSUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "komyut_nats_connected",
			Help: "1 if the NATS connection is established, 0 otherwise.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "komyut_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "komyut_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		CatalogStops: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "komyut_catalog_stops",
			Help: "Stops in the loaded reference data snapshot.",
		}),
		CatalogRoutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "komyut_catalog_routes",
			Help: "Routes in the loaded reference data snapshot.",
		}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "komyut_service_alerts_active",
			Help: "Service alerts currently in effect.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.Searches, c.SearchCandidates, c.SearchDuration, c.FaresUnavailable,
		c.TripsStarted, c.TripsCompleted, c.PointsAwarded,
		c.EventsPublished, c.EventPublishErrs, c.PublishDuration, c.NATSUp,
		c.HTTPRequests, c.HTTPDuration,
		c.CatalogStops, c.CatalogRoutes, c.ActiveAlerts,
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// SearchCompleted records one itinerary search.
func (c *Collector) SearchCompleted(outcome string, candidates int, elapsed time.Duration) {
	c.Searches.WithLabelValues(outcome).Inc()
	if candidates > 0 {
		c.SearchCandidates.Observe(float64(candidates))
	}
	c.SearchDuration.Observe(elapsed.Seconds())
}

// FareUnavailable records a candidate priced N/A.
func (c *Collector) FareUnavailable(mode string) {
	c.FaresUnavailable.WithLabelValues(mode).Inc()
}

func (c *Collector) TripStarted(transitType string) {
	c.TripsStarted.WithLabelValues(transitType).Inc()
}

func (c *Collector) TripCompleted(points int) {
	c.TripsCompleted.Inc()
	c.PointsAwarded.Add(float64(points))
}

func (c *Collector) EventPublished(subject string, d time.Duration) {
	c.EventsPublished.WithLabelValues(subject).Inc()
	c.PublishDuration.Observe(d.Seconds())
}

func (c *Collector) EventPublishFailed(subject string) {
	c.EventPublishErrs.WithLabelValues(subject).Inc()
}

func (c *Collector) NATSConnected(connected bool) {
	if connected {
		c.NATSUp.Set(1)
	} else {
		c.NATSUp.Set(0)
	}
}

// RequestServed records one HTTP response. route is the mux pattern, not the
// raw path, to keep label cardinality bounded.
func (c *Collector) RequestServed(method, route string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// CatalogLoaded records the size of a reference data snapshot.
func (c *Collector) CatalogLoaded(stops, routes int) {
	c.CatalogStops.Set(float64(stops))
	c.CatalogRoutes.Set(float64(routes))
}

// AlertsLoaded records the number of alerts in effect.
func (c *Collector) AlertsLoaded(n int) {
	c.ActiveAlerts.Set(float64(n))
}
