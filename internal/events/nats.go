// Package events publishes trip lifecycle events to NATS for the
// notification service.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"komyut/internal/journey"
)

// Subjects trip events are published on.
const (
	SubjectTripStarted   = "komyut.trips.started"
	SubjectTripCompleted = "komyut.trips.completed"
)

// PublisherMetrics observes publishing.
type PublisherMetrics interface {
	EventPublished(subject string, d time.Duration)
	EventPublishFailed(subject string)
	NATSConnected(connected bool)
}

type conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher sends journey events as JSON messages.
type NATSPublisher struct {
	nc      conn
	closer  func()
	metrics PublisherMetrics
	logger  *slog.Logger
}

// NewNATSPublisher connects to the NATS server at url. The connection
// reconnects on its own; handlers keep the connected gauge current.
func NewNATSPublisher(url string, logger *slog.Logger, m PublisherMetrics) (*NATSPublisher, error) {
	setConnected := func(v bool) {
		if m != nil {
			m.NATSConnected(v)
		}
	}
	nc, err := nats.Connect(url,
		nats.Name("komyut"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			setConnected(false)
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			setConnected(true)
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			setConnected(false)
			logger.Info("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	setConnected(true)
	logger.Info("nats connected", "url", nc.ConnectedUrl())

	return &NATSPublisher{
		nc: nc,
		closer: func() {
			nc.Drain()
			nc.Close()
		},
		metrics: m,
		logger:  logger,
	}, nil
}

func newPublisher(c conn, logger *slog.Logger, m PublisherMetrics) *NATSPublisher {
	return &NATSPublisher{nc: c, metrics: m, logger: logger}
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.closer != nil {
		p.closer()
	}
}

// TripEvent publishes e on the subject for its type.
func (p *NATSPublisher) TripEvent(ctx context.Context, e journey.Event) error {
	subject, err := subjectFor(e.Type)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.Type, err)
	}

	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.EventPublishFailed(subject)
		} else {
			p.metrics.EventPublished(subject, time.Since(start))
		}
	}
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug("trip event published", "subject", subject, "trip_id", e.TripID)
	return nil
}

func subjectFor(eventType string) (string, error) {
	switch eventType {
	case journey.EventTripStarted:
		return SubjectTripStarted, nil
	case journey.EventTripCompleted:
		return SubjectTripCompleted, nil
	default:
		return "", fmt.Errorf("unknown trip event type %q", eventType)
	}
}
