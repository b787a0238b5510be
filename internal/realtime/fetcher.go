package realtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// DefaultPollInterval is how often the alerts feed is fetched.
const DefaultPollInterval = 60 * time.Second

// Fetcher polls a GTFS-RT alerts feed and updates the store.
type Fetcher struct {
	alertsURL string
	interval  time.Duration
	store     *Store
	client    *http.Client
	logger    *slog.Logger
	onUpdate  func(n int)
}

// NewFetcher creates a GTFS-RT alerts fetcher.
func NewFetcher(alertsURL string, interval time.Duration, store *Store, logger *slog.Logger) *Fetcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Fetcher{
		alertsURL: alertsURL,
		interval:  interval,
		store:     store,
		client:    &http.Client{Timeout: 15 * time.Second},
		logger:    logger,
	}
}

// OnUpdate registers fn to receive the alert count after each successful poll.
func (f *Fetcher) OnUpdate(fn func(n int)) {
	f.onUpdate = fn
}

// Start begins polling the alerts feed. Blocks until context is cancelled.
// A failed poll keeps the previous alerts.
func (f *Fetcher) Start(ctx context.Context) {
	f.poll(ctx)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.poll(ctx)
		case <-ctx.Done():
			f.logger.Info("GTFS-RT fetcher stopped")
			return
		}
	}
}

func (f *Fetcher) poll(ctx context.Context) {
	n, err := f.Fetch(ctx)
	if err != nil {
		f.logger.Warn("fetch alerts failed", "error", err)
		return
	}
	f.logger.Info("GTFS-RT alerts updated", "count", n)
	if f.onUpdate != nil {
		f.onUpdate(n)
	}
}

// Fetch downloads the feed once and replaces the stored alerts.
func (f *Fetcher) Fetch(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.alertsURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create alerts request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("alerts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("alerts feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read alerts body: %w", err)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return 0, fmt.Errorf("parse alerts protobuf: %w", err)
	}

	alerts := ParseAlerts(feed, time.Now())
	f.store.SetAlerts(alerts)
	return len(alerts), nil
}

// ParseAlerts extracts the alerts of a feed that are active at now.
// Alerts without an active period are always active.
func ParseAlerts(feed *gtfs.FeedMessage, now time.Time) []Alert {
	var alerts []Alert
	for _, entity := range feed.GetEntity() {
		a := entity.GetAlert()
		if a == nil || entity.GetIsDeleted() || !activeAt(a, now) {
			continue
		}

		alert := Alert{
			ID:         entity.GetId(),
			HeaderText: getTranslation(a.GetHeaderText()),
			DescText:   getTranslation(a.GetDescriptionText()),
			Effect:     a.GetEffect().String(),
			Cause:      a.GetCause().String(),
		}
		alert.EffectLabel = FormatAlertEffect(alert.Effect)

		// Collect affected routes and stops (deduplicated)
		routeSet := make(map[string]bool)
		stopSet := make(map[string]bool)
		for _, ie := range a.GetInformedEntity() {
			if rid := ie.GetRouteId(); rid != "" && !routeSet[rid] {
				alert.RouteIDs = append(alert.RouteIDs, rid)
				routeSet[rid] = true
			}
			if sid := ie.GetStopId(); sid != "" && !stopSet[sid] {
				alert.StopIDs = append(alert.StopIDs, sid)
				stopSet[sid] = true
			}
		}

		alerts = append(alerts, alert)
	}
	return alerts
}

func activeAt(a *gtfs.Alert, now time.Time) bool {
	periods := a.GetActivePeriod()
	if len(periods) == 0 {
		return true
	}
	ts := uint64(now.Unix())
	for _, p := range periods {
		if (p.GetStart() == 0 || p.GetStart() <= ts) && (p.GetEnd() == 0 || ts < p.GetEnd()) {
			return true
		}
	}
	return false
}

func getTranslation(ts *gtfs.TranslatedString) string {
	if ts == nil {
		return ""
	}
	for _, t := range ts.GetTranslation() {
		if text := t.GetText(); text != "" {
			return text
		}
	}
	return ""
}

// FormatAlertEffect returns a human-readable effect description.
func FormatAlertEffect(effect string) string {
	switch effect {
	case "NO_SERVICE":
		return "No Service"
	case "REDUCED_SERVICE":
		return "Reduced Service"
	case "SIGNIFICANT_DELAYS":
		return "Significant Delays"
	case "DETOUR":
		return "Detour"
	case "ADDITIONAL_SERVICE":
		return "Additional Service"
	case "MODIFIED_SERVICE":
		return "Modified Service"
	case "STOP_MOVED":
		return "Stop Moved"
	default:
		return "Alert"
	}
}
