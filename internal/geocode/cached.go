package geocode

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"komyut/internal/cache"
)

// Cached memoizes Search and Reverse results in a cache.Store. Cache
// failures are logged and fall through to the wrapped client.
type Cached struct {
	client *Client
	store  cache.Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps client with store.
func NewCached(client *Client, store cache.Store, ttl time.Duration, logger *slog.Logger) *Cached {
	return &Cached{client: client, store: store, ttl: ttl, logger: logger}
}

// Search returns cached results for query, which is matched case-insensitively.
// On a miss it asks the client. Errors are not cached.
func (c *Cached) Search(ctx context.Context, query string) ([]Result, error) {
	key := cache.Key("geocode", "search", strings.ToLower(strings.TrimSpace(query)))

	var results []Result
	found, err := cache.GetJSON(ctx, c.store, key, &results)
	if err != nil {
		c.logger.Warn("geocode cache read failed", "key", key, "error", err)
	}
	if found {
		return results, nil
	}

	results, err = c.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, c.store, key, results, c.ttl); err != nil {
		c.logger.Warn("geocode cache write failed", "key", key, "error", err)
	}
	return results, nil
}

// Reverse returns the cached label for the coordinate, rounded to four
// decimal places. On a miss it asks the client. Errors are not cached.
func (c *Cached) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	// ~11 m grid so nearby fixes share an entry
	key := cache.Key("geocode", "reverse",
		strconv.FormatFloat(lat, 'f', 4, 64), strconv.FormatFloat(lon, 'f', 4, 64))

	var label string
	found, err := cache.GetJSON(ctx, c.store, key, &label)
	if err != nil {
		c.logger.Warn("geocode cache read failed", "key", key, "error", err)
	}
	if found {
		return label, nil
	}

	label, err = c.client.Reverse(ctx, lat, lon)
	if err != nil {
		return "", err
	}
	if err := cache.SetJSON(ctx, c.store, key, label, c.ttl); err != nil {
		c.logger.Warn("geocode cache write failed", "key", key, "error", err)
	}
	return label, nil
}
