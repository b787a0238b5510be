package transit

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// CatalogSource loads the reference data backing a Catalog.
type CatalogSource interface {
	AllStops(ctx context.Context) ([]Stop, error)
	AllRoutes(ctx context.Context) ([]Route, error)
}

// Snapshot is one immutable load of the reference data.
type Snapshot struct {
	Stops  *StopIndex
	Routes map[string]Route
}

// Catalog serves the current Snapshot and swaps it atomically on Reload.
// Readers never observe a partially loaded snapshot.
type Catalog struct {
	src     CatalogSource
	logger  *slog.Logger
	current atomic.Pointer[Snapshot]
}

// NewCatalog creates an empty Catalog. Call Reload to populate it.
func NewCatalog(src CatalogSource, logger *slog.Logger) *Catalog {
	c := &Catalog{src: src, logger: logger}
	c.current.Store(&Snapshot{Stops: NewStopIndex(nil), Routes: map[string]Route{}})
	return c
}

// Reload reads stops and routes from the source and publishes a new snapshot.
// On error the previous snapshot stays in place.
func (c *Catalog) Reload(ctx context.Context) error {
	stops, err := c.src.AllStops(ctx)
	if err != nil {
		return fmt.Errorf("load stops: %w", err)
	}
	routes, err := c.src.AllRoutes(ctx)
	if err != nil {
		return fmt.Errorf("load routes: %w", err)
	}

	byID := make(map[string]Route, len(routes))
	for _, r := range routes {
		byID[r.ID] = r
	}
	c.current.Store(&Snapshot{Stops: NewStopIndex(stops), Routes: byID})
	c.logger.Info("catalog reloaded", "stops", len(stops), "routes", len(routes))
	return nil
}

// Snapshot returns the current reference data.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Stops returns the current stop index.
func (c *Catalog) Stops() *StopIndex {
	return c.current.Load().Stops
}

// Route looks up a route by id in the current snapshot.
func (c *Catalog) Route(id string) (Route, bool) {
	r, ok := c.current.Load().Routes[id]
	return r, ok
}

// Search runs a Stop Index search against the current snapshot.
func (c *Catalog) Search(query string) []Stop {
	return c.Stops().Search(query)
}

// Stop looks up a stop by id in the current snapshot.
func (c *Catalog) Stop(id string) (Stop, bool) {
	return c.Stops().ByID(id)
}
