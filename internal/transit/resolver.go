package transit

import (
	"context"
	"fmt"
)

// RouteSource answers which routes have trips through both stops.
type RouteSource interface {
	ConnectingRoutes(ctx context.Context, fromStopID, toStopID string) ([]ConnectedRoute, error)
}

// Resolver finds the routes connecting two stops.
type Resolver struct {
	src         RouteSource
	directional bool
}

// NewResolver creates a Resolver. When directional is set, only routes with a
// trip visiting the origin before the destination are returned.
func NewResolver(src RouteSource, directional bool) *Resolver {
	return &Resolver{src: src, directional: directional}
}

// FindRoutes returns every route whose stop pattern contains both stops,
// each labelled with its mode. No connecting route is an empty result, not an error.
func (r *Resolver) FindRoutes(ctx context.Context, fromStopID, toStopID string) ([]ConnectedRoute, error) {
	if fromStopID == "" || toStopID == "" {
		return []ConnectedRoute{}, nil
	}
	rows, err := r.src.ConnectingRoutes(ctx, fromStopID, toStopID)
	if err != nil {
		return nil, fmt.Errorf("connecting routes %s -> %s: %w", fromStopID, toStopID, err)
	}

	routes := make([]ConnectedRoute, 0, len(rows))
	for _, cr := range rows {
		if r.directional && !cr.Forward {
			continue
		}
		cr.ModeLabel = ClassifyMode(cr.Route)
		routes = append(routes, cr)
	}
	return routes, nil
}
