package ports

import (
	"context"
	"drivetime-accessibility/internal/domain"

	"github.com/twpayne/go-geom"
)

// Optional: fetches the road geometry of a single driving route, for display only.
type RouteProvider interface {
	Route(ctx context.Context, from, to domain.Coordinates) (geom.T, error)
}
