package ports

import (
	"context"
	"drivetime-accessibility/internal/domain"
)

// Contract for the external routing service.
type TravelTimeProvider interface {
	// Return an len(origins) x len(destinations) matrix of driving times in minutes.
	// A nil cell means the routing service found no route (unreachable).
	TravelTimes(ctx context.Context, origins []domain.Coordinates, destinations []domain.Coordinates) ([][]*float64, error)
}
