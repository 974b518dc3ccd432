package ports

import "context"

// Persistent cache of origin->destination driving times (minutes).
// Keys are coordinate keys (domain.Coordinates.Key). A present nil value
// means the pair is cached as unreachable.
type TravelTimeCache interface {
	GetMany(ctx context.Context, profile string, origin string, destinations []string) (map[string]*float64, error)
	PutMany(ctx context.Context, profile string, origin string, results map[string]*float64) error
}
