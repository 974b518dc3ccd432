package ports

import (
	"context"
	"drivetime-accessibility/internal/domain"
)

// Source of the population layer, study boundary and destination list.
type InputSource interface {
	Load(ctx context.Context) (*domain.Inputs, error)
}
