package loaders

import (
	"context"
	"drivetime-accessibility/internal/domain"
	"strings"
)

// FileSource loads run inputs from local files.
type FileSource struct {
	Population PopulationSource
	// BoundaryPath is optional; an empty path disables the boundary filter.
	BoundaryPath     string
	BoundaryCRS      string
	DestinationsPath string
}

func (s FileSource) Load(ctx context.Context) (*domain.Inputs, error) {
	layer, err := LoadAreaUnits(ctx, s.Population)
	if err != nil {
		return nil, err
	}

	dests, err := LoadDestinations(ctx, s.DestinationsPath)
	if err != nil {
		return nil, err
	}

	in := &domain.Inputs{
		Units:        layer.Units,
		UnitsCRS:     layer.CRS,
		Destinations: dests,
	}

	if strings.TrimSpace(s.BoundaryPath) != "" {
		b, err := LoadBoundary(ctx, s.BoundaryPath, s.BoundaryCRS)
		if err != nil {
			return nil, err
		}
		in.Boundary = b.Polygons
	}

	return in, nil
}
