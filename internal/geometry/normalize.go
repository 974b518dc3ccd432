package geometry

import (
	"context"
	"drivetime-accessibility/internal/domain"
	"drivetime-accessibility/internal/platform/obs"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

type NormalizeOptions struct {
	// SourceCRS of the area unit geometries; empty means WGS84.
	SourceCRS string
	// Boundary filter in WGS84; nil keeps every unit.
	Boundary *Boundary
	// SkipUnpopulated drops units with zero population before routing.
	SkipUnpopulated bool
}

type NormalizeStats struct {
	Input           int
	OutsideBoundary int
	Unpopulated     int
	Kept            int
}

// Normalize reprojects area units to WGS84, reduces each to its centroid and
// applies the boundary and population filters. The returned units are new
// values; the input slice is not modified.
func Normalize(ctx context.Context, units []domain.AreaUnit, opts NormalizeOptions) (_ []domain.AreaUnit, _ NormalizeStats, err error) {
	defer obs.Time(ctx, "geometry.Normalize")(&err)

	stats := NormalizeStats{Input: len(units)}

	rp, err := NewReprojector(opts.SourceCRS, WGS84)
	if err != nil {
		return nil, stats, err
	}

	out := make([]domain.AreaUnit, 0, len(units))
	for _, u := range units {
		if opts.SkipUnpopulated && u.Population == 0 {
			stats.Unpopulated++
			continue
		}

		g, err := rp.Reproject(u.Geometry)
		if err != nil {
			return nil, stats, eris.Wrapf(err, "normalize: area %s", u.ID)
		}

		c, err := Centroid(g)
		if err != nil {
			return nil, stats, eris.Wrapf(err, "normalize: area %s", u.ID)
		}

		if opts.Boundary != nil && !opts.Boundary.Contains(c) {
			stats.OutsideBoundary++
			continue
		}

		out = append(out, domain.AreaUnit{
			ID:         u.ID,
			Population: u.Population,
			Geometry:   g,
			Centroid:   c,
		})
	}
	stats.Kept = len(out)

	obs.Logger(ctx).Info("area units normalized",
		zap.Int("input", stats.Input),
		zap.Int("kept", stats.Kept),
		zap.Int("outside_boundary", stats.OutsideBoundary),
		zap.Int("unpopulated", stats.Unpopulated),
	)

	return out, stats, nil
}
