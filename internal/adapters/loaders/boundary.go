package loaders

import (
	"context"
	"drivetime-accessibility/internal/geometry"
	"drivetime-accessibility/internal/platform/obs"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// LoadBoundary reads the study-area filter from a GeoJSON FeatureCollection
// and reprojects it from crs to WGS84.
func LoadBoundary(ctx context.Context, path string, crs string) (_ *geometry.Boundary, err error) {
	defer obs.Time(ctx, "loaders.LoadBoundary")(&err)

	fc, err := readFeatureCollection(path)
	if err != nil {
		return nil, eris.Wrap(err, "boundary")
	}
	if len(fc.Features) == 0 {
		return nil, invalidf("boundary: %s has no features", path)
	}

	rp, err := geometry.NewReprojector(crs, geometry.WGS84)
	if err != nil {
		return nil, eris.Wrap(err, "boundary")
	}

	geoms := make([]geom.T, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry == nil {
			return nil, invalidf("boundary: feature %d has no geometry", i)
		}
		g, err := rp.Reproject(f.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "boundary: feature %d", i)
		}
		geoms = append(geoms, g)
	}

	b, err := geometry.NewBoundary(geoms)
	if err != nil {
		return nil, invalidf("boundary: %v", err)
	}
	return b, nil
}
