package geometry

import (
	"drivetime-accessibility/internal/domain"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Centroid returns the area-weighted centroid of g as WGS84 coordinates.
// g must already be in a lon/lat CRS.
func Centroid(g geom.T) (domain.Coordinates, error) {
	if g == nil || len(g.FlatCoords()) == 0 {
		return domain.Coordinates{}, eris.New("geometry: centroid of empty geometry")
	}

	c, err := xy.Centroid(g)
	if err != nil {
		return domain.Coordinates{}, eris.Wrap(err, "geometry: centroid")
	}

	out := domain.Coordinates{Lon: c.X(), Lat: c.Y()}
	if !out.Valid() {
		return domain.Coordinates{}, eris.Errorf("geometry: centroid %v outside lon/lat range", c)
	}
	return out, nil
}
