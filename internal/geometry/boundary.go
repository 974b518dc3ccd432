package geometry

import (
	"drivetime-accessibility/internal/domain"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Boundary is the study area: a union of polygons in WGS84.
type Boundary struct {
	Polygons []*geom.Polygon
}

// NewBoundary flattens Polygon and MultiPolygon geometries into a Boundary.
func NewBoundary(geoms []geom.T) (*Boundary, error) {
	b := &Boundary{}
	for i, g := range geoms {
		switch t := g.(type) {
		case *geom.Polygon:
			b.Polygons = append(b.Polygons, t)
		case *geom.MultiPolygon:
			for j := 0; j < t.NumPolygons(); j++ {
				b.Polygons = append(b.Polygons, t.Polygon(j))
			}
		default:
			return nil, eris.Errorf("geometry: boundary feature %d is %T, want polygon", i, g)
		}
	}
	if len(b.Polygons) == 0 {
		return nil, eris.New("geometry: boundary has no polygons")
	}
	return b, nil
}

// Contains reports whether c lies inside any polygon (inside the shell and
// outside every hole).
func (b *Boundary) Contains(c domain.Coordinates) bool {
	p := geom.Coord{c.Lon, c.Lat}
	for _, poly := range b.Polygons {
		if poly.NumLinearRings() == 0 {
			continue
		}
		if !xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(0).FlatCoords()) {
			continue
		}
		inHole := false
		for r := 1; r < poly.NumLinearRings(); r++ {
			if xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(r).FlatCoords()) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}
