package loaders

import (
	"drivetime-accessibility/internal/domain"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

func readShapefileUnits(src PopulationSource) ([]domain.AreaUnit, error) {
	reader, err := shp.Open(src.Path)
	if err != nil {
		return nil, invalidf("population: open shapefile %s: %v", src.Path, err)
	}
	defer func() { _ = reader.Close() }()

	idIdx := fieldIndex(reader, src.IDField)
	popIdx := fieldIndex(reader, src.PopulationField)
	if idIdx < 0 || popIdx < 0 {
		return nil, invalidf("population: required shapefile fields (%s, %s) not found", src.IDField, src.PopulationField)
	}

	var units []domain.AreaUnit
	for reader.Next() {
		n, shape := reader.Shape()

		id := cleanAttribute(reader.Attribute(idIdx))
		if id == "" {
			return nil, invalidf("population: record %d has empty %s", n, src.IDField)
		}

		pop, err := parsePopulation(cleanAttribute(reader.Attribute(popIdx)))
		if err != nil {
			return nil, invalidf("population: area %s: %v", id, err)
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			return nil, invalidf("population: area %s has %T geometry, want polygon", id, shape)
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			return nil, invalidf("population: area %s has empty geometry", id)
		}

		units = append(units, domain.AreaUnit{ID: id, Population: pop, Geometry: mp})
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "population: read shapefile %s", src.Path)
	}

	return units, nil
}

func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

func cleanAttribute(v string) string {
	return strings.TrimSpace(strings.TrimRight(v, "\x00"))
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Shapefile shells are clockwise and holes counter-clockwise; each hole is
// attached to the shell that precedes it.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	var current *geom.Polygon

	flush := func() {
		if current != nil {
			_ = mp.Push(current)
		}
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			continue
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if signedArea(flat) < 0 || current == nil {
			flush()
			current = geom.NewPolygon(geom.XY)
		}
		if err := current.Push(ring); err != nil {
			continue
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// signedArea is the shoelace area of a flat XY ring; negative for clockwise rings.
func signedArea(flat []float64) float64 {
	var sum float64
	n := len(flat) / 2
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += flat[2*i]*flat[2*j+1] - flat[2*j]*flat[2*i+1]
	}
	return sum / 2
}
