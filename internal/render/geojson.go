package render

import (
	"drivetime-accessibility/internal/domain"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

func point(c domain.Coordinates) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{c.Lon, c.Lat})
}

// minutesProperty keeps missing times as JSON null.
func minutesProperty(a domain.Accessibility) any {
	if !a.HasTime() {
		return nil
	}
	return a.Minutes
}

// Overview is the study-area map: boundary polygons, destination points and
// area centroids, distinguished by the "kind" property.
func Overview(r *domain.Report) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}

	for i, p := range r.Boundary {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   p,
			Properties: map[string]any{"kind": "boundary", "part": i},
		})
	}

	for i, d := range r.Destinations {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       d.ID,
			Geometry: point(d.Location),
			Properties: map[string]any{
				"kind":  "destination",
				"name":  d.Name,
				"order": i,
			},
		})
	}

	for _, a := range r.Areas {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       a.ID,
			Geometry: point(a.Centroid),
			Properties: map[string]any{
				"kind":       "centroid",
				"population": a.Population,
			},
		})
	}

	return fc
}

// Areas is the choropleth layer: every area unit with its nearest-destination
// time and bucket.
func Areas(r *domain.Report) *geojson.FeatureCollection {
	byID := make(map[string]domain.Accessibility, len(r.Results))
	for _, res := range r.Results {
		byID[res.AreaID] = res
	}

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(r.Areas))}
	for _, a := range r.Areas {
		res, ok := byID[a.ID]
		if !ok {
			res = domain.Missing(a.ID, a.Population, domain.StatusFailed, nil)
		}

		props := map[string]any{
			"area_id":        a.ID,
			"population":     a.Population,
			"minutes":        minutesProperty(res),
			"bucket":         domain.Classify(res).String(),
			"status":         res.Status.String(),
			"destination_id": nil,
		}
		if res.HasTime() {
			props["destination_id"] = res.DestinationID
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         a.ID,
			Geometry:   a.Geometry,
			Properties: props,
		})
	}

	return fc
}

// Longest draws the longest nearest-destination trip: its origin, its
// destination and, when known, the road path. Without a longest route the
// collection is empty.
func Longest(r *domain.Report) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	lr := r.Longest
	if lr == nil {
		return fc
	}

	fc.Features = append(fc.Features,
		&geojson.Feature{
			ID:       lr.Area.AreaID,
			Geometry: point(lr.Origin),
			Properties: map[string]any{
				"kind":       "origin",
				"population": lr.Area.Population,
				"minutes":    lr.Area.Minutes,
			},
		},
		&geojson.Feature{
			ID:       lr.Destination.ID,
			Geometry: point(lr.Destination.Location),
			Properties: map[string]any{
				"kind": "destination",
				"name": lr.Destination.Name,
			},
		},
	)

	if lr.Path != nil {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: lr.Path,
			Properties: map[string]any{
				"kind":                 "route",
				"minutes":              lr.Area.Minutes,
				"straight_line_meters": lr.StraightLineMeters,
			},
		})
	}

	return fc
}
