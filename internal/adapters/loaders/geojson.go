package loaders

import (
	"drivetime-accessibility/internal/domain"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// featureCollection decodes only the features of a GeoJSON FeatureCollection.
type featureCollection struct {
	Type     string             `json:"type"`
	Features []*geojson.Feature `json:"features"`
}

func readFeatureCollection(path string) (*featureCollection, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, invalidf("read %s: %v", path, err)
	}

	var fc featureCollection
	if err := json.Unmarshal(b, &fc); err != nil {
		return nil, invalidf("decode geojson %s: %v", path, err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, invalidf("%s: type %q, want FeatureCollection", path, fc.Type)
	}
	return &fc, nil
}

func readGeoJSONUnits(src PopulationSource) ([]domain.AreaUnit, error) {
	fc, err := readFeatureCollection(src.Path)
	if err != nil {
		return nil, err
	}

	units := make([]domain.AreaUnit, 0, len(fc.Features))
	for i, f := range fc.Features {
		id := propertyString(f.Properties, src.IDField)
		if id == "" {
			id = strings.TrimSpace(f.ID)
		}
		if id == "" {
			return nil, invalidf("population: feature %d has no %s", i, src.IDField)
		}

		pop, err := propertyPopulation(f.Properties, src.PopulationField)
		if err != nil {
			return nil, invalidf("population: area %s: %v", id, err)
		}

		switch f.Geometry.(type) {
		case *geom.Polygon, *geom.MultiPolygon:
		default:
			return nil, invalidf("population: area %s has %T geometry, want polygon", id, f.Geometry)
		}

		units = append(units, domain.AreaUnit{ID: id, Population: pop, Geometry: f.Geometry})
	}

	return units, nil
}

// propertyString reads a property case-insensitively; numbers are formatted without exponent.
func propertyString(props map[string]any, key string) string {
	v, ok := lookupProperty(props, key)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%.0f", t))
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func propertyPopulation(props map[string]any, key string) (int, error) {
	v, ok := lookupProperty(props, key)
	if !ok || v == nil {
		return 0, fmt.Errorf("missing %s", key)
	}
	switch t := v.(type) {
	case float64:
		return populationFromFloat(t)
	case string:
		return parsePopulation(t)
	default:
		return 0, fmt.Errorf("%s has unsupported type %T", key, v)
	}
}

func lookupProperty(props map[string]any, key string) (any, bool) {
	if v, ok := props[key]; ok {
		return v, true
	}
	for k, v := range props {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}
