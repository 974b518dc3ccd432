package loaders

import (
	"context"
	"drivetime-accessibility/internal/domain"
	"drivetime-accessibility/internal/platform/obs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PopulationSource describes the population-per-area-unit layer.
type PopulationSource struct {
	Path            string
	IDField         string
	PopulationField string
	// CRS is used when the file does not declare one (no sibling .prj).
	CRS string
}

// PopulationLayer is the loaded layer and the CRS its geometries are in.
type PopulationLayer struct {
	Units []domain.AreaUnit
	CRS   string
}

// LoadAreaUnits reads census blocks from a shapefile (.shp) or GeoJSON file.
func LoadAreaUnits(ctx context.Context, src PopulationSource) (_ *PopulationLayer, err error) {
	defer obs.Time(ctx, "loaders.LoadAreaUnits")(&err)

	if strings.TrimSpace(src.Path) == "" {
		return nil, invalidf("population: path is required")
	}
	if src.IDField == "" || src.PopulationField == "" {
		return nil, invalidf("population: id and population field names are required")
	}

	var units []domain.AreaUnit
	crs := src.CRS

	switch strings.ToLower(filepath.Ext(src.Path)) {
	case ".shp":
		units, err = readShapefileUnits(src)
		if err != nil {
			return nil, err
		}
		prj, prjErr := readPrj(src.Path)
		if prjErr != nil {
			return nil, prjErr
		}
		if prj != "" {
			crs = prj
		}
	case ".geojson", ".json":
		units, err = readGeoJSONUnits(src)
		if err != nil {
			return nil, err
		}
	default:
		return nil, invalidf("population: unsupported file type %q", filepath.Ext(src.Path))
	}

	if len(units) == 0 {
		return nil, invalidf("population: %s contains no area units", src.Path)
	}

	seen := make(map[string]struct{}, len(units))
	for _, u := range units {
		if _, dup := seen[u.ID]; dup {
			return nil, invalidf("population: duplicate area id %q", u.ID)
		}
		seen[u.ID] = struct{}{}
	}

	obs.Logger(ctx).Info("population layer loaded",
		zap.String("path", src.Path),
		zap.Int("units", len(units)),
		zap.Bool("declared_crs", crs != ""),
	)

	return &PopulationLayer{Units: units, CRS: crs}, nil
}

// readPrj returns the WKT of the shapefile's sibling .prj file, or "" when absent.
func readPrj(shpPath string) (string, error) {
	prjPath := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".prj"
	b, err := os.ReadFile(prjPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "population: read %s", prjPath)
	}
	return strings.TrimSpace(string(b)), nil
}

// parsePopulation accepts integer counts, including DBF renderings such as "12.000".
func parsePopulation(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, eris.New("empty population value")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse population %q", raw)
	}
	return populationFromFloat(f)
}

func populationFromFloat(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) {
		return 0, eris.Errorf("population %v is not a non-negative integer", f)
	}
	return int(f), nil
}
