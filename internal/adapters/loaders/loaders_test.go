package loaders

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "destinations.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

const blocksGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"GEOID20": "040130101001000", "POP20": 12},
      "geometry": {"type": "Polygon", "coordinates": [[[-112.10,33.40],[-112.08,33.40],[-112.08,33.42],[-112.10,33.42],[-112.10,33.40]]]}
    },
    {
      "type": "Feature",
      "properties": {"geoid20": "040130101001001", "pop20": "0"},
      "geometry": {"type": "MultiPolygon", "coordinates": [[[[-112.20,33.50],[-112.18,33.50],[-112.18,33.52],[-112.20,33.52],[-112.20,33.50]]]]}
    }
  ]
}`

func TestLoadAreaUnitsFromGeoJSON(t *testing.T) {
	path := writeFile(t, "blocks.geojson", blocksGeoJSON)

	layer, err := LoadAreaUnits(context.Background(), PopulationSource{
		Path:            path,
		IDField:         "GEOID20",
		PopulationField: "POP20",
		CRS:             "EPSG:4326",
	})
	require.NoError(t, err)

	require.Len(t, layer.Units, 2)
	assert.Equal(t, "EPSG:4326", layer.CRS)
	assert.Equal(t, "040130101001000", layer.Units[0].ID)
	assert.Equal(t, 12, layer.Units[0].Population)
	assert.IsType(t, &geom.Polygon{}, layer.Units[0].Geometry)
	assert.Equal(t, "040130101001001", layer.Units[1].ID)
	assert.Equal(t, 0, layer.Units[1].Population)
	assert.IsType(t, &geom.MultiPolygon{}, layer.Units[1].Geometry)
}

func TestLoadAreaUnitsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "missing population",
			file: "blocks.geojson",
			content: `{"type":"FeatureCollection","features":[
				{"type":"Feature","properties":{"GEOID20":"a"},
				 "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`,
		},
		{
			name: "fractional population",
			file: "blocks.geojson",
			content: `{"type":"FeatureCollection","features":[
				{"type":"Feature","properties":{"GEOID20":"a","POP20":1.5},
				 "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`,
		},
		{
			name: "point geometry",
			file: "blocks.geojson",
			content: `{"type":"FeatureCollection","features":[
				{"type":"Feature","properties":{"GEOID20":"a","POP20":3},
				 "geometry":{"type":"Point","coordinates":[0,0]}}]}`,
		},
		{
			name: "duplicate id",
			file: "blocks.geojson",
			content: `{"type":"FeatureCollection","features":[
				{"type":"Feature","properties":{"GEOID20":"a","POP20":3},
				 "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}},
				{"type":"Feature","properties":{"GEOID20":"a","POP20":4},
				 "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`,
		},
		{
			name:    "empty collection",
			file:    "blocks.geojson",
			content: `{"type":"FeatureCollection","features":[]}`,
		},
		{
			name:    "not a feature collection",
			file:    "blocks.geojson",
			content: `{"type":"Feature","properties":{}}`,
		},
		{
			name:    "unsupported extension",
			file:    "blocks.kml",
			content: `<kml/>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			_, err := LoadAreaUnits(context.Background(), PopulationSource{
				Path:            path,
				IDField:         "GEOID20",
				PopulationField: "POP20",
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}

func TestLoadAreaUnitsMissingFile(t *testing.T) {
	_, err := LoadAreaUnits(context.Background(), PopulationSource{
		Path:            filepath.Join(t.TempDir(), "nope.shp"),
		IDField:         "GEOID20",
		PopulationField: "POP20",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

type shpRecord struct {
	shape shp.Shape
	id    string
	pop   int
}

// createTestShapefile writes a .shp/.shx/.dbf set with fields geoid20 and pop20.
func createTestShapefile(t *testing.T, dir string, shapeType shp.ShapeType, records []shpRecord) string {
	t.Helper()
	path := filepath.Join(dir, "blocks.shp")

	w, err := shp.Create(path, shapeType)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("geoid20", 15),
		shp.NumberField("pop20", 10),
	}))
	for _, r := range records {
		n := int(w.Write(r.shape))
		require.NoError(t, w.WriteAttribute(n, 0, r.id))
		require.NoError(t, w.WriteAttribute(n, 1, r.pop))
	}
	w.Close()

	return path
}

func square(x, y, size float64) *shp.Polygon {
	// clockwise shell
	p := shp.Polygon(*shp.NewPolyLine([][]shp.Point{{
		{X: x, Y: y}, {X: x, Y: y + size}, {X: x + size, Y: y + size}, {X: x + size, Y: y}, {X: x, Y: y},
	}}))
	return &p
}

func TestLoadAreaUnitsFromShapefile(t *testing.T) {
	dir := t.TempDir()
	path := createTestShapefile(t, dir, shp.POLYGON, []shpRecord{
		{shape: square(-112.06, 33.44, 0.02), id: "040130001001000", pop: 120},
		{shape: square(-112.02, 33.44, 0.02), id: "040130001001001", pop: 0},
	})

	// Field names are matched without regard to case.
	layer, err := LoadAreaUnits(context.Background(), PopulationSource{
		Path:            path,
		IDField:         "GEOID20",
		PopulationField: "POP20",
		CRS:             "EPSG:4269",
	})
	require.NoError(t, err)

	require.Len(t, layer.Units, 2)
	assert.Equal(t, "040130001001000", layer.Units[0].ID)
	assert.Equal(t, 120, layer.Units[0].Population)
	assert.Equal(t, 0, layer.Units[1].Population)

	mp, ok := layer.Units[0].Geometry.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 1, mp.NumPolygons())

	// Without a .prj the configured CRS applies.
	assert.Equal(t, "EPSG:4269", layer.CRS)
}

func TestLoadAreaUnitsPrefersPrj(t *testing.T) {
	dir := t.TempDir()
	path := createTestShapefile(t, dir, shp.POLYGON, []shpRecord{
		{shape: square(-112.06, 33.44, 0.02), id: "b1", pop: 10},
	})
	wkt := `GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocks.prj"), []byte(wkt+"\n"), 0o644))

	layer, err := LoadAreaUnits(context.Background(), PopulationSource{
		Path:            path,
		IDField:         "geoid20",
		PopulationField: "pop20",
		CRS:             "EPSG:4326",
	})
	require.NoError(t, err)
	assert.Equal(t, wkt, layer.CRS)
}

func TestLoadAreaUnitsShapefileRejections(t *testing.T) {
	t.Run("point geometry", func(t *testing.T) {
		path := createTestShapefile(t, t.TempDir(), shp.POINT, []shpRecord{
			{shape: &shp.Point{X: -112.05, Y: 33.45}, id: "b1", pop: 10},
		})
		_, err := LoadAreaUnits(context.Background(), PopulationSource{
			Path: path, IDField: "GEOID20", PopulationField: "POP20",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
		assert.Contains(t, err.Error(), "want polygon")
	})

	t.Run("missing field", func(t *testing.T) {
		path := createTestShapefile(t, t.TempDir(), shp.POLYGON, []shpRecord{
			{shape: square(-112.06, 33.44, 0.02), id: "b1", pop: 10},
		})
		_, err := LoadAreaUnits(context.Background(), PopulationSource{
			Path: path, IDField: "GEOID20", PopulationField: "P0010001",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("duplicate id", func(t *testing.T) {
		path := createTestShapefile(t, t.TempDir(), shp.POLYGON, []shpRecord{
			{shape: square(-112.06, 33.44, 0.02), id: "b1", pop: 10},
			{shape: square(-112.02, 33.44, 0.02), id: "b1", pop: 20},
		})
		_, err := LoadAreaUnits(context.Background(), PopulationSource{
			Path: path, IDField: "GEOID20", PopulationField: "POP20",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})
}

func TestPolygonToMultiPolygonGroupsHoles(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 3,
		Parts:    []int32{0, 5, 10},
		Points: []shp.Point{
			// clockwise shell
			{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0},
			// counter-clockwise hole
			{X: 4, Y: 4}, {X: 6, Y: 4}, {X: 6, Y: 6}, {X: 4, Y: 6}, {X: 4, Y: 4},
			// second clockwise shell
			{X: 20, Y: 20}, {X: 20, Y: 21}, {X: 21, Y: 21}, {X: 21, Y: 20}, {X: 20, Y: 20},
		},
	}

	mp := polygonToMultiPolygon(poly)
	require.NotNil(t, mp)
	require.Equal(t, 2, mp.NumPolygons())
	assert.Equal(t, 2, mp.Polygon(0).NumLinearRings())
	assert.Equal(t, 1, mp.Polygon(1).NumLinearRings())
}

func TestPolygonToMultiPolygonEmpty(t *testing.T) {
	assert.Nil(t, polygonToMultiPolygon(&shp.Polygon{}))
	assert.Nil(t, polygonToMultiPolygon(nil))
}

func TestParsePopulation(t *testing.T) {
	n, err := parsePopulation(" 12.000 ")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	for _, raw := range []string{"", "abc", "-1", "2.5"} {
		_, err := parsePopulation(raw)
		assert.Error(t, err, raw)
	}
}

func TestLoadDestinationsCSV(t *testing.T) {
	path := writeFile(t, "dest.csv", "Name,Longitude,Latitude\n"+
		"Clinic A,-112.07,33.45\n"+
		"Clinic B,-111.94,33.42\n")

	dests, err := LoadDestinations(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, dests, 2)
	assert.Equal(t, "d1", dests[0].ID)
	assert.Equal(t, "Clinic A", dests[0].Name)
	assert.InDelta(t, -112.07, dests[0].Location.Lon, 1e-9)
	assert.InDelta(t, 33.45, dests[0].Location.Lat, 1e-9)
	assert.Equal(t, "d2", dests[1].ID)
}

func TestLoadDestinationsCSVWithIDs(t *testing.T) {
	path := writeFile(t, "dest.csv", "id,name,longitude,latitude,notes\n"+
		"mesa,Mesa Clinic,-111.83,33.41,open late\n"+
		",Tempe Clinic,-111.94,33.42,\n")

	dests, err := LoadDestinations(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, dests, 2)
	assert.Equal(t, "mesa", dests[0].ID)
	assert.Equal(t, "d2", dests[1].ID)
}

func TestLoadDestinationsXLSX(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"name", "longitude", "latitude"},
		{"Clinic A", "-112.07", "33.45"},
		{"", "", ""},
		{"Clinic B", "-111.94", "33.42"},
	})

	dests, err := LoadDestinations(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, dests, 2)
	assert.Equal(t, "Clinic B", dests[1].Name)
	assert.InDelta(t, 33.42, dests[1].Location.Lat, 1e-9)
}

func TestLoadDestinationsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing column", "name,longitude\nA,-112\n"},
		{"no rows", "name,longitude,latitude\n"},
		{"empty name", "name,longitude,latitude\n ,-112,33\n"},
		{"latitude out of range", "name,longitude,latitude\nA,-112,95\n"},
		{"not a number", "name,longitude,latitude\nA,west,33\n"},
		{"duplicate id", "id,name,longitude,latitude\nx,A,-112,33\nx,B,-111,33\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "dest.csv", tt.content)
			_, err := LoadDestinations(context.Background(), path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}

func TestLoadBoundary(t *testing.T) {
	path := writeFile(t, "boundary.geojson", `{
	  "type": "FeatureCollection",
	  "features": [
	    {"type": "Feature", "properties": {},
	     "geometry": {"type": "Polygon", "coordinates": [[[-113,33],[-111,33],[-111,34],[-113,34],[-113,33]]]}}
	  ]
	}`)

	b, err := LoadBoundary(context.Background(), path, "EPSG:4326")
	require.NoError(t, err)
	require.Len(t, b.Polygons, 1)
}

func TestLoadBoundaryRejectsEmpty(t *testing.T) {
	path := writeFile(t, "boundary.geojson", `{"type":"FeatureCollection","features":[]}`)

	_, err := LoadBoundary(context.Background(), path, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
