package render

import (
	"bytes"
	"context"
	"drivetime-accessibility/internal/domain"
	"drivetime-accessibility/internal/platform/obs"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// Artifact file names inside the output directory.
const (
	OverviewFile = "overview.geojson"
	AreasFile    = "areas.geojson"
	LongestFile  = "longest.geojson"
	WaffleFile   = "waffle.txt"
	SummaryCSV   = "summary.csv"
	SummaryXLSX  = "summary.xlsx"
	TravelTimes  = "travel_times.csv"
)

// EncodeGeoJSON serialises a feature collection.
func EncodeGeoJSON(fc *geojson.FeatureCollection) ([]byte, error) {
	b, err := json.Marshal(fc)
	if err != nil {
		return nil, eris.Wrap(err, "render: encode geojson")
	}
	return b, nil
}

// WriteArtifacts writes every report artifact into dir, creating it if needed,
// and returns the written paths.
func WriteArtifacts(ctx context.Context, dir string, r *domain.Report) (_ []string, err error) {
	defer obs.Time(ctx, "render.WriteArtifacts")(&err)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "render: create %s", dir)
	}

	var written []string
	write := func(name string, b []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, b, 0o644); err != nil {
			return eris.Wrapf(err, "render: write %s", path)
		}
		written = append(written, path)
		return nil
	}

	layers := []struct {
		name string
		fc   *geojson.FeatureCollection
	}{
		{OverviewFile, Overview(r)},
		{AreasFile, Areas(r)},
		{LongestFile, Longest(r)},
	}
	for _, l := range layers {
		b, err := EncodeGeoJSON(l.fc)
		if err != nil {
			return nil, err
		}
		if err := write(l.name, b); err != nil {
			return nil, err
		}
	}

	var waffle bytes.Buffer
	if err := WriteWaffle(&waffle, r.Buckets); err != nil {
		return nil, err
	}
	if err := write(WaffleFile, waffle.Bytes()); err != nil {
		return nil, err
	}

	var csvBuf bytes.Buffer
	if err := WriteSummaryCSV(&csvBuf, r.Buckets); err != nil {
		return nil, err
	}
	if err := write(SummaryCSV, csvBuf.Bytes()); err != nil {
		return nil, err
	}

	var ttBuf bytes.Buffer
	if err := WriteTravelTimesCSV(&ttBuf, r.TravelTimes); err != nil {
		return nil, err
	}
	if err := write(TravelTimes, ttBuf.Bytes()); err != nil {
		return nil, err
	}

	wb, err := SummaryWorkbook(r)
	if err != nil {
		return nil, err
	}
	xlsxPath := filepath.Join(dir, SummaryXLSX)
	if err := wb.Save(xlsxPath); err != nil {
		return nil, eris.Wrapf(err, "render: write %s", xlsxPath)
	}
	written = append(written, xlsxPath)

	obs.Logger(ctx).Info("artifacts written", zap.String("dir", dir), zap.Int("files", len(written)))
	return written, nil
}
