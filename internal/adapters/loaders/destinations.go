package loaders

import (
	"context"
	"drivetime-accessibility/internal/domain"
	"drivetime-accessibility/internal/platform/obs"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// destinationRow is one row of the destination table. Only name, longitude and
// latitude are required.
type destinationRow struct {
	ID        string  `csv:"id,omitempty"`
	Name      string  `csv:"name"`
	Longitude float64 `csv:"longitude"`
	Latitude  float64 `csv:"latitude"`
}

var requiredDestinationColumns = []string{"name", "longitude", "latitude"}

// LoadDestinations reads the fixed destination list from a .csv or .xlsx table.
// Row order is preserved; it is the tie-break order for equal travel times.
func LoadDestinations(ctx context.Context, path string) (_ []domain.Destination, err error) {
	defer obs.Time(ctx, "loaders.LoadDestinations")(&err)

	var rows []destinationRow
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readDestinationCSV(path)
	case ".xlsx":
		rows, err = readDestinationXLSX(path)
	default:
		return nil, invalidf("destinations: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	dests, err := toDestinations(rows)
	if err != nil {
		return nil, err
	}

	obs.Logger(ctx).Info("destinations loaded", zap.String("path", path), zap.Int("count", len(dests)))
	return dests, nil
}

func readDestinationCSV(path string) ([]destinationRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, invalidf("destinations: open %s: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, invalidf("destinations: read header of %s: %v", path, err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
	}
	if err := checkColumns(header); err != nil {
		return nil, err
	}

	dec, err := csvutil.NewDecoder(r, header...)
	if err != nil {
		return nil, invalidf("destinations: %v", err)
	}

	var rows []destinationRow
	for {
		var row destinationRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, invalidf("destinations: row %d: %v", len(rows)+1, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func readDestinationXLSX(path string) ([]destinationRow, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, invalidf("destinations: open %s: %v", path, err)
	}
	if len(f.Sheets) == 0 || len(f.Sheets[0].Rows) == 0 {
		return nil, invalidf("destinations: %s has no rows", path)
	}

	sheet := f.Sheets[0]
	header := rowToStrings(sheet.Rows[0])
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}
	if err := checkColumns(header); err != nil {
		return nil, err
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}

	cell := func(cells []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}

	rows := make([]destinationRow, 0, len(sheet.Rows)-1)
	for n, r := range sheet.Rows[1:] {
		cells := rowToStrings(r)
		if strings.Join(cells, "") == "" {
			continue
		}

		lon, err := strconv.ParseFloat(cell(cells, "longitude"), 64)
		if err != nil {
			return nil, invalidf("destinations: row %d: longitude: %v", n+1, err)
		}
		lat, err := strconv.ParseFloat(cell(cells, "latitude"), 64)
		if err != nil {
			return nil, invalidf("destinations: row %d: latitude: %v", n+1, err)
		}

		rows = append(rows, destinationRow{
			ID:        cell(cells, "id"),
			Name:      cell(cells, "name"),
			Longitude: lon,
			Latitude:  lat,
		})
	}

	return rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func checkColumns(header []string) error {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	for _, c := range requiredDestinationColumns {
		if !have[c] {
			return invalidf("destinations: missing column %q", c)
		}
	}
	return nil
}

func toDestinations(rows []destinationRow) ([]domain.Destination, error) {
	if len(rows) == 0 {
		return nil, invalidf("destinations: list is empty")
	}

	seen := make(map[string]struct{}, len(rows))
	out := make([]domain.Destination, 0, len(rows))
	for i, r := range rows {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, invalidf("destinations: row %d has empty name", i+1)
		}

		id := strings.TrimSpace(r.ID)
		if id == "" {
			id = "d" + strconv.Itoa(i+1)
		}
		if _, dup := seen[id]; dup {
			return nil, invalidf("destinations: duplicate id %q", id)
		}
		seen[id] = struct{}{}

		loc := domain.Coordinates{Lon: r.Longitude, Lat: r.Latitude}
		if !loc.Valid() {
			return nil, invalidf("destinations: %s has invalid coordinates (%v, %v)", name, r.Longitude, r.Latitude)
		}

		out = append(out, domain.Destination{ID: id, Name: name, Location: loc})
	}

	return out, nil
}
