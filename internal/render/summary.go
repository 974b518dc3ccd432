package render

import (
	"bytes"
	"drivetime-accessibility/internal/domain"
	"io"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// SummaryRow is the tabular form of one bucket summary.
type SummaryRow struct {
	Bucket     string  `csv:"bucket" json:"bucket"`
	Population int     `csv:"population" json:"population"`
	Units      int     `csv:"units" json:"units"`
	Percent    int     `csv:"percent" json:"percent"`
	Share      float64 `csv:"share" json:"share"`
}

func SummaryRows(summaries []domain.BucketSummary) []SummaryRow {
	rows := make([]SummaryRow, len(summaries))
	for i, s := range summaries {
		rows[i] = SummaryRow{
			Bucket:     s.Label,
			Population: s.Population,
			Units:      s.Units,
			Percent:    s.Percent,
			Share:      s.Share,
		}
	}
	return rows
}

// WriteSummaryCSV writes the bucket table as CSV with a header row.
func WriteSummaryCSV(w io.Writer, summaries []domain.BucketSummary) error {
	b, err := csvutil.Marshal(SummaryRows(summaries))
	if err != nil {
		return eris.Wrap(err, "render summary csv")
	}
	if _, err := io.Copy(w, bytes.NewReader(b)); err != nil {
		return eris.Wrap(err, "render summary csv")
	}
	return nil
}

// TravelTimeRow is the tabular form of one reachable origin/destination pair.
type TravelTimeRow struct {
	AreaID        string  `csv:"area_id"`
	DestinationID string  `csv:"destination_id"`
	Minutes       float64 `csv:"minutes"`
}

// WriteTravelTimesCSV writes the reachable part of the travel-time matrix as CSV.
// Pairs without a route are left out; an empty matrix yields only the header.
func WriteTravelTimesCSV(w io.Writer, observations []domain.TravelTimeObservation) error {
	if len(observations) == 0 {
		if _, err := io.WriteString(w, "area_id,destination_id,minutes\n"); err != nil {
			return eris.Wrap(err, "render travel times csv")
		}
		return nil
	}

	rows := make([]TravelTimeRow, len(observations))
	for i, o := range observations {
		rows[i] = TravelTimeRow{AreaID: o.OriginID, DestinationID: o.DestinationID, Minutes: o.Minutes}
	}
	b, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrap(err, "render travel times csv")
	}
	if _, err := w.Write(b); err != nil {
		return eris.Wrap(err, "render travel times csv")
	}
	return nil
}

var summaryHeader = []string{"bucket", "population", "units", "percent", "share"}

// SummaryWorkbook builds a one-sheet workbook of the bucket table, with a
// totals row.
func SummaryWorkbook(r *domain.Report) (*xlsx.File, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("summary")
	if err != nil {
		return nil, eris.Wrap(err, "render summary workbook")
	}

	header := sheet.AddRow()
	for _, h := range summaryHeader {
		header.AddCell().SetString(h)
	}

	total, units := 0, 0
	for _, s := range SummaryRows(r.Buckets) {
		row := sheet.AddRow()
		row.AddCell().SetString(s.Bucket)
		row.AddCell().SetInt(s.Population)
		row.AddCell().SetInt(s.Units)
		row.AddCell().SetInt(s.Percent)
		row.AddCell().SetFloat(s.Share)
		total += s.Population
		units += s.Units
	}

	totals := sheet.AddRow()
	totals.AddCell().SetString("total")
	totals.AddCell().SetInt(total)
	totals.AddCell().SetInt(units)

	meta, err := f.AddSheet("run")
	if err != nil {
		return nil, eris.Wrap(err, "render summary workbook")
	}
	addPair := func(k, v string) {
		row := meta.AddRow()
		row.AddCell().SetString(k)
		row.AddCell().SetString(v)
	}
	addPair("run_id", r.RunID)
	addPair("started_at", r.StartedAt.UTC().Format(time.RFC3339))
	addPair("finished_at", r.FinishedAt.UTC().Format(time.RFC3339))
	if r.Longest != nil {
		addPair("longest_area", r.Longest.Area.AreaID)
		addPair("longest_destination", r.Longest.Destination.Name)
	}

	return f, nil
}
