package render

import (
	"drivetime-accessibility/internal/domain"
	"drivetime-accessibility/internal/services"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	waffleRows = 10
	waffleCols = 10
)

// Per-bucket colour and glyph, indexed by domain.Bucket. Glyphs keep the
// chart readable when colour is unavailable.
var (
	bucketColors = []lipgloss.Color{"#a6e3a1", "#94e2d5", "#f9e2af", "#fab387", "#f38ba8", "#6c7086"}
	bucketGlyphs = []string{"█", "▓", "▒", "░", "▚", "·"}
)

// WriteWaffle renders a 10x10 waffle chart of population share per bucket,
// followed by a legend. Colour is used only when w is a colour-capable terminal.
func WriteWaffle(w io.Writer, summaries []domain.BucketSummary) error {
	r := lipgloss.NewRenderer(w)
	p := message.NewPrinter(language.English)

	cells := services.WaffleCells(summaries, waffleRows*waffleCols)

	styled := make([]string, len(summaries))
	for i, s := range summaries {
		styled[i] = r.NewStyle().Foreground(bucketColors[s.Bucket]).Render(bucketGlyphs[s.Bucket] + " ")
	}

	// Fill row by row, bucket by bucket, in display order.
	grid := make([]string, 0, waffleRows*waffleCols)
	for i, n := range cells {
		for k := 0; k < n; k++ {
			grid = append(grid, styled[i])
		}
	}

	var b strings.Builder
	title := r.NewStyle().Bold(true)
	b.WriteString(title.Render("Population by drive time to nearest destination"))
	b.WriteString("\n\n")

	if len(grid) == 0 {
		b.WriteString("(no population)\n")
	}
	for row := 0; row*waffleCols < len(grid); row++ {
		end := min((row+1)*waffleCols, len(grid))
		b.WriteString(strings.Join(grid[row*waffleCols:end], ""))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	muted := r.NewStyle().Foreground(lipgloss.Color("#a6adc8"))
	for i, s := range summaries {
		line := p.Sprintf("%-9s %12d people  %3d%%  %6d units", s.Label, s.Population, s.Percent, s.Units)
		b.WriteString(styled[i])
		b.WriteString(" ")
		b.WriteString(line)
		b.WriteString("\n")
	}

	total := 0
	for _, s := range summaries {
		total += s.Population
	}
	b.WriteString(muted.Render(p.Sprintf("total population %d, one cell ≈ 1%%", total)))
	b.WriteString("\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return eris.Wrap(err, "render waffle")
	}
	return nil
}
