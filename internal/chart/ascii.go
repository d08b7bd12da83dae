package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/derickschaefer/spread/internal/model"
)

// ─── ASCII ────────────────────────────────────────────────────────────────────

// ASCIIOptions controls terminal rendering of a layout.
type ASCIIOptions struct {
	// Width is the total character width available for the chart.
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// LabelWidth is the number of characters reserved for row labels.
	// Longer labels are truncated with an ellipsis. If 0, defaults to 28.
	LabelWidth int
	// Title is printed above the chart when non-empty.
	Title string
}

// Terminal glyphs.
const (
	glyphWhisker  = '─'
	glyphLowerBox = '░'
	glyphUpperBox = '▓'
	glyphMean     = '┃'
	glyphMinEnd   = '├'
	glyphMaxEnd   = '┤'
)

// ASCII renders l as a horizontal box plot, one text line per row.
//
// Output example:
//
//	How satisfied were you…  ├─────────░░░░░░▓▓▓▓▓▓┤
//	                         └────┬────┬────┬────┬────┘
//	                         0    2    4    6    8   10
//
// Pixel positions are mapped onto character columns with the same linear
// relationship the layout uses. Geometry outside the plot area is cut at
// the chart edge; a terminal has nowhere else to draw it.
func ASCII(w io.Writer, l *model.LayoutResult, opts ASCIIOptions) error {
	if l == nil || len(l.Rows) == 0 {
		return fmt.Errorf("chart ascii: nothing to render")
	}
	totalWidth := opts.Width
	if totalWidth <= 0 {
		totalWidth = termWidth()
	}
	labelWidth := opts.LabelWidth
	if labelWidth <= 0 {
		labelWidth = 28
	}

	plotWidth := totalWidth - labelWidth - 2
	if plotWidth < 10 {
		plotWidth = 10
	}

	x := NewScale(l.Config)
	left := l.Config.Margins.Left
	col := func(px float64) int {
		c := int(math.Round((px - left) / l.InnerWidth * float64(plotWidth-1)))
		if c < 0 {
			return 0
		}
		if c > plotWidth-1 {
			return plotWidth - 1
		}
		return c
	}

	if opts.Title != "" {
		fmt.Fprintf(w, "%s\n\n", opts.Title)
	}

	for _, r := range l.Rows {
		buf := []rune(strings.Repeat(" ", plotWidth))
		fill := func(from, to int, ch rune) {
			for i := from; i <= to && i < len(buf); i++ {
				buf[i] = ch
			}
		}
		lo, hi := col(r.WhiskerX1), col(r.WhiskerX2)
		fill(lo, hi, glyphWhisker)
		fill(col(r.LowerBoxX), col(r.LowerBoxX+r.LowerBoxWidth), glyphLowerBox)
		fill(col(r.UpperBoxX), col(r.UpperBoxX+r.UpperBoxWidth), glyphUpperBox)
		buf[lo] = glyphMinEnd
		buf[hi] = glyphMaxEnd
		if r.LowerBoxWidth > 0 || r.UpperBoxWidth > 0 {
			buf[col(x.Map(r.Summary.Mean))] = glyphMean
		}

		fmt.Fprintf(w, "%s  %s\n", padLabel(r.Label, labelWidth), strings.TrimRight(string(buf), " "))
	}

	// Axis with a tick under each grid line, then the grid values.
	axis := []rune(strings.Repeat("─", plotWidth))
	labels := []rune(strings.Repeat(" ", plotWidth+8))
	writeAt := func(pos int, s string) {
		for i, ch := range []rune(s) {
			if pos+i >= 0 && pos+i < len(labels) {
				labels[pos+i] = ch
			}
		}
	}
	for i, g := range l.GridLines {
		c := col(g.X)
		switch i {
		case 0:
			axis[c] = '└'
		case len(l.GridLines) - 1:
			axis[c] = '┘'
		default:
			axis[c] = '┬'
		}
		label := formatFloat(g.Value)
		writeAt(c-utf8.RuneCountInString(label)/2, label)
	}
	pad := strings.Repeat(" ", labelWidth+2)
	fmt.Fprintf(w, "%s%s\n", pad, string(axis))
	fmt.Fprintf(w, "%s%s\n", pad, strings.TrimRight(string(labels), " "))
	return nil
}

// padLabel right-aligns s in a field of width runes, truncating with an
// ellipsis when it does not fit.
func padLabel(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	n := utf8.RuneCountInString(s)
	if n > width {
		r := []rune(s)
		return string(r[:width-1]) + "…"
	}
	return strings.Repeat(" ", width-n) + s
}

// ─── Utilities ────────────────────────────────────────────────────────────────

// formatFloat formats a float for axis labels: no unnecessary trailing zeros,
// compact notation for large numbers.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	abs := math.Abs(v)
	switch {
	case abs == 0:
		return "0"
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e4:
		return strconv.FormatFloat(v/1e3, 'f', 1, 64) + "K"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// termWidth returns the terminal width from $COLUMNS, defaulting to 80.
func termWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 80
}
