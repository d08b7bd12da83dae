// Package render converts Result values into human-readable or machine-parseable
// output. Each format is a separate function; the top-level Render dispatcher
// selects based on the format string and the result Kind.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/derickschaefer/spread/internal/chart"
	"github.com/derickschaefer/spread/internal/model"
	"github.com/derickschaefer/spread/internal/pipeline"
	"github.com/derickschaefer/spread/internal/util"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
	FormatSVG   = "svg"
	FormatASCII = "ascii"
)

// Formats lists every supported output format.
var Formats = []string{FormatTable, FormatJSON, FormatJSONL, FormatCSV, FormatTSV, FormatMD, FormatSVG, FormatASCII}

// ValidFormat reports whether f is a supported output format.
func ValidFormat(f string) bool {
	for _, x := range Formats {
		if x == f {
			return true
		}
	}
	return false
}

// Options carries renderer settings that do not belong to the result.
type Options struct {
	Theme      model.Theme
	ASCIIWidth int // 0 = detect from $COLUMNS
}

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string, opts Options) error {
	if result == nil {
		return fmt.Errorf("render: nil result")
	}
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatTSV:
		return renderDelimited(w, result, '\t')
	case FormatMD:
		return renderMarkdown(w, result)
	case FormatSVG:
		l, err := layoutOf(result, format)
		if err != nil {
			return err
		}
		return SVG(w, l, opts.Theme)
	case FormatASCII:
		l, err := layoutOf(result, format)
		if err != nil {
			return err
		}
		return chart.ASCII(w, l, chart.ASCIIOptions{Width: opts.ASCIIWidth, Title: result.Title})
	default:
		return renderTable(w, result)
	}
}

// RenderTo writes to stdout by default; if path is non-empty, writes to file.
func RenderTo(path string, result *model.Result, format string, opts Options) error {
	if path == "" || path == "-" {
		return Render(os.Stdout, result, format, opts)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := Render(f, result, format, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func layoutOf(result *model.Result, format string) (*model.LayoutResult, error) {
	l, ok := result.Data.(*model.LayoutResult)
	if !ok || result.Kind != model.KindLayout {
		return nil, fmt.Errorf("render: format %q is only available for chart layouts, not %q", format, result.Kind)
	}
	return l, nil
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

// renderJSONL writes one record per row for row-shaped payloads, otherwise
// the payload as a single line.
func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	switch d := result.Data.(type) {
	case *model.LayoutResult:
		for _, r := range d.Rows {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	case []model.RowStats:
		for _, r := range d {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	case *model.Dataset:
		return pipeline.WriteRows(w, d.Rows)
	case []model.Dataset:
		for _, ds := range d {
			if err := enc.Encode(datasetInfo(ds)); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.Encode(result.Data)
	}
}

// ─── Table ────────────────────────────────────────────────────────────────────

func renderTable(w io.Writer, result *model.Result) error {
	if result.Title != "" {
		fmt.Fprintf(w, "%s\n\n", result.Title)
	}
	switch d := result.Data.(type) {
	case *model.LayoutResult:
		return renderSummaryTable(w, summariesOf(d))
	case []model.RowStats:
		return renderStatsTable(w, d)
	case []model.Dataset:
		return renderDatasetsTable(w, d)
	case *model.Dataset:
		return renderDatasetTable(w, d)
	case *model.CacheStats:
		return renderCacheTable(w, d)
	default:
		// Fallback: JSON
		return renderJSON(w, result)
	}
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	return tw
}

// rightAligned returns column alignments with the first n columns left
// aligned and the rest right aligned.
func rightAligned(total, n int) []int {
	out := make([]int, total)
	for i := range out {
		if i < n {
			out[i] = tablewriter.ALIGN_LEFT
		} else {
			out[i] = tablewriter.ALIGN_RIGHT
		}
	}
	return out
}

type labeledSummary struct {
	label string
	s     model.Summary
}

func summariesOf(l *model.LayoutResult) []labeledSummary {
	out := make([]labeledSummary, len(l.Rows))
	for i, r := range l.Rows {
		out[i] = labeledSummary{r.Label, r.Summary}
	}
	return out
}

func renderSummaryTable(w io.Writer, rows []labeledSummary) error {
	tw := newTable(w, []string{"#", "LABEL", "MIN", "MEAN-SD", "MEAN", "MEAN+SD", "MAX"})
	tw.SetColumnAlignment(rightAligned(7, 2))
	for i, r := range rows {
		tw.Append([]string{
			strconv.Itoa(i + 1),
			Truncate(r.label, 50),
			util.FormatValue(r.s.Min),
			fixed2(r.s.LowerBound),
			fixed2(r.s.Mean),
			fixed2(r.s.UpperBound),
			util.FormatValue(r.s.Max),
		})
	}
	tw.Render()
	return nil
}

func renderStatsTable(w io.Writer, rows []model.RowStats) error {
	tw := newTable(w, []string{"#", "LABEL", "N", "MIN", "P25", "MEDIAN", "MEAN", "P75", "MAX", "SD", "MEAN±SD"})
	tw.SetColumnAlignment(rightAligned(11, 2))
	for i, r := range rows {
		tw.Append([]string{
			strconv.Itoa(i + 1),
			Truncate(r.Label, 50),
			strconv.Itoa(r.Count),
			util.FormatValue(r.Summary.Min),
			fixed2(r.P25),
			fixed2(r.Median),
			fixed2(r.Summary.Mean),
			fixed2(r.P75),
			util.FormatValue(r.Summary.Max),
			fixed2(r.StdDev),
			fixed2(r.Summary.LowerBound) + " – " + fixed2(r.Summary.UpperBound),
		})
	}
	tw.Render()
	return nil
}

func renderDatasetsTable(w io.Writer, sets []model.Dataset) error {
	tw := newTable(w, []string{"NAME", "TITLE", "ROWS", "SAMPLES", "SOURCE", "STORED"})
	tw.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
	})
	for _, d := range sets {
		info := datasetInfo(d)
		tw.Append([]string{
			info.Name,
			Truncate(info.Title, 40),
			strconv.Itoa(info.Rows),
			strconv.Itoa(info.Samples),
			Truncate(info.Source, 40),
			formatTime(info.StoredAt),
		})
	}
	tw.Render()
	return nil
}

func renderDatasetTable(w io.Writer, d *model.Dataset) error {
	tw := newTable(w, []string{"#", "LABEL", "N", "VALUES"})
	tw.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
	})
	for i, r := range d.Rows {
		tw.Append([]string{
			strconv.Itoa(i + 1),
			Truncate(r.Label, 50),
			strconv.Itoa(len(r.Values)),
			Truncate(joinValues(r.Values, " "), 60),
		})
	}
	tw.Render()
	return nil
}

func renderCacheTable(w io.Writer, c *model.CacheStats) error {
	tw := newTable(w, []string{"FIELD", "VALUE"})
	for _, r := range [][]string{
		{"Path", c.Path},
		{"Schema", c.SchemaVersion},
		{"Datasets", strconv.Itoa(c.Datasets)},
		{"Cached layouts", strconv.Itoa(c.Layouts)},
		{"Size", formatBytes(c.SizeBytes)},
	} {
		tw.Append(r)
	}
	tw.Render()
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	switch d := result.Data.(type) {
	case *model.LayoutResult:
		_ = cw.Write([]string{"row", "label", "min", "lower_bound", "mean", "upper_bound", "max",
			"center_y", "whisker_x1", "whisker_x2", "lower_box_x", "lower_box_width", "upper_box_x", "upper_box_width"})
		for _, r := range d.Rows {
			_ = cw.Write([]string{
				strconv.Itoa(r.Index), r.Label,
				util.FormatValue(r.Summary.Min), util.FormatValue(r.Summary.LowerBound),
				util.FormatValue(r.Summary.Mean), util.FormatValue(r.Summary.UpperBound),
				util.FormatValue(r.Summary.Max),
				util.FormatValue(r.CenterY), util.FormatValue(r.WhiskerX1), util.FormatValue(r.WhiskerX2),
				util.FormatValue(r.LowerBoxX), util.FormatValue(r.LowerBoxWidth),
				util.FormatValue(r.UpperBoxX), util.FormatValue(r.UpperBoxWidth),
			})
		}
	case []model.RowStats:
		_ = cw.Write([]string{"label", "count", "min", "p25", "median", "mean", "p75", "max", "std_dev", "lower_bound", "upper_bound"})
		for _, r := range d {
			_ = cw.Write([]string{
				r.Label, strconv.Itoa(r.Count),
				util.FormatValue(r.Summary.Min), util.FormatValue(r.P25), util.FormatValue(r.Median),
				util.FormatValue(r.Summary.Mean), util.FormatValue(r.P75), util.FormatValue(r.Summary.Max),
				util.FormatValue(r.StdDev), util.FormatValue(r.Summary.LowerBound), util.FormatValue(r.Summary.UpperBound),
			})
		}
	case *model.Dataset:
		// Long layout: one sample per line, re-importable with --input-format csv.
		_ = cw.Write([]string{"label", "value"})
		for _, r := range d.Rows {
			for _, v := range r.Values {
				_ = cw.Write([]string{r.Label, util.FormatValue(v)})
			}
		}
	case []model.Dataset:
		_ = cw.Write([]string{"name", "title", "rows", "samples", "source", "stored_at"})
		for _, ds := range d {
			info := datasetInfo(ds)
			_ = cw.Write([]string{info.Name, info.Title, strconv.Itoa(info.Rows), strconv.Itoa(info.Samples), info.Source, formatTime(info.StoredAt)})
		}
	default:
		// Fallback: serialize as JSON on a single line
		b, _ := json.Marshal(result.Data)
		_ = cw.Write([]string{string(b)})
	}

	cw.Flush()
	return cw.Error()
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	switch d := result.Data.(type) {
	case *model.LayoutResult:
		fmt.Fprintf(w, "| LABEL | MIN | MEAN-SD | MEAN | MEAN+SD | MAX |\n|----|----:|----:|----:|----:|----:|\n")
		for _, r := range d.Rows {
			fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s |\n",
				mdEscape(r.Label),
				util.FormatValue(r.Summary.Min), fixed2(r.Summary.LowerBound), fixed2(r.Summary.Mean),
				fixed2(r.Summary.UpperBound), util.FormatValue(r.Summary.Max))
		}
		return nil
	case []model.RowStats:
		fmt.Fprintf(w, "| LABEL | N | MIN | MEDIAN | MEAN | MAX | SD |\n|----|----:|----:|----:|----:|----:|----:|\n")
		for _, r := range d {
			fmt.Fprintf(w, "| %s | %d | %s | %s | %s | %s | %s |\n",
				mdEscape(r.Label), r.Count,
				util.FormatValue(r.Summary.Min), fixed2(r.Median), fixed2(r.Summary.Mean),
				util.FormatValue(r.Summary.Max), fixed2(r.StdDev))
		}
		return nil
	case []model.Dataset:
		fmt.Fprintf(w, "| NAME | TITLE | ROWS | SAMPLES |\n|----|----|----:|----:|\n")
		for _, ds := range d {
			info := datasetInfo(ds)
			fmt.Fprintf(w, "| %s | %s | %d | %d |\n", mdEscape(info.Name), mdEscape(info.Title), info.Rows, info.Samples)
		}
		return nil
	default:
		return renderJSON(w, result)
	}
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and stats to w when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		src := "computed"
		if result.Stats.CacheHit {
			src = "cache"
		}
		fmt.Fprintf(w, "\n[%s • %d items • %dms • %s]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
			src,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// datasetSummary is the listing view of a stored dataset, without samples.
type datasetSummary struct {
	Name     string    `json:"name"`
	Title    string    `json:"title,omitempty"`
	Rows     int       `json:"rows"`
	Samples  int       `json:"samples"`
	Source   string    `json:"source,omitempty"`
	StoredAt time.Time `json:"stored_at"`
}

func datasetInfo(d model.Dataset) datasetSummary {
	return datasetSummary{
		Name:     d.Name,
		Title:    d.Title,
		Rows:     len(d.Rows),
		Samples:  d.SampleCount(),
		Source:   d.Source,
		StoredAt: d.StoredAt,
	}
}

// fixed2 formats a rounded statistic with exactly two decimals.
func fixed2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func joinValues(vs []float64, sep string) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = util.FormatValue(v)
	}
	return strings.Join(parts, sep)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
