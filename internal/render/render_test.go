package render_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/derickschaefer/spread/internal/chart"
	"github.com/derickschaefer/spread/internal/model"
	"github.com/derickschaefer/spread/internal/render"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func sampleLayout(t *testing.T, cfg model.GeometryConfig) *model.LayoutResult {
	t.Helper()
	l, err := chart.Layout([]model.LabeledSeries{
		{Label: "How satisfied were you with the overall service quality?", Values: []float64{3, 5, 6, 7, 7, 8, 8, 8, 9, 9}},
		{Label: "Support <fast> & friendly", Values: []float64{1, 2, 3, 4, 4, 5, 5, 6, 7, 8}},
	}, cfg)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	return l
}

func layoutResult(l *model.LayoutResult) *model.Result {
	return &model.Result{
		Kind:        model.KindLayout,
		GeneratedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Command:     "render",
		Title:       "Survey",
		Data:        l,
	}
}

func renderString(t *testing.T, r *model.Result, format string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := render.Render(&buf, r, format, render.Options{ASCIIWidth: 80}); err != nil {
		t.Fatalf("Render(%s): %v", format, err)
	}
	return buf.String()
}

// ─── SVG ──────────────────────────────────────────────────────────────────────

func TestSVGStructure(t *testing.T) {
	l := sampleLayout(t, model.DefaultGeometry())
	out := renderString(t, layoutResult(l), render.FormatSVG)

	if !strings.Contains(out, `<svg`) || !strings.Contains(out, `</svg>`) {
		t.Fatalf("not an svg document:\n%s", out)
	}
	if !strings.Contains(out, `width="1000"`) || !strings.Contains(out, `height="400"`) {
		t.Errorf("canvas size not applied")
	}
	checks := map[string]int{
		"<rect":   1 + 2*2, // background + two boxes per row
		"<circle": 2 * 2,
		"<line":   1 + 6 + 2, // divider + grid + whiskers
	}
	for tag, want := range checks {
		if got := strings.Count(out, tag); got != want {
			t.Errorf("%s: expected %d, got %d", tag, want, got)
		}
	}
	for _, color := range []string{"#314F48", "#619B8E", "#B6D2CB", "#E5E5E5", "#CCCCCC"} {
		if !strings.Contains(out, color) {
			t.Errorf("missing theme color %s", color)
		}
	}
	if strings.Contains(out, "<fast>") {
		t.Errorf("label text not escaped")
	}
}

func TestSVGDeterministic(t *testing.T) {
	l := sampleLayout(t, model.DefaultGeometry())
	a := renderString(t, layoutResult(l), render.FormatSVG)
	b := renderString(t, layoutResult(sampleLayout(t, model.DefaultGeometry())), render.FormatSVG)
	if a != b {
		t.Error("svg output differs between identical layouts")
	}
}

func TestSVGCustomTheme(t *testing.T) {
	l := sampleLayout(t, model.DefaultGeometry())
	var buf bytes.Buffer
	if err := render.SVG(&buf, l, model.Theme{Whisker: "#123456"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "#123456") {
		t.Error("custom whisker color not applied")
	}
	if !strings.Contains(out, "#619B8E") {
		t.Error("unset theme fields should fall back to defaults")
	}
}

func TestSVGNoWrapTruncates(t *testing.T) {
	cfg := model.DefaultGeometry()
	cfg.WrapLabels = false
	out := renderString(t, layoutResult(sampleLayout(t, cfg)), render.FormatSVG)
	if !strings.Contains(out, "…") {
		t.Errorf("expected truncated label with ellipsis")
	}
}

// ─── Label Wrapping ───────────────────────────────────────────────────────────

func TestWrapLabel(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		width int
		max   int
		want  []string
	}{
		{"fits", "short", 10, 3, []string{"short"}},
		{"two lines", "the quick brown fox", 10, 3, []string{"the quick", "brown fox"}},
		{"long word split", "abcdefghij", 4, 5, []string{"abcd", "efgh", "ij"}},
		{"overflow ellipsis", "one two three four five six", 7, 2, []string{"one two", "three…"}},
		{"empty", "   ", 10, 3, []string{""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := render.WrapLabel(tc.in, tc.width, tc.max)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 6, "hello…"},
		{"hello", 1, "…"},
		{"  spaced   out ", 20, "spaced out"},
	}
	for _, tc := range cases {
		if got := render.Truncate(tc.in, tc.width); got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

// ─── Other Formats ────────────────────────────────────────────────────────────

func TestRenderLayoutTable(t *testing.T) {
	out := renderString(t, layoutResult(sampleLayout(t, model.DefaultGeometry())), render.FormatTable)
	for _, want := range []string{"MEAN-SD", "5.21", "7.00", "8.79"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderLayoutJSON(t *testing.T) {
	out := renderString(t, layoutResult(sampleLayout(t, model.DefaultGeometry())), render.FormatJSON)
	var decoded struct {
		Kind string `json:"kind"`
		Data struct {
			Height float64 `json:"height"`
			Rows   []struct {
				Summary model.Summary `json:"summary"`
			} `json:"rows"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Kind != model.KindLayout || decoded.Data.Height != 400 || len(decoded.Data.Rows) != 2 {
		t.Errorf("unexpected payload: %+v", decoded)
	}
	if decoded.Data.Rows[0].Summary.Mean != 7 {
		t.Errorf("mean: got %g", decoded.Data.Rows[0].Summary.Mean)
	}
}

func TestRenderLayoutJSONL(t *testing.T) {
	out := renderString(t, layoutResult(sampleLayout(t, model.DefaultGeometry())), render.FormatJSONL)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one line per row, got %d", len(lines))
	}
}

func TestRenderLayoutCSV(t *testing.T) {
	out := renderString(t, layoutResult(sampleLayout(t, model.DefaultGeometry())), render.FormatCSV)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "row,label,min,lower_bound,mean") {
		t.Errorf("header: %s", lines[0])
	}
	if !strings.Contains(lines[1], ",3,5.21,7,8.79,9,") {
		t.Errorf("row 0: %s", lines[1])
	}
}

func TestRenderLayoutASCII(t *testing.T) {
	out := renderString(t, layoutResult(sampleLayout(t, model.DefaultGeometry())), render.FormatASCII)
	if !strings.HasPrefix(out, "Survey\n") || strings.Count(out, "┤") != 2 {
		t.Errorf("unexpected ascii output:\n%s", out)
	}
}

func TestRenderSummary(t *testing.T) {
	r := &model.Result{
		Kind: model.KindSummary,
		Data: []model.RowStats{{
			Label: "q1", Count: 5, StdDev: 1.41, Median: 3, P25: 2, P75: 4,
			Summary: model.Summary{Min: 1, Max: 5, Mean: 3, LowerBound: 1.59, UpperBound: 4.41},
		}},
	}
	table := renderString(t, r, render.FormatTable)
	for _, want := range []string{"MEDIAN", "1.41", "1.59 – 4.41"} {
		if !strings.Contains(table, want) {
			t.Errorf("summary table missing %q:\n%s", want, table)
		}
	}
	md := renderString(t, r, render.FormatMD)
	if !strings.Contains(md, "| q1 | 5 | 1 | 3.00 | 3.00 | 5 | 1.41 |") {
		t.Errorf("markdown row:\n%s", md)
	}
}

func TestRenderDatasetCSVIsLongLayout(t *testing.T) {
	r := &model.Result{
		Kind: model.KindDataset,
		Data: &model.Dataset{Name: "d", Rows: []model.LabeledSeries{{Label: "a", Values: []float64{1, 2.5}}}},
	}
	got := renderString(t, r, render.FormatCSV)
	want := "label,value\na,1\na,2.5\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSVGRequiresLayout(t *testing.T) {
	r := &model.Result{Kind: model.KindSummary, Data: []model.RowStats{}}
	var buf bytes.Buffer
	if err := render.Render(&buf, r, render.FormatSVG, render.Options{}); err == nil {
		t.Error("expected error rendering a summary as svg")
	}
}

func TestValidFormat(t *testing.T) {
	for _, f := range render.Formats {
		if !render.ValidFormat(f) {
			t.Errorf("%s should be valid", f)
		}
	}
	if render.ValidFormat("png") {
		t.Error("png should not be valid")
	}
}
