package pipeline_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/derickschaefer/spread/internal/model"
	"github.com/derickschaefer/spread/internal/pipeline"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// jsonl joins lines with newlines and appends a trailing newline.
func jsonl(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// ─── ReadRows ─────────────────────────────────────────────────────────────────

func TestReadWideRecords(t *testing.T) {
	input := jsonl(
		`{"label":"Q1","values":[3,5,6]}`,
		`{"label":"Q2","values":[1,2]}`,
	)
	rows, err := pipeline.ReadRows(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.LabeledSeries{
		{Label: "Q1", Values: []float64{3, 5, 6}},
		{Label: "Q2", Values: []float64{1, 2}},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestReadLongRecordsMergeByLabel(t *testing.T) {
	input := jsonl(
		`{"label":"B","value":1}`,
		`{"label":"A","value":2}`,
		`{"label":"B","value":3}`,
		`{"question":"A","value":4.5}`,
	)
	rows, err := pipeline.ReadRows(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.LabeledSeries{
		{Label: "B", Values: []float64{1, 3}},
		{Label: "A", Values: []float64{2, 4.5}},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestReadMissingValuesSkipped(t *testing.T) {
	input := jsonl(
		`{"label":"Q","value":1}`,
		`{"label":"Q","value":null}`,
		`{"label":"Q","value":"."}`,
		`{"label":"Q","value":2}`,
	)
	rows, err := pipeline.ReadRows(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]float64{1, 2}, rows[0].Values); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestReadSkipsBlankAndCommentLines(t *testing.T) {
	input := jsonl(
		`// exported survey`,
		``,
		`{"label":"Q","values":[1]}`,
	)
	rows, err := pipeline.ReadRows(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(rows))
	}
}

func TestReadErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"invalid json", jsonl(`{"label":`), "line 1: invalid JSON"},
		{"missing label", jsonl(`{"label":"ok","values":[1]}`, `{"values":[1]}`), "line 2: missing"},
		{"string value", jsonl(`{"label":"Q","value":"high"}`), "unexpected string value"},
		{"bool value", jsonl(`{"label":"Q","value":true}`), "unexpected value type"},
		{"empty", "", "no rows"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := pipeline.ReadRows(strings.NewReader(tc.input))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

// ─── WriteRows ────────────────────────────────────────────────────────────────

func TestWriteRoundTrip(t *testing.T) {
	rows := []model.LabeledSeries{
		{Label: "How satisfied?", Values: []float64{3, 5.5}},
		{Label: "No answers yet"},
	}
	var buf bytes.Buffer
	if err := pipeline.WriteRows(&buf, rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := nonEmptyLines(buf.String())
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[1] != `{"label":"No answers yet","values":[]}` {
		t.Errorf("empty row: %s", lines[1])
	}

	back, err := pipeline.ReadRows(&buf)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if diff := cmp.Diff(rows[0], back[0]); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
