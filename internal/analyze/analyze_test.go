package analyze_test

import (
	"errors"
	"math"
	"testing"

	"github.com/derickschaefer/spread/internal/analyze"
	"github.com/derickschaefer/spread/internal/model"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// satisfaction is the first question of the built-in sample dataset.
var satisfaction = []float64{3, 5, 6, 7, 7, 8, 8, 8, 9, 9}

// ─── Reduce ───────────────────────────────────────────────────────────────────

func TestReduceSatisfactionScenario(t *testing.T) {
	s, err := analyze.Reduce(satisfaction)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Population variance: squared deviations sum to 32 over N=10 → 3.2,
	// σ = sqrt(3.2) ≈ 1.7889.
	if s.Mean != 7.00 {
		t.Errorf("Mean: expected 7.00, got %g", s.Mean)
	}
	if s.LowerBound != 5.21 {
		t.Errorf("LowerBound: expected 5.21, got %g", s.LowerBound)
	}
	if s.UpperBound != 8.79 {
		t.Errorf("UpperBound: expected 8.79, got %g", s.UpperBound)
	}
	if s.Min != 3 || s.Max != 9 {
		t.Errorf("Min/Max: expected 3/9, got %g/%g", s.Min, s.Max)
	}
}

func TestReduceUsesPopulationVariance(t *testing.T) {
	// [2,4,4,4,5,5,7,9]: mean 5, population σ exactly 2 (sample σ ≈ 2.138).
	s, err := analyze.Reduce([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.LowerBound != 3 || s.UpperBound != 7 {
		t.Errorf("bounds: expected 3/7, got %g/%g", s.LowerBound, s.UpperBound)
	}
}

func TestReduceConstantSeries(t *testing.T) {
	for _, v := range []float64{0, 4, 7.25, -3.5} {
		s, err := analyze.Reduce([]float64{v, v, v, v})
		if err != nil {
			t.Fatalf("v=%g: unexpected error: %v", v, err)
		}
		if s.LowerBound != s.Mean || s.UpperBound != s.Mean || s.Mean != v {
			t.Errorf("v=%g: expected lower==mean==upper==v, got %+v", v, s)
		}
	}
}

func TestReduceSingleSample(t *testing.T) {
	s, err := analyze.Reduce([]float64{6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := model.Summary{Min: 6, Max: 6, Mean: 6, LowerBound: 6, UpperBound: 6}
	if s != want {
		t.Errorf("expected %+v, got %+v", want, s)
	}
}

func TestReduceMinNotAboveMax(t *testing.T) {
	cases := [][]float64{
		{1},
		{5, 1},
		{-2, 8, 0.5, 3},
		{10, 10, 0, 10},
		satisfaction,
	}
	for _, vals := range cases {
		s, err := analyze.Reduce(vals)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", vals, err)
		}
		if s.Min > s.Max {
			t.Errorf("%v: min %g > max %g", vals, s.Min, s.Max)
		}
	}
}

func TestReduceOrderIndependent(t *testing.T) {
	a, _ := analyze.Reduce([]float64{9, 3, 8, 5, 7})
	b, _ := analyze.Reduce([]float64{3, 5, 7, 8, 9})
	if a != b {
		t.Errorf("order changed result: %+v vs %+v", a, b)
	}
}

func TestReduceMinMaxNotRounded(t *testing.T) {
	s, err := analyze.Reduce([]float64{1.23456, 2.34567})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Min != 1.23456 || s.Max != 2.34567 {
		t.Errorf("Min/Max should pass through, got %g/%g", s.Min, s.Max)
	}
	if s.Mean != 1.79 {
		t.Errorf("Mean: expected 1.79, got %g", s.Mean)
	}
}

func TestReduceBoundsMayExceedExtrema(t *testing.T) {
	// One outlier: σ is large enough to push the lower bound below min.
	s, err := analyze.Reduce([]float64{1, 1, 1, 1, 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !(s.LowerBound < s.Min) {
		t.Errorf("expected lower bound %g below min %g", s.LowerBound, s.Min)
	}
}

func TestReduceEmpty(t *testing.T) {
	_, err := analyze.Reduce(nil)
	var empty *analyze.EmptyInputError
	if !errors.As(err, &empty) {
		t.Fatalf("expected *EmptyInputError, got %v", err)
	}
	if empty.Row != -1 {
		t.Errorf("Row: expected -1, got %d", empty.Row)
	}
}

func TestReduceRejectsNonFinite(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := analyze.Reduce([]float64{1, 2, bad})
		var nf *analyze.NonFiniteValueError
		if !errors.As(err, &nf) {
			t.Fatalf("%v: expected *NonFiniteValueError, got %v", bad, err)
		}
		if nf.Index != 2 {
			t.Errorf("%v: Index: expected 2, got %d", bad, nf.Index)
		}
	}
}

func TestReduceLargeFiniteValues(t *testing.T) {
	s, err := analyze.Reduce([]float64{1e307, 1e307})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Mean != 1e307 || s.LowerBound != 1e307 || s.UpperBound != 1e307 {
		t.Errorf("large constant series: got %+v", s)
	}
}

func TestReduceOverflow(t *testing.T) {
	_, err := analyze.ReduceRows([]model.LabeledSeries{
		{Label: "fine", Values: []float64{1, 2}},
		{Label: "huge", Values: []float64{1e308, 1e308}},
	})
	var of *analyze.OverflowError
	if !errors.As(err, &of) {
		t.Fatalf("expected *OverflowError, got %v", err)
	}
	if of.Row != 1 || of.Label != "huge" || of.Field != "mean" {
		t.Errorf("error context: got %+v", of)
	}
}

// ─── Round ────────────────────────────────────────────────────────────────────

func TestRoundHalfAwayFromZero(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0.375, 0.38},
		{2.5, 2.5},
		{0.125, 0.13},
		{-0.125, -0.13},
		{-1.234, -1.23},
		{7, 7},
	}
	for _, c := range cases {
		if got := analyze.Round(c.in); !approxEqual(got, c.want, 1e-12) {
			t.Errorf("Round(%g): expected %g, got %g", c.in, c.want, got)
		}
	}
}

// ─── ReduceRows / Describe ────────────────────────────────────────────────────

func TestReduceRowsPreservesOrder(t *testing.T) {
	rows := []model.LabeledSeries{
		{Label: "b", Values: []float64{9, 9}},
		{Label: "a", Values: []float64{1, 1}},
	}
	sums, err := analyze.ReduceRows(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sums) != 2 || sums[0].Mean != 9 || sums[1].Mean != 1 {
		t.Errorf("unexpected summaries: %+v", sums)
	}
}

func TestReduceRowsReportsRowContext(t *testing.T) {
	rows := []model.LabeledSeries{
		{Label: "ok", Values: []float64{1}},
		{Label: "empty question", Values: nil},
	}
	_, err := analyze.ReduceRows(rows)
	var empty *analyze.EmptyInputError
	if !errors.As(err, &empty) {
		t.Fatalf("expected *EmptyInputError, got %v", err)
	}
	if empty.Row != 1 || empty.Label != "empty question" {
		t.Errorf("context: got row %d label %q", empty.Row, empty.Label)
	}
}

func TestDescribe(t *testing.T) {
	rs, err := analyze.Describe(0, model.LabeledSeries{Label: "q", Values: []float64{5, 1, 3, 2, 4}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rs.Count != 5 {
		t.Errorf("Count: expected 5, got %d", rs.Count)
	}
	// R8 quantiles of 1..5, rounded to two places.
	quartiles := []struct {
		name      string
		got, want float64
	}{
		{"P25", rs.P25, 1.67},
		{"Median", rs.Median, 3},
		{"P75", rs.P75, 4.33},
	}
	for _, q := range quartiles {
		if !approxEqual(q.got, q.want, 1e-9) {
			t.Errorf("%s: expected %g, got %g", q.name, q.want, q.got)
		}
	}
	if !approxEqual(rs.StdDev, 1.41, 1e-9) {
		t.Errorf("StdDev: expected 1.41, got %g", rs.StdDev)
	}
}
