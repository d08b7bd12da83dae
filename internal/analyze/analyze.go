// Package analyze reduces raw sample series to the fixed-shape statistical
// summaries the chart layout consumes. All functions are pure; no I/O.
package analyze

import (
	"fmt"
	"math"
	"sort"

	moremath "github.com/aclements/go-moremath/stats"
	"github.com/montanaflynn/stats"

	"github.com/derickschaefer/spread/internal/model"
)

// Decimals is the number of decimal places mean and deviation bounds are
// rounded to.
const Decimals = 2

// ─── Reduce ───────────────────────────────────────────────────────────────────

// Reduce computes the Summary of values: raw min and max, plus the mean and
// the mean ± one population standard deviation, each rounded half away from
// zero to two decimals.
//
// Every sample must be finite; NaN and ±Inf are rejected with a
// *NonFiniteValueError instead of propagating through the arithmetic.
func Reduce(values []float64) (model.Summary, error) {
	return reduce(-1, "", values)
}

// ReduceRows reduces every row in order. The first failing row aborts the
// whole call; the returned error carries its index and label.
func ReduceRows(rows []model.LabeledSeries) ([]model.Summary, error) {
	out := make([]model.Summary, len(rows))
	for i, r := range rows {
		s, err := reduce(i, r.Label, r.Values)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func reduce(row int, label string, values []float64) (model.Summary, error) {
	if len(values) == 0 {
		return model.Summary{}, &EmptyInputError{Row: row, Label: label}
	}
	for i, v := range values {
		if !model.IsFinite(v) {
			return model.Summary{}, &NonFiniteValueError{Row: row, Label: label, Index: i, Value: v}
		}
	}

	data := stats.Float64Data(values)
	mean, err := stats.Mean(data)
	if err != nil {
		return model.Summary{}, fmt.Errorf("analyze: mean: %w", err)
	}
	sd, err := stats.StandardDeviationPopulation(data)
	if err != nil {
		return model.Summary{}, fmt.Errorf("analyze: std dev: %w", err)
	}
	lo, err := stats.Min(data)
	if err != nil {
		return model.Summary{}, fmt.Errorf("analyze: min: %w", err)
	}
	hi, err := stats.Max(data)
	if err != nil {
		return model.Summary{}, fmt.Errorf("analyze: max: %w", err)
	}

	sum := model.Summary{
		Min:        lo,
		Max:        hi,
		Mean:       Round(mean),
		LowerBound: Round(mean - sd),
		UpperBound: Round(mean + sd),
	}
	for _, f := range []struct {
		name string
		v    float64
	}{{"mean", sum.Mean}, {"std_dev", sd}, {"lower_bound", sum.LowerBound}, {"upper_bound", sum.UpperBound}} {
		if !model.IsFinite(f.v) {
			return model.Summary{}, &OverflowError{Row: row, Label: label, Field: f.name, Value: f.v}
		}
	}
	return sum, nil
}

// Round rounds v to Decimals places, half away from zero.
// Magnitudes of 1e15 and above carry no fractional digits at this precision
// and are returned unchanged, since scaling them could overflow.
func Round(v float64) float64 {
	if math.Abs(v) >= 1e15 {
		return v
	}
	r, err := stats.Round(v, Decimals)
	if err != nil {
		return v
	}
	return r
}

// ─── Describe ─────────────────────────────────────────────────────────────────

// Describe returns the Summary of a row together with the extra descriptive
// statistics shown by the summary table: count, population standard
// deviation and quartiles.
func Describe(row int, s model.LabeledSeries) (model.RowStats, error) {
	sum, err := reduce(row, s.Label, s.Values)
	if err != nil {
		return model.RowStats{}, err
	}
	sd, err := stats.StandardDeviationPopulation(s.Values)
	if err != nil {
		return model.RowStats{}, fmt.Errorf("analyze: std dev: %w", err)
	}

	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)
	sample := moremath.Sample{Xs: sorted, Sorted: true}

	return model.RowStats{
		Label:   s.Label,
		Count:   len(s.Values),
		Summary: sum,
		StdDev:  Round(sd),
		P25:     Round(sample.Quantile(0.25)),
		Median:  Round(sample.Quantile(0.5)),
		P75:     Round(sample.Quantile(0.75)),
	}, nil
}

// DescribeRows runs Describe over every row, preserving order.
func DescribeRows(rows []model.LabeledSeries) ([]model.RowStats, error) {
	out := make([]model.RowStats, 0, len(rows))
	for i, r := range rows {
		rs, err := Describe(i, r)
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, nil
}
