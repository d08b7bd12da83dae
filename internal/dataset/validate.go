package dataset

import (
	"fmt"

	"github.com/derickschaefer/spread/internal/analyze"
	"github.com/derickschaefer/spread/internal/model"
	"github.com/derickschaefer/spread/internal/util"
)

// Report is the outcome of Validate.
type Report struct {
	Rows     int
	Samples  int
	Warnings []string
}

// Validate checks every row of rows and reports all problems at once.
// Rows that the layout engine would reject (no samples, non-finite samples)
// are errors; samples outside the display domain and repeated labels are
// warnings, since they still render.
func Validate(rows []model.LabeledSeries, cfg model.GeometryConfig) (Report, error) {
	var rep Report
	var errs util.MultiError
	if len(rows) == 0 {
		return rep, fmt.Errorf("dataset has no rows")
	}

	seen := map[string]int{}
	for i, r := range rows {
		rep.Rows++
		rep.Samples += len(r.Values)

		if _, err := analyze.Reduce(r.Values); err != nil {
			errs.Add(fmt.Errorf("row %d (%q): %w", i, r.Label, err))
		}
		if prev, dup := seen[r.Label]; dup {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("row %d repeats the label of row %d: %q", i, prev, r.Label))
		} else {
			seen[r.Label] = i
		}

		out := 0
		for _, v := range r.Values {
			if model.IsFinite(v) && (v < cfg.MinValue || v > cfg.MaxValue) {
				out++
			}
		}
		if out > 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("row %d (%q): %d sample(s) outside [%s, %s]",
				i, r.Label, out, util.FormatValue(cfg.MinValue), util.FormatValue(cfg.MaxValue)))
		}
	}
	return rep, errs.Err()
}
