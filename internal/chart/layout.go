// Package chart maps statistical summaries onto pixel geometry for a
// horizontal box-plot chart, one row per label, and renders that geometry
// as an ASCII chart for terminals.
//
// Layout is a pure function: the same rows and config always produce the
// same LayoutResult, and nothing is retained between calls.
package chart

import (
	"math"

	"github.com/aclements/go-moremath/scale"

	"github.com/derickschaefer/spread/internal/analyze"
	"github.com/derickschaefer/spread/internal/model"
	"github.com/derickschaefer/spread/internal/util"
)

// Fixed offsets, in pixels, of the decorations around the plot area.
const (
	DividerOffset   = 30 // divider sits this far left of the plot area
	GridLabelOffset = 20 // grid labels sit this far below the plot area
	LabelGap        = 20 // gap between the label box and the plot area
	LabelBoxHeight  = 60
	MarkerRadius    = 4
)

// Row is a labeled summary, the only input the geometry stage needs.
type Row struct {
	Label   string
	Summary model.Summary
}

// ─── Layout ───────────────────────────────────────────────────────────────────

// Layout reduces each labeled series to its Summary and computes the chart
// geometry for cfg. Input order is preserved.
func Layout(rows []model.LabeledSeries, cfg model.GeometryConfig) (*model.LayoutResult, error) {
	if len(rows) == 0 {
		return nil, &EmptyRowsError{}
	}
	sums, err := analyze.ReduceRows(rows)
	if err != nil {
		return nil, err
	}
	placed := make([]Row, len(rows))
	for i, r := range rows {
		placed[i] = Row{Label: r.Label, Summary: sums[i]}
	}
	return Place(placed, cfg)
}

// Place computes the chart geometry for already-reduced rows.
func Place(rows []Row, cfg model.GeometryConfig) (*model.LayoutResult, error) {
	if len(rows) == 0 {
		return nil, &EmptyRowsError{}
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	m := cfg.Margins
	height := CanvasHeight(len(rows), cfg)
	innerWidth := cfg.Width - m.Left - m.Right
	innerHeight := height - m.Top - m.Bottom
	if innerHeight <= 0 {
		return nil, &InvalidGeometryError{
			Field:  "margins",
			Value:  m.Top + m.Bottom,
			Reason: "top and bottom margins leave no room for rows",
		}
	}
	x := NewScale(cfg)
	band := innerHeight / float64(len(rows))

	res := &model.LayoutResult{
		Width:       cfg.Width,
		Height:      height,
		InnerWidth:  innerWidth,
		InnerHeight: innerHeight,
		BandHeight:  band,
		Config:      cfg,
		GridLines:   GridLines(cfg),
		Rows:        make([]model.RowGeometry, len(rows)),
	}

	for i, r := range rows {
		s := r.Summary
		for _, v := range []float64{s.Min, s.Max, s.LowerBound, s.Mean, s.UpperBound} {
			if px := x.Map(v); math.IsNaN(px) || math.IsInf(px, 0) {
				return nil, &PixelOverflowError{Row: i, Label: r.Label, Value: v}
			}
		}
		lowerX, lowerW := span(x.Map(s.LowerBound), x.Map(s.Mean))
		upperX, upperW := span(x.Map(s.Mean), x.Map(s.UpperBound))
		res.Rows[i] = model.RowGeometry{
			Index:         i,
			Label:         r.Label,
			Summary:       s,
			CenterY:       m.Top + float64(i)*band + band/2,
			WhiskerX1:     x.Map(s.Min),
			WhiskerX2:     x.Map(s.Max),
			LowerBoxX:     lowerX,
			LowerBoxWidth: lowerW,
			UpperBoxX:     upperX,
			UpperBoxWidth: upperW,
			BoxHeight:     model.BoxHeight,
		}
	}

	res.Primitives = primitives(res)
	return res, nil
}

// CanvasHeight returns the adaptive canvas height for n rows: the requested
// height, raised when needed so every row gets at least MinRowHeight.
func CanvasHeight(n int, cfg model.GeometryConfig) float64 {
	minTotal := float64(n)*cfg.MinRowHeight + cfg.Margins.Top + cfg.Margins.Bottom
	return math.Max(cfg.Height, minTotal)
}

// span normalises the extent between two pixel positions so the width is
// never negative, whichever order the endpoints arrive in.
func span(a, b float64) (x, w float64) {
	return math.Min(a, b), math.Abs(b - a)
}

// ─── Validation ──────────────────────────────────────────────────────────────

// Validate checks cfg for contract violations. It never substitutes
// defaults.
func Validate(cfg model.GeometryConfig) error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"min_value", cfg.MinValue},
		{"max_value", cfg.MaxValue},
	} {
		if !model.IsFinite(f.v) {
			return &InvalidDomainError{Field: f.name, Value: f.v, Reason: "must be a finite number"}
		}
	}
	if cfg.MaxValue <= cfg.MinValue {
		return &InvalidDomainError{Field: "max_value", Value: cfg.MaxValue, Reason: "must be greater than min_value"}
	}
	if cfg.GridLineCount < 2 {
		return &InvalidDomainError{Field: "grid_line_count", Value: float64(cfg.GridLineCount), Reason: "must be at least 2"}
	}

	m := cfg.Margins
	for _, f := range []struct {
		name     string
		v        float64
		positive bool
	}{
		{"width", cfg.Width, true},
		{"height", cfg.Height, true},
		{"margins.top", m.Top, false},
		{"margins.right", m.Right, false},
		{"margins.bottom", m.Bottom, false},
		{"margins.left", m.Left, false},
		{"min_row_height", cfg.MinRowHeight, false},
		{"label_width", cfg.LabelWidth, false},
	} {
		switch {
		case !model.IsFinite(f.v):
			return &InvalidGeometryError{Field: f.name, Value: f.v, Reason: "must be a finite number"}
		case f.positive && f.v <= 0:
			return &InvalidGeometryError{Field: f.name, Value: f.v, Reason: "must be positive"}
		case f.v < 0:
			return &InvalidGeometryError{Field: f.name, Value: f.v, Reason: "must not be negative"}
		}
	}
	if m.Left+m.Right >= cfg.Width {
		return &InvalidGeometryError{
			Field:  "margins",
			Value:  m.Left + m.Right,
			Reason: "left and right margins exceed canvas width",
		}
	}
	return nil
}

// ─── Scale ────────────────────────────────────────────────────────────────────

// Scale is the linear value→pixel mapping of the horizontal axis.
// It does not clamp: values outside the domain land outside the plot area.
type Scale struct {
	lin   scale.Linear
	left  float64
	right float64
	inner float64
}

// NewScale builds the horizontal scale for a validated cfg.
func NewScale(cfg model.GeometryConfig) Scale {
	return Scale{
		lin:   scale.Linear{Min: cfg.MinValue, Max: cfg.MaxValue},
		left:  cfg.Margins.Left,
		right: cfg.Width - cfg.Margins.Right,
		inner: cfg.Width - cfg.Margins.Left - cfg.Margins.Right,
	}
}

// Map returns the pixel x coordinate of v. Both ends of the domain land
// exactly on the plot edges.
func (s Scale) Map(v float64) float64 {
	t := s.lin.Map(v)
	if t == 1 {
		return s.right
	}
	return s.left + t*s.inner
}

// ─── Grid ─────────────────────────────────────────────────────────────────────

// GridLines returns exactly cfg.GridLineCount evenly spaced grid lines from
// MinValue to MaxValue inclusive. Values are rounded to two decimals for
// labelling; positions use the unrounded value so spacing stays exact.
func GridLines(cfg model.GeometryConfig) []model.GridLine {
	n := cfg.GridLineCount
	x := NewScale(cfg)
	step := (cfg.MaxValue - cfg.MinValue) / float64(n-1)
	lines := make([]model.GridLine, n)
	for i := range lines {
		raw := cfg.MinValue + step*float64(i)
		if i == n-1 {
			raw = cfg.MaxValue
		}
		v := analyze.Round(raw)
		lines[i] = model.GridLine{
			Value: v,
			X:     x.Map(raw),
			Label: util.FormatValue(v),
		}
	}
	return lines
}

// ─── Primitives ───────────────────────────────────────────────────────────────

// primitives flattens a layout into drawing instructions, back to front.
func primitives(l *model.LayoutResult) []model.Primitive {
	cfg := l.Config
	m := cfg.Margins
	top, bottom := m.Top, l.Height-m.Bottom

	out := make([]model.Primitive, 0, 2+2*len(l.GridLines)+6*len(l.Rows))
	out = append(out,
		model.Primitive{Shape: model.ShapeRect, Role: model.RoleBackground, Row: -1, W: l.Width, H: l.Height},
		model.Primitive{
			Shape: model.ShapeLine, Role: model.RoleDivider, Row: -1,
			X1: m.Left - DividerOffset, Y1: top,
			X2: m.Left - DividerOffset, Y2: bottom,
		},
	)

	for _, g := range l.GridLines {
		out = append(out,
			model.Primitive{Shape: model.ShapeLine, Role: model.RoleGridLine, Row: -1, X1: g.X, Y1: top, X2: g.X, Y2: bottom},
			model.Primitive{
				Shape: model.ShapeText, Role: model.RoleGridLabel, Row: -1,
				X: g.X, Y: bottom + GridLabelOffset, Text: g.Label, Anchor: model.AnchorMiddle,
			},
		)
	}

	half := model.BoxHeight / 2.0
	for _, r := range l.Rows {
		y := r.CenterY
		out = append(out,
			model.Primitive{
				Shape: model.ShapeText, Role: model.RoleRowLabel, Row: r.Index,
				X: m.Left - cfg.LabelWidth - LabelGap, Y: y - LabelBoxHeight/2,
				W: cfg.LabelWidth, H: LabelBoxHeight,
				Text: r.Label, Anchor: model.AnchorEnd, Wrap: cfg.WrapLabels,
			},
			model.Primitive{Shape: model.ShapeLine, Role: model.RoleWhisker, Row: r.Index, X1: r.WhiskerX1, Y1: y, X2: r.WhiskerX2, Y2: y},
			model.Primitive{Shape: model.ShapeRect, Role: model.RoleLowerBox, Row: r.Index, X: r.LowerBoxX, Y: y - half, W: r.LowerBoxWidth, H: r.BoxHeight},
			model.Primitive{Shape: model.ShapeRect, Role: model.RoleUpperBox, Row: r.Index, X: r.UpperBoxX, Y: y - half, W: r.UpperBoxWidth, H: r.BoxHeight},
			model.Primitive{Shape: model.ShapeCircle, Role: model.RoleEndpointMarker, Row: r.Index, X: r.WhiskerX1, Y: y, R: MarkerRadius},
			model.Primitive{Shape: model.ShapeCircle, Role: model.RoleEndpointMarker, Row: r.Index, X: r.WhiskerX2, Y: y, R: MarkerRadius},
		)
	}
	return out
}
