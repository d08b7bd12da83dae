// Package model defines the canonical data types used throughout spread.
// These types are the single source of truth for datasets, statistical
// summaries, chart geometry and the result envelope every command returns.
package model

import (
	"math"
	"time"
)

// ─── Input Types ──────────────────────────────────────────────────────────────

// LabeledSeries is one chart row: an opaque label (usually a survey
// question) and the raw samples collected for it, one per respondent.
type LabeledSeries struct {
	Label  string    `json:"label" yaml:"label"`
	Values []float64 `json:"values" yaml:"values"`
}

// Dataset bundles an ordered list of rows with an optional title.
type Dataset struct {
	Name     string          `json:"name"`
	Title    string          `json:"title,omitempty"`
	Rows     []LabeledSeries `json:"rows"`
	Source   string          `json:"source,omitempty"` // file path or URL it was loaded from
	StoredAt time.Time       `json:"stored_at,omitempty"`
}

// SampleCount returns the total number of samples across all rows.
func (d Dataset) SampleCount() int {
	n := 0
	for _, r := range d.Rows {
		n += len(r.Values)
	}
	return n
}

// ─── Statistics ───────────────────────────────────────────────────────────────

// Summary is the fixed-shape reduction of a sample series.
// Mean, LowerBound and UpperBound are rounded to 2 decimal places;
// Min and Max are the raw extrema.
//
// min <= LowerBound <= Mean <= UpperBound <= max is NOT guaranteed:
// deviation bounds may extend past the extrema for skewed data.
type Summary struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Mean       float64 `json:"mean"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// ─── Geometry ─────────────────────────────────────────────────────────────────

// Margins is the padding around the plot area, in pixels.
type Margins struct {
	Top    float64 `json:"top" toml:"top"`
	Right  float64 `json:"right" toml:"right"`
	Bottom float64 `json:"bottom" toml:"bottom"`
	Left   float64 `json:"left" toml:"left"`
}

// GeometryConfig is the display configuration for a single layout call.
// It is never mutated by the layout engine.
type GeometryConfig struct {
	Width         float64 `json:"width" toml:"width"`
	Height        float64 `json:"height" toml:"height"` // requested height; a floor, not a cap
	Margins       Margins `json:"margins" toml:"margins"`
	MinValue      float64 `json:"min_value" toml:"min_value"`
	MaxValue      float64 `json:"max_value" toml:"max_value"`
	GridLineCount int     `json:"grid_line_count" toml:"grid_line_count"`
	MinRowHeight  float64 `json:"min_row_height" toml:"min_row_height"`
	LabelWidth    float64 `json:"label_width" toml:"label_width"`
	WrapLabels    bool    `json:"wrap_labels" toml:"wrap_labels"`
}

// Default geometry values.
const (
	DefaultWidth         = 1000
	DefaultHeight        = 400
	DefaultMinValue      = 0
	DefaultMaxValue      = 10
	DefaultGridLineCount = 6
	DefaultMinRowHeight  = 40
	DefaultLabelWidth    = 120
	DefaultMarginTop     = 20
	DefaultMarginRight   = 60
	DefaultMarginBottom  = 50
	DefaultMarginLeft    = 140
)

// DefaultGeometry returns a GeometryConfig with every field set to its
// documented default.
func DefaultGeometry() GeometryConfig {
	return GeometryConfig{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		Margins: Margins{
			Top:    DefaultMarginTop,
			Right:  DefaultMarginRight,
			Bottom: DefaultMarginBottom,
			Left:   DefaultMarginLeft,
		},
		MinValue:      DefaultMinValue,
		MaxValue:      DefaultMaxValue,
		GridLineCount: DefaultGridLineCount,
		MinRowHeight:  DefaultMinRowHeight,
		LabelWidth:    DefaultLabelWidth,
		WrapLabels:    true,
	}
}

// BoxHeight is the fixed thickness of the deviation boxes in pixels.
// It does not depend on the row band height.
const BoxHeight = 40

// GridLine is a vertical grid line at a domain value.
type GridLine struct {
	Value float64 `json:"value"`
	X     float64 `json:"x"`
	Label string  `json:"label"`
}

// RowGeometry is the pixel geometry of one chart row.
// Box widths are never negative.
type RowGeometry struct {
	Index         int     `json:"index"`
	Label         string  `json:"label"`
	Summary       Summary `json:"summary"`
	CenterY       float64 `json:"center_y"`
	WhiskerX1     float64 `json:"whisker_x1"`
	WhiskerX2     float64 `json:"whisker_x2"`
	LowerBoxX     float64 `json:"lower_box_x"`
	LowerBoxWidth float64 `json:"lower_box_width"`
	UpperBoxX     float64 `json:"upper_box_x"`
	UpperBoxWidth float64 `json:"upper_box_width"`
	BoxHeight     float64 `json:"box_height"`
}

// LayoutResult is the render-ready description of a chart.
type LayoutResult struct {
	Width       float64        `json:"width"`
	Height      float64        `json:"height"` // adaptive canvas height
	InnerWidth  float64        `json:"inner_width"`
	InnerHeight float64        `json:"inner_height"`
	BandHeight  float64        `json:"band_height"`
	Config      GeometryConfig `json:"config"`
	GridLines   []GridLine     `json:"grid_lines"`
	Rows        []RowGeometry  `json:"rows"`
	Primitives  []Primitive    `json:"primitives"`
}

// ─── Drawing Primitives ──────────────────────────────────────────────────────

// Shape identifies the kind of a drawing primitive.
type Shape string

const (
	ShapeLine   Shape = "line"
	ShapeRect   Shape = "rect"
	ShapeCircle Shape = "circle"
	ShapeText   Shape = "text"
)

// Role tags a primitive so the renderer can style it. The layout engine
// never interprets colors.
type Role string

const (
	RoleBackground     Role = "background"
	RoleDivider        Role = "divider"
	RoleGridLine       Role = "grid-line"
	RoleGridLabel      Role = "grid-label"
	RoleWhisker        Role = "whisker"
	RoleLowerBox       Role = "lower-box"
	RoleUpperBox       Role = "upper-box"
	RoleEndpointMarker Role = "endpoint-marker"
	RoleRowLabel       Role = "row-label"
)

// Anchor is the horizontal text alignment of a text primitive.
type Anchor string

const (
	AnchorStart  Anchor = "start"
	AnchorMiddle Anchor = "middle"
	AnchorEnd    Anchor = "end"
)

// Primitive is a single drawing instruction in absolute pixel coordinates.
// Which fields are meaningful depends on Shape:
//
//	line:   X1,Y1 → X2,Y2
//	rect:   X,Y,W,H
//	circle: X,Y (center), R
//	text:   X,Y (anchor point), W,H (layout box for row labels), Text, Anchor
type Primitive struct {
	Shape  Shape   `json:"shape"`
	Role   Role    `json:"role"`
	Row    int     `json:"row"` // -1 for primitives not tied to a row
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	W      float64 `json:"w,omitempty"`
	H      float64 `json:"h,omitempty"`
	X1     float64 `json:"x1,omitempty"`
	Y1     float64 `json:"y1,omitempty"`
	X2     float64 `json:"x2,omitempty"`
	Y2     float64 `json:"y2,omitempty"`
	R      float64 `json:"r,omitempty"`
	Text   string  `json:"text,omitempty"`
	Anchor Anchor  `json:"anchor,omitempty"`
	Wrap   bool    `json:"wrap,omitempty"`
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries performance and cache metadata for a command result.
type ResultStats struct {
	CacheHit   bool  `json:"cache_hit"`
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Title       string      `json:"title,omitempty"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindLayout   = "layout"   // Data: *LayoutResult
	KindSummary  = "summary"  // Data: []RowStats
	KindDatasets = "datasets" // Data: []Dataset
	KindDataset  = "dataset"  // Data: *Dataset
	KindCache    = "cache"    // Data: *CacheStats
)

// CacheStats describes the local store.
type CacheStats struct {
	Path          string `json:"path"`
	SchemaVersion string `json:"schema_version"`
	Datasets      int    `json:"datasets"`
	Layouts       int    `json:"layouts"`
	SizeBytes     int64  `json:"size_bytes"`
}

// RowStats is a labeled descriptive summary used by the summary table.
type RowStats struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Summary Summary `json:"summary"`
	StdDev  float64 `json:"std_dev"`
	P25     float64 `json:"p25"`
	Median  float64 `json:"median"`
	P75     float64 `json:"p75"`
}

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ─── Theme ────────────────────────────────────────────────────────────────────

// Theme maps primitive roles to colors and fonts for the SVG renderer.
type Theme struct {
	Background string  `json:"background" toml:"background"`
	Divider    string  `json:"divider" toml:"divider"`
	Grid       string  `json:"grid" toml:"grid"`
	GridLabel  string  `json:"grid_label" toml:"grid_label"`
	Whisker    string  `json:"whisker" toml:"whisker"`
	LowerBox   string  `json:"lower_box" toml:"lower_box"`
	UpperBox   string  `json:"upper_box" toml:"upper_box"`
	Marker     string  `json:"marker" toml:"marker"`
	Label      string  `json:"label" toml:"label"`
	FontFamily string  `json:"font_family" toml:"font_family"`
	FontSize   float64 `json:"font_size" toml:"font_size"`
}

// DefaultTheme returns the stock palette: dark teal whiskers, a light lower
// box and a mid-tone upper box on a white canvas.
func DefaultTheme() Theme {
	return Theme{
		Background: "#FFFFFF",
		Divider:    "#CCCCCC",
		Grid:       "#E5E5E5",
		GridLabel:  "#666666",
		Whisker:    "#314F48",
		LowerBox:   "#B6D2CB",
		UpperBox:   "#619B8E",
		Marker:     "#314F48",
		Label:      "#000000",
		FontFamily: "Helvetica, Arial, sans-serif",
		FontSize:   12,
	}
}

// Merge returns t with every empty field taken from base.
func (t Theme) Merge(base Theme) Theme {
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	out := Theme{
		Background: pick(t.Background, base.Background),
		Divider:    pick(t.Divider, base.Divider),
		Grid:       pick(t.Grid, base.Grid),
		GridLabel:  pick(t.GridLabel, base.GridLabel),
		Whisker:    pick(t.Whisker, base.Whisker),
		LowerBox:   pick(t.LowerBox, base.LowerBox),
		UpperBox:   pick(t.UpperBox, base.UpperBox),
		Marker:     pick(t.Marker, base.Marker),
		Label:      pick(t.Label, base.Label),
		FontFamily: pick(t.FontFamily, base.FontFamily),
		FontSize:   t.FontSize,
	}
	if out.FontSize <= 0 {
		out.FontSize = base.FontSize
	}
	return out
}
