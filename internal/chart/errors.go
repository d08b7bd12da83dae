package chart

import "fmt"

// EmptyRowsError is returned when Layout is called with no rows.
type EmptyRowsError struct{}

func (e *EmptyRowsError) Error() string {
	return "chart layout: no rows to lay out"
}

// InvalidDomainError is returned for a malformed value domain
// (MaxValue <= MinValue, non-finite bounds) or a grid line count below 2.
type InvalidDomainError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidDomainError) Error() string {
	return fmt.Sprintf("chart layout: invalid domain: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// InvalidGeometryError is returned for non-positive canvas dimensions,
// negative sizes, or margins that leave no room for the plot area.
type InvalidGeometryError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf("chart layout: invalid geometry: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// PixelOverflowError is returned when a row's values are finite but map to
// pixel coordinates that are not.
type PixelOverflowError struct {
	Row   int
	Label string
	Value float64
}

func (e *PixelOverflowError) Error() string {
	return fmt.Sprintf("chart layout: row %d (%q): value %v maps outside the representable pixel range", e.Row, e.Label, e.Value)
}
