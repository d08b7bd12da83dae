package analyze

import "fmt"

// EmptyInputError is returned when a series has zero samples.
// Row is -1 when the series was reduced on its own rather than as part of
// a row list.
type EmptyInputError struct {
	Row   int
	Label string
}

func (e *EmptyInputError) Error() string {
	if e.Row < 0 {
		return "analyze: series has no samples"
	}
	return fmt.Sprintf("analyze: row %d (%q) has no samples", e.Row, e.Label)
}

// NonFiniteValueError is returned when a sample is NaN or ±Inf.
type NonFiniteValueError struct {
	Row   int
	Label string
	Index int // position of the offending sample within the series
	Value float64
}

func (e *NonFiniteValueError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("analyze: sample %d is not a finite number (%v)", e.Index, e.Value)
	}
	return fmt.Sprintf("analyze: row %d (%q): sample %d is not a finite number (%v)",
		e.Row, e.Label, e.Index, e.Value)
}

// OverflowError is returned when finite samples are so large that a derived
// statistic (mean, standard deviation or a deviation bound) is not finite.
type OverflowError struct {
	Row   int
	Label string
	Field string
	Value float64
}

func (e *OverflowError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("analyze: %s overflows (%v)", e.Field, e.Value)
	}
	return fmt.Sprintf("analyze: row %d (%q): %s overflows (%v)", e.Row, e.Label, e.Field, e.Value)
}
