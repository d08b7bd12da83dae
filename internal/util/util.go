// Package util provides shared utilities: sample parsing, value
// formatting and error aggregation.
package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ─── Sample Parsing ───────────────────────────────────────────────────────────

// ParseSample parses a single sample cell from a text source (CSV, XLSX).
// Blank cells and "." mean "no response" and return ok=false.
// Uses strconv.ParseFloat to avoid locale issues.
func ParseSample(s string) (v float64, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid sample %q: expected a number", s)
	}
	return v, true, nil
}

// FormatValue formats a float64 for display with no trailing zeros,
// showing "." for NaN.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	if v == 0 {
		return "0" // avoid "-0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ─── Error Helpers ────────────────────────────────────────────────────────────

// MultiError collects multiple errors and presents them as one.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

func (m *MultiError) Error() string {
	msgs := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}
