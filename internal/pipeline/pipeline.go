// Package pipeline provides helpers for reading and writing labeled sample
// rows via stdin/stdout in JSONL format, the canonical pipe format.
//
// Two record shapes are accepted and may be mixed:
//
//	{"label": "Q1", "values": [3, 5, 6]}   one row per line
//	{"label": "Q1", "value": 3}            one sample per line
//
// "question" is accepted as an alias for "label". Samples for the same label
// are merged in order of appearance; rows keep the order in which their
// label was first seen.
package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/derickschaefer/spread/internal/model"
)

type record struct {
	Label    string          `json:"label"`
	Question string          `json:"question"`
	Values   []float64       `json:"values"`
	Value    json.RawMessage `json:"value"`
}

// ReadRows reads JSONL records from r and returns the merged rows.
// A null or "." value means "no response" and is skipped.
func ReadRows(r io.Reader) ([]model.LabeledSeries, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var rows []model.LabeledSeries
	index := map[string]int{}

	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}

		label := rec.Label
		if label == "" {
			label = rec.Question
		}
		if label == "" {
			return nil, fmt.Errorf("line %d: missing \"label\"", lineNum)
		}

		values := rec.Values
		if len(rec.Value) > 0 {
			v, ok, err := parseValue(rec.Value)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			if ok {
				values = append(values, v)
			}
		}

		i, seen := index[label]
		if !seen {
			i = len(rows)
			index[label] = i
			rows = append(rows, model.LabeledSeries{Label: label})
		}
		rows[i].Values = append(rows[i].Values, values...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows read from input (is stdin empty?)")
	}
	return rows, nil
}

// parseValue decodes a single "value" field: a number, null, or ".".
func parseValue(raw json.RawMessage) (float64, bool, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false, fmt.Errorf("invalid value: %w", err)
	}
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return x, true, nil
	case string:
		if x == "" || x == "." {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("unexpected string value %q", x)
	default:
		return 0, false, fmt.Errorf("unexpected value type %T", v)
	}
}

// WriteRows writes rows as JSONL to w, one row per line.
func WriteRows(w io.Writer, rows []model.LabeledSeries) error {
	enc := json.NewEncoder(w)
	for _, r := range rows {
		values := r.Values
		if values == nil {
			values = []float64{}
		}
		if err := enc.Encode(model.LabeledSeries{Label: r.Label, Values: values}); err != nil {
			return err
		}
	}
	return nil
}

// IsTTY returns true if stdout is a terminal (not a pipe).
func IsTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// StdinIsPipe returns true if stdin is redirected from a pipe or file.
func StdinIsPipe() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) == 0
}
