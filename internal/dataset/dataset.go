// Package dataset loads labeled sample rows from files and streams.
//
// Supported formats: JSON, JSONL, CSV, TSV, YAML and XLSX. Tabular formats
// accept both the wide layout (label followed by its samples) and the long
// layout (one label,value pair per record); records sharing a label are
// merged in order of appearance. With Options.Columns the table is read
// column-wise instead: a header row of labels, one response per row below.
package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/derickschaefer/spread/internal/model"
	"github.com/derickschaefer/spread/internal/pipeline"
	"github.com/derickschaefer/spread/internal/util"
)

// Format names accepted by --input-format.
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatYAML  = "yaml"
	FormatXLSX  = "xlsx"
)

// Formats lists every supported input format.
var Formats = []string{FormatJSON, FormatJSONL, FormatCSV, FormatTSV, FormatYAML, FormatXLSX}

// Options controls how a source is parsed.
type Options struct {
	Format  string // explicit format; empty = detect from the path extension
	Sheet   string // XLSX sheet name; empty = first sheet
	Columns bool   // tabular data holds one label per column
}

// DetectFormat maps a file extension to a format name.
func DetectFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".csv":
		return FormatCSV, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("cannot detect format of %q: use --input-format (%s)", path, strings.Join(Formats, ", "))
	}
}

// ─── Load ─────────────────────────────────────────────────────────────────────

// Load reads a dataset from path. "-" reads standard input, in which case
// the format must be given explicitly.
func Load(path string, opts Options) (*model.Dataset, error) {
	format := opts.Format
	if format == "" {
		if path == "-" {
			return nil, fmt.Errorf("dataset: --input-format is required when reading stdin")
		}
		f, err := DetectFormat(path)
		if err != nil {
			return nil, err
		}
		format = f
	}
	opts.Format = format

	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("dataset: opening %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	ds, err := Read(r, opts)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	if path != "-" {
		ds.Source = path
		if ds.Name == "" {
			ds.Name = NameFromPath(path)
		}
	}
	return ds, nil
}

// Read parses a dataset from r. opts.Format must be set.
func Read(r io.Reader, opts Options) (*model.Dataset, error) {
	var (
		ds  *model.Dataset
		err error
	)
	switch opts.Format {
	case FormatJSON:
		ds, err = readJSON(r)
	case FormatJSONL:
		var rows []model.LabeledSeries
		rows, err = pipeline.ReadRows(r)
		ds = &model.Dataset{Rows: rows}
	case FormatCSV:
		ds, err = readDelimited(r, ',', opts.Columns)
	case FormatTSV:
		ds, err = readDelimited(r, '\t', opts.Columns)
	case FormatYAML:
		ds, err = readYAML(r)
	case FormatXLSX:
		ds, err = readXLSX(r, opts.Sheet, opts.Columns)
	default:
		return nil, fmt.Errorf("unknown input format %q (supported: %s)", opts.Format, strings.Join(Formats, ", "))
	}
	if err != nil {
		return nil, err
	}
	if len(ds.Rows) == 0 {
		return nil, fmt.Errorf("no rows found")
	}
	return ds, nil
}

// NameFromPath derives a dataset name from a file name.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ─── JSON / YAML ──────────────────────────────────────────────────────────────

// document is the object form of a dataset file. A bare array of rows is
// also accepted.
type document struct {
	Name  string `json:"name" yaml:"name"`
	Title string `json:"title" yaml:"title"`
	Rows  []row  `json:"rows" yaml:"rows"`
}

// row accepts "question" as an alias for "label".
type row struct {
	Label    string    `json:"label" yaml:"label"`
	Question string    `json:"question" yaml:"question"`
	Values   []float64 `json:"values" yaml:"values"`
}

func (d document) dataset() *model.Dataset {
	ds := &model.Dataset{Name: d.Name, Title: d.Title}
	for _, r := range d.Rows {
		label := r.Label
		if label == "" {
			label = r.Question
		}
		ds.Rows = append(ds.Rows, model.LabeledSeries{Label: label, Values: r.Values})
	}
	return ds
}

func readJSON(r io.Reader) (*model.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	data = bytes.TrimSpace(data)
	var doc document
	if len(data) > 0 && data[0] == '[' {
		err = json.Unmarshal(data, &doc.Rows)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return doc.dataset(), nil
}

func readYAML(r io.Reader) (*model.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	var doc document
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		err = node.Content[0].Decode(&doc.Rows)
	} else {
		err = node.Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	return doc.dataset(), nil
}

// ─── Tabular ──────────────────────────────────────────────────────────────────

func readDelimited(r io.Reader, sep rune, columns bool) (*model.Dataset, error) {
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = sep == ','
	cr.Comment = '#'
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", delimName(sep), err)
	}
	return fromRecords(records, columns)
}

func readXLSX(r io.Reader, sheet string, columns bool) (*model.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid XLSX: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	ds, err := fromRecords(records, columns)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	return ds, nil
}

// fromRecords converts table records into merged rows.
func fromRecords(records [][]string, columns bool) (*model.Dataset, error) {
	records = dropBlank(records)
	if len(records) == 0 {
		return &model.Dataset{}, nil
	}
	if columns {
		return fromColumns(records)
	}

	var rows []model.LabeledSeries
	index := map[string]int{}
	for n, rec := range records {
		if n == 0 && isHeader(rec) {
			continue
		}
		label := strings.TrimSpace(rec[0])
		var values []float64
		for c, cell := range rec[1:] {
			v, ok, err := util.ParseSample(cell)
			if err != nil {
				return nil, fmt.Errorf("record %d, column %d: %w", n+1, c+2, err)
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
	return &model.Dataset{Rows: rows}, nil
}

// fromColumns reads a header row of labels with one response per row below.
func fromColumns(records [][]string) (*model.Dataset, error) {
	header := records[0]
	rows := make([]model.LabeledSeries, 0, len(header))
	for _, h := range header {
		rows = append(rows, model.LabeledSeries{Label: strings.TrimSpace(h)})
	}
	for n, rec := range records[1:] {
		for c, cell := range rec {
			if c >= len(rows) {
				return nil, fmt.Errorf("record %d: more cells than header labels", n+2)
			}
			v, ok, err := util.ParseSample(cell)
			if err != nil {
				return nil, fmt.Errorf("record %d, column %d: %w", n+2, c+1, err)
			}
			if ok {
				rows[c].Values = append(rows[c].Values, v)
			}
		}
	}
	return &model.Dataset{Rows: rows}, nil
}

// isHeader reports whether every non-label cell of rec is non-numeric text.
func isHeader(rec []string) bool {
	if len(rec) < 2 {
		return false
	}
	for _, cell := range rec[1:] {
		if _, ok, err := util.ParseSample(cell); ok || err == nil {
			return false
		}
	}
	return true
}

func dropBlank(records [][]string) [][]string {
	out := records[:0]
	for _, rec := range records {
		for _, cell := range rec {
			if strings.TrimSpace(cell) != "" {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

func delimName(sep rune) string {
	if sep == '\t' {
		return "TSV"
	}
	return "CSV"
}
