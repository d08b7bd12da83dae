package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/spread/internal/app"
	"github.com/derickschaefer/spread/internal/chart"
	"github.com/derickschaefer/spread/internal/dataset"
	"github.com/derickschaefer/spread/internal/model"
	"github.com/derickschaefer/spread/internal/pipeline"
	"github.com/derickschaefer/spread/internal/render"
	"github.com/derickschaefer/spread/internal/source"
	"github.com/derickschaefer/spread/internal/store"
)

// resolveFormat returns the effective format string: --format, then the
// configured default, then "table".
func resolveFormat(cfgFormat string) (string, error) {
	format := render.FormatTable
	switch {
	case globalFlags.Format != "":
		format = globalFlags.Format
	case cfgFormat != "":
		format = cfgFormat
	}
	if !render.ValidFormat(format) {
		return "", fmt.Errorf("unknown format %q (supported: %s)", format, strings.Join(render.Formats, ", "))
	}
	return format, nil
}

// outputWriter returns the writer selected by --out, or fallback when
// --out is empty or "-". The returned close function is always non-nil.
func outputWriter(fallback io.Writer) (io.Writer, func() error, error) {
	if globalFlags.Out == "" || globalFlags.Out == "-" {
		return fallback, func() error { return nil }, nil
	}
	f, err := os.Create(globalFlags.Out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// emit renders result to --out (or the command's stdout) and prints the
// footer to stderr.
func emit(cmd *cobra.Command, deps *app.Deps, result *model.Result, format string, opts render.Options) error {
	w, closeFn, err := outputWriter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if opts.Theme == (model.Theme{}) {
		opts.Theme = deps.Config.Theme
	}
	if err := render.Render(w, result, format, opts); err != nil {
		closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}
	if !deps.Config.Quiet {
		render.PrintFooter(cmd.ErrOrStderr(), result, deps.Config.Verbose)
	}
	return nil
}

// newResult wraps data in a Result envelope.
func newResult(kind, command string, data interface{}, items int, start time.Time) *model.Result {
	return &model.Result{
		Kind:        kind,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        data,
		Stats: model.ResultStats{
			DurationMs: time.Since(start).Milliseconds(),
			Items:      items,
		},
	}
}

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

func humanBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// ─── Inputs ───────────────────────────────────────────────────────────────────

// inputFlags selects where a command reads its dataset from.
type inputFlags struct {
	Sample  bool
	Dataset string
	Format  string
	Sheet   string
	Columns bool
}

func addInputFlags(cmd *cobra.Command, in *inputFlags) {
	f := cmd.Flags()
	f.BoolVar(&in.Sample, "sample", false, "use the built-in sample survey")
	f.StringVar(&in.Dataset, "dataset", "", "use a dataset from the local store (see 'spread dataset list')")
	f.StringVar(&in.Format, "input-format", "", "input format: "+strings.Join(dataset.Formats, "|")+" (default: from extension)")
	f.StringVar(&in.Sheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	f.BoolVar(&in.Columns, "columns", false, "CSV/TSV/XLSX: one column per row, label in the header")
}

func (in inputFlags) options() dataset.Options {
	return dataset.Options{Format: in.Format, Sheet: in.Sheet, Columns: in.Columns}
}

// loadInputs resolves every dataset named on the command line, in order:
// --sample, --dataset, then each argument (file path, URL or "-"). With no
// inputs at all, piped stdin is read as JSONL.
func loadInputs(ctx context.Context, deps *app.Deps, in inputFlags, args []string) ([]*model.Dataset, error) {
	var out []*model.Dataset
	if in.Sample {
		out = append(out, dataset.Sample())
	}
	if in.Dataset != "" {
		ds, err := loadStored(deps, in.Dataset)
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	for _, arg := range args {
		ds, err := loadArg(ctx, deps, arg, in.options())
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	if len(out) == 0 {
		if !pipeline.StdinIsPipe() {
			return nil, fmt.Errorf("no input: pass a file, URL, --dataset or --sample, or pipe JSONL on stdin")
		}
		opts := in.options()
		if opts.Format == "" {
			opts.Format = dataset.FormatJSONL
		}
		ds, err := dataset.Load("-", opts)
		if err != nil {
			return nil, err
		}
		ds.Name = "stdin"
		out = append(out, ds)
	}
	return out, nil
}

func loadArg(ctx context.Context, deps *app.Deps, arg string, opts dataset.Options) (*model.Dataset, error) {
	if source.IsURL(arg) {
		deps.Logger.Debug("fetching dataset", "url", arg)
		return deps.Source.Fetch(ctx, arg, opts)
	}
	ds, err := dataset.Load(arg, opts)
	if err != nil {
		return nil, err
	}
	if arg == "-" && ds.Name == "" {
		ds.Name = "stdin"
	}
	return ds, nil
}

func loadStored(deps *app.Deps, name string) (*model.Dataset, error) {
	if err := deps.RequireStore(); err != nil {
		return nil, err
	}
	ds, ok, err := deps.Store.GetDataset(name)
	if err != nil {
		return nil, fmt.Errorf("reading dataset %q: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("dataset %q not found (see 'spread dataset list')", name)
	}
	return &ds, nil
}

// geometryFor returns the geometry to lay ds out with. The sample survey
// gets its own label column unless the user set geometry explicitly.
func geometryFor(cmd *cobra.Command, deps *app.Deps, ds *model.Dataset) model.GeometryConfig {
	if ds.Name == dataset.SampleName && ds.Source == "" && deps.Config.ConfigPath == "" {
		g := dataset.SampleGeometry()
		applyGeometryFlags(cmd, &g)
		return g
	}
	return deps.Config.Geometry
}

// ─── Layout ───────────────────────────────────────────────────────────────────

// computeLayout lays out rows, consulting the bbolt layout cache unless
// --no-cache is set. The bool reports a cache hit.
func computeLayout(deps *app.Deps, rows []model.LabeledSeries, cfg model.GeometryConfig) (*model.LayoutResult, bool, error) {
	if !deps.OpenStore() {
		l, err := chart.Layout(rows, cfg)
		return l, false, err
	}

	key, err := store.LayoutKey(rows, cfg)
	if err != nil {
		// unhashable input: let Layout report the typed error
		l, err := chart.Layout(rows, cfg)
		return l, false, err
	}
	if l, ok, err := deps.Store.GetLayout(key); err != nil {
		deps.Logger.Warn("layout cache read failed", "err", err)
	} else if ok {
		deps.Logger.Debug("layout cache hit", "key", key)
		return l, true, nil
	}

	l, err := chart.Layout(rows, cfg)
	if err != nil {
		return nil, false, err
	}
	if err := deps.Store.PutLayout(key, l); err != nil {
		deps.Logger.Warn("layout cache write failed", "err", err)
	}
	return l, false, nil
}
