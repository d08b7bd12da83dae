package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/derickschaefer/spread/internal/app"
	"github.com/derickschaefer/spread/internal/dataset"
	"github.com/derickschaefer/spread/internal/model"
	"github.com/derickschaefer/spread/internal/pipeline"
	"github.com/derickschaefer/spread/internal/render"
)

var (
	renderInput      inputFlags
	renderBatch      bool
	renderOutDir     string
	renderASCIIWidth int
)

var renderCmd = &cobra.Command{
	Use:   "render [FILE|URL|-]...",
	Short: "Render a dataset as a horizontal box-plot chart",
	Long: `Render lays out each row of a dataset (min/max whisker, mean ± one standard
deviation boxes, value grid) and writes the chart.

The default format is svg, or ascii when stdout is a terminal and neither
--format nor --out is given. json, jsonl, csv, table and md emit the
computed geometry and statistics instead of a picture.

Layouts are memoised in the local database keyed by a hash of the input
rows and geometry; --no-cache bypasses the cache entirely.

With --batch every input is rendered concurrently (bounded by
--concurrency) into --out-dir, one file per dataset.`,
	Example: `  spread render --sample --out sample.svg
  spread render survey.csv --format ascii
  spread render survey.xlsx --sheet "Q3 2025" --min 1 --max 5 --grid-lines 5
  spread render https://example.com/survey.json --out survey.svg
  spread render --dataset q3 --format json | jq '.data.rows[0].summary'
  spread render a.csv b.csv c.yaml --batch --out-dir charts/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer deps.Close()
		if err := deps.Config.Validate(); err != nil {
			return err
		}

		format, err := renderFormat(deps)
		if err != nil {
			return err
		}
		opts := render.Options{Theme: deps.Config.Theme, ASCIIWidth: renderASCIIWidth}

		if renderBatch {
			return runBatch(cmd, deps, args, format, opts)
		}
		if renderOutDir != "" {
			return fmt.Errorf("--out-dir requires --batch")
		}

		start := time.Now()
		inputs, err := loadInputs(cmd.Context(), deps, renderInput, args)
		if err != nil {
			return err
		}
		if len(inputs) > 1 {
			return fmt.Errorf("%d inputs given: use --batch to render more than one dataset", len(inputs))
		}
		ds := inputs[0]

		p := newProgress(deps.Logger)
		result, err := layoutResult(cmd, deps, ds, start)
		if err != nil {
			return err
		}
		if err := emit(cmd, deps, result, format, opts); err != nil {
			return err
		}
		p.done(fmt.Sprintf("Rendered %s: %d rows", ds.Name, len(ds.Rows)))
		return nil
	},
}

// renderFormat is resolveFormat with the render default: svg, or ascii
// for an interactive terminal.
func renderFormat(deps *app.Deps) (string, error) {
	if globalFlags.Format == "" && globalFlags.Out == "" && !renderBatch &&
		deps.Config.RenderFormat == "svg" && pipeline.IsTTY() {
		return render.FormatASCII, nil
	}
	return resolveFormat(deps.Config.RenderFormat)
}

// layoutResult lays ds out and wraps the geometry in a Result.
func layoutResult(cmd *cobra.Command, deps *app.Deps, ds *model.Dataset, start time.Time) (*model.Result, error) {
	l, hit, err := computeLayout(deps, ds.Rows, geometryFor(cmd, deps, ds))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ds.Name, err)
	}
	result := newResult(model.KindLayout, "render "+ds.Name, l, len(l.Rows), start)
	result.Title = ds.Title
	result.Stats.CacheHit = hit
	return result, nil
}

// ─── Batch ────────────────────────────────────────────────────────────────────

type batchJob struct {
	name string
	load func(ctx context.Context) (*model.Dataset, error)
}

// runBatch renders every input into its own file under --out-dir.
// Per-input failures are collected as warnings; the command fails only
// when nothing could be rendered.
func runBatch(cmd *cobra.Command, deps *app.Deps, args []string, format string, opts render.Options) error {
	if globalFlags.Out != "" {
		return fmt.Errorf("--out cannot be combined with --batch (use --out-dir)")
	}
	outDir := renderOutDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", outDir, err)
	}

	var jobs []batchJob
	if renderInput.Sample {
		jobs = append(jobs, batchJob{dataset.SampleName, func(context.Context) (*model.Dataset, error) {
			return dataset.Sample(), nil
		}})
	}
	if name := renderInput.Dataset; name != "" {
		ds, err := loadStored(deps, name)
		if err != nil {
			return err
		}
		jobs = append(jobs, batchJob{name, func(context.Context) (*model.Dataset, error) {
			return ds, nil
		}})
	}
	for _, arg := range args {
		if arg == "-" {
			return fmt.Errorf("stdin cannot be used with --batch")
		}
		arg := arg
		jobs = append(jobs, batchJob{arg, func(ctx context.Context) (*model.Dataset, error) {
			return loadArg(ctx, deps, arg, renderInput.options())
		}})
	}
	if len(jobs) == 0 {
		return fmt.Errorf("--batch needs at least one input")
	}

	// Open the store once up front; Deps is not safe for concurrent setup.
	if !deps.OpenStore() {
		deps.Config.NoCache = true
	}

	start := time.Now()
	p := newProgress(deps.Logger)
	paths := newPathSet(outDir, extension(format))

	var (
		mu       sync.Mutex
		warnings []string
		written  []string
	)
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(deps.Config.Concurrency)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			path, err := renderJob(ctx, cmd, deps, job, format, opts, paths)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: %v", job.name, err))
				return nil
			}
			written = append(written, path)
			deps.Logger.Debug("wrote chart", "input", job.name, "path", path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	summary := newResult(model.KindLayout, "render --batch", nil, len(written), start)
	summary.Warnings = warnings
	if !deps.Config.Quiet {
		sort.Strings(written)
		for _, path := range written {
			printFile(cmd.OutOrStdout(), path)
		}
		render.PrintFooter(cmd.ErrOrStderr(), summary, deps.Config.Verbose)
	}
	if len(written) == 0 {
		return fmt.Errorf("no charts rendered (%d inputs failed)", len(warnings))
	}
	p.done(fmt.Sprintf("Rendered %d of %d datasets into %s", len(written), len(jobs), outDir))
	return nil
}

func renderJob(ctx context.Context, cmd *cobra.Command, deps *app.Deps, job batchJob, format string, opts render.Options, paths *pathSet) (string, error) {
	start := time.Now()
	ds, err := job.load(ctx)
	if err != nil {
		return "", err
	}
	result, err := layoutResult(cmd, deps, ds, start)
	if err != nil {
		return "", err
	}
	path := paths.claim(ds.Name)
	if err := render.RenderTo(path, result, format, opts); err != nil {
		return "", err
	}
	return path, nil
}

// pathSet hands out unique output paths: survey.svg, survey-2.svg, ...
type pathSet struct {
	mu   sync.Mutex
	dir  string
	ext  string
	used map[string]int
}

func newPathSet(dir, ext string) *pathSet {
	return &pathSet{dir: dir, ext: ext, used: make(map[string]int)}
}

func (s *pathSet) claim(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	name = safeFileName(name)
	s.used[name]++
	if n := s.used[name]; n > 1 {
		name += "-" + strconv.Itoa(n)
	}
	return filepath.Join(s.dir, name+"."+s.ext)
}

// safeFileName reduces a dataset name to a single path element so that
// names taken from input documents cannot leave the output directory.
func safeFileName(name string) string {
	name = filepath.Base(filepath.Clean(strings.ReplaceAll(name, "\\", "/")))
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "chart"
	}
	return name
}

// extension maps an output format to a file extension.
func extension(format string) string {
	switch format {
	case render.FormatTable, render.FormatASCII:
		return "txt"
	default:
		return format
	}
}

func init() {
	rootCmd.AddCommand(renderCmd)
	addInputFlags(renderCmd, &renderInput)
	addGeometryFlags(renderCmd)

	f := renderCmd.Flags()
	f.BoolVar(&renderBatch, "batch", false, "render every input concurrently into --out-dir")
	f.StringVar(&renderOutDir, "out-dir", "", "output directory for --batch (default: current directory)")
	f.IntVar(&renderASCIIWidth, "ascii-width", 0, "terminal width for --format ascii (default: $COLUMNS, fallback 80)")
}
