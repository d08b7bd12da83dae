// Package cmd implements the spread CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/spread/internal/app"
	"github.com/derickschaefer/spread/internal/config"
	"github.com/derickschaefer/spread/internal/model"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	Config      string
	Format      string
	Out         string
	DB          string
	NoCache     bool
	Timeout     string
	Concurrency int
	Rate        float64
	Quiet       bool
	Verbose     bool
}

// geometryFlags backs the chart geometry flags shared by render, layout
// and dataset validate. Only flags the user actually set override config.
var geometryFlags struct {
	Width        float64
	Height       float64
	Min          float64
	Max          float64
	GridLines    int
	MinRowHeight float64
	LabelWidth   float64
	NoWrap       bool
	MarginTop    float64
	MarginRight  float64
	MarginBottom float64
	MarginLeft   float64
}

// rootCmd is the base command. Running `spread` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "spread",
	Short: "spread: horizontal box-plot charts for survey responses",
	Long: `spread turns labeled numeric samples (for example the answers to a set of
survey questions) into horizontal box-plot charts: one row per question, a
whisker from min to max, two shaded boxes for mean ± one standard deviation
and a vertical value grid.

Inputs can be JSON, JSONL, CSV, TSV, YAML or XLSX files, http(s) URLs,
datasets imported into the local store, or stdin.

Quick start:
  spread render --sample --out sample.svg     # render the built-in survey
  spread render survey.csv --format ascii     # preview in the terminal
  spread summary survey.csv                   # per-question statistics
  spread dataset import survey.xlsx --name q3 # keep a dataset for later`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd.ErrOrStderr(), logLevel(globalFlags.Quiet, globalFlags.Verbose))
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(withLogger(ctx, logger))
		return nil
	},
}

// Execute is the entry point called by main.
func Execute() {
	registerCompletions()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildDeps resolves config, applies flag overrides and constructs the
// dependency container. Called at the start of each command's RunE.
func buildDeps(cmd *cobra.Command) (*app.Deps, error) {
	cfg, err := config.Load(globalFlags.Config)
	if err != nil {
		return nil, err
	}

	// Apply CLI flag overrides
	cfg.NoCache = globalFlags.NoCache
	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose

	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
		cfg.RenderFormat = globalFlags.Format
	}
	if globalFlags.DB != "" {
		cfg.DBPath = globalFlags.DB
	}
	if globalFlags.Timeout != "" {
		d, err := time.ParseDuration(globalFlags.Timeout)
		if err != nil {
			return nil, fmt.Errorf("--timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if globalFlags.Concurrency > 0 {
		cfg.Concurrency = globalFlags.Concurrency
	}
	if globalFlags.Rate > 0 {
		cfg.Rate = globalFlags.Rate
	}
	applyGeometryFlags(cmd, &cfg.Geometry)

	return app.New(cfg, loggerFromContext(cmd.Context())), nil
}

// addGeometryFlags registers the chart geometry flags on cmd.
func addGeometryFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&geometryFlags.Width, "width", model.DefaultWidth, "canvas width in pixels")
	f.Float64Var(&geometryFlags.Height, "height", model.DefaultHeight, "requested canvas height in pixels (grows to fit rows)")
	f.Float64Var(&geometryFlags.Min, "min", model.DefaultMinValue, "lower end of the value axis")
	f.Float64Var(&geometryFlags.Max, "max", model.DefaultMaxValue, "upper end of the value axis")
	f.IntVar(&geometryFlags.GridLines, "grid-lines", model.DefaultGridLineCount, "number of vertical grid lines, including both ends")
	f.Float64Var(&geometryFlags.MinRowHeight, "min-row-height", model.DefaultMinRowHeight, "minimum vertical space per row")
	f.Float64Var(&geometryFlags.LabelWidth, "label-width", model.DefaultLabelWidth, "width of the row label column")
	f.BoolVar(&geometryFlags.NoWrap, "no-wrap", false, "truncate row labels instead of wrapping them")
	f.Float64Var(&geometryFlags.MarginTop, "margin-top", model.DefaultMarginTop, "top margin")
	f.Float64Var(&geometryFlags.MarginRight, "margin-right", model.DefaultMarginRight, "right margin")
	f.Float64Var(&geometryFlags.MarginBottom, "margin-bottom", model.DefaultMarginBottom, "bottom margin (holds grid labels)")
	f.Float64Var(&geometryFlags.MarginLeft, "margin-left", model.DefaultMarginLeft, "left margin (holds row labels)")
}

// applyGeometryFlags copies every geometry flag the user set onto g.
func applyGeometryFlags(cmd *cobra.Command, g *model.GeometryConfig) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("width") {
		g.Width = geometryFlags.Width
	}
	if changed("height") {
		g.Height = geometryFlags.Height
	}
	if changed("min") {
		g.MinValue = geometryFlags.Min
	}
	if changed("max") {
		g.MaxValue = geometryFlags.Max
	}
	if changed("grid-lines") {
		g.GridLineCount = geometryFlags.GridLines
	}
	if changed("min-row-height") {
		g.MinRowHeight = geometryFlags.MinRowHeight
	}
	if changed("label-width") {
		g.LabelWidth = geometryFlags.LabelWidth
	}
	if changed("no-wrap") {
		g.WrapLabels = !geometryFlags.NoWrap
	}
	if changed("margin-top") {
		g.Margins.Top = geometryFlags.MarginTop
	}
	if changed("margin-right") {
		g.Margins.Right = geometryFlags.MarginRight
	}
	if changed("margin-bottom") {
		g.Margins.Bottom = geometryFlags.MarginBottom
	}
	if changed("margin-left") {
		g.Margins.Left = geometryFlags.MarginLeft
	}
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.Config, "config", "",
		"config file (default: ./spread.toml or ./config.json)")
	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|jsonl|csv|tsv|md|svg|ascii (default: table, svg for render)")
	pf.StringVarP(&globalFlags.Out, "out", "o", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.DB, "db", "",
		"path to the local database (overrides env SPREAD_DB_PATH)")
	pf.BoolVar(&globalFlags.NoCache, "no-cache", false,
		"compute layouts without reading or writing the layout cache")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"HTTP request timeout for URL inputs (e.g. 30s, 2m)")
	pf.IntVar(&globalFlags.Concurrency, "concurrency", 0,
		"max parallel renders for --batch (default: 4)")
	pf.Float64Var(&globalFlags.Rate, "rate", 0,
		"max HTTP requests per second for URL inputs (default: 5.0)")
	pf.BoolVarP(&globalFlags.Quiet, "quiet", "q", false,
		"suppress all non-error output")
	pf.BoolVarP(&globalFlags.Verbose, "verbose", "v", false,
		"debug logging and timing stats after output")
}
