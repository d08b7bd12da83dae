package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/spread/internal/analyze"
	"github.com/derickschaefer/spread/internal/model"
	"github.com/derickschaefer/spread/internal/render"
)

var summaryInput inputFlags

var summaryCmd = &cobra.Command{
	Use:   "summary [FILE|URL|-]",
	Short: "Per-row statistics: count, min, quartiles, mean ± SD, max",
	Long: `Summary reduces every row of a dataset and prints one line per row.

MEAN-SD, MEAN and MEAN+SD are rounded to 2 decimal places exactly as the
chart draws them; the standard deviation is the population one (divides
by n). MIN and MAX are the raw extrema.`,
	Example: `  spread summary --sample
  spread summary survey.csv --format md
  spread summary --dataset q3 --format json
  cat rows.jsonl | spread summary`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer deps.Close()

		format, err := resolveFormat(deps.Config.Format)
		if err != nil {
			return err
		}
		if format == render.FormatSVG || format == render.FormatASCII {
			return fmt.Errorf("summary does not support --format %s (use 'spread render')", format)
		}

		start := time.Now()
		inputs, err := loadInputs(cmd.Context(), deps, summaryInput, args)
		if err != nil {
			return err
		}
		if len(inputs) > 1 {
			return fmt.Errorf("summary takes a single dataset, got %d", len(inputs))
		}
		ds := inputs[0]

		stats, err := analyze.DescribeRows(ds.Rows)
		if err != nil {
			return fmt.Errorf("%s: %w", ds.Name, err)
		}
		result := newResult(model.KindSummary, "summary "+ds.Name, stats, len(stats), start)
		result.Title = ds.Title
		return emit(cmd, deps, result, format, render.Options{})
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	addInputFlags(summaryCmd, &summaryInput)
}
