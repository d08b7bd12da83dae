package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/spread/internal/render"
)

var layoutInput inputFlags

var layoutCmd = &cobra.Command{
	Use:   "layout [FILE|URL|-]",
	Short: "Print the computed chart geometry without drawing it",
	Long: `Layout runs the layout engine and prints its result: canvas size, grid
lines, one entry per row with the summary and pixel extents, and the flat
list of drawing primitives. Output defaults to json so other renderers can
consume it; csv and table give one line per row.`,
	Example: `  spread layout --sample
  spread layout survey.csv --width 800 --min 1 --max 5 --format csv
  spread layout --dataset q3 --format jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer deps.Close()
		if err := deps.Config.Validate(); err != nil {
			return err
		}

		format := render.FormatJSON
		if globalFlags.Format != "" {
			if format, err = resolveFormat(""); err != nil {
				return err
			}
		}

		start := time.Now()
		inputs, err := loadInputs(cmd.Context(), deps, layoutInput, args)
		if err != nil {
			return err
		}
		if len(inputs) > 1 {
			return fmt.Errorf("layout takes a single dataset, got %d", len(inputs))
		}
		result, err := layoutResult(cmd, deps, inputs[0], start)
		if err != nil {
			return err
		}
		result.Command = "layout " + inputs[0].Name
		return emit(cmd, deps, result, format, render.Options{})
	},
}

func init() {
	rootCmd.AddCommand(layoutCmd)
	addInputFlags(layoutCmd, &layoutInput)
	addGeometryFlags(layoutCmd)
}
