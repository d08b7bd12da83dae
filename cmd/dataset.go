package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/spread/internal/dataset"
	"github.com/derickschaefer/spread/internal/model"
	"github.com/derickschaefer/spread/internal/render"
	"github.com/derickschaefer/spread/internal/store"
	"github.com/derickschaefer/spread/internal/util"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Import, inspect and validate datasets",
	Long: `Commands for datasets kept in the local bbolt database.

An imported dataset is a named, ordered list of labeled rows. Render it
later with 'spread render --dataset <name>'. Imported data persists until
you remove it with 'spread dataset rm'.`,
}

// ─── dataset import ───────────────────────────────────────────────────────────

var (
	datasetImportInput inputFlags
	datasetImportName  string
	datasetImportTitle string
)

var datasetImportCmd = &cobra.Command{
	Use:   "import <FILE|URL|->",
	Short: "Load a dataset file or URL into the local database",
	Example: `  spread dataset import survey.csv
  spread dataset import responses.xlsx --sheet Q3 --name q3 --title "Q3 survey"
  spread dataset import https://example.com/survey.json --name web
  cat rows.jsonl | spread dataset import - --input-format jsonl --name piped`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer deps.Close()

		ds, err := loadArg(cmd.Context(), deps, args[0], datasetImportInput.options())
		if err != nil {
			return err
		}
		if datasetImportName != "" {
			ds.Name = datasetImportName
		}
		if datasetImportTitle != "" {
			ds.Title = datasetImportTitle
		}
		if ds.Name == "" {
			return fmt.Errorf("--name is required when importing from stdin")
		}
		if err := store.ValidName(ds.Name); err != nil {
			return err
		}

		rep, err := dataset.Validate(ds.Rows, deps.Config.Geometry)
		if err != nil {
			return fmt.Errorf("%s is not valid: %w", args[0], err)
		}
		for _, w := range rep.Warnings {
			deps.Logger.Warn(w)
		}

		if err := deps.RequireStore(); err != nil {
			return err
		}
		if err := deps.Store.PutDataset(*ds); err != nil {
			return fmt.Errorf("storing dataset: %w", err)
		}
		if !deps.Config.Quiet {
			printSuccess(cmd.OutOrStdout(), "Imported %q: %d rows, %d samples", ds.Name, rep.Rows, rep.Samples)
		}
		return nil
	},
}

// ─── dataset list ─────────────────────────────────────────────────────────────

var datasetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List datasets in the local database",
	Example: `  spread dataset list
  spread dataset list --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		sets, err := deps.Store.ListDatasets()
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}

		format, err := resolveFormat(deps.Config.Format)
		if err != nil {
			return err
		}
		if len(sets) == 0 && format == render.FormatTable {
			fmt.Fprintln(cmd.OutOrStdout(), "No datasets in local database.")
			printDetail(cmd.OutOrStdout(), "Use: spread dataset import <FILE|URL>")
			return nil
		}
		return emit(cmd, deps, newResult(model.KindDatasets, "dataset list", sets, len(sets), start), format, render.Options{})
	},
}

// ─── dataset show ─────────────────────────────────────────────────────────────

var datasetShowCmd = &cobra.Command{
	Use:   "show <NAME>",
	Short: "Print the rows of a stored dataset",
	Example: `  spread dataset show q3
  spread dataset show q3 --format csv --out q3.csv
  spread dataset show q3 --format jsonl | spread render --format ascii`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		ds, err := loadStored(deps, args[0])
		if err != nil {
			return err
		}
		format, err := resolveFormat(deps.Config.Format)
		if err != nil {
			return err
		}
		result := newResult(model.KindDataset, "dataset show "+ds.Name, ds, len(ds.Rows), start)
		result.Title = ds.Title
		return emit(cmd, deps, result, format, render.Options{})
	},
}

// ─── dataset rm ───────────────────────────────────────────────────────────────

var datasetRmCmd = &cobra.Command{
	Use:     "rm <NAME...>",
	Aliases: []string{"delete"},
	Short:   "Remove datasets from the local database",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		var errs util.MultiError
		for _, name := range args {
			err := deps.Store.DeleteDataset(name)
			switch {
			case errors.Is(err, store.ErrNotFound):
				errs.Add(fmt.Errorf("dataset %q not found", name))
			case err != nil:
				errs.Add(fmt.Errorf("removing %q: %w", name, err))
			default:
				if !deps.Config.Quiet {
					printSuccess(cmd.OutOrStdout(), "Removed %q", name)
				}
			}
		}
		return errs.Err()
	},
}

// ─── dataset validate ─────────────────────────────────────────────────────────

var datasetValidateInput inputFlags

var datasetValidateCmd = &cobra.Command{
	Use:   "validate [FILE|URL|-]",
	Short: "Check a dataset and report every problem at once",
	Long: `Validate loads a dataset and checks each row the way the layout engine
would. Empty rows and non-finite samples are errors; samples outside the
value axis (--min/--max) and repeated labels are warnings.

Exits non-zero if any row has an error.`,
	Example: `  spread dataset validate survey.csv
  spread dataset validate --dataset q3 --min 1 --max 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer deps.Close()

		inputs, err := loadInputs(cmd.Context(), deps, datasetValidateInput, args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		var failed int
		for _, ds := range inputs {
			rep, err := dataset.Validate(ds.Rows, deps.Config.Geometry)
			for _, w := range rep.Warnings {
				printWarning(out, "%s: %s", ds.Name, w)
			}
			var multi *util.MultiError
			switch {
			case errors.As(err, &multi):
				failed++
				for _, e := range multi.Errors {
					printFailure(out, "%s: %v", ds.Name, e)
				}
			case err != nil:
				failed++
				printFailure(out, "%s: %v", ds.Name, err)
			default:
				printSuccess(out, "%s: %d rows, %d samples", ds.Name, rep.Rows, rep.Samples)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d datasets failed validation", failed, len(inputs))
		}
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetImportCmd)
	datasetCmd.AddCommand(datasetListCmd)
	datasetCmd.AddCommand(datasetShowCmd)
	datasetCmd.AddCommand(datasetRmCmd)
	datasetCmd.AddCommand(datasetValidateCmd)

	f := datasetImportCmd.Flags()
	f.StringVar(&datasetImportInput.Format, "input-format", "", "input format: "+strings.Join(dataset.Formats, "|")+" (default: from extension)")
	f.StringVar(&datasetImportInput.Sheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	f.BoolVar(&datasetImportInput.Columns, "columns", false, "CSV/TSV/XLSX: one column per row, label in the header")
	f.StringVar(&datasetImportName, "name", "", "dataset name (default: file name without extension)")
	f.StringVar(&datasetImportTitle, "title", "", "dataset title")

	addInputFlags(datasetValidateCmd, &datasetValidateInput)
	addGeometryFlags(datasetValidateCmd)
}
