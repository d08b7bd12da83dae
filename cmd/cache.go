package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/spread/internal/model"
	"github.com/derickschaefer/spread/internal/render"
	"github.com/derickschaefer/spread/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the local data store",
	Long: `Commands for inspecting and clearing the local bbolt database.

The database holds two buckets: datasets (imported with 'spread dataset
import') and layouts (memoised chart geometry, keyed by a hash of the input
rows and geometry). Clearing layouts is always safe; they are recomputed
on the next render.`,
}

// ─── cache stats ──────────────────────────────────────────────────────────────

var cacheStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show row counts and sizes for each bucket",
	Example: `  spread cache stats
  spread cache stats --format json`,
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

		format, err := resolveFormat(deps.Config.Format)
		if err != nil {
			return err
		}

		if format != render.FormatTable {
			start := time.Now()
			stats, err := deps.Store.Stats()
			if err != nil {
				return fmt.Errorf("reading store stats: %w", err)
			}
			return emit(cmd, deps, newResult(model.KindCache, "cache stats", stats, 1, start), format, render.Options{})
		}

		buckets, err := deps.Store.BucketStats()
		if err != nil {
			return fmt.Errorf("reading store stats: %w", err)
		}
		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()

		fmt.Fprintf(w, "Database: %s\n\n", deps.Store.Path())
		printSimpleTable(w, []string{"BUCKET", "ROWS", "SIZE"}, func(add func(...string)) {
			for _, b := range buckets {
				add(b.Name, fmt.Sprintf("%d", b.Count), humanBytes(b.Bytes))
			}
		})
		return nil
	},
}

// ─── cache clear ──────────────────────────────────────────────────────────────

var (
	cacheClearAll    bool
	cacheClearBucket string
)

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete entries from the local store",
	Long: `Empty the datasets bucket, the layouts bucket, or both.

Removing layouts only costs a recomputation on the next render. Removing
datasets deletes every imported dataset. The file keeps its size until
'spread cache compact' runs.`,
	Example: `  spread cache clear --bucket layouts
  spread cache clear --all`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cacheClearAll && cacheClearBucket == "" {
			return fmt.Errorf("nothing to clear: pass --all or --bucket %s", strings.Join(store.AllBuckets, "|"))
		}

		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		out := cmd.OutOrStdout()
		if cacheClearAll {
			if err := deps.Store.ClearAll(); err != nil {
				return fmt.Errorf("clearing all buckets: %w", err)
			}
			if !deps.Config.Quiet {
				printSuccess(out, "Cleared all buckets")
				printDetail(out, "Run 'spread cache compact' to reclaim disk space.")
			}
			return nil
		}

		if err := deps.Store.ClearBucket(cacheClearBucket); err != nil {
			return fmt.Errorf("clearing bucket %q: %w", cacheClearBucket, err)
		}
		if !deps.Config.Quiet {
			printSuccess(out, "Cleared bucket %q", cacheClearBucket)
			printDetail(out, "Run 'spread cache compact' to reclaim disk space.")
		}
		return nil
	},
}

// ─── cache compact ────────────────────────────────────────────────────────────

var cacheCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the database file to reclaim freed disk space",
	Long: `Copy every live key into a fresh database file and swap it in place of
the old one. Run it after 'cache clear' to give the freed pages back to the
filesystem.`,
	Example: `  spread cache compact`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		out := cmd.OutOrStdout()
		p := newProgress(deps.Logger)
		before, after, err := deps.Store.Compact()
		if err != nil {
			return fmt.Errorf("compaction failed: %w", err)
		}
		p.done("Compacted " + deps.Store.Path())

		if deps.Config.Quiet {
			return nil
		}
		printSuccess(out, "Compaction complete")
		printDetail(out, "Before: %s", humanBytes(before))
		printDetail(out, "After:  %s", humanBytes(after))
		saved := before - after
		if saved <= 0 {
			printDetail(out, "Nothing to reclaim.")
			return nil
		}
		printDetail(out, "Saved:  %s", humanBytes(saved))
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheCompactCmd)

	cacheClearCmd.Flags().BoolVar(&cacheClearAll, "all", false, "clear all buckets")
	cacheClearCmd.Flags().StringVar(&cacheClearBucket, "bucket", "", "clear a specific bucket: "+strings.Join(store.AllBuckets, "|"))
}
