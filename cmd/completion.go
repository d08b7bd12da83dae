package cmd

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/spread/internal/config"
	"github.com/derickschaefer/spread/internal/dataset"
	"github.com/derickschaefer/spread/internal/render"
	"github.com/derickschaefer/spread/internal/store"
)

// completionCmd wraps Cobra's built-in shell completion generator.
// Running `spread completion bash` prints a script the user can source.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for spread.

To load completions in the current shell session:

  # bash
  source <(spread completion bash)

  # zsh
  source <(spread completion zsh)

  # fish
  spread completion fish | source

Besides commands and flags, the scripts complete --format and
--input-format values and the names of datasets in the local database.`,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := cmd.Root()
		switch args[0] {
		case "bash":
			return root.GenBashCompletionV2(cmd.OutOrStdout(), true)
		case "zsh":
			return root.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return root.GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		default:
			return cmd.Help()
		}
	},
}

var registerCompletionsOnce sync.Once

// registerCompletions attaches value completions once every command's
// flags exist. Called from Execute.
func registerCompletions() {
	registerCompletionsOnce.Do(func() {
		fixed := func(values []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
				return values, cobra.ShellCompDirectiveNoFileComp
			}
		}
		_ = rootCmd.RegisterFlagCompletionFunc("format", fixed(render.Formats))
		_ = cacheClearCmd.RegisterFlagCompletionFunc("bucket", fixed(store.AllBuckets))

		for _, c := range []*cobra.Command{renderCmd, summaryCmd, layoutCmd, datasetValidateCmd} {
			_ = c.RegisterFlagCompletionFunc("dataset", completeDatasetNames)
			_ = c.RegisterFlagCompletionFunc("input-format", fixed(dataset.Formats))
		}
		_ = datasetImportCmd.RegisterFlagCompletionFunc("input-format", fixed(dataset.Formats))

		datasetShowCmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return completeDatasetNames(cmd, args, toComplete)
		}
		datasetRmCmd.ValidArgsFunction = completeDatasetNames
	})
}

// completeDatasetNames lists stored dataset names matching toComplete.
// Any failure yields no suggestions rather than an error.
func completeDatasetNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.Load(globalFlags.Config)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if globalFlags.DB != "" {
		cfg.DBPath = globalFlags.DB
	}
	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer s.Close()
	sets, err := s.ListDatasets()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var names []string
	for _, ds := range sets {
		if strings.HasPrefix(ds.Name, toComplete) {
			names = append(names, ds.Name+"\t"+ds.Title)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
