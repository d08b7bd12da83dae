package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/spread/internal/config"
	"github.com/derickschaefer/spread/internal/render"
	"github.com/derickschaefer/spread/internal/util"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage spread configuration",
	Long: `Read and write spread configuration stored in spread.toml or config.json.

Resolution order (later wins): built-in defaults, the config file,
SPREAD_DB_PATH / SPREAD_FORMAT, then command-line flags.`,
}

// ─── config init ──────────────────────────────────────────────────────────────

var configInitJSON bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template spread.toml in the current directory",
	Example: `  spread config init
  spread config init --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultTOMLFile
		if configInitJSON {
			path = config.DefaultConfigFile
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		printSuccess(cmd.OutOrStdout(), "Created %s", path)
		printDetail(cmd.OutOrStdout(), "Edit the geometry and theme sections to change how charts look.")
		return nil
	},
}

// ─── config get ───────────────────────────────────────────────────────────────

var configGetCmd = &cobra.Command{
	Use:   "get [KEY]",
	Short: "Print the current resolved configuration",
	Example: `  spread config get
  spread config get geometry.width
  spread config get --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		cfg := deps.Config

		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}
		g := cfg.Geometry
		rows := [][]string{
			{"default_format", cfg.Format},
			{"render_format", cfg.RenderFormat},
			{"timeout", cfg.Timeout.String()},
			{"concurrency", strconv.Itoa(cfg.Concurrency)},
			{"rate", fmt.Sprintf("%.1f req/s", cfg.Rate)},
			{"db_path", cfg.DBPath},
			{"config_file", src},
			{"geometry.width", util.FormatValue(g.Width)},
			{"geometry.height", util.FormatValue(g.Height)},
			{"geometry.min_value", util.FormatValue(g.MinValue)},
			{"geometry.max_value", util.FormatValue(g.MaxValue)},
			{"geometry.grid_line_count", strconv.Itoa(g.GridLineCount)},
			{"geometry.min_row_height", util.FormatValue(g.MinRowHeight)},
			{"geometry.label_width", util.FormatValue(g.LabelWidth)},
			{"geometry.wrap_labels", strconv.FormatBool(g.WrapLabels)},
			{"geometry.margins", fmt.Sprintf("top %s, right %s, bottom %s, left %s",
				util.FormatValue(g.Margins.Top), util.FormatValue(g.Margins.Right),
				util.FormatValue(g.Margins.Bottom), util.FormatValue(g.Margins.Left))},
			{"theme.whisker", cfg.Theme.Whisker},
			{"theme.lower_box", cfg.Theme.LowerBox},
			{"theme.upper_box", cfg.Theme.UpperBox},
		}

		if len(args) == 1 {
			for _, r := range rows {
				if r[0] == args[0] {
					fmt.Fprintln(cmd.OutOrStdout(), r[1])
					return nil
				}
			}
			return fmt.Errorf("unknown config key %q", args[0])
		}

		if globalFlags.Format == render.FormatJSON {
			out := make(map[string]string, len(rows))
			for _, r := range rows {
				out[r[0]] = r[1]
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
		printKVTable(cmd.OutOrStdout(), rows)
		return nil
	},
}

// ─── config set ───────────────────────────────────────────────────────────────

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in the config file",
	Example: `  spread config set default_format md
  spread config set geometry.max_value 5
  spread config set theme.upper_box "#3B7A57"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		val := args[1]

		// Load existing file or start from template
		path, f, err := loadConfigFile()
		if err != nil {
			return err
		}
		if err := setConfigKey(f, key, val); err != nil {
			return err
		}
		if err := config.WriteFile(path, *f); err != nil {
			return err
		}
		printSuccess(cmd.OutOrStdout(), "Set %s in %s", key, path)
		return nil
	},
}

func setConfigKey(f *config.File, key, val string) error {
	num := func() (float64, error) {
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a number", key)
		}
		return v, nil
	}
	geom := func() *config.GeometryFile {
		if f.Geometry == nil {
			f.Geometry = &config.GeometryFile{}
		}
		return f.Geometry
	}
	setNum := func(dst **float64) error {
		v, err := num()
		if err != nil {
			return err
		}
		*dst = &v
		return nil
	}

	switch key {
	case "default_format", "format":
		if !render.ValidFormat(val) {
			return fmt.Errorf("unknown format %q", val)
		}
		f.DefaultFormat = val
	case "render_format":
		if !render.ValidFormat(val) {
			return fmt.Errorf("unknown format %q", val)
		}
		f.RenderFormat = val
	case "timeout":
		f.Timeout = val
	case "concurrency":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("concurrency must be an integer")
		}
		f.Concurrency = n
	case "rate":
		v, err := num()
		if err != nil {
			return err
		}
		f.Rate = v
	case "db_path":
		f.DBPath = val
	case "geometry.width":
		return setNum(&geom().Width)
	case "geometry.height":
		return setNum(&geom().Height)
	case "geometry.min_value":
		return setNum(&geom().MinValue)
	case "geometry.max_value":
		return setNum(&geom().MaxValue)
	case "geometry.min_row_height":
		return setNum(&geom().MinRowHeight)
	case "geometry.label_width":
		return setNum(&geom().LabelWidth)
	case "geometry.grid_line_count":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s must be an integer", key)
		}
		geom().GridLineCount = &n
	case "geometry.wrap_labels":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("%s must be true or false", key)
		}
		geom().WrapLabels = &b
	default:
		if strings.HasPrefix(key, "theme.") {
			return setThemeKey(f, strings.TrimPrefix(key, "theme."), val)
		}
		return fmt.Errorf("unknown config key: %q\n\nValid keys: default_format, render_format, timeout, concurrency, rate, db_path, geometry.*, theme.*", key)
	}
	return nil
}

func setThemeKey(f *config.File, field, val string) error {
	if f.Theme == nil {
		t := config.Template()
		f.Theme = t.Theme
	}
	t := f.Theme
	dst := map[string]*string{
		"background":  &t.Background,
		"divider":     &t.Divider,
		"grid":        &t.Grid,
		"grid_label":  &t.GridLabel,
		"whisker":     &t.Whisker,
		"lower_box":   &t.LowerBox,
		"upper_box":   &t.UpperBox,
		"marker":      &t.Marker,
		"label":       &t.Label,
		"font_family": &t.FontFamily,
	}
	if field == "font_size" {
		v, err := strconv.ParseFloat(val, 64)
		if err != nil || v <= 0 {
			return fmt.Errorf("theme.font_size must be a positive number")
		}
		t.FontSize = v
		return nil
	}
	p, ok := dst[field]
	if !ok {
		keys := make([]string, 0, len(dst)+1)
		for k := range dst {
			keys = append(keys, k)
		}
		keys = append(keys, "font_size")
		sort.Strings(keys)
		return fmt.Errorf("unknown theme key %q (valid: %s)", field, strings.Join(keys, ", "))
	}
	*p = val
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configInitJSON, "json", false, "write config.json instead of spread.toml")
}

// loadConfigFile reads the file named by --config, else spread.toml or
// config.json from cwd. When none exists a template for spread.toml is
// returned.
func loadConfigFile() (string, *config.File, error) {
	candidates := []string{config.DefaultTOMLFile, config.DefaultConfigFile}
	if globalFlags.Config != "" {
		candidates = []string{globalFlags.Config}
	}
	for _, path := range candidates {
		f, err := config.ReadFile(path)
		if err == nil {
			return path, f, nil
		}
		if !os.IsNotExist(err) {
			return "", nil, err
		}
	}
	t := config.Template()
	return candidates[0], &t, nil
}

// printKVTable renders a two-column key/value listing using aligned columns.
func printKVTable(w io.Writer, rows [][]string) {
	maxKey := 0
	for _, r := range rows {
		if len(r[0]) > maxKey {
			maxKey = len(r[0])
		}
	}
	for _, r := range rows {
		padding := strings.Repeat(" ", maxKey-len(r[0]))
		fmt.Fprintf(w, "  %s%s  %s\n", r[0], padding, r[1])
	}
}
