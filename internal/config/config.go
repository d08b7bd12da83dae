// Package config handles loading and resolving spread configuration.
// Resolution order (later layers win):
//  1. Built-in defaults
//  2. spread.toml or config.json in the current working directory
//     (or the file named by --config); TOML wins when both exist
//  3. Environment variables SPREAD_DB_PATH and SPREAD_FORMAT
//  4. CLI flags, applied by the cmd package after Load
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/derickschaefer/spread/internal/chart"
	"github.com/derickschaefer/spread/internal/model"
)

const (
	DefaultConfigFile   = "config.json"
	DefaultTOMLFile     = "spread.toml"
	DefaultFormat       = "table"
	DefaultRenderFormat = "svg"
	DefaultTimeout      = 30 * time.Second
	DefaultConcurrency  = 4
	DefaultRate         = 5.0
	EnvDBPath           = "SPREAD_DB_PATH"
	EnvFormat           = "SPREAD_FORMAT"
)

// File is the on-disk representation of spread.toml / config.json.
// Geometry fields are pointers so a file can override a subset of them,
// including to zero.
type File struct {
	DefaultFormat string        `json:"default_format,omitempty" toml:"default_format,omitempty"`
	RenderFormat  string        `json:"render_format,omitempty" toml:"render_format,omitempty"`
	Timeout       string        `json:"timeout,omitempty" toml:"timeout,omitempty"`
	Concurrency   int           `json:"concurrency,omitempty" toml:"concurrency,omitempty"`
	Rate          float64       `json:"rate,omitempty" toml:"rate,omitempty"`
	DBPath        string        `json:"db_path,omitempty" toml:"db_path,omitempty"`
	Geometry      *GeometryFile `json:"geometry,omitempty" toml:"geometry,omitempty"`
	Theme         *model.Theme  `json:"theme,omitempty" toml:"theme,omitempty"`
}

// GeometryFile holds optional overrides for model.GeometryConfig.
type GeometryFile struct {
	Width         *float64     `json:"width,omitempty" toml:"width,omitempty"`
	Height        *float64     `json:"height,omitempty" toml:"height,omitempty"`
	MinValue      *float64     `json:"min_value,omitempty" toml:"min_value,omitempty"`
	MaxValue      *float64     `json:"max_value,omitempty" toml:"max_value,omitempty"`
	GridLineCount *int         `json:"grid_line_count,omitempty" toml:"grid_line_count,omitempty"`
	MinRowHeight  *float64     `json:"min_row_height,omitempty" toml:"min_row_height,omitempty"`
	LabelWidth    *float64     `json:"label_width,omitempty" toml:"label_width,omitempty"`
	WrapLabels    *bool        `json:"wrap_labels,omitempty" toml:"wrap_labels,omitempty"`
	Margins       *MarginsFile `json:"margins,omitempty" toml:"margins,omitempty"`
}

// MarginsFile holds optional overrides for model.Margins.
type MarginsFile struct {
	Top    *float64 `json:"top,omitempty" toml:"top,omitempty"`
	Right  *float64 `json:"right,omitempty" toml:"right,omitempty"`
	Bottom *float64 `json:"bottom,omitempty" toml:"bottom,omitempty"`
	Left   *float64 `json:"left,omitempty" toml:"left,omitempty"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	Format       string
	RenderFormat string
	Timeout      time.Duration
	Concurrency  int
	Rate         float64
	DBPath       string
	ConfigPath   string // path of the config file that was loaded (empty if none found)
	Geometry     model.GeometryConfig
	Theme        model.Theme

	// Runtime overrides set from CLI flags after Load()
	NoCache bool
	Quiet   bool
	Verbose bool
}

// Load resolves configuration from all sources. path is the value of
// --config; when empty the working directory is searched. A missing file
// is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Format:       DefaultFormat,
		RenderFormat: DefaultRenderFormat,
		Timeout:      DefaultTimeout,
		Concurrency:  DefaultConcurrency,
		Rate:         DefaultRate,
		Geometry:     model.DefaultGeometry(),
		Theme:        model.DefaultTheme(),
	}

	// Layer 1: config file (lowest priority after defaults)
	f, found, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	if f != nil {
		if err := applyFile(cfg, f, found); err != nil {
			return nil, err
		}
	}

	// Layer 2: environment variables
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvFormat); v != "" {
		cfg.Format = v
	}

	// Set default DB path if still unset
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".spread", "spread.db")
		}
	}

	return cfg, nil
}

// Validate returns an error if any resolved value is out of range.
func (c *Config) Validate() error {
	switch {
	case c.Concurrency < 1:
		return fmt.Errorf("config: concurrency must be at least 1, got %d", c.Concurrency)
	case c.Rate <= 0:
		return fmt.Errorf("config: rate must be positive, got %g", c.Rate)
	case c.Timeout <= 0:
		return fmt.Errorf("config: timeout must be positive, got %v", c.Timeout)
	}
	if err := chart.Validate(c.Geometry); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// loadFile reads the explicit path, or else spread.toml / config.json from
// the current working directory.
func loadFile(explicit string) (*File, string, error) {
	candidates := []string{DefaultTOMLFile, DefaultConfigFile}
	if explicit != "" {
		candidates = []string{explicit}
	}
	for _, name := range candidates {
		path, err := filepath.Abs(name)
		if err != nil {
			return nil, "", err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) && explicit == "" {
				continue
			}
			return nil, "", fmt.Errorf("reading %s: %w", name, err)
		}
		f, err := parseFile(path, data)
		if err != nil {
			return nil, "", err
		}
		return f, path, nil
	}
	return nil, "", nil
}

// ReadFile parses the config file at path without applying it.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseFile(path, data)
}

func parseFile(path string, data []byte) (*File, error) {
	var f File
	if isTOML(path) {
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}
		return &f, nil
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return &f, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) error {
	cfg.ConfigPath = path
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.RenderFormat != "" {
		cfg.RenderFormat = f.RenderFormat
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return fmt.Errorf("config %s: timeout: %w", filepath.Base(path), err)
		}
		cfg.Timeout = d
	}
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.Rate > 0 {
		cfg.Rate = f.Rate
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.Geometry != nil {
		f.Geometry.apply(&cfg.Geometry)
	}
	if f.Theme != nil {
		cfg.Theme = f.Theme.Merge(cfg.Theme)
	}
	return nil
}

func (g *GeometryFile) apply(dst *model.GeometryConfig) {
	setF := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setF(&dst.Width, g.Width)
	setF(&dst.Height, g.Height)
	setF(&dst.MinValue, g.MinValue)
	setF(&dst.MaxValue, g.MaxValue)
	setF(&dst.MinRowHeight, g.MinRowHeight)
	setF(&dst.LabelWidth, g.LabelWidth)
	if g.GridLineCount != nil {
		dst.GridLineCount = *g.GridLineCount
	}
	if g.WrapLabels != nil {
		dst.WrapLabels = *g.WrapLabels
	}
	if m := g.Margins; m != nil {
		setF(&dst.Margins.Top, m.Top)
		setF(&dst.Margins.Right, m.Right)
		setF(&dst.Margins.Bottom, m.Bottom)
		setF(&dst.Margins.Left, m.Left)
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config via `spread config init`.
func Template() File {
	g := model.DefaultGeometry()
	theme := model.DefaultTheme()
	return File{
		DefaultFormat: DefaultFormat,
		RenderFormat:  DefaultRenderFormat,
		Timeout:       DefaultTimeout.String(),
		Concurrency:   DefaultConcurrency,
		Rate:          DefaultRate,
		Geometry: &GeometryFile{
			Width:         &g.Width,
			Height:        &g.Height,
			MinValue:      &g.MinValue,
			MaxValue:      &g.MaxValue,
			GridLineCount: &g.GridLineCount,
			MinRowHeight:  &g.MinRowHeight,
			LabelWidth:    &g.LabelWidth,
			WrapLabels:    &g.WrapLabels,
			Margins: &MarginsFile{
				Top:    &g.Margins.Top,
				Right:  &g.Margins.Right,
				Bottom: &g.Margins.Bottom,
				Left:   &g.Margins.Left,
			},
		},
		Theme: &theme,
	}
}

// Encode serialises f as TOML when path ends in .toml, otherwise JSON.
func Encode(path string, f File) ([]byte, error) {
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(f); err != nil {
			return nil, fmt.Errorf("encoding config: %w", err)
		}
		return buf.Bytes(), nil
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := Encode(path, f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
