package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/derickschaefer/spread/internal/config"
	"github.com/derickschaefer/spread/internal/model"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// chdir changes the working directory to dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

// writeIn writes content to dir/name.
func writeIn(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// clearEnv unsets SPREAD_DB_PATH and SPREAD_FORMAT for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvDBPath, "")
	t.Setenv(config.EnvFormat, "")
}

// ─── Defaults ─────────────────────────────────────────────────────────────────

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Format != config.DefaultFormat || cfg.RenderFormat != config.DefaultRenderFormat {
		t.Errorf("formats: %q %q", cfg.Format, cfg.RenderFormat)
	}
	if cfg.Timeout != config.DefaultTimeout {
		t.Errorf("Timeout: expected %v, got %v", config.DefaultTimeout, cfg.Timeout)
	}
	if cfg.Concurrency != config.DefaultConcurrency || cfg.Rate != config.DefaultRate {
		t.Errorf("concurrency/rate: %d %g", cfg.Concurrency, cfg.Rate)
	}
	if diff := cmp.Diff(model.DefaultGeometry(), cfg.Geometry); diff != "" {
		t.Errorf("geometry (-want +got):\n%s", diff)
	}
	if cfg.Theme != model.DefaultTheme() {
		t.Errorf("theme: %+v", cfg.Theme)
	}
	if cfg.DBPath == "" {
		t.Error("DBPath should have a default (home dir based) value")
	}
	if cfg.ConfigPath != "" {
		t.Errorf("ConfigPath should be empty, got %q", cfg.ConfigPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

// ─── Files ────────────────────────────────────────────────────────────────────

func TestLoadJSONFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)
	writeIn(t, dir, config.DefaultConfigFile, `{
		"default_format": "csv",
		"timeout": "5s",
		"concurrency": 2,
		"db_path": "/tmp/x.db",
		"geometry": {"width": 800, "min_value": 1, "max_value": 5, "margins": {"left": 0}}
	}`)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Format != "csv" || cfg.Timeout != 5*time.Second || cfg.Concurrency != 2 || cfg.DBPath != "/tmp/x.db" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	g := cfg.Geometry
	if g.Width != 800 || g.MinValue != 1 || g.MaxValue != 5 || g.Margins.Left != 0 {
		t.Errorf("geometry overrides not applied: %+v", g)
	}
	if g.Height != model.DefaultHeight || g.Margins.Right != model.DefaultMarginRight {
		t.Errorf("unset geometry fields should keep defaults: %+v", g)
	}
	if !strings.HasSuffix(cfg.ConfigPath, config.DefaultConfigFile) {
		t.Errorf("ConfigPath: %q", cfg.ConfigPath)
	}
}

func TestLoadTOMLWinsOverJSON(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)
	writeIn(t, dir, config.DefaultConfigFile, `{"default_format": "csv"}`)
	writeIn(t, dir, config.DefaultTOMLFile, `
default_format = "md"
render_format = "ascii"

[geometry]
grid_line_count = 11
wrap_labels = false

[geometry.margins]
top = 10

[theme]
whisker = "#000000"
`)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Format != "md" || cfg.RenderFormat != "ascii" {
		t.Errorf("formats: %q %q", cfg.Format, cfg.RenderFormat)
	}
	if cfg.Geometry.GridLineCount != 11 || cfg.Geometry.WrapLabels || cfg.Geometry.Margins.Top != 10 {
		t.Errorf("geometry: %+v", cfg.Geometry)
	}
	if cfg.Theme.Whisker != "#000000" || cfg.Theme.UpperBox != model.DefaultTheme().UpperBox {
		t.Errorf("theme merge: %+v", cfg.Theme)
	}
}

func TestLoadExplicitPath(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	path := writeIn(t, t.TempDir(), "custom.toml", "rate = 2.5\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Rate != 2.5 || cfg.ConfigPath != path {
		t.Errorf("rate=%g path=%q", cfg.Rate, cfg.ConfigPath)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("explicit missing file should be an error")
	}
}

func TestLoadMalformed(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		config.DefaultConfigFile: `{"default_format": `,
		config.DefaultTOMLFile:   "default_format = \n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			chdir(t, dir)
			writeIn(t, dir, name, content)
			if _, err := config.Load(""); err == nil || !strings.Contains(err.Error(), name) {
				t.Errorf("expected parse error naming %s, got %v", name, err)
			}
		})
	}
}

func TestLoadBadTimeout(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)
	writeIn(t, dir, config.DefaultConfigFile, `{"timeout": "soon"}`)
	if _, err := config.Load(""); err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Errorf("expected timeout error, got %v", err)
	}
}

// ─── Environment ──────────────────────────────────────────────────────────────

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeIn(t, dir, config.DefaultConfigFile, `{"db_path": "/from/file.db", "default_format": "csv"}`)
	t.Setenv(config.EnvDBPath, "/from/env.db")
	t.Setenv(config.EnvFormat, "json")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/from/env.db" || cfg.Format != "json" {
		t.Errorf("env should win: db=%q format=%q", cfg.DBPath, cfg.Format)
	}
}

// ─── Validate ─────────────────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			Timeout:     time.Second,
			Concurrency: 1,
			Rate:        1,
			Geometry:    model.DefaultGeometry(),
		}
	}
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero concurrency", func(c *config.Config) { c.Concurrency = 0 }},
		{"zero rate", func(c *config.Config) { c.Rate = 0 }},
		{"zero timeout", func(c *config.Config) { c.Timeout = 0 }},
		{"bad domain", func(c *config.Config) { c.Geometry.MaxValue = c.Geometry.MinValue }},
		{"bad width", func(c *config.Config) { c.Geometry.Width = -1 }},
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// ─── Template / WriteFile ─────────────────────────────────────────────────────

func TestTemplateRoundTrip(t *testing.T) {
	clearEnv(t)
	for _, name := range []string{config.DefaultTOMLFile, config.DefaultConfigFile} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			chdir(t, dir)
			if err := config.WriteFile(filepath.Join(dir, name), config.Template()); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			cfg, err := config.Load("")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if diff := cmp.Diff(model.DefaultGeometry(), cfg.Geometry); diff != "" {
				t.Errorf("geometry (-want +got):\n%s", diff)
			}
			if cfg.Theme != model.DefaultTheme() {
				t.Errorf("theme: %+v", cfg.Theme)
			}
		})
	}
}

func TestWriteFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := config.WriteFile(path, config.Template()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Mode().Perm() != 0600 {
		t.Errorf("expected 0600, got %v", fi.Mode().Perm())
	}
}

func TestReadFile(t *testing.T) {
	path := writeIn(t, t.TempDir(), "spread.toml", "default_format = \"csv\"\n[geometry]\nwidth = 640.0\n")
	f, err := config.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if f.DefaultFormat != "csv" || f.Geometry == nil || f.Geometry.Width == nil || *f.Geometry.Width != 640 {
		t.Errorf("unexpected file: %+v", f)
	}
	if _, err := config.ReadFile(filepath.Join(t.TempDir(), "nope.json")); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
