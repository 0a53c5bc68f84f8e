// Package config loads and saves the dicomview YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mrsinham/dicomview/internal/imaging"
	"github.com/mrsinham/dicomview/internal/report"
	"github.com/mrsinham/dicomview/internal/synthetic"
	"github.com/mrsinham/dicomview/internal/viewer"
)

// Config is the complete dicomview configuration.
type Config struct {
	Assets    AssetsConfig    `yaml:"assets"`
	Viewer    ViewerConfig    `yaml:"viewer"`
	Export    ExportConfig    `yaml:"export"`
	Synthetic SyntheticConfig `yaml:"synthetic"`
	Server    ServerConfig    `yaml:"server"`
}

// AssetsConfig locates the report and imaging on disk or over HTTP.
type AssetsConfig struct {
	Root      string `yaml:"root"`
	Report    string `yaml:"report"`     // path or URL
	SeriesDir string `yaml:"series_dir"` // empty = the report's series path
	StackDir  string `yaml:"stack_dir"`
	StackURL  string `yaml:"stack_url,omitempty"`
}

// ViewerConfig holds display defaults.
type ViewerConfig struct {
	Window  imaging.WindowLevel            `yaml:"window"`
	Presets map[string]imaging.WindowLevel `yaml:"presets,omitempty"`
	Mode    string                         `yaml:"mode,omitempty"` // empty = auto
}

// ExportConfig holds raster export defaults.
type ExportConfig struct {
	Format string `yaml:"format"`
	Scale  int    `yaml:"scale"`
}

// SyntheticConfig sizes generated series.
type SyntheticConfig struct {
	Slices  int    `yaml:"slices"`
	Size    int    `yaml:"size"`
	Workers int    `yaml:"workers"`
	Patient string `yaml:"patient_id"`
}

// ServerConfig configures the HTTP viewer.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Assets: AssetsConfig{
			Root:      "assets",
			Report:    "patient_report_sample.json",
			SeriesDir: "",
			StackDir:  "Imaging/P-1024_SlicesPNG",
		},
		Viewer: ViewerConfig{
			Window: imaging.DefaultWindow,
		},
		Export: ExportConfig{
			Format: string(imaging.PNG),
			Scale:  1,
		},
		Synthetic: SyntheticConfig{
			Slices:  synthetic.DefaultSliceCount,
			Size:    synthetic.DefaultSize,
			Patient: synthetic.DefaultPatientID,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// Load reads a configuration file over the defaults. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks values that would otherwise fail later.
func (c *Config) Validate() error {
	if _, err := imaging.ParseFormat(c.Export.Format); err != nil {
		return err
	}
	if c.Export.Scale < 0 {
		return fmt.Errorf("export scale must be >= 0, got %d", c.Export.Scale)
	}
	if c.Synthetic.Slices < 0 || c.Synthetic.Size < 0 {
		return fmt.Errorf("synthetic slices and size must be >= 0")
	}
	switch c.Viewer.Mode {
	case "", "auto", "dicom", "png", "synthetic":
	default:
		return fmt.Errorf("invalid viewer mode %q, valid options: auto, dicom, png, synthetic", c.Viewer.Mode)
	}
	return nil
}

// RegisterPresets adds the configured presets to the imaging preset table.
func (c *Config) RegisterPresets() {
	for name, wl := range c.Viewer.Presets {
		imaging.RegisterPreset(name, wl)
	}
}

// ReportLocation resolves the report path against the asset root. URLs are
// returned unchanged.
func (c *Config) ReportLocation() string {
	r := c.Assets.Report
	if r == "" || filepath.IsAbs(r) || isURL(r) || c.Assets.Root == "" {
		return r
	}
	return filepath.Join(c.Assets.Root, r)
}

// DefaultSeriesDir is where generate writes when no output is given.
func (c *Config) DefaultSeriesDir() string {
	dir := c.Assets.SeriesDir
	if dir == "" {
		dir = report.DefaultSeriesPath
	}
	if c.Assets.Root == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.Assets.Root, dir)
}

// StackLocation is the PNG stack directory resolved against the asset root.
func (c *Config) StackLocation() string {
	dir := c.Assets.StackDir
	if dir == "" || c.Assets.Root == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.Assets.Root, dir)
}

// ForcedMode maps viewer.mode to a session mode. Empty and "auto" give ModeNone.
func (c *Config) ForcedMode() viewer.Mode {
	switch c.Viewer.Mode {
	case "dicom":
		return viewer.ModeDICOM
	case "png":
		return viewer.ModePNG
	case "synthetic":
		return viewer.ModeSynthetic
	}
	return viewer.ModeNone
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
