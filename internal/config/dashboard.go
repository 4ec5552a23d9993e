// Package config loads the dashboard configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/eeg.report/internal/bands"
)

// Panel names a rendering consumer that can be switched on or off.
type Panel string

const (
	PanelRadar    Panel = "radar"
	PanelGauges   Panel = "gauges"
	PanelTrend    Panel = "trend"
	PanelSymmetry Panel = "symmetry"
)

// AllPanels is the default panel set, in display order.
var AllPanels = []Panel{PanelRadar, PanelGauges, PanelTrend, PanelSymmetry}

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Defaults.
const (
	DefaultFrameInterval = 50 * time.Millisecond
	DefaultListen        = ":8080"
	DefaultGRPCListen    = "localhost:50061"
	DefaultDatabase      = "eeg_report.db"
)

// GaugeConfig is the optional per-metric gauge policy.
type GaugeConfig struct {
	Invert  *bool `json:"invert,omitempty" yaml:"invert,omitempty"`
	Buckets *int  `json:"buckets,omitempty" yaml:"buckets,omitempty"`
}

// GaugesConfig holds the gauge policies of both ratio metrics.
type GaugesConfig struct {
	ADR *GaugeConfig `json:"adr,omitempty" yaml:"adr,omitempty"`
	TAR *GaugeConfig `json:"tar,omitempty" yaml:"tar,omitempty"`
}

// DashboardConfig is the root configuration. Every field is optional; the
// Get* methods fall back to defaults for anything not set, so partial files
// are safe.
type DashboardConfig struct {
	FrameInterval *string  `json:"frame_interval,omitempty" yaml:"frame_interval,omitempty"` // duration string like "50ms"
	TrendWindow   *int     `json:"trend_window,omitempty" yaml:"trend_window,omitempty"`
	Panels        []string `json:"panels,omitempty" yaml:"panels,omitempty"`

	Gauges *GaugesConfig `json:"gauges,omitempty" yaml:"gauges,omitempty"`

	Listen     *string `json:"listen,omitempty" yaml:"listen,omitempty"`
	GRPCListen *string `json:"grpc_listen,omitempty" yaml:"grpc_listen,omitempty"`
	Database   *string `json:"database,omitempty" yaml:"database,omitempty"`
}

func ptrInt(v int) *int          { return &v }
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }

// EmptyDashboardConfig returns a config with every field unset.
func EmptyDashboardConfig() *DashboardConfig {
	return &DashboardConfig{}
}

// DefaultDashboardConfig returns a config with every field set to its
// default value.
func DefaultDashboardConfig() *DashboardConfig {
	panels := make([]string, len(AllPanels))
	for i, p := range AllPanels {
		panels[i] = string(p)
	}
	return &DashboardConfig{
		FrameInterval: ptrString(DefaultFrameInterval.String()),
		TrendWindow:   ptrInt(bands.DefaultTrendWindow),
		Panels:        panels,
		Gauges: &GaugesConfig{
			ADR: &GaugeConfig{Invert: ptrBool(bands.DefaultADRGauge.Invert), Buckets: ptrInt(bands.DefaultADRGauge.Buckets)},
			TAR: &GaugeConfig{Invert: ptrBool(bands.DefaultTARGauge.Invert), Buckets: ptrInt(bands.DefaultTARGauge.Buckets)},
		},
		Listen:     ptrString(DefaultListen),
		GRPCListen: ptrString(DefaultGRPCListen),
		Database:   ptrString(DefaultDatabase),
	}
}

// LoadDashboardConfig reads a .json, .yaml or .yml file of at most 1MB and
// validates it.
func LoadDashboardConfig(path string) (*DashboardConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyDashboardConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *DashboardConfig) Validate() error {
	if c.FrameInterval != nil && *c.FrameInterval != "" {
		d, err := time.ParseDuration(*c.FrameInterval)
		if err != nil {
			return fmt.Errorf("invalid frame_interval '%s': %w", *c.FrameInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("frame_interval must be positive, got %s", d)
		}
	}

	if c.TrendWindow != nil && *c.TrendWindow < 1 {
		return fmt.Errorf("trend_window must be at least 1, got %d", *c.TrendWindow)
	}

	for _, p := range c.Panels {
		if !slices.Contains(AllPanels, Panel(strings.ToLower(p))) {
			return fmt.Errorf("unknown panel %q", p)
		}
	}

	if c.Gauges != nil {
		if err := validateGauge("adr", c.Gauges.ADR); err != nil {
			return err
		}
		if err := validateGauge("tar", c.Gauges.TAR); err != nil {
			return err
		}
	}
	return nil
}

func validateGauge(name string, g *GaugeConfig) error {
	if g == nil || g.Buckets == nil {
		return nil
	}
	if *g.Buckets != 2 && *g.Buckets != 3 {
		return fmt.Errorf("gauges.%s.buckets must be 2 or 3, got %d", name, *g.Buckets)
	}
	return nil
}

// GetFrameInterval returns the scheduler cadence.
func (c *DashboardConfig) GetFrameInterval() time.Duration {
	if c.FrameInterval == nil || *c.FrameInterval == "" {
		return DefaultFrameInterval
	}
	d, err := time.ParseDuration(*c.FrameInterval)
	if err != nil || d <= 0 {
		return DefaultFrameInterval
	}
	return d
}

// GetTrendWindow returns the trend alert window.
func (c *DashboardConfig) GetTrendWindow() int {
	if c.TrendWindow == nil || *c.TrendWindow < 1 {
		return bands.DefaultTrendWindow
	}
	return *c.TrendWindow
}

// GetPanels returns the enabled panels, deduplicated, in the configured order.
func (c *DashboardConfig) GetPanels() []Panel {
	if len(c.Panels) == 0 {
		return slices.Clone(AllPanels)
	}
	var out []Panel
	for _, name := range c.Panels {
		p := Panel(strings.ToLower(name))
		if slices.Contains(AllPanels, p) && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// PanelEnabled reports whether p is among GetPanels.
func (c *DashboardConfig) PanelEnabled(p Panel) bool {
	return slices.Contains(c.GetPanels(), p)
}

// GetADRGauge returns the Alpha/Delta gauge policy.
func (c *DashboardConfig) GetADRGauge() bands.GaugeSpec {
	var g *GaugeConfig
	if c.Gauges != nil {
		g = c.Gauges.ADR
	}
	return gaugeSpec(g, bands.DefaultADRGauge)
}

// GetTARGauge returns the Theta/Alpha gauge policy.
func (c *DashboardConfig) GetTARGauge() bands.GaugeSpec {
	var g *GaugeConfig
	if c.Gauges != nil {
		g = c.Gauges.TAR
	}
	return gaugeSpec(g, bands.DefaultTARGauge)
}

func gaugeSpec(g *GaugeConfig, def bands.GaugeSpec) bands.GaugeSpec {
	if g == nil {
		return def
	}
	spec := def
	if g.Invert != nil {
		spec.Invert = *g.Invert
	}
	if g.Buckets != nil && (*g.Buckets == 2 || *g.Buckets == 3) {
		spec.Buckets = *g.Buckets
	}
	return spec
}

// GetListen returns the HTTP listen address.
func (c *DashboardConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return DefaultListen
	}
	return *c.Listen
}

// GetGRPCListen returns the gRPC listen address.
func (c *DashboardConfig) GetGRPCListen() string {
	if c.GRPCListen == nil || *c.GRPCListen == "" {
		return DefaultGRPCListen
	}
	return *c.GRPCListen
}

// GetDatabase returns the SQLite database path.
func (c *DashboardConfig) GetDatabase() string {
	if c.Database == nil || *c.Database == "" {
		return DefaultDatabase
	}
	return *c.Database
}
