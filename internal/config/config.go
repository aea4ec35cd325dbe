// Package config carries the harness configuration surface and its
// defaults. Invalid values never reach the core: they are recovered
// locally by falling back to the documented default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Defaults for the configuration surface.
const (
	DefaultCeiling         = 16384
	DefaultIntervalSeconds = 2
	DefaultMemoryMB        = 128
	DefaultFullBusy        = true
	DefaultLoadPercent     = 98
	DefaultLabel           = "GLOBAL"
	DefaultLogLevel        = "info"
)

// Config is the full configuration surface passed in by the CLI and menu.
type Config struct {
	// Ceiling is the maximum wave size; the ramp doubles 1,2,4,... up to it.
	Ceiling int `mapstructure:"ceiling" yaml:"ceiling"`
	// IntervalSeconds is the pause between wave doublings.
	IntervalSeconds int `mapstructure:"interval_seconds" yaml:"interval_seconds"`
	// MemoryMB is the allocation per memory worker.
	MemoryMB int `mapstructure:"memory_mb" yaml:"memory_mb"`
	// FullBusy selects the unthrottled CPU strategy.
	FullBusy bool `mapstructure:"full_busy" yaml:"full_busy"`
	// LoadPercent drives the duty cycle when FullBusy is off.
	LoadPercent int `mapstructure:"load_percent" yaml:"load_percent"`
	// DryRun rehearses the wave timing without spawning anything.
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`
	// Label is a free-form string used only by the decorative console.
	Label string `mapstructure:"label" yaml:"label"`
	// MetricsAddr enables the observational HTTP endpoint when non-empty.
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	LogJSON     bool   `mapstructure:"log_json" yaml:"log_json"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		Ceiling:         DefaultCeiling,
		IntervalSeconds: DefaultIntervalSeconds,
		MemoryMB:        DefaultMemoryMB,
		FullBusy:        DefaultFullBusy,
		LoadPercent:     DefaultLoadPercent,
		Label:           DefaultLabel,
		LogLevel:        DefaultLogLevel,
	}
}

// Interval returns the wave interval as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Sanitize replaces out-of-range values with defaults and returns a note
// per correction. It never fails.
func (c Config) Sanitize() (Config, []string) {
	var notes []string
	def := Default()

	if c.Ceiling < 1 {
		notes = append(notes, fmt.Sprintf("ceiling %d invalid, using %d", c.Ceiling, def.Ceiling))
		c.Ceiling = def.Ceiling
	}
	if c.IntervalSeconds < 0 {
		notes = append(notes, fmt.Sprintf("interval %ds invalid, using %ds", c.IntervalSeconds, def.IntervalSeconds))
		c.IntervalSeconds = def.IntervalSeconds
	}
	if c.MemoryMB < 1 {
		notes = append(notes, fmt.Sprintf("memory size %dMB invalid, using %dMB", c.MemoryMB, def.MemoryMB))
		c.MemoryMB = def.MemoryMB
	}
	if c.LoadPercent < 1 || c.LoadPercent > 100 {
		notes = append(notes, fmt.Sprintf("load percent %d invalid, using %d", c.LoadPercent, def.LoadPercent))
		c.LoadPercent = def.LoadPercent
	}
	if c.Label == "" {
		c.Label = def.Label
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	return c, notes
}

// Dir returns the procwave config directory, $HOME/.procwave.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".procwave"), nil
}

// BindDefaults seeds viper with the documented defaults so missing keys
// resolve instead of zeroing.
func BindDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("ceiling", def.Ceiling)
	v.SetDefault("interval_seconds", def.IntervalSeconds)
	v.SetDefault("memory_mb", def.MemoryMB)
	v.SetDefault("full_busy", def.FullBusy)
	v.SetDefault("load_percent", def.LoadPercent)
	v.SetDefault("dry_run", def.DryRun)
	v.SetDefault("label", def.Label)
	v.SetDefault("metrics_addr", def.MetricsAddr)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_json", def.LogJSON)
}

// FromViper materializes a sanitized Config from viper state.
func FromViper(v *viper.Viper) (Config, []string) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		def, _ := Default().Sanitize()
		return def, []string{fmt.Sprintf("config unreadable (%v), using defaults", err)}
	}
	return c.Sanitize()
}

// WriteDefaultFile renders the defaults as YAML at path, refusing to
// overwrite an existing file.
func WriteDefaultFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("rendering default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
