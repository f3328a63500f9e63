// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the complete daemon configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Clock   ClockConfig   `yaml:"clock"`
	Log     LogConfig     `yaml:"log"`
	Socket  SocketConfig  `yaml:"socket"`
	Journal JournalConfig `yaml:"journal"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides holds the per-environment overrides. Empty strings
// and zero rates leave the base value alone.
type ConfigOverrides struct {
	Clock   *ClockOverrides `yaml:"clock,omitempty"`
	Log     *LogConfig      `yaml:"log,omitempty"`
	Socket  *SocketConfig   `yaml:"socket,omitempty"`
	Journal *JournalConfig  `yaml:"journal,omitempty"`
}

// ClockOverrides is ClockConfig with AutoStart made optional so an
// override can leave it unset.
type ClockOverrides struct {
	RateHz            float64 `yaml:"rate_hz"`
	AutoStart         *bool   `yaml:"autostart"`
	OverloadThreshold int     `yaml:"overload_threshold"`
}

// ClockConfig configures the game clock.
type ClockConfig struct {
	// RateHz is the tick frequency. Default: 1.
	RateHz float64 `yaml:"rate_hz"`

	// AutoStart starts the clock as soon as the daemon is up. When
	// false the clock waits for a "start" request on the socket.
	// Default: true.
	AutoStart bool `yaml:"autostart"`

	// OverloadThreshold is the number of in-flight broadcasts above
	// which a warning is logged. Zero disables the warning.
	// Default: 64.
	OverloadThreshold int `yaml:"overload_threshold"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level"`

	// Format is text or json. Default: text.
	Format string `yaml:"format"`
}

// SocketConfig configures the control socket.
type SocketConfig struct {
	// Path is the Unix socket path.
	// Default: ${XDG_RUNTIME_DIR:-/tmp}/tickclock.sock
	Path string `yaml:"path"`
}

// JournalConfig configures the on-disk tick journal.
type JournalConfig struct {
	// Path is the journal file. Empty disables the journal.
	Path string `yaml:"path"`

	// Compression is none, zstd, or lz4. Default: zstd.
	Compression string `yaml:"compression"`
}

var (
	logLevels    = []string{"debug", "info", "warn", "error"}
	logFormats   = []string{"text", "json"}
	compressions = []string{"none", "zstd", "lz4"}
)

// Default returns the configuration every file is layered onto.
func Default() *Config {
	return &Config{
		Environment: Development,
		Clock: ClockConfig{
			RateHz:            1,
			AutoStart:         true,
			OverloadThreshold: 64,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Socket: SocketConfig{
			Path: "${XDG_RUNTIME_DIR:-/tmp}/tickclock.sock",
		},
		Journal: JournalConfig{
			Compression: "zstd",
		},
	}
}

// Load loads the file named by TICKCLOCK_CONFIG. It fails if the
// variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv("TICKCLOCK_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("TICKCLOCK_CONFIG environment variable not set; " +
			"set it to the path of your tickclock.yaml, or use --config")
	}
	return LoadFile(configPath)
}

// LoadFile loads path over the defaults, applies the environment
// section, and expands path variables. It does not validate; call
// Validate once command-line overrides are applied.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.ExpandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML once comments and trailing
		// commas are gone.
		data = jsonc.ToJSON(data)
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{
				Log: &LogConfig{Format: "json"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Clock != nil {
		if overrides.Clock.RateHz != 0 {
			c.Clock.RateHz = overrides.Clock.RateHz
		}
		if overrides.Clock.AutoStart != nil {
			c.Clock.AutoStart = *overrides.Clock.AutoStart
		}
		if overrides.Clock.OverloadThreshold != 0 {
			c.Clock.OverloadThreshold = overrides.Clock.OverloadThreshold
		}
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}

	if overrides.Socket != nil && overrides.Socket.Path != "" {
		c.Socket.Path = overrides.Socket.Path
	}

	if overrides.Journal != nil {
		if overrides.Journal.Path != "" {
			c.Journal.Path = overrides.Journal.Path
		}
		if overrides.Journal.Compression != "" {
			c.Journal.Compression = overrides.Journal.Compression
		}
	}
}

// ExpandVariables expands ${VAR} and ${VAR:-default} in path fields.
// LoadFile calls it; commands call it again after applying flags.
func (c *Config) ExpandVariables() {
	c.Socket.Path = expandVars(c.Socket.Path)
	c.Journal.Path = expandVars(c.Journal.Path)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if !(c.Clock.RateHz > 0) {
		errs = append(errs, fmt.Errorf("clock.rate_hz must be positive, got %v", c.Clock.RateHz))
	}
	if c.Clock.OverloadThreshold < 0 {
		errs = append(errs, fmt.Errorf("clock.overload_threshold must not be negative"))
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", logLevels))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", logFormats))
	}
	if c.Socket.Path == "" {
		errs = append(errs, fmt.Errorf("socket.path is required"))
	}
	if !slices.Contains(compressions, c.Journal.Compression) {
		errs = append(errs, fmt.Errorf("journal.compression must be one of: %v", compressions))
	}

	return errors.Join(errs...)
}

// SlogLevel converts Log.Level to a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
