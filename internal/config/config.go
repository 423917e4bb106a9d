// Package config loads interpreter and REPL settings from a YAML or TOML
// file, with environment-variable overrides.
//
// Example ~/.loxrc.yaml:
//
//	max_call_depth: 4096
//	history_file: ~/.lox_history
//	prompt: "lox> "
//	color: auto
//	log_level: debug
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"treelox/internal/runtime"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvMaxCallDepth = "LOX_MAX_CALL_DEPTH"
	EnvLogLevel     = "LOX_LOG_LEVEL"
)

// Color modes for REPL output.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// ErrUnsupportedFormat is returned for config files that are neither YAML
// nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Config holds every tunable setting.
type Config struct {
	MaxCallDepth int    `yaml:"max_call_depth" toml:"max_call_depth"`
	HistoryFile  string `yaml:"history_file" toml:"history_file"`
	Prompt       string `yaml:"prompt" toml:"prompt"`
	Color        string `yaml:"color" toml:"color"`
	LogLevel     string `yaml:"log_level" toml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	history := ""
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".lox_history")
	}
	return Config{
		MaxCallDepth: runtime.DefaultMaxCallDepth,
		HistoryFile:  history,
		Prompt:       "lox> ",
		Color:        ColorAuto,
		LogLevel:     "warn",
	}
}

// Load reads path over the defaults, then applies environment overrides.
// The format is chosen by extension: .yaml/.yml or .toml.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}

	cfg.HistoryFile = expandHome(cfg.HistoryFile)
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Discover loads the first of ~/.loxrc.yaml, ~/.loxrc.yml and ~/.loxrc.toml
// that exists. With none present it returns the defaults plus environment
// overrides. The path that was loaded (or "") is returned alongside.
func Discover() (Config, string, error) {
	if home, err := os.UserHomeDir(); err == nil {
		for _, name := range []string{".loxrc.yaml", ".loxrc.yml", ".loxrc.toml"} {
			path := filepath.Join(home, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := Load(path)
				return cfg, path, err
			}
		}
	}

	cfg := Default()
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, "", err
	}
	return cfg, "", cfg.Validate()
}

// ApplyEnv overrides settings from environment variables read via getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvMaxCallDepth); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxCallDepth, err)
		}
		c.MaxCallDepth = n
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.MaxCallDepth <= 0 {
		return fmt.Errorf("max_call_depth must be positive, got %d", c.MaxCallDepth)
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("color must be %q, %q or %q, got %q", ColorAuto, ColorAlways, ColorNever, c.Color)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
