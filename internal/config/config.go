// Package config loads store settings from a YAML or CUE file and the
// environment.
//
// Precedence is defaults, then the file, then MEMENTOFX_* variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/thunderluca/mementofx-sqlite/internal/store"
)

// Config is the resolved store configuration.
type Config struct {
	// DB is the SQLite database file path.
	DB              string `yaml:"db" json:"db" env:"MEMENTOFX_DB"`
	DateTimeAsTicks bool   `yaml:"datetime_as_ticks" json:"datetime_as_ticks" env:"MEMENTOFX_DATETIME_AS_TICKS"`
	AutoMigrations  bool   `yaml:"auto_migrations" json:"auto_migrations" env:"MEMENTOFX_AUTO_MIGRATIONS"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level" env:"MEMENTOFX_LOG_LEVEL"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DB:              "events.db",
		DateTimeAsTicks: true,
		AutoMigrations:  true,
		LogLevel:        "info",
	}
}

// Load resolves a Config. An empty path skips the file step.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeFile(path, data, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv applies MEMENTOFX_* overrides onto target. Unset variables leave
// fields untouched.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func decodeFile(path string, data []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml config: %w", err)
		}
	case ".cue":
		v := cuecontext.New().CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return fmt.Errorf("compile cue config: %w", err)
		}
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validate cue config: %w", err)
		}
		if err := v.Decode(cfg); err != nil {
			return fmt.Errorf("decode cue config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config extension %q", ext)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// StoreOptions translates the configuration into store options.
func (c Config) StoreOptions(logger *slog.Logger) []store.Option {
	opts := []store.Option{
		store.WithDateTimeAsTicks(c.DateTimeAsTicks),
		store.WithAutoMigrations(c.AutoMigrations),
	}
	if logger != nil {
		opts = append(opts, store.WithLogger(logger))
	}
	return opts
}
