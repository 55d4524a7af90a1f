// Package config layers the server configuration from defaults, an optional
// YAML file, DECKSCHED_* environment variables and command-line flags, in
// that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "DECKSCHED_"

// Config is the full runtime configuration.
type Config struct {
	DBPath   string `koanf:"db_path" validate:"required"`
	ReposDir string `koanf:"repos_dir" validate:"required"`
	Listen   string `koanf:"listen" validate:"required,hostname_port"`
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	Scheduler SchedulerConfig `koanf:"scheduler"`
}

// SchedulerConfig tunes scheduling behaviour that sits outside per-deck
// option groups.
type SchedulerConfig struct {
	RolloverHour   int    `koanf:"rollover_hour" validate:"min=0,max=23"`
	LearnAheadSecs int    `koanf:"learn_ahead_secs" validate:"min=0"`
	NewSpread      string `koanf:"new_spread" validate:"oneof=distribute last first"`
	DayLearnFirst  bool   `koanf:"day_learn_first"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		DBPath:   "decksched.db",
		ReposDir: "repos",
		Listen:   "127.0.0.1:8477",
		LogLevel: "info",
		Scheduler: SchedulerConfig{
			RolloverHour:   4,
			LearnAheadSecs: 1200,
			NewSpread:      "distribute",
		},
	}
}

// Load resolves the configuration. path may be empty; a missing file falls
// back to the remaining layers. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	// Double underscore nests: DECKSCHED_SCHEDULER__ROLLOVER_HOUR maps to
	// scheduler.rollover_hour, single underscores stay in the key.
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load environment config: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flag config: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
