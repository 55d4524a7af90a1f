package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != "127.0.0.1:8477" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.Scheduler.RolloverHour != 4 || cfg.Scheduler.LearnAheadSecs != 1200 {
		t.Errorf("scheduler defaults = %+v", cfg.Scheduler)
	}
	if cfg.Scheduler.NewSpread != "distribute" {
		t.Errorf("new spread = %q", cfg.Scheduler.NewSpread)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "listen: \"0.0.0.0:9000\"\nscheduler:\n  rollover_hour: 2\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != "0.0.0.0:9000" {
		t.Errorf("listen = %q, want file value", cfg.Listen)
	}
	if cfg.Scheduler.RolloverHour != 2 {
		t.Errorf("rollover hour = %d, want 2", cfg.Scheduler.RolloverHour)
	}
	// Untouched keys keep their defaults.
	if cfg.DBPath != "decksched.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DECKSCHED_LOG_LEVEL", "debug")
	t.Setenv("DECKSCHED_SCHEDULER__ROLLOVER_HOUR", "6")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want env value", cfg.LogLevel)
	}
	if cfg.Scheduler.RolloverHour != 6 {
		t.Errorf("rollover hour = %d, want 6", cfg.Scheduler.RolloverHour)
	}
}

func TestLoadFlagsWinOverEnv(t *testing.T) {
	t.Setenv("DECKSCHED_LISTEN", "127.0.0.1:1111")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", "", "")
	if err := flags.Parse([]string{"--listen", "127.0.0.1:2222"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != "127.0.0.1:2222" {
		t.Errorf("listen = %q, want flag value", cfg.Listen)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("DECKSCHED_LOG_LEVEL", "loud")
	if _, err := Load("", nil); err == nil {
		t.Fatal("expected validation error for bad log level")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	// A missing default file is tolerated; Load only fails on parse errors.
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil); err != nil {
		t.Fatalf("missing file should fall back to defaults, got %v", err)
	}
}
