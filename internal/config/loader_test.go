package config_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pantrylink/pantrylink-go/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pantrylink.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(context.Background(), config.LoaderOptions{})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.ServerURL != "http://localhost:8000" {
		t.Errorf("unexpected default server_url: %q", cfg.ServerURL)
	}
	if cfg.Store.Driver != "json" {
		t.Errorf("unexpected default store driver: %q", cfg.Store.Driver)
	}
	if cfg.Inbox.PollIntervalSeconds != 30 {
		t.Errorf("unexpected default poll interval: %d", cfg.Inbox.PollIntervalSeconds)
	}
}

func TestLoadFromTOML(t *testing.T) {
	path := writeConfig(t, `
server_url = "https://pantry.example.com"
data_dir = "/var/lib/pantrylink"

[store]
driver = "sqlite"

[store.options]
filename = "state.db"

[inbox]
poll_interval_seconds = 10

[logging]
level = "debug"
`)

	cfg, err := config.Load(context.Background(), config.LoaderOptions{ConfigPath: path})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.ServerURL != "https://pantry.example.com" {
		t.Errorf("server_url not applied: %q", cfg.ServerURL)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("store driver not applied: %q", cfg.Store.Driver)
	}
	if cfg.Store.Options["filename"] != "state.db" {
		t.Errorf("store options not applied: %v", cfg.Store.Options)
	}
	if cfg.Inbox.PollIntervalSeconds != 10 {
		t.Errorf("poll interval not applied: %d", cfg.Inbox.PollIntervalSeconds)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level not applied: %q", cfg.Logging.Level)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := config.Load(context.Background(), config.LoaderOptions{
		ConfigPath: filepath.Join(t.TempDir(), "absent.toml"),
	})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestFlagOverridesBeatFile(t *testing.T) {
	path := writeConfig(t, `server_url = "http://from-file:8000"`)

	override := "http://from-flag:9000"
	cfg, err := config.Load(context.Background(), config.LoaderOptions{
		ConfigPath:    path,
		FlagOverrides: config.FlagOverrides{ServerURL: &override},
	})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServerURL != override {
		t.Errorf("flag override not applied: %q", cfg.ServerURL)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `server_url = "http://from-file:8000"`)
	t.Setenv("PANTRYLINK_SERVER_URL", "http://from-env:7000")

	cfg, err := config.Load(context.Background(), config.LoaderOptions{ConfigPath: path})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServerURL != "http://from-env:7000" {
		t.Errorf("env override not applied: %q", cfg.ServerURL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"relative url", func(c *config.Config) { c.ServerURL = "localhost:8000" }, "server_url"},
		{"bad scheme", func(c *config.Config) { c.ServerURL = "ftp://x" }, "scheme"},
		{"empty data dir", func(c *config.Config) { c.DataDir = "" }, "data_dir"},
		{"unknown driver", func(c *config.Config) { c.Store.Driver = "etcd" }, "driver"},
		{"zero interval", func(c *config.Config) { c.Inbox.PollIntervalSeconds = 0 }, "poll_interval_seconds"},
		{"zero timeout", func(c *config.Config) { c.OutboundHTTP.TimeoutMS = 0 }, "timeout_ms"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "verbose" }, "level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tc.mutate(cfg)
			err := config.Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}
