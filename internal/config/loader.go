package config

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/sethvargo/go-envconfig"
)

// LoaderOptions controls how configuration is loaded.
type LoaderOptions struct {
	// ConfigPath is the path to a TOML config file (optional).
	// If provided but the file is missing or invalid, loading fails.
	ConfigPath string

	// FlagOverrides are CLI flag values that override file and env values.
	FlagOverrides FlagOverrides

	// Logger is used for warning messages (e.g., undecoded keys).
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// FlagOverrides holds CLI flag values. A nil pointer or empty string means
// the flag was not set.
type FlagOverrides struct {
	ServerURL   *string
	DataDir     *string
	StoreDriver *string
	LogLevel    *string
}

// Load builds the effective configuration.
// Precedence, lowest to highest: defaults, TOML file, environment, CLI flags.
func Load(ctx context.Context, opts LoaderOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := DefaultConfig()

	if opts.ConfigPath != "" {
		meta, err := toml.DecodeFile(opts.ConfigPath, cfg)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %s", opts.ConfigPath)
			}
			return nil, fmt.Errorf("failed to parse config file %s: %w", opts.ConfigPath, err)
		}
		for _, key := range meta.Undecoded() {
			logger.Warn("unknown config key ignored", "key", key.String())
		}
	}

	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	applyFlagOverrides(cfg, opts.FlagOverrides)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyFlagOverrides(cfg *Config, f FlagOverrides) {
	if f.ServerURL != nil && *f.ServerURL != "" {
		cfg.ServerURL = *f.ServerURL
	}
	if f.DataDir != nil && *f.DataDir != "" {
		cfg.DataDir = *f.DataDir
	}
	if f.StoreDriver != nil && *f.StoreDriver != "" {
		cfg.Store.Driver = *f.StoreDriver
	}
	if f.LogLevel != nil && *f.LogLevel != "" {
		cfg.Logging.Level = *f.LogLevel
	}
}

// Validate checks the effective configuration for values that cannot work.
func Validate(cfg *Config) error {
	u, err := url.Parse(cfg.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server_url must be an absolute http(s) URL, got %q", cfg.ServerURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server_url scheme must be http or https, got %q", u.Scheme)
	}

	if cfg.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	switch cfg.Store.Driver {
	case "json", "sqlite":
	default:
		return fmt.Errorf("store driver must be json or sqlite, got %q", cfg.Store.Driver)
	}

	if cfg.Inbox.PollIntervalSeconds <= 0 {
		return fmt.Errorf("inbox poll_interval_seconds must be positive, got %d", cfg.Inbox.PollIntervalSeconds)
	}

	if cfg.OutboundHTTP.TimeoutMS <= 0 {
		return fmt.Errorf("outbound_http timeout_ms must be positive, got %d", cfg.OutboundHTTP.TimeoutMS)
	}
	if cfg.OutboundHTTP.MaxResponseBytes <= 0 {
		return fmt.Errorf("outbound_http max_response_bytes must be positive, got %d", cfg.OutboundHTTP.MaxResponseBytes)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging level must be one of debug, info, warn, error, got %q", cfg.Logging.Level)
	}

	return nil
}
