// Package config provides configuration loading and validation.
package config

// Config holds the client configuration.
type Config struct {
	// ServerURL is the base URL of the pantry share service.
	// Example: "http://localhost:8000"
	ServerURL string `toml:"server_url" env:"PANTRYLINK_SERVER_URL"`

	// DataDir is the directory for client-local durable state.
	DataDir string `toml:"data_dir" env:"PANTRYLINK_DATA_DIR"`

	Store        StoreConfig        `toml:"store"`
	Inbox        InboxConfig        `toml:"inbox"`
	OutboundHTTP OutboundHTTPConfig `toml:"outbound_http"`
	Logging      LoggingConfig      `toml:"logging"`
}

// StoreConfig selects the persistence driver for the current-user slot.
type StoreConfig struct {
	// Driver is one of: json, sqlite
	Driver string `toml:"driver" env:"PANTRYLINK_STORE_DRIVER"`

	// Options holds driver-specific settings.
	Options map[string]any `toml:"options"`
}

// InboxConfig holds notification polling settings.
type InboxConfig struct {
	// PollIntervalSeconds is the refresh interval while the inbox is open.
	PollIntervalSeconds int `toml:"poll_interval_seconds" env:"PANTRYLINK_POLL_INTERVAL_SECONDS"`
}

// OutboundHTTPConfig holds settings for outbound HTTP requests.
type OutboundHTTPConfig struct {
	// TimeoutMS is the overall request timeout in milliseconds
	TimeoutMS int `toml:"timeout_ms" env:"PANTRYLINK_HTTP_TIMEOUT_MS"`

	// ConnectTimeoutMS is the connection timeout in milliseconds
	ConnectTimeoutMS int `toml:"connect_timeout_ms" env:"PANTRYLINK_HTTP_CONNECT_TIMEOUT_MS"`

	// MaxResponseBytes is the maximum response body size
	MaxResponseBytes int64 `toml:"max_response_bytes" env:"PANTRYLINK_HTTP_MAX_RESPONSE_BYTES"`

	// EnableHTTP2 configures the transport for h2 upgrades
	EnableHTTP2 bool `toml:"enable_http2" env:"PANTRYLINK_HTTP_ENABLE_HTTP2"`

	// InsecureSkipVerify disables TLS verification (dev-only)
	InsecureSkipVerify bool `toml:"insecure_skip_verify" env:"PANTRYLINK_HTTP_INSECURE_SKIP_VERIFY"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error
	Level string `toml:"level" env:"PANTRYLINK_LOG_LEVEL"`
}

// DefaultConfig returns a Config with sensible defaults for local development.
func DefaultConfig() *Config {
	return &Config{
		ServerURL: "http://localhost:8000",
		DataDir:   ".pantrylink",
		Store: StoreConfig{
			Driver: "json",
		},
		Inbox: InboxConfig{
			PollIntervalSeconds: 30,
		},
		OutboundHTTP: OutboundHTTPConfig{
			TimeoutMS:        10000,
			ConnectTimeoutMS: 2000,
			MaxResponseBytes: 1048576,
			EnableHTTP2:      false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
