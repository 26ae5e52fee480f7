package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultServerURL      = "http://localhost:8000"
	DefaultReconnectDelay = 2 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultHistoryLimit   = 50
	DefaultLogLevel       = "info"
)

// Config is the top-level configuration file.
type Config struct {
	Client ClientConfig `yaml:"client"`
}

// ClientConfig holds all client-side settings.
type ClientConfig struct {
	// ServerURL is the base URL of the backend. The stream URL is derived
	// from it: https becomes wss, http becomes ws.
	ServerURL string `yaml:"server_url" env:"GROCERYCHAT_SERVER_URL"`

	// RoomID scopes history, sends and the stream to one room.
	// Zero selects the global feed.
	RoomID int64 `yaml:"room_id" env:"GROCERYCHAT_ROOM_ID"`

	// SessionPath is the SQLite file that holds the credential between runs.
	SessionPath string `yaml:"session_path" env:"GROCERYCHAT_SESSION_PATH"`

	// ReconnectDelay is the flat wait between stream reconnect attempts.
	ReconnectDelay time.Duration `yaml:"reconnect_delay" env:"GROCERYCHAT_RECONNECT_DELAY"`

	// RequestTimeout bounds each API request.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"GROCERYCHAT_REQUEST_TIMEOUT"`

	// HistoryLimit is the number of past messages requested for a room.
	HistoryLimit int `yaml:"history_limit" env:"GROCERYCHAT_HISTORY_LIMIT"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level" env:"GROCERYCHAT_LOG_LEVEL"`

	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS dial options shared by the API client and the stream.
type TLSConfig struct {
	// InsecureSkipVerify disables certificate verification.
	// Only use this against development backends.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" env:"GROCERYCHAT_TLS_INSECURE"`
}

// Build returns the *tls.Config shared by the API client and the stream.
func (t TLSConfig) Build() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: t.InsecureSkipVerify, //nolint:gosec // user-configured
	}
}

// Level returns the parsed slog level. Validation guarantees it parses.
func (c ClientConfig) Level() slog.Level {
	lvl, _ := ParseLevel(c.LogLevel)
	return lvl
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// DefaultPath returns $HOME/.grocerychat/config.yaml, or a relative
// config.yaml when the home directory cannot be determined.
func DefaultPath() string {
	return inHome("config.yaml")
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults, then GROCERYCHAT_*
// environment variables override file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return parse(data)
}

// LoadOrDefault is Load, except that a missing file yields the defaults
// (still overlaid with the environment).
func LoadOrDefault(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return parse(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return parse(data)
}

// Validate re-checks cfg after callers apply overrides such as CLI flags.
func Validate(cfg *Config) error {
	if err := validate(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := env.Parse(&cfg.Client); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Client: ClientConfig{
			ServerURL:      DefaultServerURL,
			SessionPath:    inHome("session.db"),
			ReconnectDelay: DefaultReconnectDelay,
			RequestTimeout: DefaultRequestTimeout,
			HistoryLimit:   DefaultHistoryLimit,
			LogLevel:       DefaultLogLevel,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	c := cfg.Client
	if c.ServerURL == "" {
		return fmt.Errorf("client.server_url is required")
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("client.server_url: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("client.server_url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("client.server_url: host is required")
	}
	if c.RoomID < 0 {
		return fmt.Errorf("client.room_id must not be negative")
	}
	if c.SessionPath == "" {
		return fmt.Errorf("client.session_path is required")
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("client.reconnect_delay must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("client.request_timeout must be positive")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("client.history_limit must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("client.log_level: %w", err)
	}
	return nil
}

func inHome(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".grocerychat", name)
}
