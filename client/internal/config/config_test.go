package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Valid(t *testing.T) {
	yaml := `
client:
  server_url: "https://chat.example.com"
  room_id: 7
  session_path: "/tmp/gc/session.db"
  reconnect_delay: 5s
  request_timeout: 3s
  history_limit: 20
  log_level: debug
  tls:
    insecure_skip_verify: true
`
	cfg := loadFromString(t, yaml)

	c := cfg.Client
	if c.ServerURL != "https://chat.example.com" {
		t.Errorf("server_url: got %q", c.ServerURL)
	}
	if c.RoomID != 7 {
		t.Errorf("room_id: got %d", c.RoomID)
	}
	if c.SessionPath != "/tmp/gc/session.db" {
		t.Errorf("session_path: got %q", c.SessionPath)
	}
	if c.ReconnectDelay != 5*time.Second {
		t.Errorf("reconnect_delay: got %v", c.ReconnectDelay)
	}
	if c.RequestTimeout != 3*time.Second {
		t.Errorf("request_timeout: got %v", c.RequestTimeout)
	}
	if c.HistoryLimit != 20 {
		t.Errorf("history_limit: got %d", c.HistoryLimit)
	}
	if c.Level() != slog.LevelDebug {
		t.Errorf("Level(): got %v, want debug", c.Level())
	}
	if !c.TLS.InsecureSkipVerify {
		t.Error("tls.insecure_skip_verify: got false")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFromString(t, "client: {}\n")

	c := cfg.Client
	if c.ServerURL != DefaultServerURL {
		t.Errorf("default server_url: got %q, want %q", c.ServerURL, DefaultServerURL)
	}
	if c.ReconnectDelay != DefaultReconnectDelay {
		t.Errorf("default reconnect_delay: got %v, want %v", c.ReconnectDelay, DefaultReconnectDelay)
	}
	if c.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("default request_timeout: got %v, want %v", c.RequestTimeout, DefaultRequestTimeout)
	}
	if c.HistoryLimit != DefaultHistoryLimit {
		t.Errorf("default history_limit: got %d, want %d", c.HistoryLimit, DefaultHistoryLimit)
	}
	if c.LogLevel != DefaultLogLevel {
		t.Errorf("default log_level: got %q, want %q", c.LogLevel, DefaultLogLevel)
	}
	if !strings.HasSuffix(c.SessionPath, "session.db") {
		t.Errorf("default session_path: got %q", c.SessionPath)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("GROCERYCHAT_SERVER_URL", "http://env.example.com:9000")
	t.Setenv("GROCERYCHAT_ROOM_ID", "3")
	t.Setenv("GROCERYCHAT_RECONNECT_DELAY", "750ms")

	cfg := loadFromString(t, `
client:
  server_url: "http://file.example.com"
  room_id: 1
`)
	if cfg.Client.ServerURL != "http://env.example.com:9000" {
		t.Errorf("server_url: got %q, want env value", cfg.Client.ServerURL)
	}
	if cfg.Client.RoomID != 3 {
		t.Errorf("room_id: got %d, want 3", cfg.Client.RoomID)
	}
	if cfg.Client.ReconnectDelay != 750*time.Millisecond {
		t.Errorf("reconnect_delay: got %v, want 750ms", cfg.Client.ReconnectDelay)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Client.ServerURL != DefaultServerURL {
		t.Errorf("server_url: got %q, want default", cfg.Client.ServerURL)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad scheme", "client:\n  server_url: \"ftp://example.com\"\n"},
		{"no host", "client:\n  server_url: \"http://\"\n"},
		{"negative room", "client:\n  room_id: -1\n"},
		{"zero delay", "client:\n  reconnect_delay: 0s\n"},
		{"zero timeout", "client:\n  request_timeout: 0s\n"},
		{"zero history", "client:\n  history_limit: 0\n"},
		{"unknown level", "client:\n  log_level: chatty\n"},
		{"bad yaml", "client: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := loadStringErr(t, tc.yaml); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("ParseLevel(%q): got %v, want %v", name, got, want)
		}
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "client:\n  log_level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { got <- c })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "client:\n  log_level: debug\n")

	// A write may surface as truncate+write; wait for the final content.
	deadline := time.After(3 * time.Second)
wait:
	for {
		select {
		case cfg := <-got:
			if cfg.Client.LogLevel == "debug" {
				break wait
			}
		case <-deadline:
			t.Fatal("Watch did not report log_level debug after write")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

// loadFromString writes yaml to a temp file and calls Load, failing on error.
func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, content)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return cfg
}

// loadStringErr writes yaml to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, content)
	return Load(path)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
}
