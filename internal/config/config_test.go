package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir(%q): %v", dir, err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func mustLoad(t *testing.T, path string) Config {
	t.Helper()
	v, err := New(path)
	if err != nil {
		t.Fatalf("New(%q) returned unexpected error: %v", path, err)
	}
	cfg, err := Load(v, testLogger())
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg := mustLoad(t, "")

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"HTTPAddr", cfg.HTTPAddr, ":8080"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"TrustProxy", cfg.TrustProxy, false},
		{"Auth.Enabled", cfg.Auth.Enabled, false},
		{"RateLimit.RPS", cfg.RateLimit.RPS, 20.0},
		{"RateLimit.Burst", cfg.RateLimit.Burst, 40},
		{"Stream.MaxConcurrent", cfg.Stream.MaxConcurrent, 10},
		{"Stream.DefaultInterval", cfg.Stream.DefaultInterval, time.Second},
		{"Stream.KeepaliveInterval", cfg.Stream.KeepaliveInterval, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())

	tests := []struct {
		name   string
		envKey string
		envVal string
		field  func(Config) any
		want   any
	}{
		{
			name:   "http_addr",
			envKey: "ASTROCOORDS_HTTP_ADDR",
			envVal: ":9090",
			field:  func(c Config) any { return c.HTTPAddr },
			want:   ":9090",
		},
		{
			name:   "log_level",
			envKey: "ASTROCOORDS_LOG_LEVEL",
			envVal: "debug",
			field:  func(c Config) any { return c.LogLevel },
			want:   "debug",
		},
		{
			name:   "trust_proxy",
			envKey: "ASTROCOORDS_TRUST_PROXY",
			envVal: "true",
			field:  func(c Config) any { return c.TrustProxy },
			want:   true,
		},
		{
			name:   "rate_limit.rps",
			envKey: "ASTROCOORDS_RATE_LIMIT_RPS",
			envVal: "2.5",
			field:  func(c Config) any { return c.RateLimit.RPS },
			want:   2.5,
		},
		{
			name:   "stream.max_concurrent",
			envKey: "ASTROCOORDS_STREAM_MAX_CONCURRENT",
			envVal: "3",
			field:  func(c Config) any { return c.Stream.MaxConcurrent },
			want:   3,
		},
		{
			name:   "stream.default_interval",
			envKey: "ASTROCOORDS_STREAM_DEFAULT_INTERVAL",
			envVal: "5s",
			field:  func(c Config) any { return c.Stream.DefaultInterval },
			want:   5 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.envKey, tt.envVal)
			cfg := mustLoad(t, "")
			if got := tt.field(cfg); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ASTROCOORDS_LOG_LEVEL", "chatty")
	t.Setenv("ASTROCOORDS_RATE_LIMIT_RPS", "-1")
	t.Setenv("ASTROCOORDS_RATE_LIMIT_BURST", "0")
	t.Setenv("ASTROCOORDS_STREAM_MAX_CONCURRENT", "0")
	t.Setenv("ASTROCOORDS_STREAM_DEFAULT_INTERVAL", "5m")
	t.Setenv("ASTROCOORDS_STREAM_KEEPALIVE_INTERVAL", "10ms")

	cfg := mustLoad(t, "")

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.RateLimit.RPS != 20 {
		t.Errorf("RateLimit.RPS = %v, want 20", cfg.RateLimit.RPS)
	}
	if cfg.RateLimit.Burst != 40 {
		t.Errorf("RateLimit.Burst = %v, want 40", cfg.RateLimit.Burst)
	}
	if cfg.Stream.MaxConcurrent != 10 {
		t.Errorf("Stream.MaxConcurrent = %v, want 10", cfg.Stream.MaxConcurrent)
	}
	if cfg.Stream.DefaultInterval != time.Second {
		t.Errorf("Stream.DefaultInterval = %v, want 1s", cfg.Stream.DefaultInterval)
	}
	if cfg.Stream.KeepaliveInterval != 30*time.Second {
		t.Errorf("Stream.KeepaliveInterval = %v, want 30s", cfg.Stream.KeepaliveInterval)
	}
}

func TestLoad_UndecodableValue(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ASTROCOORDS_RATE_LIMIT_BURST", "lots")

	v, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Load(v, testLogger()); err == nil {
		t.Error("expected decode error for non-numeric burst")
	}
}

func TestLoad_AuthRequiresToken(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ASTROCOORDS_AUTH_ENABLED", "true")

	v, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Load(v, testLogger()); !errors.Is(err, ErrMissingToken) {
		t.Errorf("Load() error = %v, want ErrMissingToken", err)
	}

	t.Setenv("ASTROCOORDS_AUTH_TOKEN", "secret")
	cfg := mustLoad(t, "")
	if !cfg.Auth.Enabled || cfg.Auth.Token != "secret" {
		t.Errorf("Auth = %+v, want enabled with token", cfg.Auth)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := "http_addr: \":7000\"\nstream:\n  max_concurrent: 2\n  keepalive_interval: 15s\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := mustLoad(t, path)
	if cfg.HTTPAddr != ":7000" {
		t.Errorf("HTTPAddr = %q, want :7000", cfg.HTTPAddr)
	}
	if cfg.Stream.MaxConcurrent != 2 {
		t.Errorf("Stream.MaxConcurrent = %d, want 2", cfg.Stream.MaxConcurrent)
	}
	if cfg.Stream.KeepaliveInterval != 15*time.Second {
		t.Errorf("Stream.KeepaliveInterval = %v, want 15s", cfg.Stream.KeepaliveInterval)
	}

	// Env still wins over the file.
	t.Setenv("ASTROCOORDS_HTTP_ADDR", ":7001")
	if cfg := mustLoad(t, path); cfg.HTTPAddr != ":7001" {
		t.Errorf("HTTPAddr = %q, want env override :7001", cfg.HTTPAddr)
	}
}

func TestNew_MissingExplicitFile(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestApplyChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "astrocoords.yaml")
	if err := os.WriteFile(path, []byte("log_level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := New(path)
	if err != nil {
		t.Fatal(err)
	}

	var level slog.LevelVar
	level.Set(slog.LevelInfo)

	// Chmod-only events are ignored.
	applyChange(v, fsnotify.Event{Name: path, Op: fsnotify.Chmod}, &level, testLogger())
	if level.Level() != slog.LevelInfo {
		t.Errorf("level = %v after chmod event, want INFO", level.Level())
	}

	applyChange(v, fsnotify.Event{Name: path, Op: fsnotify.Write}, &level, testLogger())
	if level.Level() != slog.LevelWarn {
		t.Errorf("level = %v after write event, want WARN", level.Level())
	}

	v.Set("log_level", "nonsense")
	applyChange(v, fsnotify.Event{Name: path, Op: fsnotify.Write}, &level, testLogger())
	if level.Level() != slog.LevelWarn {
		t.Errorf("level = %v after invalid reload, want WARN kept", level.Level())
	}
}
