// Package config loads service configuration from an optional YAML file and
// ASTROCOORDS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/star/astrocoords/internal/metrics"
)

// EnvPrefix is prepended to every environment variable key.
const EnvPrefix = "ASTROCOORDS"

// ErrMissingToken is returned when auth is enabled without a token.
var ErrMissingToken = errors.New("auth.token is required when auth is enabled")

// AuthConfig holds bearer token authentication settings.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
}

// RateLimitConfig holds the per-IP request rate limit.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// StreamConfig holds SSE sidereal clock settings.
type StreamConfig struct {
	MaxConcurrent     int           `mapstructure:"max_concurrent"`
	DefaultInterval   time.Duration `mapstructure:"default_interval"`
	KeepaliveInterval time.Duration `mapstructure:"keepalive_interval"`
}

// Config holds all runtime configuration.
type Config struct {
	HTTPAddr   string          `mapstructure:"http_addr"`
	LogLevel   string          `mapstructure:"log_level"`
	TrustProxy bool            `mapstructure:"trust_proxy"`
	Auth       AuthConfig      `mapstructure:"auth"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Stream     StreamConfig    `mapstructure:"stream"`
}

// Defaults.
const (
	defaultHTTPAddr          = ":8080"
	defaultLogLevel          = "info"
	defaultRPS               = 20.0
	defaultBurst             = 40
	defaultMaxConcurrent     = 10
	defaultStreamInterval    = time.Second
	defaultKeepaliveInterval = 30 * time.Second
	maxStreamInterval        = 60 * time.Second
)

// New returns a viper instance wired for env overrides and, when present,
// a config file. An empty path looks for astrocoords.yaml in the working
// directory; a missing default file is not an error.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("astrocoords")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", defaultHTTPAddr)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("trust_proxy", false)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.token", "")
	v.SetDefault("rate_limit.rps", defaultRPS)
	v.SetDefault("rate_limit.burst", defaultBurst)
	v.SetDefault("stream.max_concurrent", defaultMaxConcurrent)
	v.SetDefault("stream.default_interval", defaultStreamInterval)
	v.SetDefault("stream.keepalive_interval", defaultKeepaliveInterval)
}

// Load decodes v into a Config. Out-of-range values are logged and
// replaced by their defaults; auth without a token is an error.
func Load(v *viper.Viper, logger *slog.Logger) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.Auth.Enabled && cfg.Auth.Token == "" {
		return cfg, ErrMissingToken
	}

	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		logger.Warn("invalid log_level value, using default", "value", cfg.LogLevel, "default", defaultLogLevel)
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.RateLimit.RPS <= 0 {
		logger.Warn("invalid rate_limit.rps value, using default", "value", cfg.RateLimit.RPS, "default", defaultRPS)
		cfg.RateLimit.RPS = defaultRPS
	}
	if cfg.RateLimit.Burst < 1 {
		logger.Warn("invalid rate_limit.burst value, using default", "value", cfg.RateLimit.Burst, "default", defaultBurst)
		cfg.RateLimit.Burst = defaultBurst
	}
	if cfg.Stream.MaxConcurrent < 1 {
		logger.Warn("invalid stream.max_concurrent value, using default", "value", cfg.Stream.MaxConcurrent, "default", defaultMaxConcurrent)
		cfg.Stream.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.Stream.DefaultInterval < time.Second || cfg.Stream.DefaultInterval > maxStreamInterval {
		logger.Warn("invalid stream.default_interval value, using default", "value", cfg.Stream.DefaultInterval.String(), "default", defaultStreamInterval.String())
		cfg.Stream.DefaultInterval = defaultStreamInterval
	}
	if cfg.Stream.KeepaliveInterval < time.Second {
		logger.Warn("invalid stream.keepalive_interval value, using default", "value", cfg.Stream.KeepaliveInterval.String(), "default", defaultKeepaliveInterval.String())
		cfg.Stream.KeepaliveInterval = defaultKeepaliveInterval
	}

	logger.Info("config loaded",
		"http_addr", cfg.HTTPAddr,
		"log_level", cfg.LogLevel,
		"auth_enabled", cfg.Auth.Enabled,
		"rate_limit_rps", cfg.RateLimit.RPS,
		"rate_limit_burst", cfg.RateLimit.Burst,
		"stream_max_concurrent", cfg.Stream.MaxConcurrent,
		"config_file", v.ConfigFileUsed(),
	)

	return cfg, nil
}

// ParseLevel parses a slog level name such as "debug" or "WARN".
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("parsing log level %q: %w", s, err)
	}
	return level, nil
}

// Watch reloads the log level whenever the config file changes. It is a
// no-op when no config file is in use.
func Watch(v *viper.Viper, level *slog.LevelVar, logger *slog.Logger) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		applyChange(v, e, level, logger)
	})
	v.WatchConfig()
	logger.Info("watching config file", "path", v.ConfigFileUsed())
}

func applyChange(v *viper.Viper, e fsnotify.Event, level *slog.LevelVar, logger *slog.Logger) {
	if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	name := v.GetString("log_level")
	lvl, err := ParseLevel(name)
	if err != nil {
		logger.Warn("ignoring invalid log_level in reloaded config", "value", name, "path", e.Name)
		return
	}

	level.Set(lvl)
	metrics.IncConfigReload()
	logger.Info("config reloaded", "path", e.Name, "log_level", lvl.String())
}
