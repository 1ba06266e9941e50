// Package config loads the daemon configuration from an optional YAML
// file and PINGWATCH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes all environment variables, e.g. PINGWATCH_LISTEN
// or PINGWATCH_SETTINGS_BACKEND.
const EnvPrefix = "PINGWATCH"

// Settings backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config is the daemon configuration.
type Config struct {
	Listen      string        `mapstructure:"listen"`
	Bind4       string        `mapstructure:"bind4"`
	Bind6       string        `mapstructure:"bind6"`
	Privileged  bool          `mapstructure:"privileged"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
	StopTimeout time.Duration `mapstructure:"stop_timeout"`
	PayloadSize uint16        `mapstructure:"payload_size"`
	HistorySize int           `mapstructure:"history_size"`
	Verbose     bool          `mapstructure:"verbose"`

	Settings struct {
		Backend   string `mapstructure:"backend"`
		Path      string `mapstructure:"path"`
		RedisAddr string `mapstructure:"redis_addr"`
		RedisKey  string `mapstructure:"redis_key"`
	} `mapstructure:"settings"`

	Events struct {
		RedisAddr    string `mapstructure:"redis_addr"` // publishing is disabled if empty
		RedisChannel string `mapstructure:"redis_channel"`
		Buffer       int    `mapstructure:"buffer"`
	} `mapstructure:"events"`
}

var defaults = map[string]any{
	"listen":               ":8080",
	"bind4":                "0.0.0.0",
	"bind6":                "::",
	"privileged":           false,
	"interval":             "2s",
	"timeout":              "2s",
	"stop_timeout":         "5s",
	"payload_size":         8,
	"history_size":         50,
	"verbose":              false,
	"settings.backend":     BackendFile,
	"settings.path":        "pingwatch.yaml",
	"settings.redis_addr":  "",
	"settings.redis_key":   "pingwatch:hosts",
	"events.redis_addr":    "",
	"events.redis_channel": "ping-result",
	"events.buffer":        64,
}

// Load reads the configuration. An empty path skips the file.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.Interval <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, errors.New("stop_timeout must be positive"))
	}
	if c.Bind4 == "" && c.Bind6 == "" {
		errs = append(errs, errors.New("need at least one of bind4 and bind6"))
	}

	switch c.Settings.Backend {
	case BackendFile:
		if c.Settings.Path == "" {
			errs = append(errs, errors.New("settings.path is required for the file backend"))
		}
	case BackendRedis:
		if c.Settings.RedisAddr == "" {
			errs = append(errs, errors.New("settings.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown settings.backend %q", c.Settings.Backend))
	}

	return errors.Join(errs...)
}
