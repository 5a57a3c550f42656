// Package config loads the GoChat server configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (applied by the caller after Load)
//  2. Environment variables (GOCHAT_*)
//  3. Configuration file (YAML)
//  4. Default values
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Duplicate login policies.
const (
	DuplicateLoginReject    = "reject"
	DuplicateLoginOverwrite = "overwrite"
)

// Config is the complete server configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Chat configures the line-protocol listener and session behavior
	Chat ChatConfig `mapstructure:"chat" yaml:"chat"`

	// HTTP configures the health, WebSocket and metrics endpoints
	HTTP HTTPConfig `mapstructure:"http" yaml:"http"`

	// Metrics controls the Prometheus /metrics endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0" yaml:"shutdown_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=DEBUG INFO WARN ERROR" yaml:"level"`
	Format string `mapstructure:"format" validate:"oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// ChatConfig configures the TCP chat listener.
type ChatConfig struct {
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`
	Port        int    `mapstructure:"port" validate:"min=0,max=65535" yaml:"port"`

	// CredentialsFile holds one username:password pair per line
	CredentialsFile string `mapstructure:"credentials_file" validate:"required" yaml:"credentials_file"`

	// MaxLineSize is the longest accepted protocol line in bytes
	MaxLineSize int `mapstructure:"max_line_size" validate:"gt=0" yaml:"max_line_size"`

	// WriteTimeout is the deadline applied to every send
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0" yaml:"write_timeout"`

	// DuplicateLogin decides what happens when a logged-in username logs in again
	DuplicateLogin string `mapstructure:"duplicate_login" validate:"oneof=reject overwrite" yaml:"duplicate_login"`

	// KeepStaleGroupMembers leaves disconnected sessions in group member sets
	KeepStaleGroupMembers bool `mapstructure:"keep_stale_group_members" yaml:"keep_stale_group_members"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig defines the per-session command budget. A zero Burst disables limiting.
type RateLimitConfig struct {
	Burst          int           `mapstructure:"burst" validate:"min=0" yaml:"burst"`
	RefillInterval time.Duration `mapstructure:"refill_interval" validate:"gt=0" yaml:"refill_interval"`
}

// HTTPConfig configures the HTTP side of the server.
type HTTPConfig struct {
	Enabled        bool     `mapstructure:"enabled" yaml:"enabled"`
	Address        string   `mapstructure:"address" validate:"required_if=Enabled true" yaml:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// MetricsConfig controls Prometheus metrics exposure.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Load loads configuration from defaults, an optional file and the environment.
// An empty path skips the file; a named file that does not exist is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setupViper(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("configuration file not found: %s", path)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// setupViper registers every key with its default so environment variables
// (GOCHAT_CHAT_PORT, GOCHAT_LOGGING_LEVEL, ...) can override it.
func setupViper(v *viper.Viper) {
	v.SetEnvPrefix("GOCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("chat.bind_address", d.Chat.BindAddress)
	v.SetDefault("chat.port", d.Chat.Port)
	v.SetDefault("chat.credentials_file", d.Chat.CredentialsFile)
	v.SetDefault("chat.max_line_size", d.Chat.MaxLineSize)
	v.SetDefault("chat.write_timeout", d.Chat.WriteTimeout)
	v.SetDefault("chat.duplicate_login", d.Chat.DuplicateLogin)
	v.SetDefault("chat.keep_stale_group_members", d.Chat.KeepStaleGroupMembers)
	v.SetDefault("chat.rate_limit.burst", d.Chat.RateLimit.Burst)
	v.SetDefault("chat.rate_limit.refill_interval", d.Chat.RateLimit.RefillInterval)
	v.SetDefault("http.enabled", d.HTTP.Enabled)
	v.SetDefault("http.address", d.HTTP.Address)
	v.SetDefault("http.allowed_origins", d.HTTP.AllowedOrigins)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("shutdown_timeout", d.ShutdownTimeout)
}

// Validate checks struct constraints.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// ListenAddress returns the host:port the chat listener binds to.
func (c ChatConfig) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.Port)
}
