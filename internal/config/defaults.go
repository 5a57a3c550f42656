package config

import (
	"strings"
	"time"
)

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
		Chat: ChatConfig{
			Port:            12345,
			CredentialsFile: "users.txt",
			MaxLineSize:     1024,
			WriteTimeout:    10 * time.Second,
			DuplicateLogin:  DuplicateLoginReject,
			RateLimit: RateLimitConfig{
				RefillInterval: time.Second,
			},
		},
		HTTP: HTTPConfig{
			Enabled:        true,
			Address:        ":8080",
			AllowedOrigins: []string{"http://localhost:8080"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		ShutdownTimeout: 10 * time.Second,
	}
}

// ApplyDefaults fills zero values and normalizes case. Explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	d := Default()

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = d.Logging.Format
	}
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = d.Logging.Output
	}

	if cfg.Chat.CredentialsFile == "" {
		cfg.Chat.CredentialsFile = d.Chat.CredentialsFile
	}
	if cfg.Chat.MaxLineSize <= 0 {
		cfg.Chat.MaxLineSize = d.Chat.MaxLineSize
	}
	if cfg.Chat.WriteTimeout <= 0 {
		cfg.Chat.WriteTimeout = d.Chat.WriteTimeout
	}
	if cfg.Chat.DuplicateLogin == "" {
		cfg.Chat.DuplicateLogin = d.Chat.DuplicateLogin
	}
	cfg.Chat.DuplicateLogin = strings.ToLower(cfg.Chat.DuplicateLogin)
	if cfg.Chat.RateLimit.RefillInterval <= 0 {
		cfg.Chat.RateLimit.RefillInterval = d.Chat.RateLimit.RefillInterval
	}

	for i := range cfg.HTTP.AllowedOrigins {
		cfg.HTTP.AllowedOrigins[i] = strings.TrimSpace(cfg.HTTP.AllowedOrigins[i])
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = d.ShutdownTimeout
	}
}
