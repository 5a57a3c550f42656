// Package server provides the runtime options for the chat server and the
// sanitizing rules applied to them.
package server

import (
	"time"

	"github.com/Tyrowin/gochat/internal/config"
)

// RateLimitConfig defines the per-session command budget. A zero Burst
// disables limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Options holds everything a Server needs besides its credentials and metrics.
type Options struct {
	MaxLineSize           int
	WriteTimeout          time.Duration
	DuplicateLogin        string
	KeepStaleGroupMembers bool
	RateLimit             RateLimitConfig
	AllowedOrigins        []string
}

// DefaultOptions returns the options implied by config.Default.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig extracts the server options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxLineSize:           cfg.Chat.MaxLineSize,
		WriteTimeout:          cfg.Chat.WriteTimeout,
		DuplicateLogin:        cfg.Chat.DuplicateLogin,
		KeepStaleGroupMembers: cfg.Chat.KeepStaleGroupMembers,
		RateLimit: RateLimitConfig{
			Burst:          cfg.Chat.RateLimit.Burst,
			RefillInterval: cfg.Chat.RateLimit.RefillInterval,
		},
		AllowedOrigins: append([]string(nil), cfg.HTTP.AllowedOrigins...),
	}
}

func sanitizeOptions(opts Options) Options {
	if opts.MaxLineSize <= 0 {
		opts.MaxLineSize = 1024
	}

	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}

	if opts.DuplicateLogin != config.DuplicateLoginOverwrite {
		opts.DuplicateLogin = config.DuplicateLoginReject
	}

	if opts.RateLimit.Burst < 0 {
		opts.RateLimit.Burst = 0
	}

	if opts.RateLimit.RefillInterval <= 0 {
		opts.RateLimit.RefillInterval = time.Second
	}

	opts.AllowedOrigins = append([]string(nil), opts.AllowedOrigins...)
	return opts
}
