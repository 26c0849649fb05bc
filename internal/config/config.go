// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading accepts context.Context as the first parameter.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Rate limiter backends.
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// Version is reported by /health.
	Version string `koanf:"version"`

	// ModelsDir points at a directory of model artifacts. Empty uses the embedded defaults.
	ModelsDir string `koanf:"models_dir"`

	// APIKeys is a comma separated list of accepted X-API-Key values. Empty disables auth.
	APIKeys string `koanf:"api_keys"`

	// CORSOrigins is a comma separated allow list; "*" allows any origin.
	CORSOrigins string `koanf:"cors_origins"`

	// RateLimitEnabled turns the per-client limiter on for /predict.
	RateLimitEnabled bool `koanf:"rate_limit_enabled"`

	// RateLimitRequests is the quota per window.
	RateLimitRequests int `koanf:"rate_limit_requests"`

	// RateLimitWindowSeconds is the window length.
	RateLimitWindowSeconds int `koanf:"rate_limit_window_seconds"`

	// RateLimitBackend is "memory" or "redis".
	RateLimitBackend string `koanf:"rate_limit_backend"`

	// RedisAddr and RedisKeyPrefix configure the redis limiter backend.
	RedisAddr      string `koanf:"redis_addr"`
	RedisPassword  string `koanf:"redis_password"`
	RedisDB        int    `koanf:"redis_db"`
	RedisKeyPrefix string `koanf:"redis_key_prefix"`

	// Tracing configures the OpenTelemetry exporter. An empty endpoint uses stdout.
	TracingEnabled     bool    `koanf:"tracing_enabled"`
	TracingEndpoint    string  `koanf:"tracing_endpoint"`
	TracingInsecure    bool    `koanf:"tracing_insecure"`
	TracingSampleRatio float64 `koanf:"tracing_sample_ratio"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":8000",
		Version:                "1.0.0",
		RateLimitEnabled:       true,
		RateLimitRequests:      100,
		RateLimitWindowSeconds: 60,
		RateLimitBackend:       RateLimitBackendMemory,
		RedisAddr:              "localhost:6379",
		RedisKeyPrefix:         "alie:ratelimit:",
		TracingSampleRatio:     0.1,
	}
}

// RateLimitWindow returns the limiter window as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// APIKeyList splits APIKeys, dropping blanks.
func (c *Config) APIKeyList() []string {
	return splitList(c.APIKeys)
}

// CORSOriginList splits CORSOrigins, dropping blanks.
func (c *Config) CORSOriginList() []string {
	return splitList(c.CORSOrigins)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.RateLimitEnabled && c.RateLimitRequests <= 0:
		return fmt.Errorf("%w: rate_limit_requests must be positive", ErrInvalidConfig)
	case c.RateLimitEnabled && c.RateLimitWindowSeconds <= 0:
		return fmt.Errorf("%w: rate_limit_window_seconds must be positive", ErrInvalidConfig)
	case c.RateLimitBackend != RateLimitBackendMemory && c.RateLimitBackend != RateLimitBackendRedis:
		return fmt.Errorf("%w: unknown rate_limit_backend %q", ErrInvalidConfig, c.RateLimitBackend)
	case c.RateLimitBackend == RateLimitBackendRedis && strings.TrimSpace(c.RedisAddr) == "":
		return fmt.Errorf("%w: redis_addr is required for the redis backend", ErrInvalidConfig)
	case c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1:
		return fmt.Errorf("%w: tracing_sample_ratio must be within [0,1]", ErrInvalidConfig)
	}
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
