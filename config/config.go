// Package config manages service configuration: defaults, an optional
// YAML file, and environment variable overrides, in increasing priority.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Retry    RetryConfig    `yaml:"retry"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the inbound HTTP server.
type ServerConfig struct {
	// Port is the listening port. The server binds all interfaces.
	Port int `yaml:"port"`
	// ReadTimeout in seconds.
	ReadTimeout int `yaml:"read_timeout"`
	// WriteTimeout in seconds.
	WriteTimeout int `yaml:"write_timeout"`
	// ShutdownTimeout bounds graceful shutdown, in seconds.
	ShutdownTimeout int `yaml:"shutdown_timeout"`
}

// ProviderConfig configures outbound requests to YouTube.
type ProviderConfig struct {
	// RequestTimeout for a single outbound request, in seconds.
	RequestTimeout int `yaml:"request_timeout"`
	// RPS is the allowed requests per second (0 = unlimited).
	RPS float64 `yaml:"rps"`
	// EnableDynamicBackoff reduces the rate when YouTube pushes back.
	EnableDynamicBackoff bool `yaml:"enable_dynamic_backoff"`
	// APIKey enables track listing through the YouTube Data API.
	// Empty means listing goes through the player API only.
	APIKey string `yaml:"api_key"`
}

// RetryConfig configures transcript fetch retries.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int `yaml:"max_attempts"`
	// InitialBackoff is the delay after the first failure, in seconds.
	InitialBackoff int `yaml:"initial_backoff"`
	// MaxBackoff caps the delay between attempts, in seconds.
	MaxBackoff int `yaml:"max_backoff"`
	// Multiplier is the exponential backoff multiplier.
	Multiplier float64 `yaml:"multiplier"`
	// Jitter is the maximum random addition to each delay, in seconds.
	Jitter int `yaml:"jitter"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is json or text.
	Format string `yaml:"format"`
	// Output is stdout or stderr.
	Output string `yaml:"output"`
}

// Default returns configuration with production defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            7279,
			ReadTimeout:     15,
			WriteTimeout:    60,
			ShutdownTimeout: 10,
		},
		Provider: ProviderConfig{
			RequestTimeout:       30,
			RPS:                  2.5,
			EnableDynamicBackoff: true,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 2,
			MaxBackoff:     30,
			Multiplier:     2.0,
			Jitter:         1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load builds the configuration. A non-empty path names a YAML file
// that must exist; an empty path skips the file entirely. Environment
// variables override whatever the file set.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
	if v := os.Getenv("TRANSCRIPTD_REQUEST_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Provider.RequestTimeout = n
		}
	}
	if v := os.Getenv("TRANSCRIPTD_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Provider.RPS = f
		}
	}
	if v := os.Getenv("TRANSCRIPTD_DYNAMIC_BACKOFF"); v != "" {
		c.Provider.EnableDynamicBackoff = v == "true" || v == "1"
	}
	if v := os.Getenv("TRANSCRIPTD_API_KEY"); v != "" {
		c.Provider.APIKey = v
	} else if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("TRANSCRIPTD_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv("TRANSCRIPTD_INITIAL_BACKOFF"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retry.InitialBackoff = n
		}
	}
	if v := os.Getenv("TRANSCRIPTD_MAX_BACKOFF"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retry.MaxBackoff = n
		}
	}
	if v := os.Getenv("TRANSCRIPTD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TRANSCRIPTD_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

// Validate checks that configuration values are valid and consistent.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Provider.Validate(); err != nil {
		return fmt.Errorf("provider config: %w", err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates server configuration.
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive, got %d", s.ReadTimeout)
	}
	if s.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive, got %d", s.WriteTimeout)
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got %d", s.ShutdownTimeout)
	}
	return nil
}

// Validate validates provider configuration.
func (p *ProviderConfig) Validate() error {
	if p.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %d", p.RequestTimeout)
	}
	if p.RPS < 0 {
		return fmt.Errorf("rps must be non-negative, got %f", p.RPS)
	}
	return nil
}

// Validate validates retry configuration.
func (r *RetryConfig) Validate() error {
	if r.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", r.MaxAttempts)
	}
	if r.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive, got %d", r.InitialBackoff)
	}
	if r.MaxBackoff < r.InitialBackoff {
		return fmt.Errorf("max_backoff must be >= initial_backoff, got %d", r.MaxBackoff)
	}
	if r.Multiplier <= 1 {
		return fmt.Errorf("multiplier must be > 1, got %f", r.Multiplier)
	}
	if r.Jitter < 0 {
		return fmt.Errorf("jitter must be non-negative, got %d", r.Jitter)
	}
	return nil
}

// Validate validates logging configuration.
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of debug, info, warn, error, got %q", l.Level)
	}
	switch l.Format {
	case "json", "text":
	default:
		return fmt.Errorf("format must be json or text, got %q", l.Format)
	}
	switch l.Output {
	case "stdout", "stderr":
	default:
		return fmt.Errorf("output must be stdout or stderr, got %q", l.Output)
	}
	return nil
}
