// Package config provides configuration management using the Singleton pattern.
// It loads configuration from environment variables and config.yaml using Viper.
package config

import (
	"fmt"
	"sync"
)

// Configuration holds all application configuration values.
type Configuration struct {
	// Server configuration
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Providers maps provider names to their descriptors. Descriptors are
	// parsed once at startup and never mutated.
	Providers map[string]ProviderDescriptor `json:"providers" mapstructure:"providers"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics configuration
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	// Host is the server bind address.
	Host string `json:"host" mapstructure:"host"`

	// Port is the server port number.
	Port int `json:"port" mapstructure:"port"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeoutSeconds int `json:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeoutSeconds int `json:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`

	// ShutdownTimeout is the maximum duration to wait for active connections to finish.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
}

// ProviderDescriptor is the configuration-sourced description of one
// upstream provider: which adapter variant talks to it, the credential pool
// rotated across requests, and optional overrides.
type ProviderDescriptor struct {
	// Kind names the adapter variant ("openai", "gemini"). The set of
	// kinds is compiled in; unknown kinds fail at first use.
	Kind string `json:"kind" mapstructure:"kind"`

	// Keys is the ordered credential pool for this provider.
	Keys []string `json:"keys" mapstructure:"keys"`

	// Host overrides the adapter's default upstream base URL. Optional.
	Host string `json:"host" mapstructure:"host"`

	// DefaultModel is used when a request names no model. Optional.
	DefaultModel string `json:"default_model" mapstructure:"default_model"`

	// TimeoutSeconds bounds a single upstream exchange. Optional.
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`

	// StrictEmulation makes tool-call emulation decode failures hard
	// errors instead of degrading to plain text. Optional.
	StrictEmulation bool `json:"strict_emulation" mapstructure:"strict_emulation"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" mapstructure:"level"`

	// Format is the log format (json, text).
	Format string `json:"format" mapstructure:"format"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled exposes the /metrics endpoint and per-request collection.
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// configInstance holds the singleton configuration instance.
var (
	configInstance *Configuration
	configOnce     sync.Once
	configErr      error
)

// GetConfig returns the singleton Configuration instance.
// It initializes the configuration on first call using the default config path.
func GetConfig() (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig("")
	})
	return configInstance, configErr
}

// GetConfigWithPath returns the singleton Configuration instance with a
// custom config file path.
func GetConfigWithPath(configPath string) (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig(configPath)
	})
	return configInstance, configErr
}

// ResetConfig resets the singleton instance.
// This is primarily used for testing purposes.
func ResetConfig() {
	configOnce = sync.Once{}
	configInstance = nil
	configErr = nil
}

// Validate validates the configuration and returns an error if required
// fields are missing.
func (c *Configuration) Validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		validationErrors = append(validationErrors, "server.port must be between 1 and 65535")
	}

	if len(c.Providers) == 0 {
		validationErrors = append(validationErrors, "providers cannot be empty, at least one provider is required")
	}

	for name, desc := range c.Providers {
		if desc.Kind == "" {
			validationErrors = append(validationErrors, fmt.Sprintf("providers.%s.kind is required", name))
		}
		if len(activeKeys(desc.Keys)) == 0 {
			validationErrors = append(validationErrors, fmt.Sprintf("providers.%s.keys cannot be empty, at least one API key is required", name))
		}
	}

	if c.Logging.Level != "" && !isValidLogLevel(c.Logging.Level) {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.level '%s' is invalid, must be one of: debug, info, warn, error",
			c.Logging.Level,
		))
	}

	if c.Logging.Format != "" && c.Logging.Format != "json" && c.Logging.Format != "text" {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.format '%s' is invalid, must be one of: json, text",
			c.Logging.Format,
		))
	}

	if len(validationErrors) > 0 {
		return &ValidationError{Errors: validationErrors}
	}

	return nil
}

// activeKeys filters out empty credential entries.
func activeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// isValidLogLevel checks if the log level is valid.
func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// TotalKeyCount returns the number of configured credentials across all
// providers. Used for the startup summary.
func (c *Configuration) TotalKeyCount() int {
	total := 0
	for _, desc := range c.Providers {
		total += len(activeKeys(desc.Keys))
	}
	return total
}
