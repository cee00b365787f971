// Package config provides configuration management using the Singleton pattern.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultConfigName = "config"
	defaultConfigType = "yaml"
	envPrefix         = "MODELGATE"

	// envKeysPrefix is the per-provider credential override. A variable
	// MODELGATE_KEYS_<NAME> with a comma-separated key list replaces that
	// provider's file-configured credentials, so keys never have to live
	// in the config file in production.
	envKeysPrefix = envPrefix + "_KEYS_"
)

// loadConfig loads the configuration from environment variables and files.
// Priority order (highest to lowest):
//  1. MODELGATE_KEYS_<PROVIDER> env vars (comma-separated credential lists)
//  2. Environment variables (prefixed with MODELGATE_)
//  3. config.yaml
//  4. Default values
func loadConfig(configPath string) (*Configuration, error) {
	// .env is a local development convenience; absence is fine.
	_ = godotenv.Load(".env")

	v := viper.New()

	setDefaults(v)

	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/modelgate")
		v.AddConfigPath("$HOME/.modelgate")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &ConfigError{
				Op:  "read",
				Err: fmt.Errorf("failed to read config file: %w", err),
			}
		}
		// Config file not found is OK when env vars carry everything.
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{
			Op:  "unmarshal",
			Err: fmt.Errorf("failed to unmarshal config: %w", err),
		}
	}

	applyEnvCredentials(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 120)
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
}

// applyEnvCredentials replaces each provider's credential pool with the
// contents of MODELGATE_KEYS_<NAME> when that variable is set. Env-sourced
// keys take priority over file-configured ones.
func applyEnvCredentials(cfg *Configuration) {
	for name, desc := range cfg.Providers {
		envName := envKeysPrefix + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
		raw := os.Getenv(envName)
		if raw == "" {
			continue
		}

		keys := make([]string, 0)
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		if len(keys) == 0 {
			continue
		}

		desc.Keys = keys
		cfg.Providers[name] = desc
	}
}
