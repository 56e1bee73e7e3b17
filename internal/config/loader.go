package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "config/config.yaml"
	envPrefix         = "HILO_ORACLE"
)

// Load reads and parses the configuration from file and environment variables.
// Environment variable placeholders in the YAML file (${VAR_NAME}) are expanded.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional
// fields. A missing file is not an error; defaults and environment
// variables are used instead.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "hilo-oracle")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout_seconds", 10)
	v.SetDefault("server.write_timeout_seconds", 15)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.default_session", "default")

	// Keys without a useful default are still registered so that
	// AutomaticEnv can bind them during Unmarshal
	v.SetDefault("upstream.source", SourceHTTP)
	v.SetDefault("upstream.url", "")
	v.SetDefault("upstream.file_path", "")
	v.SetDefault("upstream.api_key", "")
	v.SetDefault("upstream.max_rounds", 0)
	v.SetDefault("upstream.timeout_seconds", 10)
	v.SetDefault("upstream.max_retries", 3)
	v.SetDefault("upstream.retry_wait_min_millis", 100)
	v.SetDefault("upstream.retry_wait_max_millis", 2000)
	v.SetDefault("upstream.rate_limit", 5.0)
	v.SetDefault("upstream.circuit_breaker_max", 5)
	v.SetDefault("upstream.circuit_breaker_reset_seconds", 30)
	v.SetDefault("upstream.cache_ttl_seconds", 2)

	v.SetDefault("ledger.backend", LedgerBackendMemory)
	v.SetDefault("ledger.max_entries", 0)

	v.SetDefault("database.host", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.poll_interval_seconds", 15)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("health.port", 8080)
	v.SetDefault("health.grpc_port", 0)

	v.SetDefault("aws.region", "")
	v.SetDefault("aws.secret_name", "")

	v.SetDefault("stream.enabled", true)
	v.SetDefault("stream.buffer_size", 16)
	v.SetDefault("stream.write_timeout_seconds", 10)
	v.SetDefault("stream.ping_interval_seconds", 30)
}
