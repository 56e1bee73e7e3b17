// Package config provides configuration management for the hilo-oracle service.
package config

import (
	"fmt"
	"time"
)

// Ledger storage backends
const (
	LedgerBackendMemory   = "memory"
	LedgerBackendPostgres = "postgres"
)

// MinLedgerEntries is the smallest per-model ledger cap that keeps every vote
// the performance tracker reads
const MinLedgerEntries = 10

// Upstream source kinds
const (
	SourceHTTP = "http"
	SourceFile = "file"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app" validate:"required"`
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Upstream  UpstreamConfig  `mapstructure:"upstream" validate:"required"`
	Ledger    LedgerConfig    `mapstructure:"ledger" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Health    HealthConfig    `mapstructure:"health"`
	Stream    StreamConfig    `mapstructure:"stream"`
	AWS       AWSConfig       `mapstructure:"aws"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// ServerConfig represents the REST API server configuration
type ServerConfig struct {
	Host                   string   `mapstructure:"host"`
	Port                   int      `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeoutSeconds     int      `mapstructure:"read_timeout_seconds" validate:"gte=0"`
	WriteTimeoutSeconds    int      `mapstructure:"write_timeout_seconds" validate:"gte=0"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds" validate:"gte=0"`
	AllowedOrigins         []string `mapstructure:"allowed_origins"`
	DefaultSession         string   `mapstructure:"default_session" validate:"required"`
}

// UpstreamConfig represents the round history source configuration
type UpstreamConfig struct {
	Source                     string  `mapstructure:"source" validate:"required,oneof=http file"`
	URL                        string  `mapstructure:"url" validate:"omitempty,url"`
	FilePath                   string  `mapstructure:"file_path"`
	APIKey                     string  `mapstructure:"api_key"`
	TimeoutSeconds             int     `mapstructure:"timeout_seconds" validate:"gte=0"`
	MaxRetries                 int     `mapstructure:"max_retries" validate:"gte=0"`
	RetryWaitMinMillis         int     `mapstructure:"retry_wait_min_millis" validate:"gte=0"`
	RetryWaitMaxMillis         int     `mapstructure:"retry_wait_max_millis" validate:"gte=0"`
	RateLimit                  float64 `mapstructure:"rate_limit" validate:"gte=0"`
	CircuitBreakerMax          int     `mapstructure:"circuit_breaker_max" validate:"gte=0"`
	CircuitBreakerResetSeconds int     `mapstructure:"circuit_breaker_reset_seconds" validate:"gte=0"`
	CacheTTLSeconds            int     `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
	MaxRounds                  int     `mapstructure:"max_rounds" validate:"gte=0"`
}

// LedgerConfig represents vote ledger persistence configuration
type LedgerConfig struct {
	Backend    string `mapstructure:"backend" validate:"required,ledgerbackend"`
	MaxEntries int    `mapstructure:"max_entries" validate:"gte=0"`
}

// DatabaseConfig represents database connection configuration. Only
// required when the ledger backend is postgres.
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"gte=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"gte=0"`
}

// SchedulerConfig represents background polling configuration
type SchedulerConfig struct {
	Enabled             bool     `mapstructure:"enabled"`
	PollIntervalSeconds int      `mapstructure:"poll_interval_seconds" validate:"gte=0"`
	Sessions            []string `mapstructure:"sessions"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

// HealthConfig represents the health probe servers
type HealthConfig struct {
	Port     int `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	GRPCPort int `mapstructure:"grpc_port" validate:"omitempty,min=1,max=65535"`
}

// StreamConfig represents the websocket prediction stream
type StreamConfig struct {
	Enabled             bool `mapstructure:"enabled"`
	BufferSize          int  `mapstructure:"buffer_size" validate:"gte=0"`
	WriteTimeoutSeconds int  `mapstructure:"write_timeout_seconds" validate:"gte=0"`
	PingIntervalSeconds int  `mapstructure:"ping_interval_seconds" validate:"gte=0"`
}

// AWSConfig represents the optional Secrets Manager overlay
type AWSConfig struct {
	Region     string `mapstructure:"region" validate:"required_with=SecretName"`
	SecretName string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// ServerAddress returns the listen address of the API server
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// PollInterval returns the scheduler interval as a duration
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Scheduler.PollIntervalSeconds) * time.Second
}

// CacheTTL returns the upstream history cache TTL; zero disables caching
func (u UpstreamConfig) CacheTTL() time.Duration {
	return time.Duration(u.CacheTTLSeconds) * time.Second
}
