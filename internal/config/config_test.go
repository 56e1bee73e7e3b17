package config

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

const (
	validConfigPath          = "testdata/valid_config.yaml"
	expansionConfigPath      = "testdata/expansion_config.yaml"
	nonexistentConfigPath    = "testdata/nonexistent_config.yaml"
	expectedNoErrorMsg       = "expected no error, got %v"
	expectedNoErrorLoading   = "expected no error loading config, got %v"
	expectedValidationFailed = "expected validation error"
	appName                  = "hilo-oracle"
	developmentEnv           = "development"
)

func loadValid(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoading, err)
	}
	return cfg
}

// TestLoadConfigSuccess tests loading a valid configuration file
func TestLoadConfigSuccess(t *testing.T) {
	cfg := loadValid(t)

	if cfg.App.Name != appName {
		t.Errorf("expected app name '%s', got '%s'", appName, cfg.App.Name)
	}
	if cfg.App.Environment != developmentEnv {
		t.Errorf("expected environment '%s', got '%s'", developmentEnv, cfg.App.Environment)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("expected server port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Upstream.Source != SourceHTTP {
		t.Errorf("expected upstream source '%s', got '%s'", SourceHTTP, cfg.Upstream.Source)
	}
	if cfg.Ledger.Backend != LedgerBackendMemory {
		t.Errorf("expected ledger backend '%s', got '%s'", LedgerBackendMemory, cfg.Ledger.Backend)
	}
	if len(cfg.Scheduler.Sessions) != 1 || cfg.Scheduler.Sessions[0] != "default" {
		t.Errorf("expected scheduler sessions [default], got %v", cfg.Scheduler.Sessions)
	}
	if cfg.ServerAddress() != ":3000" {
		t.Errorf("expected server address ':3000', got '%s'", cfg.ServerAddress())
	}
}

// TestLoadConfigFileNotFound tests handling of missing configuration file
func TestLoadConfigFileNotFound(t *testing.T) {
	if _, err := Load(nonexistentConfigPath); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

// TestLoadConfigEnvironmentVariables tests environment variable override
func TestLoadConfigEnvironmentVariables(t *testing.T) {
	t.Setenv("HILO_ORACLE_APP_NAME", "test-app")
	t.Setenv("HILO_ORACLE_LEDGER_MAX_ENTRIES", "42")

	cfg := loadValid(t)
	if cfg.App.Name != "test-app" {
		t.Errorf("expected app name 'test-app' from environment, got '%s'", cfg.App.Name)
	}
	if cfg.Ledger.MaxEntries != 42 {
		t.Errorf("expected max entries 42 from environment, got %d", cfg.Ledger.MaxEntries)
	}
}

// TestLoadConfigExpansion tests ${VAR} placeholders in the file
func TestLoadConfigExpansion(t *testing.T) {
	t.Setenv("TEST_UPSTREAM_API_KEY", "expanded_secret_value")

	cfg, err := Load(expansionConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}
	if cfg.Upstream.APIKey != "expanded_secret_value" {
		t.Errorf("expected expanded api key, got '%s'", cfg.Upstream.APIKey)
	}
}

// TestLoadWithDefaults tests defaults when no file is present
func TestLoadWithDefaults(t *testing.T) {
	t.Setenv("HILO_ORACLE_UPSTREAM_URL", "https://example.com/history")

	cfg, err := LoadWithDefaults(nonexistentConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}
	if cfg.App.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got '%s'", cfg.App.LogLevel)
	}
	if cfg.Ledger.Backend != LedgerBackendMemory {
		t.Errorf("expected default ledger backend, got '%s'", cfg.Ledger.Backend)
	}
	if cfg.Ledger.MaxEntries != 0 {
		t.Errorf("expected the full ledger kept by default, got max entries %d", cfg.Ledger.MaxEntries)
	}
	if cfg.Upstream.URL != "https://example.com/history" {
		t.Errorf("expected upstream url from environment, got '%s'", cfg.Upstream.URL)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

// TestValidateSuccess tests validation of a valid configuration
func TestValidateSuccess(t *testing.T) {
	if err := Validate(loadValid(t)); err != nil {
		t.Fatalf("expected no validation error, got %v", err)
	}
}

// TestValidateFailures tests field and cross-field rules
func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{"invalid environment", func(c *Config) { c.App.Environment = "invalid" }, "Environment"},
		{"invalid log level", func(c *Config) { c.App.LogLevel = "trace" }, "LogLevel"},
		{"invalid ledger backend", func(c *Config) { c.Ledger.Backend = "redis" }, "memory, postgres"},
		{"invalid source", func(c *Config) { c.Upstream.Source = "kafka" }, "Source"},
		{"invalid url", func(c *Config) { c.Upstream.URL = "not a url" }, "URL"},
		{"missing url", func(c *Config) { c.Upstream.URL = "" }, "upstream url"},
		{"missing file path", func(c *Config) { c.Upstream.Source = SourceFile }, "file_path"},
		{"ledger cap below tracker window", func(c *Config) { c.Ledger.MaxEntries = 5 }, "max_entries"},
		{"retry wait order", func(c *Config) { c.Upstream.RetryWaitMinMillis = 5000 }, "retry_wait_min_millis"},
		{"cache outlives poll", func(c *Config) { c.Upstream.CacheTTLSeconds = 30 }, "cache_ttl_seconds"},
		{"postgres without database", func(c *Config) {
			c.Ledger.Backend = LedgerBackendPostgres
			c.Database.Host = ""
		}, "requires database host"},
		{"production without ssl", func(c *Config) {
			c.App.Environment = "production"
			c.Ledger.Backend = LedgerBackendPostgres
		}, "SSL"},
		{"health port clash", func(c *Config) { c.Health.Port = c.Server.Port }, "health port"},
		{"aws region missing", func(c *Config) { c.AWS.SecretName = "hilo/prod" }, "Region"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadValid(t)
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal(expectedValidationFailed)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("expected error to mention '%s', got: %v", tt.message, err)
			}
		})
	}
}

// TestValidateLedgerMaxEntries tests the accepted ledger caps
func TestValidateLedgerMaxEntries(t *testing.T) {
	for _, entries := range []int{0, MinLedgerEntries, 500} {
		cfg := loadValid(t)
		cfg.Ledger.MaxEntries = entries
		if err := Validate(cfg); err != nil {
			t.Errorf("expected max entries %d to validate, got %v", entries, err)
		}
	}

	cfg := loadValid(t)
	cfg.Ledger.MaxEntries = MinLedgerEntries - 1
	if err := Validate(cfg); err == nil {
		t.Errorf("expected max entries %d to fail validation", MinLedgerEntries-1)
	}
}

type stubSecretsClient struct {
	output *secretsmanager.GetSecretValueOutput
	err    error
	asked  string
}

func (s *stubSecretsClient) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	s.asked = aws.ToString(in.SecretId)
	return s.output, s.err
}

// TestFetchSecretsOverlay tests decoding and applying a secret
func TestFetchSecretsOverlay(t *testing.T) {
	client := &stubSecretsClient{output: &secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(`{"database_password":"s3cret","upstream_api_key":"key-123"}`),
	}}

	secrets, err := FetchSecrets(context.Background(), client, "hilo/prod")
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}
	if client.asked != "hilo/prod" {
		t.Errorf("expected secret id 'hilo/prod', got '%s'", client.asked)
	}

	cfg := loadValid(t)
	secrets.Apply(cfg)
	if cfg.Database.Password != "s3cret" {
		t.Errorf("expected overlaid database password, got '%s'", cfg.Database.Password)
	}
	if cfg.Upstream.APIKey != "key-123" {
		t.Errorf("expected overlaid api key, got '%s'", cfg.Upstream.APIKey)
	}
}

// TestFetchSecretsEmpty tests a secret without payload
func TestFetchSecretsEmpty(t *testing.T) {
	client := &stubSecretsClient{output: &secretsmanager.GetSecretValueOutput{}}
	if _, err := FetchSecrets(context.Background(), client, "hilo/prod"); err != ErrNoSecretData {
		t.Fatalf("expected ErrNoSecretData, got %v", err)
	}
}

// TestLoadSecretsFromAWSDisabled tests the no-op path
func TestLoadSecretsFromAWSDisabled(t *testing.T) {
	cfg := loadValid(t)
	if err := LoadSecretsFromAWS(context.Background(), cfg); err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}
}
