package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Registration only fails for empty tags or nil functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("ledgerbackend", validateLedgerBackend)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateLedgerBackend(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case LedgerBackendMemory, LedgerBackendPostgres:
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	switch cfg.Upstream.Source {
	case SourceHTTP:
		if cfg.Upstream.URL == "" {
			return fmt.Errorf("upstream url is required for the http source")
		}
	case SourceFile:
		if cfg.Upstream.FilePath == "" {
			return fmt.Errorf("upstream file_path is required for the file source")
		}
	}

	if cfg.Ledger.Backend == LedgerBackendPostgres {
		var missing []string
		if cfg.Database.Host == "" {
			missing = append(missing, "host")
		}
		if cfg.Database.Name == "" {
			missing = append(missing, "name")
		}
		if cfg.Database.User == "" {
			missing = append(missing, "user")
		}
		if cfg.Database.Port == 0 {
			missing = append(missing, "port")
		}
		if len(missing) > 0 {
			return fmt.Errorf("postgres ledger backend requires database %s", strings.Join(missing, ", "))
		}
		if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
			return fmt.Errorf("max_idle_connections cannot exceed max_connections")
		}
	}

	if cfg.Ledger.MaxEntries != 0 && cfg.Ledger.MaxEntries < MinLedgerEntries {
		return fmt.Errorf("ledger max_entries must be 0 or at least %d", MinLedgerEntries)
	}

	if cfg.Upstream.RetryWaitMinMillis > cfg.Upstream.RetryWaitMaxMillis {
		return fmt.Errorf("upstream retry_wait_min_millis cannot exceed retry_wait_max_millis")
	}

	if cfg.Scheduler.Enabled {
		if cfg.Scheduler.PollIntervalSeconds <= 0 {
			return fmt.Errorf("scheduler poll_interval_seconds must be positive when the scheduler is enabled")
		}
		if cfg.Upstream.CacheTTLSeconds >= cfg.Scheduler.PollIntervalSeconds {
			return fmt.Errorf("upstream cache_ttl_seconds must be shorter than the scheduler poll interval")
		}
	}

	if cfg.Health.Port != 0 && cfg.Health.Port == cfg.Server.Port {
		return fmt.Errorf("health port must differ from the server port")
	}

	if cfg.IsProduction() && cfg.Ledger.Backend == LedgerBackendPostgres && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.Namespace()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required", "required_if", "required_with":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "url":
			fmt.Fprintf(&b, "- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			fmt.Fprintf(&b, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			fmt.Fprintf(&b, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			fmt.Fprintf(&b, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&b, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "ledgerbackend":
			fmt.Fprintf(&b, "- Field '%s' must be one of: memory, postgres\n", field)
		case "oneof":
			fmt.Fprintf(&b, "- Field '%s' has invalid value '%v'\n", field, value)
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}
