// Package config provides configuration management for the signal-lab tools.
package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/signal-lab/internal/models"
)

const dateLayout = "2006-01-02"

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("classification", validateClassification)
	_ = v.RegisterValidation("exitselection", validateExitSelection)
	_ = v.RegisterValidation("timeframe", validateTimeframe)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional cross-field validations
	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateClassification validates the deal classification mode
func validateClassification(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "comment_tag", "strategy_tag":
		return true
	default:
		return false
	}
}

// validateExitSelection validates the duplicate-exit policy
func validateExitSelection(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "earliest", "latest", "reject":
		return true
	default:
		return false
	}
}

func validateTimeframe(fl validator.FieldLevel) bool {
	return models.IsKnownTimeframe(fl.Field().String())
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	startDate, err := time.Parse(dateLayout, cfg.Backtest.StartDate)
	if err != nil {
		return fmt.Errorf("invalid backtest start_date format: %w", err)
	}

	endDate, err := time.Parse(dateLayout, cfg.Backtest.EndDate)
	if err != nil {
		return fmt.Errorf("invalid backtest end_date format: %w", err)
	}

	if endDate.Before(startDate) {
		return fmt.Errorf("backtest start_date must not be after end_date")
	}

	if cfg.Reconcile.ClassificationMode == "comment_tag" && cfg.Reconcile.EntryMarker == "" {
		return fmt.Errorf("reconcile entry_marker is required for comment_tag classification")
	}

	if cfg.Database.Enabled {
		if cfg.Database.Host == "" || cfg.Database.Name == "" || cfg.Database.User == "" {
			return fmt.Errorf("database host, name and user are required when database is enabled")
		}
		if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
		}
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "classification":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: comment_tag, strategy_tag\n", field)
		case "exitselection":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: earliest, latest, reject\n", field)
		case "timeframe":
			errMsg += fmt.Sprintf("- Field '%s' has unknown timeframe '%v'\n", field, value)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}

// ValidateBroker checks the settings a live broker session needs
func ValidateBroker(cfg *Config) error {
	switch cfg.Broker.Venue {
	case "rest":
		if cfg.Broker.APIURL == "" {
			return fmt.Errorf("broker api_url is required for the rest venue")
		}
		if cfg.Broker.Login == "" || cfg.Broker.Password == "" || cfg.Broker.Server == "" {
			return fmt.Errorf("broker credentials not found; set BROKER_LOGIN, BROKER_PASSWORD and BROKER_SERVER")
		}
		if cfg.IsProduction() && isTestCredential(cfg.Broker.Login) {
			return fmt.Errorf("production environment should not use test broker credentials")
		}
	case "csv":
		if cfg.Broker.DealsFile == "" {
			return fmt.Errorf("broker deals_file is required for the csv venue")
		}
	default:
		return fmt.Errorf("unknown broker venue %q", cfg.Broker.Venue)
	}
	return nil
}

// isTestCredential checks if a credential looks like a test credential
func isTestCredential(credential string) bool {
	testPatterns := []string{
		"test", "demo", "example", "placeholder", "YOUR_",
	}

	for _, pattern := range testPatterns {
		if match, _ := regexp.MatchString("(?i)"+pattern, credential); match {
			return true
		}
	}

	return false
}
