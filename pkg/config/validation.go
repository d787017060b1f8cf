package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration against the struct-level validation
// tags and a few cross-field rules the tags cannot express.
func Validate(cfg *Config) error {
	v := validator.New()

	if err := v.Struct(cfg); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("invalid configuration value: %w", err)
		}

		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describeFieldError(fe))
			}
			return errors.New(strings.Join(msgs, "; "))
		}

		return err
	}

	return validateCrossFields(cfg)
}

// describeFieldError renders a single validation failure in a form a user
// can act on without knowing the struct layout.
func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	// Trim the leading "Config." so messages read like config file paths
	field = strings.TrimPrefix(field, "Config.")

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// validateCrossFields checks rules that span multiple sections.
func validateCrossFields(cfg *Config) error {
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return errors.New("Telemetry.Endpoint is required when telemetry is enabled")
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port == cfg.Server.Port {
		return fmt.Errorf("Metrics.Port %d conflicts with Server.Port", cfg.Metrics.Port)
	}

	// A write timeout shorter than the long-poll wait would cut parked
	// connects off mid-wait.
	if cfg.Server.WriteTimeout > 0 && cfg.Server.WriteTimeout <= cfg.Bayeux.Timeout {
		return fmt.Errorf("Server.WriteTimeout %s must exceed Bayeux.Timeout %s",
			cfg.Server.WriteTimeout, cfg.Bayeux.Timeout)
	}

	return nil
}
