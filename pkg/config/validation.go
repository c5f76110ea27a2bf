package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks a loaded Config against its `validate` struct tags and a
// handful of cross-field rules the tags can't express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Serial.ResetStrategy != "" &&
		cfg.Serial.ResetStrategy != "classic" &&
		cfg.Serial.ResetStrategy != "native-usb" {
		return fmt.Errorf("serial.reset_strategy must be %q or %q, got %q",
			"classic", "native-usb", cfg.Serial.ResetStrategy)
	}

	return nil
}
