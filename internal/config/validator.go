package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aleister1102/slotwatch/internal/common"
	"github.com/go-playground/validator/v10"
)

// ValidateConfig performs validation on the GlobalConfig structure.
func ValidateConfig(cfg *GlobalConfig) error {
	if cfg == nil {
		return common.NewConfigurationError("", "", "configuration is nil")
	}

	validate := validator.New()

	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "debug", "info", "warn", "error", "fatal", "panic":
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("logformat", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "console", "text", "json":
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("storagedriver", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "sqlite", "postgres":
			return true
		default:
			return false
		}
	})

	if err := validate.Struct(cfg); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			messages := make([]string, 0, len(errs))
			for _, e := range errs {
				msg := fmt.Sprintf("Validation failed for '%s': rule '%s'", e.Namespace(), e.Tag())
				if e.Param() != "" {
					msg += fmt.Sprintf(" (expected: %s)", e.Param())
				}
				if e.Value() != nil && e.Value() != "" {
					msg += fmt.Sprintf(", actual: '%v'", e.Value())
				}
				messages = append(messages, msg)
			}
			return fmt.Errorf("%w: configuration validation failed:\n  %s", common.ErrInvalidConfiguration, strings.Join(messages, "\n  "))
		}
		return fmt.Errorf("configuration validation error: %w", err)
	}

	return validateStorage(cfg.StorageConfig)
}

func validateStorage(sc StorageConfig) error {
	switch sc.Driver {
	case "sqlite":
		if sc.SQLitePath == "" {
			return common.NewConfigurationError("storage_config", "sqlite_path", "required for the sqlite driver")
		}
	case "postgres":
		if sc.DSN == "" {
			return common.NewConfigurationError("storage_config", "dsn", "required for the postgres driver")
		}
	}
	return nil
}

// RequireCredentials checks the settings needed by commands that talk to Telegram.
func (c *GlobalConfig) RequireCredentials() error {
	if strings.TrimSpace(c.TelegramConfig.BotToken) == "" {
		return common.NewConfigurationError("telegram_config", "bot_token", "TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}
