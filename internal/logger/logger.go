package logger

import (
	"github.com/aleister1102/slotwatch/internal/config"
	"github.com/rs/zerolog"
)

// New builds the application logger from the log section of the configuration.
func New(cfg config.LogConfig) (zerolog.Logger, error) {
	return NewLoggerBuilder().WithConfig(cfg).Build()
}

// Module returns a child logger tagged with the component name.
func Module(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("module", name).Logger()
}
