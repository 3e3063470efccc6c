package logger

import (
	"io"
	stdlog "log"

	"github.com/aleister1102/slotwatch/internal/common"
	"github.com/aleister1102/slotwatch/internal/config"
	"github.com/rs/zerolog"
)

// LoggerBuilder provides fluent interface for building loggers
type LoggerBuilder struct {
	config   LoggerConfig
	factory  *writerFactory
	redirect bool
}

// NewLoggerBuilder creates a new logger builder
func NewLoggerBuilder() *LoggerBuilder {
	return &LoggerBuilder{
		config:   DefaultLoggerConfig(),
		factory:  newWriterFactory(),
		redirect: true,
	}
}

// WithConfig applies the application log section
func (lb *LoggerBuilder) WithConfig(cfg config.LogConfig) *LoggerBuilder {
	output := lb.config.Output
	lb.config = FromLogConfig(cfg)
	lb.config.Output = output
	return lb
}

// WithOutput sends console output to w instead of stderr
func (lb *LoggerBuilder) WithOutput(w io.Writer) *LoggerBuilder {
	lb.config.Output = w
	return lb
}

// WithoutStdlibRedirect leaves the standard library logger untouched
func (lb *LoggerBuilder) WithoutStdlibRedirect() *LoggerBuilder {
	lb.redirect = false
	return lb
}

// Build creates the zerolog logger
func (lb *LoggerBuilder) Build() (zerolog.Logger, error) {
	if err := lb.validateConfig(); err != nil {
		return zerolog.Nop(), err
	}

	var writers []io.Writer
	if lb.config.EnableConsole {
		writers = append(writers, lb.factory.consoleWriter(lb.config))
	}
	if lb.config.EnableFile {
		fw, err := lb.factory.fileWriter(lb.config)
		if err != nil {
			return zerolog.Nop(), common.WrapErrorf(err, "failed to open log file '%s'", lb.config.FilePath)
		}
		writers = append(writers, fw)
	}
	if len(writers) == 0 {
		return zerolog.Nop(), common.NewError("no output writers configured")
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lb.config.Level).
		With().
		Timestamp().
		Logger()

	if lb.redirect {
		stdlog.SetOutput(zl)
		stdlog.SetFlags(0)
	}
	return zl, nil
}

func (lb *LoggerBuilder) validateConfig() error {
	if lb.config.EnableFile && lb.config.FilePath == "" {
		return common.NewValidationError("file_path", lb.config.FilePath, "file path required when file logging enabled")
	}
	if lb.config.MaxSizeMB <= 0 {
		return common.NewValidationError("max_size_mb", lb.config.MaxSizeMB, "max size must be positive")
	}
	return nil
}
