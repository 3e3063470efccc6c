package logger

import (
	"github.com/aleister1102/slotwatch/internal/config"
)

// FromLogConfig converts the file-level log section into a LoggerConfig.
// Unknown levels fall back to info; non-positive rotation limits fall back to defaults.
func FromLogConfig(cfg config.LogConfig) LoggerConfig {
	lc := DefaultLoggerConfig()

	if level, err := ParseLevel(cfg.LogLevel); err == nil {
		lc.Level = level
	}
	lc.Format = ParseFormat(cfg.LogFormat)
	lc.EnableFile = cfg.LogFile != ""
	lc.FilePath = cfg.LogFile

	if cfg.MaxLogSizeMB > 0 {
		lc.MaxSizeMB = cfg.MaxLogSizeMB
	}
	if cfg.MaxLogBackups > 0 {
		lc.MaxBackups = cfg.MaxLogBackups
	}
	return lc
}
