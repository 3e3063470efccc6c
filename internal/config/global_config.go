package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/aleister1102/slotwatch/internal/common"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// maxConfigFileSize bounds how much of a config file is read.
const maxConfigFileSize = 1 << 20

// GlobalConfig contains all configuration sections for the application
type GlobalConfig struct {
	AdminConfig     AdminConfig     `json:"admin_config,omitempty" yaml:"admin_config,omitempty"`
	BrowserConfig   BrowserConfig   `json:"browser_config,omitempty" yaml:"browser_config,omitempty"`
	LogConfig       LogConfig       `json:"log_config,omitempty" yaml:"log_config,omitempty"`
	MonitorConfig   MonitorConfig   `json:"monitor_config,omitempty" yaml:"monitor_config,omitempty"`
	NATSConfig      NATSConfig      `json:"nats_config,omitempty" yaml:"nats_config,omitempty"`
	SchedulerConfig SchedulerConfig `json:"scheduler_config,omitempty" yaml:"scheduler_config,omitempty"`
	StorageConfig   StorageConfig   `json:"storage_config,omitempty" yaml:"storage_config,omitempty"`
	TelegramConfig  TelegramConfig  `json:"telegram_config,omitempty" yaml:"telegram_config,omitempty"`
}

// NewDefaultGlobalConfig creates a new GlobalConfig with default values
func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		AdminConfig:     NewDefaultAdminConfig(),
		BrowserConfig:   NewDefaultBrowserConfig(),
		LogConfig:       NewDefaultLogConfig(),
		MonitorConfig:   NewDefaultMonitorConfig(),
		NATSConfig:      NewDefaultNATSConfig(),
		SchedulerConfig: NewDefaultSchedulerConfig(),
		StorageConfig:   NewDefaultStorageConfig(),
		TelegramConfig:  NewDefaultTelegramConfig(),
	}
}

// LoadGlobalConfig builds the configuration in three layers: defaults, the config file
// (YAML, or JSON by extension) and finally environment variables, optionally seeded
// from a .env file. An explicitly provided path that does not exist is an error; when
// no file is found at the default locations the defaults are used.
func LoadGlobalConfig(providedPath string, envFile string, logger zerolog.Logger) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	if providedPath != "" && !fileExists(providedPath) {
		return nil, common.NewValidationError("config_file", providedPath, "config file does not exist")
	}

	filePath := GetConfigPath(providedPath)
	if filePath != "" {
		data, err := loadConfigFileContent(filePath)
		if err != nil {
			return nil, common.WrapError(err, "failed to load config file content")
		}
		if err := parseConfigContent(data, filePath, cfg); err != nil {
			return nil, common.WrapError(err, "failed to parse config content")
		}
		logger.Debug().Str("path", filePath).Msg("Configuration file loaded")
	} else {
		logger.Debug().Msg("No configuration file found, using defaults")
	}

	if err := loadDotEnv(envFile, logger); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, common.WrapError(err, "failed to apply environment overrides")
	}

	return cfg, nil
}

// loadDotEnv populates the process environment from a .env file. The default ".env"
// is optional; an explicitly named file must exist.
func loadDotEnv(envFile string, logger zerolog.Logger) error {
	path := envFile
	if path == "" {
		path = ".env"
		if !fileExists(path) {
			return nil
		}
	}

	if err := godotenv.Load(path); err != nil {
		return common.WrapErrorf(err, "failed to load env file '%s'", path)
	}
	logger.Debug().Str("path", path).Msg("Environment file loaded")
	return nil
}

// loadConfigFileContent reads the config file, refusing oversized files
func loadConfigFileContent(filePath string) ([]byte, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxConfigFileSize {
		return nil, common.NewValidationError("config_file", filePath, "config file is too large")
	}
	return os.ReadFile(filePath)
}

// parseConfigContent parses the config content based on file extension
func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	ext := filepath.Ext(filePath)
	if isYAMLFile(ext) {
		return parseYAMLConfig(data, filePath, cfg)
	}
	return parseJSONConfig(data, filePath, cfg)
}

func isYAMLFile(ext string) bool {
	return ext == ".yaml" || ext == ".yml"
}

func parseYAMLConfig(data []byte, filePath string, cfg *GlobalConfig) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal YAML from '%s': %w", filePath, err)
	}
	return nil
}

func parseJSONConfig(data []byte, filePath string, cfg *GlobalConfig) error {
	if err := json.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal JSON from '%s': %w", filePath, err)
	}
	return nil
}
