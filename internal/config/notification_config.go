package config

// TelegramConfig holds the bot credentials used for notifications and commands
type TelegramConfig struct {
	BotToken       string `json:"bot_token,omitempty" yaml:"bot_token,omitempty" env:"TELEGRAM_BOT_TOKEN"`
	EnableCommands bool   `json:"enable_commands" yaml:"enable_commands" env:"TELEGRAM_ENABLE_COMMANDS"`
}

// NewDefaultTelegramConfig creates default telegram configuration
func NewDefaultTelegramConfig() TelegramConfig {
	return TelegramConfig{
		EnableCommands: true,
	}
}

// NATSConfig enables publishing slot change events to NATS
type NATSConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled" env:"NATS_ENABLED"`
	URL           string `json:"url,omitempty" yaml:"url,omitempty" env:"NATS_URL" validate:"required_if=Enabled true"`
	SubjectPrefix string `json:"subject_prefix,omitempty" yaml:"subject_prefix,omitempty" env:"NATS_SUBJECT_PREFIX" validate:"required_if=Enabled true"`
}

// NewDefaultNATSConfig creates default NATS configuration
func NewDefaultNATSConfig() NATSConfig {
	return NATSConfig{
		Enabled:       false,
		SubjectPrefix: DefaultNATSSubjectPrefix,
	}
}
