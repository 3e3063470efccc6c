package config

// AdminConfig defines configuration for the operator HTTP endpoint
type AdminConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled" env:"ADMIN_ENABLED"`
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty" env:"ADMIN_LISTEN_ADDR" validate:"required_if=Enabled true"`
}

// NewDefaultAdminConfig creates default admin configuration
func NewDefaultAdminConfig() AdminConfig {
	return AdminConfig{
		Enabled:    false,
		ListenAddr: DefaultAdminListenAddr,
	}
}
