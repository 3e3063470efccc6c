package config

import (
	"time"
)

// MonitorConfig defines configuration for the sweep over tracked resources
type MonitorConfig struct {
	// ResourceDelayMs is the pause between two resources of one sweep.
	ResourceDelayMs int `json:"resource_delay_ms" yaml:"resource_delay_ms" env:"RESOURCE_DELAY_MS" validate:"min=0"`
	// RetryUnnotified re-sends slots that were persisted but never marked notified.
	RetryUnnotified bool `json:"retry_unnotified" yaml:"retry_unnotified" env:"RETRY_UNNOTIFIED"`
}

// NewDefaultMonitorConfig creates default monitor configuration
func NewDefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		ResourceDelayMs: DefaultMonitorResourceDelayMs,
		RetryUnnotified: DefaultMonitorRetryUnnotified,
	}
}

// ResourceDelay returns the inter-resource delay as a duration.
func (mc MonitorConfig) ResourceDelay() time.Duration {
	return time.Duration(mc.ResourceDelayMs) * time.Millisecond
}
