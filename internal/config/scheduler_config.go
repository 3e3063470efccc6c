package config

import "time"

// SchedulerConfig defines configuration for the sweep scheduler
type SchedulerConfig struct {
	IntervalMinutes int  `json:"interval_minutes,omitempty" yaml:"interval_minutes,omitempty" env:"CHECK_INTERVAL_MINUTES" validate:"min=1"`
	RunOnStart      bool `json:"run_on_start" yaml:"run_on_start" env:"RUN_ON_START"`
}

// NewDefaultSchedulerConfig creates default scheduler configuration
func NewDefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		IntervalMinutes: DefaultSchedulerIntervalMinutes,
		RunOnStart:      false,
	}
}

// Interval returns the configured interval as a duration.
func (sc SchedulerConfig) Interval() time.Duration {
	return time.Duration(sc.IntervalMinutes) * time.Minute
}
