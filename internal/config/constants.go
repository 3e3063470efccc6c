package config

const (
	// Log Defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogFile       = ""
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3

	// Storage Defaults
	DefaultStorageDriver     = "sqlite"
	DefaultStorageSQLitePath = "interview_alarm.db"

	// Scheduler Defaults
	DefaultSchedulerIntervalMinutes = 5

	// Monitor Defaults
	DefaultMonitorResourceDelayMs = 1000
	DefaultMonitorRetryUnnotified = true

	// Browser Defaults
	DefaultBrowserAllowedURLPrefix = "https://needle.co.il/candidate-slots/"
	DefaultBrowserPageTimeoutSecs  = 15
	DefaultBrowserMaxDays          = 10
	DefaultBrowserWindowWidth      = 1920
	DefaultBrowserWindowHeight     = 1080
	DefaultBrowserLocale           = "he-IL"

	// NATS Defaults
	DefaultNATSSubjectPrefix = "slotwatch.slots"

	// Admin API Defaults
	DefaultAdminListenAddr = "127.0.0.1:8089"

	// ConfigPathEnv overrides the config file location.
	ConfigPathEnv = "SLOTWATCH_CONFIG_PATH"
)
