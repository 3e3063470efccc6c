package config

import "time"

// BrowserConfig defines configuration for the headless browser used to read slot pages
type BrowserConfig struct {
	AllowedURLPrefix string `json:"allowed_url_prefix,omitempty" yaml:"allowed_url_prefix,omitempty" env:"ALLOWED_URL_PREFIX" validate:"required"`
	ChromePath       string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty" env:"CHROME_PATH"`
	Headless         bool   `json:"headless" yaml:"headless" env:"BROWSER_HEADLESS"`
	Locale           string `json:"locale,omitempty" yaml:"locale,omitempty"`
	MaxDays          int    `json:"max_days,omitempty" yaml:"max_days,omitempty" validate:"min=1"`
	PageTimeoutSecs  int    `json:"page_timeout_secs,omitempty" yaml:"page_timeout_secs,omitempty" validate:"min=1"`
	UserDataDir      string `json:"user_data_dir,omitempty" yaml:"user_data_dir,omitempty"`
	WindowHeight     int    `json:"window_height,omitempty" yaml:"window_height,omitempty" validate:"min=1"`
	WindowWidth      int    `json:"window_width,omitempty" yaml:"window_width,omitempty" validate:"min=1"`
}

// NewDefaultBrowserConfig creates default browser configuration
func NewDefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		AllowedURLPrefix: DefaultBrowserAllowedURLPrefix,
		Headless:         true,
		Locale:           DefaultBrowserLocale,
		MaxDays:          DefaultBrowserMaxDays,
		PageTimeoutSecs:  DefaultBrowserPageTimeoutSecs,
		WindowHeight:     DefaultBrowserWindowHeight,
		WindowWidth:      DefaultBrowserWindowWidth,
	}
}

// PageTimeout returns the per-page timeout as a duration.
func (bc BrowserConfig) PageTimeout() time.Duration {
	return time.Duration(bc.PageTimeoutSecs) * time.Second
}
