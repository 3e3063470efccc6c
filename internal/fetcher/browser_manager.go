package fetcher

import (
	"fmt"
	"sync"
	"time"

	"github.com/aleister1102/slotwatch/internal/config"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// BrowserManager owns one headless browser shared by all fetches. The browser is
// launched on first use and relaunched after it disconnects.
type BrowserManager struct {
	config   config.BrowserConfig
	logger   zerolog.Logger
	mutex    sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewBrowserManager creates a browser manager; nothing is launched yet.
func NewBrowserManager(cfg config.BrowserConfig, logger zerolog.Logger) *BrowserManager {
	return &BrowserManager{
		config: cfg,
		logger: logger.With().Str("module", "BrowserManager").Logger(),
	}
}

// Browser returns the running browser, launching it if needed.
func (bm *BrowserManager) Browser() (*rod.Browser, error) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	if bm.browser != nil {
		return bm.browser, nil
	}

	l := launcher.New().Headless(bm.config.Headless)
	if bm.config.ChromePath != "" {
		l = l.Bin(bm.config.ChromePath)
	}
	if bm.config.UserDataDir != "" {
		l = l.UserDataDir(bm.config.UserDataDir)
	}
	l = l.
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("disable-default-apps").
		Set("window-size", fmt.Sprintf("%d,%d", bm.config.WindowWidth, bm.config.WindowHeight))
	if bm.config.Locale != "" {
		l = l.Set("lang", bm.config.Locale)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect browser: %w", err)
	}

	bm.launcher = l
	bm.browser = browser
	bm.logger.Info().Bool("headless", bm.config.Headless).Msg("Headless browser started")
	return browser, nil
}

// ResetIfDisconnected resets the browser only when failed is still the current
// browser and no longer answers. A page that fails on a healthy browser, or a
// browser another fetch already replaced, leaves the shared browser alone.
// It reports whether a reset happened.
func (bm *BrowserManager) ResetIfDisconnected(failed *rod.Browser) bool {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	if failed == nil || bm.browser != failed {
		return false
	}
	if browserAlive(failed) {
		return false
	}
	bm.logger.Warn().Msg("Headless browser stopped responding, relaunching on next fetch")
	bm.closeLocked()
	return true
}

const aliveTimeout = 5 * time.Second

func browserAlive(b *rod.Browser) bool {
	tb := b.Timeout(aliveTimeout)
	defer tb.CancelTimeout()
	_, err := proto.BrowserGetVersion{}.Call(tb)
	return err == nil
}

// Close shuts the browser down.
func (bm *BrowserManager) Close() {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()
	if bm.browser != nil {
		bm.closeLocked()
		bm.logger.Info().Msg("Headless browser stopped")
	}
}

func (bm *BrowserManager) closeLocked() {
	if bm.browser != nil {
		if err := bm.browser.Close(); err != nil {
			bm.logger.Debug().Err(err).Msg("Browser close returned error")
		}
		bm.browser = nil
	}
	if bm.launcher != nil {
		bm.launcher.Cleanup()
		bm.launcher = nil
	}
}
