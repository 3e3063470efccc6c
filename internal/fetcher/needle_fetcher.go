package fetcher

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/aleister1102/slotwatch/internal/config"
	"github.com/aleister1102/slotwatch/internal/models"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

const (
	afterButtonPause  = time.Second
	calendarPause     = 2 * time.Second
	afterDayClickWait = 500 * time.Millisecond
)

// NeedleFetcher reads the rescheduling calendar of a booked Needle interview page.
type NeedleFetcher struct {
	config  config.BrowserConfig
	browser *BrowserManager
	logger  zerolog.Logger
}

// NewNeedleFetcher creates a fetcher using the shared browser manager.
func NewNeedleFetcher(cfg config.BrowserConfig, browser *BrowserManager, logger zerolog.Logger) *NeedleFetcher {
	return &NeedleFetcher{
		config:  cfg,
		browser: browser,
		logger:  logger.With().Str("module", "NeedleFetcher").Logger(),
	}
}

// ValidateURL rejects URLs outside the allowed prefix.
func (f *NeedleFetcher) ValidateURL(url string) error {
	return ValidateURL(f.config.AllowedURLPrefix, url)
}

// ValidateURL reports a SourceError when url does not start with prefix.
func ValidateURL(prefix, url string) error {
	if prefix != "" && !strings.HasPrefix(url, prefix) {
		return sourceErr(url, "invalid URL, expected a link starting with "+prefix, nil)
	}
	return nil
}

// Fetch opens url, walks to the date picker and collects the offered slots.
// Every failure is returned as a *SourceError.
func (f *NeedleFetcher) Fetch(ctx context.Context, url string) (*models.FetchResult, error) {
	if err := f.ValidateURL(url); err != nil {
		return nil, err
	}

	browser, err := f.browser.Browser()
	if err != nil {
		return nil, sourceErr(url, "browser unavailable", err)
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		// A dead browser fails every page; start over next time.
		f.browser.ResetIfDisconnected(browser)
		return nil, sourceErr(url, "failed to open page", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			f.logger.Debug().Err(err).Msg("Failed to close page")
		}
	}()

	timeout := f.config.PageTimeout()
	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, sourceErr(url, "page did not load", err)
	}

	label := f.readLabel(page)

	if err := f.clickButton(ctx, page, changeOrCancelText, timeout); err != nil {
		return nil, sourceErr(url, "could not find the change or cancel button, the page may not be a booked interview", err)
	}
	if err := pause(ctx, afterButtonPause); err != nil {
		return nil, sourceErr(url, "cancelled", err)
	}
	if err := f.clickButton(ctx, page, changeDateText, timeout); err != nil {
		return nil, sourceErr(url, "could not find the change date button", err)
	}
	if err := pause(ctx, calendarPause); err != nil {
		return nil, sourceErr(url, "cancelled", err)
	}

	slots, err := f.collectSlots(ctx, page)
	if err != nil {
		return nil, sourceErr(url, "failed to read calendar", err)
	}

	f.logger.Info().Str("url", url).Str("label", label).Int("slots", len(slots)).Msg("Fetched slots")
	return &models.FetchResult{Label: label, Slots: slots}, nil
}

func (f *NeedleFetcher) readLabel(page *rod.Page) string {
	title := ""
	if info, err := page.Info(); err == nil {
		title = info.Title
	}
	html, err := page.HTML()
	if err != nil {
		html = ""
	}
	return extractLabel(title, html)
}

func (f *NeedleFetcher) clickButton(ctx context.Context, page *rod.Page, text string, timeout time.Duration) error {
	el, err := page.Context(ctx).Timeout(timeout).ElementR("button", regexp.QuoteMeta(text))
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// collectSlots clicks through up to MaxDays enabled calendar days and parses
// each day's time buttons. A day that fails is skipped.
func (f *NeedleFetcher) collectSlots(ctx context.Context, page *rod.Page) ([]models.Slot, error) {
	cells, err := page.Context(ctx).Elements(dayCellSelector)
	if err != nil {
		return nil, err
	}
	f.logger.Debug().Int("days", len(cells)).Msg("Found available calendar days")

	if len(cells) > f.config.MaxDays {
		cells = cells[:f.config.MaxDays]
	}

	var all []models.Slot
	for i, cell := range cells {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		day, err := f.selectDay(ctx, cell)
		if err != nil {
			f.logger.Debug().Err(err).Int("day_index", i).Msg("Failed to select calendar day")
			continue
		}

		html, err := page.HTML()
		if err != nil {
			f.logger.Debug().Err(err).Int("day_index", i).Msg("Failed to read page HTML")
			continue
		}
		daySlots, err := parseDaySlots(html, day)
		if err != nil {
			f.logger.Debug().Err(err).Int("day_index", i).Msg("Failed to parse day slots")
			continue
		}
		f.logger.Debug().Str("day", day).Int("slots", len(daySlots)).Msg("Parsed calendar day")
		all = append(all, daySlots...)
	}

	return dedupeByStart(all), nil
}

func (f *NeedleFetcher) selectDay(ctx context.Context, cell *rod.Element) (string, error) {
	if err := cell.ScrollIntoView(); err != nil {
		return "", err
	}
	if err := cell.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", err
	}
	if err := pause(ctx, afterDayClickWait); err != nil {
		return "", err
	}

	if title, err := cell.Attribute("title"); err == nil && title != nil && *title != "" {
		return *title, nil
	}
	return cell.Text()
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
