package fetcher

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aleister1102/slotwatch/internal/models"
)

const (
	// genericTitle is the site-wide title that says nothing about the company.
	genericTitle = "Needle"

	timeButtonSelector = "button.ant-btn"
	dayCellSelector    = "td.ant-picker-cell:not(.ant-picker-cell-disabled)"
)

// Button captions, matched as substrings.
const (
	changeOrCancelText = "שינוי או ביטול"
	changeDateText     = "שינוי מועד"
)

// Headings that appear on every booked page and never name the company.
var ignoredHeadings = map[string]struct{}{
	"הראיון נקבע בהצלחה":    {},
	"שינוי או ביטול הראיון": {},
}

// timeRangePattern matches "14:30" or "14:30 - 15:15".
var timeRangePattern = regexp.MustCompile(`^(\d{1,2}:\d{2})(?:\s*[-–]\s*(\d{1,2}:\d{2}))?$`)

// extractLabel names the resource: the page title unless blank or generic, else
// the first meaningful h1-h3, else UnknownLabel.
func extractLabel(title, html string) string {
	title = strings.TrimSpace(title)
	if title != "" && title != genericTitle {
		return title
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.UnknownLabel
	}

	label := ""
	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return true
		}
		if _, skip := ignoredHeadings[text]; skip {
			return true
		}
		label = text
		return false
	})
	if label == "" {
		return models.UnknownLabel
	}
	return label
}

// parseDaySlots reads the time buttons of the currently selected day. The day
// string prefixes each time so slots of different days never share a start.
func parseDaySlots(html, day string) ([]models.Slot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	day = strings.TrimSpace(day)
	var slots []models.Slot
	doc.Find(timeButtonSelector).Each(func(_ int, s *goquery.Selection) {
		m := timeRangePattern.FindStringSubmatch(strings.TrimSpace(s.Text()))
		if m == nil {
			return
		}
		start, end := m[1], m[2]
		if end == "" {
			end = start
		}
		slots = append(slots, models.Slot{
			StartTime: joinDay(day, start),
			EndTime:   joinDay(day, end),
		})
	})
	return slots, nil
}

func joinDay(day, clock string) string {
	if day == "" {
		return clock
	}
	return day + " " + clock
}

// dedupeByStart keeps the first slot seen for each start time.
func dedupeByStart(slots []models.Slot) []models.Slot {
	seen := make(map[string]struct{}, len(slots))
	out := make([]models.Slot, 0, len(slots))
	for _, s := range slots {
		if _, ok := seen[s.StartTime]; ok {
			continue
		}
		seen[s.StartTime] = struct{}{}
		out = append(out, s)
	}
	return out
}
