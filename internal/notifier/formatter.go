package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/aleister1102/slotwatch/internal/models"
)

const (
	maxNotificationSlots = 10
	maxSummarySlots      = 20
	maxDisplayURLLength  = 50
)

// Formatter renders the plain-text messages sent to owners.
type Formatter struct {
	// IntervalMinutes is quoted in the welcome text.
	IntervalMinutes int
}

// NewFormatter creates a formatter for the given polling interval.
func NewFormatter(intervalMinutes int) *Formatter {
	return &Formatter{IntervalMinutes: intervalMinutes}
}

// Welcome is the reply to /start and /help.
func (f *Formatter) Welcome() string {
	return fmt.Sprintf(`Welcome to slotwatch!

I track interview scheduling pages and tell you when new time slots become available.

Commands:
/start - Show this help message
/add <url> - Start tracking a needle.co.il interview page
/list - Show all your tracked URLs
/remove <url> - Stop tracking a URL

How it works:
1. Send me an interview scheduling URL using /add
2. I'll show you the available time slots
3. I'll check every %d minutes for new slots
4. You'll get notified as soon as new slots appear

Example:
/add https://needle.co.il/candidate-slots/1d22a516-a3a5-4f9a-a2c2-896eddea945e`, f.IntervalMinutes)
}

// NewSlotsMessage announces new or changed slots. It returns "" for no slots.
func (f *Formatter) NewSlotsMessage(label, url string, slots []models.Slot) string {
	if len(slots) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("NEW TIME SLOTS AVAILABLE!\n\n")
	fmt.Fprintf(&b, "Company: %s\n\n", displayLabel(label))
	fmt.Fprintf(&b, "New slots (%d):\n", len(slots))
	writeSlotLines(&b, slots, maxNotificationSlots, "new slots")
	fmt.Fprintf(&b, "\nBook now: %s", url)
	return b.String()
}

// SlotSummary lists the slots seen when a resource is first registered.
func (f *Formatter) SlotSummary(label, url string, slots []models.Slot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", displayLabel(label))

	if len(slots) == 0 {
		b.WriteString("No available time slots found.\n\n")
	} else {
		fmt.Fprintf(&b, "Available time slots (%d total):\n", len(slots))
		writeSlotLines(&b, slots, maxSummarySlots, "slots")
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "URL: %s\n\n", url)
	b.WriteString("I'm now monitoring this URL. You'll be notified when new slots appear!")
	return b.String()
}

// TrackedList renders an owner's tracked resources.
func (f *Formatter) TrackedList(resources []models.TrackedResource) string {
	if len(resources) == 0 {
		return "You're not tracking any URLs yet.\n\nUse /add <url> to start tracking an interview page."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You're tracking %d URL(s):\n\n", len(resources))
	for i, r := range resources {
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, r.DisplayLabel(), shortenURL(r.URL))
	}
	b.WriteString("\nUse /remove <url> to stop tracking a URL.")
	return b.String()
}

// Removed confirms an /remove.
func (f *Formatter) Removed(url string) string {
	return "Stopped tracking " + url
}

// Error formats a failure shown to the user.
func (f *Formatter) Error(message string) string {
	return "Error: " + message
}

func writeSlotLines(b *strings.Builder, slots []models.Slot, limit int, noun string) {
	shown := slots
	if len(shown) > limit {
		shown = shown[:limit]
	}
	for _, s := range shown {
		fmt.Fprintf(b, "  %s\n", FormatSlot(s))
	}
	if len(slots) > limit {
		fmt.Fprintf(b, "  ... and %d more %s\n", len(slots)-limit, noun)
	}
}

// FormatSlot renders "2026-01-02 | 10:00 - 11:00" when both ends are RFC 3339
// timestamps and "start - end" otherwise.
func FormatSlot(s models.Slot) string {
	start, errStart := parseTimestamp(s.StartTime)
	end, errEnd := parseTimestamp(s.EndTime)
	if errStart == nil && errEnd == nil {
		return fmt.Sprintf("%s | %s - %s", start.Format("2006-01-02"), start.Format("15:04"), end.Format("15:04"))
	}
	if s.StartTime == s.EndTime {
		return s.StartTime
	}
	return s.StartTime + " - " + s.EndTime
}

func parseTimestamp(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", v)
}

func displayLabel(label string) string {
	if strings.TrimSpace(label) == "" {
		return models.UnknownLabel
	}
	return label
}

func shortenURL(url string) string {
	if len(url) > maxDisplayURLLength {
		return url[:maxDisplayURLLength] + "..."
	}
	return url
}
