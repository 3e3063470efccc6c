package models

import "time"

// Slot is a time interval reported by the source. StartTime identifies the slot
// within its resource; EndTime is mutable. Both are opaque strings compared
// only for equality.
type Slot struct {
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	Notified   bool      `json:"notified"`
	DetectedAt time.Time `json:"detected_at,omitempty"`
}

// SlotPair is the full value used for change detection.
type SlotPair struct {
	StartTime string
	EndTime   string
}

// Pair returns the (start, end) value of the slot.
func (s Slot) Pair() SlotPair {
	return SlotPair{StartTime: s.StartTime, EndTime: s.EndTime}
}

// StartTimes collects the start times of the given slots, in order.
func StartTimes(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.StartTime)
	}
	return out
}

// FetchResult is what retrieval reports for one resource.
type FetchResult struct {
	Label string `json:"label"`
	Slots []Slot `json:"slots"`
}
