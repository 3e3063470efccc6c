package models

import "time"

// SlotNotification is one message to an owner about slots of a tracked resource.
type SlotNotification struct {
	OwnerID    int64
	ResourceID int64
	Label      string
	URL        string
	Slots      []Slot
	// Retry is set when the slots were detected earlier but never confirmed as sent.
	Retry bool
}

// SlotChangeEvent is the machine-readable form of a detection, published for
// downstream consumers.
type SlotChangeEvent struct {
	SweepID    string    `json:"sweep_id"`
	OwnerID    int64     `json:"owner_id"`
	ResourceID int64     `json:"resource_id"`
	URL        string    `json:"url"`
	Label      string    `json:"label"`
	Slots      []Slot    `json:"slots"`
	Notified   bool      `json:"notified"`
	DetectedAt time.Time `json:"detected_at"`
}
