package models

import "time"

// ResourceOutcome classifies how a single resource fared within a sweep.
type ResourceOutcome string

const (
	OutcomeUnchanged    ResourceOutcome = "unchanged"
	OutcomeNotified     ResourceOutcome = "notified"
	OutcomeNotifyFailed ResourceOutcome = "notify_failed"
	OutcomeSourceError  ResourceOutcome = "source_error"
	OutcomeStoreError   ResourceOutcome = "store_error"
	OutcomePanic        ResourceOutcome = "panic"
	OutcomeCancelled    ResourceOutcome = "cancelled"
)

// ResourceResult records the outcome for one resource of a sweep.
type ResourceResult struct {
	ResourceID int64           `json:"resource_id"`
	OwnerID    int64           `json:"owner_id"`
	URL        string          `json:"url"`
	Outcome    ResourceOutcome `json:"outcome"`
	NewSlots   int             `json:"new_slots"`
	Retried    int             `json:"retried"`
	Error      string          `json:"error,omitempty"`
}

// SweepReport summarises one pass over all tracked resources.
type SweepReport struct {
	SweepID    string           `json:"sweep_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Resources  []ResourceResult `json:"resources"`
}

// Duration returns how long the sweep took.
func (r *SweepReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Count returns the number of resources with the given outcome.
func (r *SweepReport) Count(outcome ResourceOutcome) int {
	n := 0
	for _, res := range r.Resources {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// NewSlots returns the total number of new or changed slots across the sweep.
func (r *SweepReport) NewSlots() int {
	n := 0
	for _, res := range r.Resources {
		n += res.NewSlots
	}
	return n
}

// Failed reports whether any resource ended in an error outcome.
func (r *SweepReport) Failed() bool {
	for _, res := range r.Resources {
		switch res.Outcome {
		case OutcomeSourceError, OutcomeStoreError, OutcomePanic, OutcomeNotifyFailed:
			return true
		}
	}
	return false
}
