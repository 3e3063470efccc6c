package monitor

import (
	"context"

	"github.com/aleister1102/slotwatch/internal/differ"
	"github.com/aleister1102/slotwatch/internal/models"
)

// Fetcher reads the current slots of a resource. Failures the source is
// responsible for come back as *fetcher.SourceError.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*models.FetchResult, error)
}

// Notifier delivers a slot notification to its owner.
type Notifier interface {
	Notify(ctx context.Context, n models.SlotNotification) error
}

// EventPublisher fans detections out to other systems. Optional.
type EventPublisher interface {
	PublishSlotChange(ctx context.Context, event models.SlotChangeEvent) error
}

// SweepStore is the persistence a sweep needs.
type SweepStore interface {
	ListAll(ctx context.Context) ([]models.TrackedResource, error)
	Classify(ctx context.Context, resourceID int64, fetched []models.Slot) (differ.Result, error)
	UpsertSlots(ctx context.Context, resourceID int64, slots []models.Slot, notified bool) (int, error)
	MarkNotified(ctx context.Context, resourceID int64, startTimes []string) error
}

// TrackingStore is the persistence the command side needs.
type TrackingStore interface {
	AddTracked(ctx context.Context, ownerID int64, url, label string) (int64, error)
	RemoveTracked(ctx context.Context, ownerID int64, url string) (bool, error)
	ListTracked(ctx context.Context, ownerID int64) ([]models.TrackedResource, error)
	GetTracked(ctx context.Context, id int64) (*models.TrackedResource, error)
	ListSlots(ctx context.Context, resourceID int64) ([]models.Slot, error)
	UpsertSlots(ctx context.Context, resourceID int64, slots []models.Slot, notified bool) (int, error)
}
