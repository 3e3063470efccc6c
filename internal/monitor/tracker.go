package monitor

import (
	"context"
	"strings"
	"time"

	"github.com/aleister1102/slotwatch/internal/common"
	"github.com/aleister1102/slotwatch/internal/models"
	"github.com/rs/zerolog"
)

// Tracker is the command-side entry point for registering resources.
type Tracker struct {
	store   TrackingStore
	fetcher Fetcher
	logger  zerolog.Logger
}

// NewTracker creates a tracker.
func NewTracker(store TrackingStore, f Fetcher, logger zerolog.Logger) *Tracker {
	return &Tracker{
		store:   store,
		fetcher: f,
		logger:  logger.With().Str("module", "Tracker").Logger(),
	}
}

// Track fetches url, registers it for owner and seeds the slots seen right now
// as already notified, so only later additions produce notifications.
// Returns datastore.ErrAlreadyTracked for a duplicate and the fetcher's error
// when the page cannot be read; nothing is stored in either case.
func (t *Tracker) Track(ctx context.Context, ownerID int64, url string) (*models.TrackedResource, []models.Slot, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, nil, common.NewValidationError("url", url, "url cannot be empty")
	}

	fetched, err := t.fetcher.Fetch(ctx, url)
	if err != nil {
		t.logger.Warn().Err(err).Int64("owner_id", ownerID).Str("url", url).Msg("Could not fetch page for registration")
		return nil, nil, err
	}

	label := fetched.Label
	if strings.TrimSpace(label) == "" {
		label = models.UnknownLabel
	}

	id, err := t.store.AddTracked(ctx, ownerID, url, label)
	if err != nil {
		return nil, nil, err
	}

	if _, err := t.store.UpsertSlots(ctx, id, fetched.Slots, true); err != nil {
		t.logger.Error().Err(err).Int64("resource_id", id).Msg("Failed to seed initial slots")
		// Unseeded, the next sweep would report every current slot as new.
		if _, rmErr := t.store.RemoveTracked(ctx, ownerID, url); rmErr != nil {
			t.logger.Error().Err(rmErr).Int64("resource_id", id).Msg("Failed to roll back registration")
		}
		return nil, nil, err
	}

	// Registered and seeded; a failed read-back falls back to the known values.
	resource, err := t.store.GetTracked(ctx, id)
	if err != nil {
		t.logger.Warn().Err(err).Int64("resource_id", id).Msg("Failed to read back tracked resource")
		resource = &models.TrackedResource{ID: id, OwnerID: ownerID, URL: url, Label: label, CreatedAt: time.Now().UTC()}
	}

	t.logger.Info().Int64("owner_id", ownerID).Int64("resource_id", id).Str("label", label).Int("slots", len(fetched.Slots)).Msg("Resource tracked")
	return resource, fetched.Slots, nil
}

// Untrack removes url for owner. It reports whether anything was removed.
func (t *Tracker) Untrack(ctx context.Context, ownerID int64, url string) (bool, error) {
	removed, err := t.store.RemoveTracked(ctx, ownerID, strings.TrimSpace(url))
	if err != nil {
		return false, err
	}
	if removed {
		t.logger.Info().Int64("owner_id", ownerID).Str("url", url).Msg("Resource untracked")
	}
	return removed, nil
}

// List returns owner's resources, newest first.
func (t *Tracker) List(ctx context.Context, ownerID int64) ([]models.TrackedResource, error) {
	return t.store.ListTracked(ctx, ownerID)
}

// Slots returns the stored slots of a resource.
func (t *Tracker) Slots(ctx context.Context, resourceID int64) ([]models.Slot, error) {
	return t.store.ListSlots(ctx, resourceID)
}
