package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/aleister1102/slotwatch/internal/common"
	"github.com/aleister1102/slotwatch/internal/datastore"
	"github.com/aleister1102/slotwatch/internal/fetcher"
	"github.com/aleister1102/slotwatch/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_TrackSeedsSlotsAsNotified(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	f := newFakeFetcher()
	f.set("X", sl("10:00", "11:00"), sl("14:00", "15:00"))

	tracker := NewTracker(store, f, zerolog.Nop())
	resource, slots, err := tracker.Track(ctx, 9, " X ")
	require.NoError(t, err)

	assert.Equal(t, "X", resource.URL)
	assert.Equal(t, "Acme", resource.Label)
	assert.Equal(t, int64(9), resource.OwnerID)
	assert.Len(t, slots, 2)

	stored, err := tracker.Slots(ctx, resource.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, s := range stored {
		assert.True(t, s.Notified)
	}

	// nothing is new right after registration
	n := &fakeNotifier{}
	_, err = NewSweeper(store, f, n, SweeperOptions{RetryUnnotified: true}, zerolog.Nop()).Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n.count())
}

func TestTracker_Duplicate(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	tracker := NewTracker(store, newFakeFetcher(), zerolog.Nop())

	_, _, err := tracker.Track(ctx, 1, "X")
	require.NoError(t, err)
	_, _, err = tracker.Track(ctx, 1, "X")
	assert.ErrorIs(t, err, datastore.ErrAlreadyTracked)

	list, err := tracker.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTracker_FetchFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	f := newFakeFetcher()
	f.fail("X", &fetcher.SourceError{URL: "X", Message: "no button"})
	tracker := NewTracker(store, f, zerolog.Nop())

	_, _, err := tracker.Track(ctx, 1, "X")
	var se *fetcher.SourceError
	assert.ErrorAs(t, err, &se)

	list, err := tracker.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTracker_EmptyURL(t *testing.T) {
	_, _, err := NewTracker(newStore(t), newFakeFetcher(), zerolog.Nop()).Track(context.Background(), 1, " ")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestTracker_Untrack(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	tracker := NewTracker(store, newFakeFetcher(), zerolog.Nop())
	_, _, err := tracker.Track(ctx, 1, "X")
	require.NoError(t, err)

	removed, err := tracker.Untrack(ctx, 1, "X")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = tracker.Untrack(ctx, 1, "X")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestTracker_LabelDefaultsToUnknown(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	f := newFakeFetcher()
	f.results["X"] = &models.FetchResult{Label: ""}

	resource, _, err := NewTracker(store, f, zerolog.Nop()).Track(ctx, 1, "X")
	require.NoError(t, err)
	assert.Equal(t, models.UnknownLabel, resource.Label)
}

type readBackFailingStore struct {
	TrackingStore
}

func (readBackFailingStore) GetTracked(context.Context, int64) (*models.TrackedResource, error) {
	return nil, errors.New("connection reset")
}

func TestTracker_TrackSucceedsWhenReadBackFails(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	f := newFakeFetcher()
	f.set("X", sl("10:00", "11:00"))

	tracker := NewTracker(readBackFailingStore{TrackingStore: store}, f, zerolog.Nop())
	resource, slots, err := tracker.Track(ctx, 5, "X")
	require.NoError(t, err)
	require.NotNil(t, resource)

	assert.NotZero(t, resource.ID)
	assert.Equal(t, int64(5), resource.OwnerID)
	assert.Equal(t, "X", resource.URL)
	assert.Equal(t, "Acme", resource.Label)
	assert.False(t, resource.CreatedAt.IsZero())
	assert.Len(t, slots, 1)

	list, err := tracker.List(ctx, 5)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, resource.ID, list[0].ID)

	stored, err := tracker.Slots(ctx, resource.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Notified)
}
