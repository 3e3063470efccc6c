package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aleister1102/slotwatch/internal/datastore"
	"github.com/aleister1102/slotwatch/internal/differ"
	"github.com/aleister1102/slotwatch/internal/fetcher"
	"github.com/aleister1102/slotwatch/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher returns a fixed result or error per URL.
type fakeFetcher struct {
	mu      sync.Mutex
	results map[string]*models.FetchResult
	errs    map[string]error
	panics  map[string]bool
	calls   []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		results: map[string]*models.FetchResult{},
		errs:    map[string]error{},
		panics:  map[string]bool{},
	}
}

func (f *fakeFetcher) set(url string, slots ...models.Slot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[url] = &models.FetchResult{Label: "Acme", Slots: slots}
	delete(f.errs, url)
}

func (f *fakeFetcher) fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*models.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if f.panics[url] {
		panic("page exploded")
	}
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if res, ok := f.results[url]; ok {
		copied := *res
		copied.Slots = append([]models.Slot(nil), res.Slots...)
		return &copied, nil
	}
	return &models.FetchResult{Label: "Acme"}, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []models.SlotNotification
	err   error
	delay time.Duration
}

func (n *fakeNotifier) Notify(_ context.Context, notification models.SlotNotification) error {
	if n.delay > 0 {
		time.Sleep(n.delay)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notification)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fakeEvents struct {
	events []models.SlotChangeEvent
	err    error
}

func (e *fakeEvents) PublishSlotChange(_ context.Context, event models.SlotChangeEvent) error {
	e.events = append(e.events, event)
	return e.err
}

// failingStore wraps a real store and fails selected operations.
type failingStore struct {
	SweepStore
	listErr     error
	classifyFor map[int64]error
	markErr     error
}

func (s *failingStore) ListAll(ctx context.Context) ([]models.TrackedResource, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.SweepStore.ListAll(ctx)
}

func (s *failingStore) Classify(ctx context.Context, id int64, fetched []models.Slot) (differ.Result, error) {
	if err := s.classifyFor[id]; err != nil {
		return differ.Result{}, err
	}
	return s.SweepStore.Classify(ctx, id, fetched)
}

func (s *failingStore) MarkNotified(ctx context.Context, id int64, starts []string) error {
	if s.markErr != nil {
		return s.markErr
	}
	return s.SweepStore.MarkNotified(ctx, id, starts)
}

func newStore(t *testing.T) *datastore.SQLStore {
	t.Helper()
	store, err := datastore.NewSQLStore("sqlite", ":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sl(start, end string) models.Slot {
	return models.Slot{StartTime: start, EndTime: end}
}

func pairsOf(slots []models.Slot) []models.SlotPair {
	out := make([]models.SlotPair, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Pair())
	}
	return out
}

func addResource(t *testing.T, store *datastore.SQLStore, owner int64, url string, seed ...models.Slot) int64 {
	t.Helper()
	id, err := store.AddTracked(context.Background(), owner, url, "Acme")
	require.NoError(t, err)
	if len(seed) > 0 {
		_, err = store.UpsertSlots(context.Background(), id, seed, true)
		require.NoError(t, err)
	}
	return id
}

func TestSweep_RegistrationThenChangedEndTime(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	f := newFakeFetcher()
	n := &fakeNotifier{}

	id := addResource(t, store, 7, "X", sl("10:00", "11:00"), sl("14:00", "15:00"))
	f.set("X", sl("10:00", "11:30"), sl("14:00", "15:00"))

	diff, err := store.DiffNew(ctx, id, []models.Slot{sl("10:00", "11:30"), sl("14:00", "15:00")})
	require.NoError(t, err)
	assert.Equal(t, []models.SlotPair{{StartTime: "10:00", EndTime: "11:30"}}, pairsOf(diff))

	sweeper := NewSweeper(store, f, n, SweeperOptions{RetryUnnotified: true}, zerolog.Nop())
	report, err := sweeper.Sweep(ctx)
	require.NoError(t, err)

	require.Len(t, n.sent, 1)
	assert.Equal(t, int64(7), n.sent[0].OwnerID)
	assert.Equal(t, "X", n.sent[0].URL)
	assert.Equal(t, []models.SlotPair{{StartTime: "10:00", EndTime: "11:30"}}, pairsOf(n.sent[0].Slots))
	assert.False(t, n.sent[0].Retry)
	assert.Equal(t, 1, report.NewSlots())
	assert.NotEmpty(t, report.SweepID)

	stored, err := store.ListSlots(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []models.SlotPair{
		{StartTime: "10:00", EndTime: "11:30"},
		{StartTime: "14:00", EndTime: "15:00"},
	}, pairsOf(stored))
	for _, s := range stored {
		assert.True(t, s.Notified, s.StartTime)
	}

	again, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.NewSlots())
	assert.Equal(t, 1, n.count())
	assert.Equal(t, models.OutcomeUnchanged, again.Resources[0].Outcome)
}

func TestSweep_SourceErrorDoesNotStopLaterResources(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	f := newFakeFetcher()
	n := &fakeNotifier{}

	idA := addResource(t, store, 1, "A", sl("09:00", "10:00"))
	idB := addResource(t, store, 2, "B")
	f.fail("A", &fetcher.SourceError{URL: "A", Message: "navigation failed"})
	f.set("B", sl("12:00", "13:00"))

	report, err := NewSweeper(store, f, n, SweeperOptions{}, zerolog.Nop()).Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, f.calls)
	require.Len(t, report.Resources, 2)
	assert.Equal(t, models.OutcomeSourceError, report.Resources[0].Outcome)
	assert.Equal(t, models.OutcomeNotified, report.Resources[1].Outcome)

	require.Len(t, n.sent, 1)
	assert.Equal(t, int64(2), n.sent[0].OwnerID)

	storedA, err := store.ListSlots(ctx, idA)
	require.NoError(t, err)
	assert.Equal(t, []models.SlotPair{{StartTime: "09:00", EndTime: "10:00"}}, pairsOf(storedA))

	storedB, err := store.ListSlots(ctx, idB)
	require.NoError(t, err)
	require.Len(t, storedB, 1)
	assert.True(t, storedB[0].Notified)
}

func TestSweep_PanicAndStoreErrorAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	f := newFakeFetcher()
	n := &fakeNotifier{}

	idA := addResource(t, store, 1, "A")
	idB := addResource(t, store, 1, "B")
	addResource(t, store, 1, "C")
	f.panics["A"] = true
	f.set("B", sl("1", "2"))
	f.set("C", sl("3", "4"))

	wrapped := &failingStore{SweepStore: store, classifyFor: map[int64]error{idB: &datastore.StoreError{Op: "list slots", Err: errors.New("disk gone")}}}
	report, err := NewSweeper(wrapped, f, n, SweeperOptions{}, zerolog.Nop()).Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomePanic, report.Resources[0].Outcome)
	assert.Equal(t, idA, report.Resources[0].ResourceID)
	assert.Equal(t, models.OutcomeStoreError, report.Resources[1].Outcome)
	assert.Equal(t, models.OutcomeNotified, report.Resources[2].Outcome)
	assert.Equal(t, 1, n.count())
	assert.True(t, report.Failed())
}

func TestSweep_NotificationFailureLeavesSlotsUnmarked(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	f := newFakeFetcher()
	n := &fakeNotifier{err: errors.New("telegram down")}

	id := addResource(t, store, 1, "A")
	f.set("A", sl("10:00", "11:00"))

	report, err := NewSweeper(store, f, n, SweeperOptions{RetryUnnotified: false}, zerolog.Nop()).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNotifyFailed, report.Resources[0].Outcome)

	stored, err := store.ListSlots(ctx, id)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.False(t, stored[0].Notified)

	// without retry the pending slot is not sent again
	n.err = nil
	report, err = NewSweeper(store, f, n, SweeperOptions{RetryUnnotified: false}, zerolog.Nop()).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUnchanged, report.Resources[0].Outcome)
	assert.Zero(t, n.count())
}

func TestSweep_RetryUnnotifiedResendsAndMarks(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	f := newFakeFetcher()
	n := &fakeNotifier{err: errors.New("telegram down")}
	sweeper := NewSweeper(store, f, n, SweeperOptions{RetryUnnotified: true}, zerolog.Nop())

	id := addResource(t, store, 1, "A")
	f.set("A", sl("10:00", "11:00"))

	_, err := sweeper.Sweep(ctx)
	require.NoError(t, err)

	n.err = nil
	report, err := sweeper.Sweep(ctx)
	require.NoError(t, err)

	require.Equal(t, 1, n.count())
	assert.True(t, n.sent[0].Retry)
	assert.Equal(t, models.OutcomeNotified, report.Resources[0].Outcome)
	assert.Equal(t, 1, report.Resources[0].Retried)
	assert.Equal(t, 0, report.Resources[0].NewSlots)

	stored, err := store.ListSlots(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored[0].Notified)

	_, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n.count())
}

func TestSweep_MarkFailureReportsStoreError(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	f := newFakeFetcher()
	n := &fakeNotifier{}

	addResource(t, store, 1, "A")
	f.set("A", sl("10:00", "11:00"))

	wrapped := &failingStore{SweepStore: store, markErr: errors.New("locked")}
	report, err := NewSweeper(wrapped, f, n, SweeperOptions{}, zerolog.Nop()).Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, n.count())
	assert.Equal(t, models.OutcomeStoreError, report.Resources[0].Outcome)
}

func TestSweep_ListFailureAborts(t *testing.T) {
	store := newStore(t)
	wrapped := &failingStore{SweepStore: store, listErr: errors.New("no db")}

	report, err := NewSweeper(wrapped, newFakeFetcher(), &fakeNotifier{}, SweeperOptions{}, zerolog.Nop()).Sweep(context.Background())

	require.Error(t, err)
	require.NotNil(t, report)
	assert.Empty(t, report.Resources)
}

func TestSweep_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	f := newFakeFetcher()
	n := &fakeNotifier{}
	events := &fakeEvents{err: errors.New("nats down")}

	id := addResource(t, store, 3, "A")
	f.set("A", sl("10:00", "11:00"))

	sweeper := NewSweeper(store, f, n, SweeperOptions{}, zerolog.Nop()).WithEventPublisher(events)
	sweeper.newID = func() string { return "sweep-1" }
	report, err := sweeper.Sweep(ctx)
	require.NoError(t, err)

	require.Len(t, events.events, 1)
	assert.Equal(t, "sweep-1", events.events[0].SweepID)
	assert.Equal(t, int64(3), events.events[0].OwnerID)
	assert.Equal(t, id, events.events[0].ResourceID)
	assert.True(t, events.events[0].Notified)
	// a failing publisher does not affect marking
	assert.Equal(t, models.OutcomeNotified, report.Resources[0].Outcome)
}

func TestSweep_DelayBetweenResourcesOnly(t *testing.T) {
	store := newStore(t)
	addResource(t, store, 1, "A")
	addResource(t, store, 1, "B")

	sweeper := NewSweeper(store, newFakeFetcher(), &fakeNotifier{}, SweeperOptions{ResourceDelay: 50 * time.Millisecond}, zerolog.Nop())
	start := time.Now()
	_, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestSweep_CancelledContextSkipsRemaining(t *testing.T) {
	store := newStore(t)
	addResource(t, store, 1, "A")
	addResource(t, store, 1, "B")
	f := newFakeFetcher()

	ctx, cancel := context.WithCancel(context.Background())
	sweeper := NewSweeper(store, f, &fakeNotifier{}, SweeperOptions{ResourceDelay: time.Hour}, zerolog.Nop())

	done := make(chan *models.SweepReport, 1)
	go func() {
		report, _ := sweeper.Sweep(ctx)
		done <- report
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case report := <-done:
		require.Len(t, report.Resources, 2)
		assert.Equal(t, models.OutcomeUnchanged, report.Resources[0].Outcome)
		assert.Equal(t, models.OutcomeCancelled, report.Resources[1].Outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not stop after cancellation")
	}
}
