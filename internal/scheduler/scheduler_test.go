package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aleister1102/slotwatch/internal/config"
	"github.com/aleister1102/slotwatch/internal/metrics"
	"github.com/aleister1102/slotwatch/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls   atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
	hold    time.Duration
	block   chan struct{}
	started chan struct{}
	once    sync.Once

	cancelled atomic.Int32
}

func (c *countingSweeper) Sweep(ctx context.Context) (*models.SweepReport, error) {
	c.calls.Add(1)
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		seen := c.maxSeen.Load()
		if n <= seen || c.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if c.started != nil {
		c.once.Do(func() { close(c.started) })
	}
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			c.cancelled.Add(1)
		}
	}
	if c.hold > 0 {
		time.Sleep(c.hold)
	}
	return &models.SweepReport{}, nil
}

type skipRecorder struct {
	metrics.NoopRecorder
	skipped atomic.Int32
}

func (r *skipRecorder) IncSkippedTick() { r.skipped.Add(1) }

func newTestScheduler(t *testing.T, interval time.Duration, runOnStart bool, sw Sweeper) *Scheduler {
	t.Helper()
	s, err := newScheduler(interval, runOnStart, sw, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewScheduler_RejectsIntervalBelowOneMinute(t *testing.T) {
	_, err := NewScheduler(config.SchedulerConfig{IntervalMinutes: 0}, &countingSweeper{}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidInterval)

	s, err := NewScheduler(config.SchedulerConfig{IntervalMinutes: 1}, &countingSweeper{}, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, s.Running())
	require.NoError(t, s.Close())
}

func TestScheduler_TicksRepeatedly(t *testing.T) {
	sw := &countingSweeper{}
	s := newTestScheduler(t, 30*time.Millisecond, false, sw)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Running())

	assert.Eventually(t, func() bool { return sw.calls.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_NoSweepBeginsAfterStop(t *testing.T) {
	sw := &countingSweeper{}
	s := newTestScheduler(t, 20*time.Millisecond, false, sw)

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return sw.calls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.Running())
	after := sw.calls.Load()

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, after, sw.calls.Load())
}

func TestScheduler_RestartReplacesJob(t *testing.T) {
	s := newTestScheduler(t, time.Hour, false, &countingSweeper{})

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.cron.Jobs(), 1)

	s.Stop()
	assert.Empty(t, s.cron.Jobs())

	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.cron.Jobs(), 1)
}

func TestScheduler_SweepsNeverOverlap(t *testing.T) {
	sw := &countingSweeper{hold: 60 * time.Millisecond}
	s := newTestScheduler(t, 10*time.Millisecond, true, sw)

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return sw.calls.Load() >= 2 }, 3*time.Second, 10*time.Millisecond)

	_, _ = s.RunNow(context.Background())
	assert.Equal(t, int32(1), sw.maxSeen.Load())
}

func TestScheduler_RunOnStart(t *testing.T) {
	sw := &countingSweeper{}
	s := newTestScheduler(t, time.Hour, true, sw)

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return sw.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_RunNowRefusedWhileSweeping(t *testing.T) {
	sw := &countingSweeper{block: make(chan struct{}), started: make(chan struct{})}
	s := newTestScheduler(t, time.Hour, false, sw)
	require.NoError(t, s.Start(context.Background()))

	require.NoError(t, s.Trigger(context.Background()))
	<-sw.started
	assert.True(t, s.Sweeping())

	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)
	assert.ErrorIs(t, s.Trigger(context.Background()), ErrSweepInProgress)

	close(sw.block)
	assert.Eventually(t, func() bool { return !s.Sweeping() }, time.Second, 5*time.Millisecond)

	report, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, report)
	assert.Equal(t, int32(2), sw.calls.Load())
}

func TestScheduler_TickDuringManualSweepIsSkipped(t *testing.T) {
	sw := &countingSweeper{block: make(chan struct{}), started: make(chan struct{})}
	rec := &skipRecorder{}
	s := newTestScheduler(t, time.Hour, false, sw)
	s.WithRecorder(rec)
	require.NoError(t, s.Start(context.Background()))

	require.NoError(t, s.Trigger(context.Background()))
	<-sw.started

	// Re-arming with run-on-start fires a tick while the manual sweep holds the slot.
	s.runOnStart = true
	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return rec.skipped.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), sw.calls.Load())

	close(sw.block)
}

func TestScheduler_CloseCancelsTickSweep(t *testing.T) {
	sw := &countingSweeper{block: make(chan struct{}), started: make(chan struct{})}
	s, err := newScheduler(time.Hour, true, sw, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	<-sw.started

	done := make(chan error, 1)
	go func() { done <- s.Close() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not return")
	}
	assert.False(t, s.Sweeping())
	assert.Equal(t, int32(1), sw.cancelled.Load())
}

func TestScheduler_ManualSweepRefusedWhenStopped(t *testing.T) {
	sw := &countingSweeper{}
	s := newTestScheduler(t, time.Hour, false, sw)

	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrStopped)

	require.NoError(t, s.Start(context.Background()))
	s.Stop()

	assert.ErrorIs(t, s.Trigger(context.Background()), ErrStopped)
	_, err = s.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrStopped)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), sw.calls.Load())
	assert.False(t, s.Sweeping())
}

func TestScheduler_ManualSweepRefusedAfterClose(t *testing.T) {
	sw := &countingSweeper{}
	s, err := newScheduler(time.Hour, false, sw, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Trigger(context.Background()), ErrStopped)
	assert.ErrorIs(t, s.Start(context.Background()), ErrStopped)
	assert.Equal(t, int32(0), sw.calls.Load())
}

func TestScheduler_RestartKeepsInFlightSweepRunning(t *testing.T) {
	sw := &countingSweeper{block: make(chan struct{}), started: make(chan struct{})}
	s := newTestScheduler(t, time.Hour, true, sw)

	require.NoError(t, s.Start(context.Background()))
	<-sw.started
	require.True(t, s.Sweeping())

	s.Stop()
	s.runOnStart = false
	require.NoError(t, s.Start(context.Background()))

	// Give a cancelled context time to reach the sweep before releasing it.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), sw.cancelled.Load())

	close(sw.block)
	require.Eventually(t, func() bool { return !s.Sweeping() }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), sw.cancelled.Load())
	assert.Equal(t, int32(1), sw.calls.Load())
}
