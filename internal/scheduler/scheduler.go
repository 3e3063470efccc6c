package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aleister1102/slotwatch/internal/config"
	"github.com/aleister1102/slotwatch/internal/metrics"
	"github.com/aleister1102/slotwatch/internal/models"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

const sweepJobName = "slot-sweep"

// Sweeper runs one pass over all tracked resources.
type Sweeper interface {
	Sweep(ctx context.Context) (*models.SweepReport, error)
}

// Scheduler runs sweeps on a fixed interval. It moves between stopped and
// running; at most one sweep runs at a time, whether started by a tick or by
// RunNow.
type Scheduler struct {
	cron       gocron.Scheduler
	sweeper    Sweeper
	interval   time.Duration
	runOnStart bool
	recorder   metrics.Recorder
	logger     zerolog.Logger

	mu          sync.Mutex
	job         gocron.Job
	accepting   bool
	closed      bool
	cronStarted bool
	cancels     []context.CancelFunc
	wg          sync.WaitGroup

	sweeping atomic.Bool
}

// NewScheduler creates a stopped scheduler from the scheduler configuration.
func NewScheduler(cfg config.SchedulerConfig, sweeper Sweeper, logger zerolog.Logger) (*Scheduler, error) {
	if cfg.IntervalMinutes < 1 {
		return nil, ErrInvalidInterval
	}
	return newScheduler(cfg.Interval(), cfg.RunOnStart, sweeper, logger)
}

func newScheduler(interval time.Duration, runOnStart bool, sweeper Sweeper, logger zerolog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, WrapError(err, "failed to create gocron scheduler")
	}
	return &Scheduler{
		cron:       cron,
		sweeper:    sweeper,
		interval:   interval,
		runOnStart: runOnStart,
		recorder:   metrics.NoopRecorder{},
		logger:     logger.With().Str("module", "Scheduler").Logger(),
	}, nil
}

// WithRecorder sets the metrics recorder used for skipped ticks.
func (s *Scheduler) WithRecorder(r metrics.Recorder) *Scheduler {
	if r != nil {
		s.recorder = r
	}
	return s
}

// Start arms the periodic sweep. Sweeps started by ticks run with a context
// derived from ctx, which Close cancels. Calling Start while running replaces
// the job; a sweep already in flight keeps its context and runs to completion.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStopped
	}

	if s.job != nil {
		if err := s.cron.RemoveJob(s.job.ID()); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to remove previous sweep job")
		}
		s.job = nil
	}

	runCtx, cancel := context.WithCancel(ctx)

	opts := []gocron.JobOption{
		gocron.WithName(sweepJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if s.runOnStart {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	job, err := s.cron.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.tick, runCtx),
		opts...,
	)
	if err != nil {
		cancel()
		return WrapError(err, "failed to create sweep job")
	}
	s.cancels = append(s.cancels, cancel)
	s.job = job
	s.accepting = true

	if !s.cronStarted {
		s.cron.Start()
		s.cronStarted = true
	}

	s.logger.Info().Dur("interval", s.interval).Bool("run_on_start", s.runOnStart).Msg("Scheduler started")
	return nil
}

// Stop disarms the periodic sweep. No sweep begins after Stop returns, whether
// from a tick, RunNow or Trigger; one already running is left to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	s.accepting = false
	if s.job != nil {
		if err := s.cron.RemoveJob(s.job.ID()); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to remove sweep job")
		}
		s.job = nil
		s.logger.Info().Msg("Scheduler stopped")
	}
}

// Running reports whether the periodic sweep is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepting
}

// Sweeping reports whether a sweep is in flight.
func (s *Scheduler) Sweeping() bool {
	return s.sweeping.Load()
}

// RunNow runs one sweep synchronously, outside the timer. It needs a running
// scheduler and returns ErrStopped otherwise.
func (s *Scheduler) RunNow(ctx context.Context) (*models.SweepReport, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.finish()

	s.logger.Info().Msg("Manual sweep requested")
	return s.sweeper.Sweep(ctx)
}

// Trigger starts one sweep in the background and returns immediately. Like
// RunNow it is refused once the scheduler is stopped.
func (s *Scheduler) Trigger(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}

	s.logger.Info().Msg("Background sweep requested")
	go func() {
		defer s.finish()
		if _, err := s.sweeper.Sweep(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Background sweep failed")
		}
	}()
	return nil
}

// Close stops the scheduler, cancels tick-started sweeps and waits for any
// sweep in flight before shutting gocron down.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.stopLocked()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	s.mu.Unlock()

	s.wg.Wait()
	if err := s.cron.Shutdown(); err != nil {
		return WrapError(err, "failed to shut down gocron scheduler")
	}
	return nil
}

// begin claims the single sweep slot. The accepting check and wg.Add happen
// under mu so that Stop and Close observe every sweep that was let in.
func (s *Scheduler) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.accepting {
		return ErrStopped
	}
	if !s.sweeping.CompareAndSwap(false, true) {
		return ErrSweepInProgress
	}
	s.wg.Add(1)
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	switch err := s.begin(); {
	case errors.Is(err, ErrSweepInProgress):
		s.recorder.IncSkippedTick()
		s.logger.Warn().Msg("Previous sweep still running, skipping tick")
		return
	case err != nil:
		return
	}

	defer s.finish()
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Scheduled sweep failed")
	}
}

func (s *Scheduler) finish() {
	s.sweeping.Store(false)
	s.wg.Done()
}
