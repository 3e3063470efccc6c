package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aleister1102/slotwatch/internal/fetcher"
	"github.com/aleister1102/slotwatch/internal/metrics"
	"github.com/aleister1102/slotwatch/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SweeperOptions tunes a sweep.
type SweeperOptions struct {
	// ResourceDelay separates two consecutive resources. Zero disables it.
	ResourceDelay time.Duration
	// RetryUnnotified re-sends slots that are stored unchanged but were never
	// marked notified, typically after a failed delivery.
	RetryUnnotified bool
}

// Sweeper runs one pass over all tracked resources: fetch, diff, persist,
// notify, mark. Resources are processed one at a time in listing order and a
// failure in one never stops the others.
//
// Delivery is at least once: slots are written unmarked before the
// notification and marked only after it succeeds. If delivery fails they stay
// stored with notified=false, and with RetryUnnotified set the next sweep that
// fetches them unchanged sends them again.
type Sweeper struct {
	store    SweepStore
	fetcher  Fetcher
	notifier Notifier
	events   EventPublisher
	recorder metrics.Recorder
	opts     SweeperOptions
	logger   zerolog.Logger
	newID    func() string
	now      func() time.Time
}

// NewSweeper creates a sweeper over the given collaborators.
func NewSweeper(store SweepStore, f Fetcher, n Notifier, opts SweeperOptions, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		fetcher:  f,
		notifier: n,
		recorder: metrics.NoopRecorder{},
		opts:     opts,
		logger:   logger.With().Str("module", "Sweeper").Logger(),
		newID:    func() string { return uuid.NewString() },
		now:      time.Now,
	}
}

// WithEventPublisher publishes a SlotChangeEvent for every detection.
func (s *Sweeper) WithEventPublisher(p EventPublisher) *Sweeper {
	s.events = p
	return s
}

// WithRecorder sets the metrics recorder.
func (s *Sweeper) WithRecorder(r metrics.Recorder) *Sweeper {
	if r != nil {
		s.recorder = r
	}
	return s
}

// Sweep processes every tracked resource once. The only error it returns is a
// failure to list the resources; per-resource failures are in the report.
// Cancelling ctx stops the sweep before the next resource.
func (s *Sweeper) Sweep(ctx context.Context) (*models.SweepReport, error) {
	report := &models.SweepReport{
		SweepID:   s.newID(),
		StartedAt: s.now(),
	}
	log := s.logger.With().Str("sweep_id", report.SweepID).Logger()

	resources, err := s.store.ListAll(ctx)
	if err != nil {
		report.FinishedAt = s.now()
		s.recorder.IncSweep(metrics.SweepAborted)
		log.Error().Err(err).Msg("Failed to list tracked resources, sweep aborted")
		return report, fmt.Errorf("list tracked resources: %w", err)
	}
	s.recorder.SetTrackedResources(len(resources))

	if len(resources) == 0 {
		log.Debug().Msg("No tracked resources to check")
	} else {
		log.Info().Int("resources", len(resources)).Msg("Sweep started")
	}

	for i, r := range resources {
		if ctx.Err() != nil {
			report.Resources = append(report.Resources, cancelledResult(r))
			continue
		}

		res := s.checkResource(ctx, log, report.SweepID, r)
		report.Resources = append(report.Resources, res)
		s.recorder.IncResourceCheck(string(res.Outcome))

		if i < len(resources)-1 && s.opts.ResourceDelay > 0 {
			if err := sleepCtx(ctx, s.opts.ResourceDelay); err != nil {
				log.Warn().Msg("Sweep cancelled between resources")
			}
		}
	}

	report.FinishedAt = s.now()
	s.recorder.ObserveSweepDuration(report.Duration())
	outcome := metrics.SweepClean
	if report.Failed() {
		outcome = metrics.SweepPartial
	}
	s.recorder.IncSweep(outcome)

	log.Info().
		Int("resources", len(report.Resources)).
		Int("notified", report.Count(models.OutcomeNotified)).
		Int("new_slots", report.NewSlots()).
		Int("source_errors", report.Count(models.OutcomeSourceError)).
		Int("store_errors", report.Count(models.OutcomeStoreError)).
		Int("notify_failures", report.Count(models.OutcomeNotifyFailed)).
		Dur("duration", report.Duration()).
		Msg("Sweep finished")
	return report, nil
}

// checkResource handles one resource. A panic is contained here and reported
// as that resource's failure.
func (s *Sweeper) checkResource(ctx context.Context, log zerolog.Logger, sweepID string, r models.TrackedResource) (res models.ResourceResult) {
	res = models.ResourceResult{ResourceID: r.ID, OwnerID: r.OwnerID, URL: r.URL}
	log = log.With().Int64("resource_id", r.ID).Int64("owner_id", r.OwnerID).Str("url", r.URL).Logger()

	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("Recovered panic while checking resource")
			res.Outcome = models.OutcomePanic
			res.Error = fmt.Sprint(p)
		}
	}()

	fetched, err := s.fetcher.Fetch(ctx, r.URL)
	if err != nil {
		var srcErr *fetcher.SourceError
		if errors.As(err, &srcErr) {
			log.Warn().Err(err).Msg("Source error, skipping resource")
		} else {
			log.Error().Err(err).Msg("Fetch failed, skipping resource")
		}
		res.Outcome = models.OutcomeSourceError
		res.Error = err.Error()
		return res
	}

	classified, err := s.store.Classify(ctx, r.ID, fetched.Slots)
	if err != nil {
		return storeFailure(log, res, "diff", err)
	}

	toSend := classified.Changed
	if s.opts.RetryUnnotified {
		toSend = append(toSend[:len(toSend):len(toSend)], classified.Pending...)
		res.Retried = len(classified.Pending)
	}
	res.NewSlots = len(classified.Changed)

	if len(toSend) == 0 {
		log.Debug().Msg("No new slots")
		res.Outcome = models.OutcomeUnchanged
		return res
	}

	if len(classified.Changed) > 0 {
		if _, err := s.store.UpsertSlots(ctx, r.ID, classified.Changed, false); err != nil {
			return storeFailure(log, res, "persist", err)
		}
		s.recorder.AddSlotsDetected(len(classified.Changed))
		log.Info().Int("new_slots", len(classified.Changed)).Msg("Found new or changed slots")
	}
	if res.Retried > 0 {
		log.Info().Int("pending_slots", res.Retried).Msg("Retrying unconfirmed notification")
	}

	notifyErr := s.notifier.Notify(ctx, models.SlotNotification{
		OwnerID:    r.OwnerID,
		ResourceID: r.ID,
		Label:      r.DisplayLabel(),
		URL:        r.URL,
		Slots:      toSend,
		Retry:      len(classified.Changed) == 0,
	})
	s.recorder.IncNotification(notifyErr == nil)
	s.publish(ctx, log, sweepID, r, classified.Changed, notifyErr == nil)

	if notifyErr != nil {
		log.Error().Err(notifyErr).Int("slots", len(toSend)).Msg("Notification failed, slots stay unmarked")
		res.Outcome = models.OutcomeNotifyFailed
		res.Error = notifyErr.Error()
		return res
	}

	if err := s.store.MarkNotified(ctx, r.ID, models.StartTimes(toSend)); err != nil {
		return storeFailure(log, res, "mark notified", err)
	}

	res.Outcome = models.OutcomeNotified
	return res
}

func (s *Sweeper) publish(ctx context.Context, log zerolog.Logger, sweepID string, r models.TrackedResource, changed []models.Slot, notified bool) {
	if s.events == nil || len(changed) == 0 {
		return
	}
	event := models.SlotChangeEvent{
		SweepID:    sweepID,
		OwnerID:    r.OwnerID,
		ResourceID: r.ID,
		URL:        r.URL,
		Label:      r.DisplayLabel(),
		Slots:      changed,
		Notified:   notified,
		DetectedAt: s.now(),
	}
	if err := s.events.PublishSlotChange(ctx, event); err != nil {
		log.Warn().Err(err).Msg("Failed to publish slot change event")
	}
}

func storeFailure(log zerolog.Logger, res models.ResourceResult, step string, err error) models.ResourceResult {
	log.Error().Err(err).Str("step", step).Msg("Store error, skipping resource")
	res.Outcome = models.OutcomeStoreError
	res.Error = err.Error()
	return res
}

func cancelledResult(r models.TrackedResource) models.ResourceResult {
	return models.ResourceResult{
		ResourceID: r.ID,
		OwnerID:    r.OwnerID,
		URL:        r.URL,
		Outcome:    models.OutcomeCancelled,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
