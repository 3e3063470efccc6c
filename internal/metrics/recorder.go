// Package metrics records sweep and delivery counters. Components take a
// Recorder and default to NoopRecorder, so metrics stay optional.
package metrics

import "time"

// SweepOutcome labels a finished sweep.
type SweepOutcome string

const (
	SweepClean   SweepOutcome = "clean"
	SweepPartial SweepOutcome = "partial"
	SweepAborted SweepOutcome = "aborted"
)

// Recorder is the set of observations made by the sweeper and scheduler.
type Recorder interface {
	ObserveSweepDuration(d time.Duration)
	IncSweep(outcome SweepOutcome)
	IncResourceCheck(result string)
	AddSlotsDetected(n int)
	IncNotification(success bool)
	IncSkippedTick()
	SetTrackedResources(n int)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveSweepDuration(time.Duration) {}
func (NoopRecorder) IncSweep(SweepOutcome)              {}
func (NoopRecorder) IncResourceCheck(string)            {}
func (NoopRecorder) AddSlotsDetected(int)               {}
func (NoopRecorder) IncNotification(bool)               {}
func (NoopRecorder) IncSkippedTick()                    {}
func (NoopRecorder) SetTrackedResources(int)            {}
