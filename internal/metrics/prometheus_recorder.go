package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "slotwatch"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	sweepDuration    prom.Histogram
	sweeps           *prom.CounterVec
	resourceChecks   *prom.CounterVec
	slotsDetected    prom.Counter
	notifications    *prom.CounterVec
	skippedTicks     prom.Counter
	trackedResources prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them on reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		sweepDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of a full sweep over tracked resources",
			Buckets:   prom.ExponentialBuckets(0.5, 2, 10),
		}),
		sweeps: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Sweeps by outcome",
		}, []string{"outcome"}),
		resourceChecks: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "resource_checks_total",
			Help:      "Per-resource checks by result",
		}, []string{"result"}),
		slotsDetected: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "slots_detected_total",
			Help:      "New or changed slots detected",
		}),
		notifications: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification attempts by result",
		}, []string{"result"}),
		skippedTicks: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_ticks_total",
			Help:      "Scheduler ticks skipped because a sweep was still running",
		}),
		trackedResources: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_resources",
			Help:      "Tracked resources seen by the last sweep",
		}),
	}
	reg.MustRegister(pr.sweepDuration, pr.sweeps, pr.resourceChecks, pr.slotsDetected, pr.notifications, pr.skippedTicks, pr.trackedResources)
	return pr
}

func (p *PrometheusRecorder) ObserveSweepDuration(d time.Duration) {
	p.sweepDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncSweep(outcome SweepOutcome) {
	p.sweeps.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncResourceCheck(result string) {
	p.resourceChecks.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) AddSlotsDetected(n int) {
	if n > 0 {
		p.slotsDetected.Add(float64(n))
	}
}

func (p *PrometheusRecorder) IncNotification(success bool) {
	res := "failed"
	if success {
		res = "success"
	}
	p.notifications.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) IncSkippedTick() {
	p.skippedTicks.Inc()
}

func (p *PrometheusRecorder) SetTrackedResources(n int) {
	p.trackedResources.Set(float64(n))
}
