// Package metrics records run counters in a Prometheus registry and
// optionally pushes them to a Pushgateway when the run ends.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Namespace prefixes every metric name.
const Namespace = "pinagent"

// Recorder holds the run metrics. It satisfies the agent's Metrics
// interface.
type Recorder struct {
	registry *prometheus.Registry

	PublishedTotal *prometheus.CounterVec
	SkippedTotal   *prometheus.CounterVec
	RunDuration    prometheus.Gauge
	LastRunSuccess prometheus.Gauge
}

// New creates a Recorder on its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		PublishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "published_total",
				Help:      "Pins published, by stream",
			},
			[]string{"stream"},
		),
		SkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "skipped_total",
				Help:      "Candidates skipped, by stream and reason",
			},
			[]string{"stream", "reason"},
		),
		RunDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of the last run",
			},
		),
		LastRunSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "last_run_success_timestamp_seconds",
				Help:      "Unix time the last run finished",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Published counts one published pin.
func (r *Recorder) Published(stream string) {
	r.PublishedTotal.WithLabelValues(stream).Inc()
}

// Skipped counts one skipped candidate.
func (r *Recorder) Skipped(stream, reason string) {
	r.SkippedTotal.WithLabelValues(stream, reason).Inc()
}

// ObserveRun records the run duration and marks the finish time.
func (r *Recorder) ObserveRun(d time.Duration) {
	r.RunDuration.Set(d.Seconds())
	r.LastRunSuccess.SetToCurrentTime()
}

// Push sends the registry to the Pushgateway at url under job. An empty url
// is a no-op.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if job == "" {
		job = Namespace
	}
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
