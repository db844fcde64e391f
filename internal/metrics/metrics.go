// Package metrics exposes fleet maintenance state for the node-exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"maintenance-backend/internal/projection"
)

// Recorder owns a private registry so a one-shot run writes only its own series.
type Recorder struct {
	reg *prometheus.Registry

	components       *prometheus.GaugeVec
	upcoming         prometheus.Gauge
	overdue          prometheus.Gauge
	readingsAccepted prometheus.Counter
	readingsRejected prometheus.Counter
	alertsDispatched prometheus.Counter
	lastRun          prometheus.Gauge
}

// New registers every series on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		reg: reg,
		components: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "maint_components",
			Help: "Components by maintenance status",
		}, []string{"status"}),
		upcoming: factory.NewGauge(prometheus.GaugeOpts{
			Name: "maint_upcoming_components",
			Help: "Components due within the upcoming window",
		}),
		overdue: factory.NewGauge(prometheus.GaugeOpts{
			Name: "maint_overdue_components",
			Help: "Components past their next maintenance hour",
		}),
		readingsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "maint_readings_accepted_total",
			Help: "Hour meter readings stored",
		}),
		readingsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "maint_readings_rejected_total",
			Help: "Hour meter readings rejected by validation",
		}),
		alertsDispatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "maint_alerts_dispatched_total",
			Help: "Per-unit maintenance alerts dispatched",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "maint_last_run_timestamp_seconds",
			Help: "Unix time of the last maintctl run that wrote this file",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// ObserveSchedule sets the upcoming and overdue gauges.
func (r *Recorder) ObserveSchedule(s projection.Schedule) {
	r.upcoming.Set(float64(len(s.Upcoming)))
	r.overdue.Set(float64(len(s.Overdue)))
}

// ObserveStatusCounts sets the per-status component gauge.
func (r *Recorder) ObserveStatusCounts(counts map[projection.Status]int) {
	for status, n := range counts {
		r.components.WithLabelValues(string(status)).Set(float64(n))
	}
}

func (r *Recorder) ReadingAccepted() { r.readingsAccepted.Inc() }

func (r *Recorder) ReadingRejected() { r.readingsRejected.Inc() }

func (r *Recorder) AlertsDispatched(n int) { r.alertsDispatched.Add(float64(n)) }

// WriteTextfile atomically writes the registry to path. An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string, now time.Time) error {
	if path == "" {
		return nil
	}
	r.lastRun.Set(float64(now.Unix()))
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
