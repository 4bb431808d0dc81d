package lifecycle

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tim7en/pm-app-sub001/models"
)

// Metrics contains Prometheus collectors for lifecycle transitions.
// A nil *Metrics records nothing.
type Metrics struct {
	transitions     *prometheus.CounterVec
	cascaded        *prometheus.CounterVec
	cascadeFailures *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
	duration        *prometheus.HistogramVec
}

// NewMetrics registers the lifecycle collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifecycle_transitions_total",
				Help: "Total number of soft delete and restore calls",
			},
			[]string{"entity", "operation", "result"},
		),
		cascaded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifecycle_cascaded_records_total",
				Help: "Total number of dependent records transitioned by cascades",
			},
			[]string{"entity", "operation"},
		),
		cascadeFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifecycle_cascade_failures_total",
				Help: "Total number of cascade branches that failed",
			},
			[]string{"parent", "dependent", "operation"},
		),
		conflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifecycle_version_conflicts_total",
				Help: "Total number of optimistic concurrency conflicts on primary updates",
			},
			[]string{"entity"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lifecycle_transition_duration_seconds",
				Help:    "Duration of soft delete and restore calls including cascades",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"entity", "operation"},
		),
	}
}

func (m *Metrics) observe(t models.EntityType, op operation, result *Result, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case len(result.Failures) > 0:
		outcome = "partial"
	}
	m.transitions.WithLabelValues(string(t), string(op), outcome).Inc()
	m.duration.WithLabelValues(string(t), string(op)).Observe(elapsed.Seconds())
	if result != nil && result.Cascaded > 0 {
		m.cascaded.WithLabelValues(string(t), string(op)).Add(float64(result.Cascaded))
	}
}

func (m *Metrics) cascadeFailure(parent, dependent models.EntityType, op operation) {
	if m == nil {
		return
	}
	m.cascadeFailures.WithLabelValues(string(parent), string(dependent), string(op)).Inc()
}

func (m *Metrics) conflict(t models.EntityType) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(string(t)).Inc()
}
