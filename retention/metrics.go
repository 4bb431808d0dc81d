package retention

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tim7en/pm-app-sub001/models"
)

// Metrics contains Prometheus collectors for retention sweeps.
// A nil *Metrics records nothing.
type Metrics struct {
	purgedRecords *prometheus.CounterVec
	sweepFailures *prometheus.CounterVec
	sweepDuration prometheus.Histogram
}

// NewMetrics registers the retention collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		purgedRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retention_purged_records_total",
				Help: "Total number of soft-deleted records physically erased",
			},
			[]string{"entity"},
		),
		sweepFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retention_sweep_failures_total",
				Help: "Total number of entity types that failed during a sweep",
			},
			[]string{"entity"},
		),
		sweepDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "retention_sweep_duration_seconds",
				Help:    "Duration of full retention sweeps",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
	}
}

func (m *Metrics) purged(t models.EntityType, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.purgedRecords.WithLabelValues(string(t)).Add(float64(n))
}

func (m *Metrics) failure(t models.EntityType) {
	if m == nil {
		return
	}
	m.sweepFailures.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) sweep(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(elapsed.Seconds())
}
