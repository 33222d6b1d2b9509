// ABOUTME: Prometheus collectors for feed refresh outcomes, attempts, and durations
// ABOUTME: Registered on a caller-supplied registry; a nil *Metrics records nothing

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the refresh collectors. A nil *Metrics records nothing.
type Metrics struct {
	// RefreshTotal counts finished refresh runs by outcome.
	RefreshTotal *prometheus.CounterVec

	// RefreshAttempts counts individual fetch attempts.
	RefreshAttempts prometheus.Counter

	// RefreshDuration measures whole runs, retries included.
	RefreshDuration prometheus.Histogram
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedsync",
				Name:      "refresh_total",
				Help:      "Total number of feed refresh runs",
			},
			[]string{"outcome"},
		),
		RefreshAttempts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "feedsync",
				Name:      "refresh_attempts_total",
				Help:      "Total number of feed fetch attempts",
			},
		),
		RefreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "feedsync",
				Name:      "refresh_duration_seconds",
				Help:      "Duration of feed refresh runs in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
	}
}

// RecordAttempt records one fetch attempt.
func (m *Metrics) RecordAttempt() {
	if m == nil {
		return
	}
	m.RefreshAttempts.Inc()
}

// RecordRefresh records a finished run.
func (m *Metrics) RecordRefresh(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(outcome).Inc()
	m.RefreshDuration.Observe(duration.Seconds())
}
