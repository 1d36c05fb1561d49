// Package metrics provides observability for the reconciliation consumer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks event processing outcomes. Failures count handler attempts,
// not messages; one poison message fails once per delivery attempt.
type Metrics struct {
	EventsProcessed *prometheus.CounterVec
	EventsDuplicate *prometheus.CounterVec
	EventsFailed    *prometheus.CounterVec
	EventsParked    prometheus.Counter
	HandleDuration  *prometheus.HistogramVec
}

// New creates a Metrics instance with all reconciliation metrics registered.
func New() *Metrics {
	return &Metrics{
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hirelane_reconcile_events_processed_total",
			Help: "Identity events applied and recorded in the ledger, by kind",
		}, []string{"kind"}),
		EventsDuplicate: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hirelane_reconcile_events_duplicate_total",
			Help: "Identity events skipped because the ledger already had them, by kind",
		}, []string{"kind"}),
		EventsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hirelane_reconcile_events_failed_total",
			Help: "Identity event handling failures, by kind",
		}, []string{"kind"}),
		EventsParked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hirelane_reconcile_events_parked_total",
			Help: "Identity events parked on the dead-letter topic",
		}),
		HandleDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hirelane_reconcile_handle_duration_seconds",
			Help:    "Duration of identity event handling, by kind",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"kind"}),
	}
}

// IncrementProcessed records a successfully applied event.
func (m *Metrics) IncrementProcessed(kind string) {
	m.EventsProcessed.WithLabelValues(kind).Inc()
}

// IncrementDuplicate records a redelivery detected by the ledger.
func (m *Metrics) IncrementDuplicate(kind string) {
	m.EventsDuplicate.WithLabelValues(kind).Inc()
}

// IncrementFailed records a failed handling attempt.
func (m *Metrics) IncrementFailed(kind string) {
	m.EventsFailed.WithLabelValues(kind).Inc()
}

// IncrementParked records an event parked on the dead-letter topic.
func (m *Metrics) IncrementParked() {
	m.EventsParked.Inc()
}

// ObserveHandle records the duration of one handling attempt.
func (m *Metrics) ObserveHandle(kind string, start time.Time) {
	m.HandleDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
