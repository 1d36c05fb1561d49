// Package metrics provides observability for the interview module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks interview lifecycle outcomes.
type Metrics struct {
	Scheduled        prometheus.Counter
	Outcomes         *prometheus.CounterVec
	Rescheduled      prometheus.Counter
	FeedbackRecorded prometheus.Counter
}

// New creates a Metrics instance with all interview metrics registered.
func New() *Metrics {
	return &Metrics{
		Scheduled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hirelane_interviews_scheduled_total",
			Help: "Total number of interviews scheduled",
		}),
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hirelane_interview_outcomes_total",
			Help: "Total number of interview outcomes, by final status",
		}, []string{"status"}),
		Rescheduled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hirelane_interviews_rescheduled_total",
			Help: "Total number of interview detail updates while scheduled",
		}),
		FeedbackRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hirelane_interview_feedback_recorded_total",
			Help: "Total number of feedback entries recorded on completed interviews",
		}),
	}
}

// IncrementScheduled records a scheduled interview.
func (m *Metrics) IncrementScheduled() {
	m.Scheduled.Inc()
}

// IncrementOutcome records a terminal interview status.
func (m *Metrics) IncrementOutcome(status string) {
	m.Outcomes.WithLabelValues(status).Inc()
}

// IncrementRescheduled records a detail update on a scheduled interview.
func (m *Metrics) IncrementRescheduled() {
	m.Rescheduled.Inc()
}

// IncrementFeedbackRecorded records feedback saved on a completed interview.
func (m *Metrics) IncrementFeedbackRecorded() {
	m.FeedbackRecorded.Inc()
}
