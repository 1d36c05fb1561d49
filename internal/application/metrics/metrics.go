// Package metrics provides observability for the application module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks application lifecycle outcomes.
type Metrics struct {
	Submitted          prometheus.Counter
	StatusChanges      *prometheus.CounterVec
	Withdrawn          prometheus.Counter
	Deleted            prometheus.Counter
	RejectedSubmits    *prometheus.CounterVec
	DocumentCleanups   *prometheus.CounterVec
	PresignedURLIssued prometheus.Counter
}

// New creates a Metrics instance with all application metrics registered.
func New() *Metrics {
	return &Metrics{
		Submitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hirelane_applications_submitted_total",
			Help: "Total number of applications submitted",
		}),
		StatusChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hirelane_application_status_changes_total",
			Help: "Total number of application status changes, by target status",
		}, []string{"status"}),
		Withdrawn: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hirelane_applications_withdrawn_total",
			Help: "Total number of applications withdrawn by their applicant",
		}),
		Deleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hirelane_applications_deleted_total",
			Help: "Total number of applications soft-deleted",
		}),
		RejectedSubmits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hirelane_application_submissions_rejected_total",
			Help: "Total number of rejected submission attempts, by reason",
		}, []string{"reason"}),
		DocumentCleanups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hirelane_application_document_cleanups_total",
			Help: "Total number of document cleanup attempts on delete, by outcome",
		}, []string{"outcome"}),
		PresignedURLIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hirelane_application_presigned_urls_issued_total",
			Help: "Total number of presigned document URLs issued",
		}),
	}
}

// IncrementSubmitted records a successful submission.
func (m *Metrics) IncrementSubmitted() {
	m.Submitted.Inc()
}

// IncrementStatusChange records a successful status transition.
func (m *Metrics) IncrementStatusChange(status string) {
	m.StatusChanges.WithLabelValues(status).Inc()
}

// IncrementWithdrawn records a withdrawal.
func (m *Metrics) IncrementWithdrawn() {
	m.Withdrawn.Inc()
}

// IncrementDeleted records a soft delete.
func (m *Metrics) IncrementDeleted() {
	m.Deleted.Inc()
}

// IncrementRejectedSubmit records a submission rejected before persistence.
func (m *Metrics) IncrementRejectedSubmit(reason string) {
	m.RejectedSubmits.WithLabelValues(reason).Inc()
}

// IncrementDocumentCleanup records one cleanup attempt outcome.
func (m *Metrics) IncrementDocumentCleanup(outcome string) {
	m.DocumentCleanups.WithLabelValues(outcome).Inc()
}

// IncrementPresignedURL records an issued presigned document URL.
func (m *Metrics) IncrementPresignedURL() {
	m.PresignedURLIssued.Inc()
}
