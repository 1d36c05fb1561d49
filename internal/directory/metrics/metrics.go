// Package metrics provides observability for the directory module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks profile projection outcomes.
type Metrics struct {
	ProfilesCreated     *prometheus.CounterVec
	ProfilesVerified    prometheus.Counter
	ProfilesDeactivated prometheus.Counter
}

// New creates a Metrics instance with all directory metrics registered.
func New() *Metrics {
	return &Metrics{
		ProfilesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hirelane_profiles_created_total",
			Help: "Total number of profiles created, by kind",
		}, []string{"kind"}),
		ProfilesVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hirelane_profiles_email_verified_total",
			Help: "Total number of profiles marked email-verified",
		}),
		ProfilesDeactivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hirelane_profiles_deactivated_total",
			Help: "Total number of profiles deactivated",
		}),
	}
}

// IncrementCreated records a successful profile creation.
func (m *Metrics) IncrementCreated(kind string) {
	m.ProfilesCreated.WithLabelValues(kind).Inc()
}

// IncrementVerified records an email verification.
func (m *Metrics) IncrementVerified() {
	m.ProfilesVerified.Inc()
}

// IncrementDeactivated records a profile deactivation.
func (m *Metrics) IncrementDeactivated() {
	m.ProfilesDeactivated.Inc()
}
