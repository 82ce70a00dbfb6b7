package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the auth core. Cache hit/miss
// counters live with the cache implementation itself.
type Metrics struct {
	RegistrationsTotal    prometheus.Counter
	TokenRotationsTotal   prometheus.Counter
	AuthFailuresTotal     *prometheus.CounterVec
	WelcomeEmailsEnqueued prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RegistrationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curricula_registrations_total",
			Help: "Total number of accounts registered",
		}),
		TokenRotationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curricula_token_rotations_total",
			Help: "Total number of successful refresh token rotations",
		}),
		AuthFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "curricula_auth_failures_total",
			Help: "Authentication failures by reason",
		}, []string{"reason"}),
		WelcomeEmailsEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "curricula_welcome_emails_enqueued_total",
			Help: "Welcome email jobs handed to the notification queue",
		}),
	}
}

// IncAuthFailure records one failed authentication attempt. Reasons are a
// small closed set (invalid_credentials, invalid_refresh_token,
// refresh_token_expired, profile_missing).
func (m *Metrics) IncAuthFailure(reason string) {
	if m == nil {
		return
	}
	m.AuthFailuresTotal.WithLabelValues(reason).Inc()
}
