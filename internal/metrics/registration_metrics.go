package metrics

import (
	"github.com/timbale/registration-service/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RegistrationMetrics collects counters for the registration flow
type RegistrationMetrics interface {
	IncRegistration(status string)
	IncEmailFailed()
	IncRowSkipped()
	ObserveRegistrationDuration(seconds float64)
}

type registrationMetrics struct {
	log                  *logger.Logger
	registrations        *prometheus.CounterVec
	emailFailures        prometheus.Counter
	rowsSkipped          prometheus.Counter
	registrationDuration prometheus.Histogram
}

// NewRegistrationMetrics registers the registration metrics
func NewRegistrationMetrics(registry *prometheus.Registry, log *logger.Logger) RegistrationMetrics {
	registrations := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrations_total",
			Help: "The total number of processed registrations by outcome",
		},
		[]string{"status"},
	)

	emailFailures := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "welcome_email_failures_total",
			Help: "The total number of welcome emails that could not be sent",
		},
	)

	rowsSkipped := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "sheet_rows_skipped_total",
			Help: "The total number of spreadsheet rows skipped as malformed",
		},
	)

	registrationDuration := promauto.With(registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "registration_duration_seconds",
			Help:    "Duration of single registration runs",
			Buckets: prometheus.DefBuckets,
		},
	)

	return &registrationMetrics{
		log:                  log,
		registrations:        registrations,
		emailFailures:        emailFailures,
		rowsSkipped:          rowsSkipped,
		registrationDuration: registrationDuration,
	}
}

// IncRegistration increments the outcome counter
func (m *registrationMetrics) IncRegistration(status string) {
	m.registrations.WithLabelValues(status).Inc()
}

// IncEmailFailed increments the failed welcome email counter
func (m *registrationMetrics) IncEmailFailed() {
	m.emailFailures.Inc()
}

// IncRowSkipped increments the malformed row counter
func (m *registrationMetrics) IncRowSkipped() {
	m.rowsSkipped.Inc()
}

// ObserveRegistrationDuration records how long one registration run took
func (m *registrationMetrics) ObserveRegistrationDuration(seconds float64) {
	m.registrationDuration.Observe(seconds)
}
