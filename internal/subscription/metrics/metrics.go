// Package metrics holds the subscription pipeline Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for subscription attempts.
const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Metrics counts the business events of the subscription pipeline.
type Metrics struct {
	SubscriptionsTotal *prometheus.CounterVec
	ConfirmationsTotal *prometheus.CounterVec
	EmailsSentTotal    prometheus.Counter
	EmailFailuresTotal prometheus.Counter
}

// New creates and registers the subscription metrics.
func New() *Metrics {
	return &Metrics{
		SubscriptionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_subscriptions_total",
			Help: "Subscription attempts by outcome",
		}, []string{"outcome"}),
		ConfirmationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_confirmations_total",
			Help: "Confirmation attempts by outcome",
		}, []string{"outcome"}),
		EmailsSentTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inkwell_confirmation_emails_sent_total",
			Help: "Confirmation emails accepted by the delivery provider",
		}),
		EmailFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inkwell_confirmation_email_failures_total",
			Help: "Confirmation emails the delivery provider did not accept",
		}),
	}
}

// RecordSubscription counts one subscription attempt. Nil-safe so tests can
// omit metrics.
func (m *Metrics) RecordSubscription(outcome string) {
	if m == nil {
		return
	}
	m.SubscriptionsTotal.WithLabelValues(outcome).Inc()
}

// RecordConfirmation counts one confirmation attempt.
func (m *Metrics) RecordConfirmation(outcome string) {
	if m == nil {
		return
	}
	m.ConfirmationsTotal.WithLabelValues(outcome).Inc()
}

// RecordEmailSent counts one accepted confirmation email.
func (m *Metrics) RecordEmailSent() {
	if m == nil {
		return
	}
	m.EmailsSentTotal.Inc()
}

// RecordEmailFailure counts one failed confirmation email.
func (m *Metrics) RecordEmailFailure() {
	if m == nil {
		return
	}
	m.EmailFailuresTotal.Inc()
}
