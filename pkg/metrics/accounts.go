package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Account lifecycle events.
const (
	EventRegister      = "register"
	EventLogin         = "login"
	EventLogout        = "logout"
	EventConfirmEmail  = "confirm_email"
	EventResetRequest  = "password_reset_request"
	EventResetPassword = "password_reset"
	EventChangePass    = "password_change"
	EventProfileUpdate = "profile_update"
)

// Outcomes recorded per event.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// AccountMetrics counts lifecycle events and times outbound mail.
type AccountMetrics struct {
	events   *prometheus.CounterVec
	mailTime *prometheus.HistogramVec
}

// NewAccountMetrics registers the account metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewAccountMetrics(reg prometheus.Registerer) *AccountMetrics {
	if reg == nil {
		return &AccountMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "account_events_total",
		Help: "Account lifecycle events by outcome.",
	}, []string{"event", "outcome"})
	mailTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "account_mail_send_seconds",
		Help:    "Time spent delivering account emails.",
		Buckets: prometheus.DefBuckets,
	}, []string{"template", "outcome"})
	reg.MustRegister(events, mailTime)
	return &AccountMetrics{events: events, mailTime: mailTime}
}

// Inc records one event with the given outcome.
func (m *AccountMetrics) Inc(event, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(event), normalizeLabel(outcome)).Inc()
}

// ObserveMail records how long a template took to send.
func (m *AccountMetrics) ObserveMail(template string, err error, d time.Duration) {
	if m == nil || m.mailTime == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.mailTime.WithLabelValues(normalizeLabel(template), outcome).Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
