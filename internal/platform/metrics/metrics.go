package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the marketplace. All methods are
// safe on a nil receiver so tests and optional wiring can skip them.
type Metrics struct {
	EndpointLatency   *prometheus.HistogramVec
	CreditsGranted    *prometheus.CounterVec
	CreditsDebited    prometheus.Counter
	DebitsRejected    prometheus.Counter
	CaseDraws         *prometheus.CounterVec
	CasesSubmitted    prometheus.Counter
	DebateOutcomes    *prometheus.CounterVec
	PaymentSessions   *prometheus.CounterVec
	WebhookEvents     *prometheus.CounterVec
	AdminAuthAttempts *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
}

// New registers the metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metrics on reg; tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ateneo_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route pattern",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method"}),

		CreditsGranted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ateneo_credits_granted_total",
			Help: "Credits added to profiles by reason",
		}, []string{"reason"}), // reason: "registration", "purchase"

		CreditsDebited: f.NewCounter(prometheus.CounterOpts{
			Name: "ateneo_credits_debited_total",
			Help: "Credits consumed by case draws",
		}),

		DebitsRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "ateneo_debits_rejected_total",
			Help: "Debits refused for insufficient credits",
		}),

		CaseDraws: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ateneo_case_draws_total",
			Help: "Case draw attempts by result",
		}, []string{"result"}),

		CasesSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "ateneo_cases_submitted_total",
			Help: "Cases submitted to the pool",
		}),

		DebateOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ateneo_debate_outcomes_total",
			Help: "Scored debates by outcome",
		}, []string{"outcome"}),

		PaymentSessions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ateneo_payment_sessions_total",
			Help: "Checkout sessions created by role",
		}, []string{"role"}),

		WebhookEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ateneo_webhook_events_total",
			Help: "Payment webhook events by type and reconciliation result",
		}, []string{"type", "result"}),

		AdminAuthAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ateneo_admin_auth_attempts_total",
			Help: "Admin bypass attempts by result",
		}, []string{"result"}), // result: "granted", "rejected"

		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ateneo_events_published_total",
			Help: "Domain events handed to the publisher by type and result",
		}, []string{"type", "result"}),
	}
}

func (m *Metrics) ObserveEndpointLatency(route, method string, d time.Duration) {
	if m != nil {
		m.EndpointLatency.WithLabelValues(route, method).Observe(d.Seconds())
	}
}

func (m *Metrics) AddCreditsGranted(reason string, n int) {
	if m != nil {
		m.CreditsGranted.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) AddCreditsDebited(n int) {
	if m != nil {
		m.CreditsDebited.Add(float64(n))
	}
}

func (m *Metrics) IncrementDebitRejected() {
	if m != nil {
		m.DebitsRejected.Inc()
	}
}

func (m *Metrics) IncrementCaseDraw(result string) {
	if m != nil {
		m.CaseDraws.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementCaseSubmitted() {
	if m != nil {
		m.CasesSubmitted.Inc()
	}
}

func (m *Metrics) IncrementDebateOutcome(outcome string) {
	if m != nil {
		m.DebateOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementPaymentSession(role string) {
	if m != nil {
		m.PaymentSessions.WithLabelValues(role).Inc()
	}
}

func (m *Metrics) IncrementWebhookEvent(eventType, result string) {
	if m != nil {
		m.WebhookEvents.WithLabelValues(eventType, result).Inc()
	}
}

func (m *Metrics) IncrementAdminAuth(result string) {
	if m != nil {
		m.AdminAuthAttempts.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementEventPublished(eventType, result string) {
	if m != nil {
		m.EventsPublished.WithLabelValues(eventType, result).Inc()
	}
}
