package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records settlement attempts and confirmation outcomes.
type SettlementMetrics struct {
	attempts     *prometheus.CounterVec
	polls        *prometheus.CounterVec
	confirmation *prometheus.HistogramVec
}

// NewSettlementMetrics registers the settlement metrics on the provided
// registerer. A nil registerer yields a no-op instance, which keeps tests
// and tooling that do not care about metrics free of a registry.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_attempts_total",
		Help: "Settlement attempts by payment method and outcome.",
	}, []string{"method", "outcome"})
	polls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "confirmation_polls_total",
		Help: "Confirmation poll verifications by result.",
	}, []string{"result"})
	confirmation := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "confirmation_duration_seconds",
		Help:    "Time from settlement start to a terminal payment status.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 240, 480},
	}, []string{"method"})
	reg.MustRegister(attempts, polls, confirmation)
	return &SettlementMetrics{
		attempts:     attempts,
		polls:        polls,
		confirmation: confirmation,
	}
}

// IncAttempt counts a settlement attempt for the given method and outcome.
func (s *SettlementMetrics) IncAttempt(method, outcome string) {
	if s == nil || s.attempts == nil {
		return
	}
	s.attempts.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Inc()
}

// IncPoll counts a single confirmation poll with its result.
func (s *SettlementMetrics) IncPoll(result string) {
	if s == nil || s.polls == nil {
		return
	}
	s.polls.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveConfirmation records how long an attempt took to reach a terminal
// status.
func (s *SettlementMetrics) ObserveConfirmation(method string, duration time.Duration) {
	if s == nil || s.confirmation == nil {
		return
	}
	s.confirmation.WithLabelValues(normalizeLabel(method)).Observe(duration.Seconds())
}
