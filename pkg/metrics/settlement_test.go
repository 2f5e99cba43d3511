package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSettlementMetricsRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSettlementMetrics(reg)

	m.IncAttempt("wallet_upi", "processing")
	m.IncAttempt("wallet_upi", "processing")
	m.IncAttempt("wallet", "completed")
	m.IncPoll("pending")
	m.IncPoll("verified")
	m.ObserveConfirmation("upi", 30*time.Second)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	attempts := findMetricFamily(t, families, "settlement_attempts_total")
	if got := fetchCounterValue(t, attempts, "method", "wallet_upi"); got != 2 {
		t.Fatalf("expected 2 wallet_upi attempts, got %v", got)
	}
	if got := fetchCounterValue(t, attempts, "method", "wallet"); got != 1 {
		t.Fatalf("expected 1 wallet attempt, got %v", got)
	}

	polls := findMetricFamily(t, families, "confirmation_polls_total")
	if got := fetchCounterValue(t, polls, "result", "verified"); got != 1 {
		t.Fatalf("expected 1 verified poll, got %v", got)
	}

	confirmation := findMetricFamily(t, families, "confirmation_duration_seconds")
	if got := fetchHistogramSum(t, confirmation, "method", "upi"); got != 30 {
		t.Fatalf("expected confirmation sum 30, got %v", got)
	}
}

func TestSettlementMetricsNilRegisterer(t *testing.T) {
	m := NewSettlementMetrics(nil)

	m.IncAttempt("wallet", "completed")
	m.IncPoll("verified")
	m.ObserveConfirmation("upi", time.Second)
}
