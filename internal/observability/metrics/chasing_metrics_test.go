package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestChasingMetricsRecord(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newChasingMetrics(registry, Config{ServiceName: "collecta", Environment: "test"})

	m.IncRun(RunOutcomeCompleted)
	m.IncRun(RunOutcomeCompleted)
	m.IncRun(RunOutcomeLockContended)
	m.ObserveRunDuration(RunOutcomeCompleted, 250*time.Millisecond)
	m.IncPlannedEvents(3)
	m.IncPlannedEvents(0)
	m.IncAction("EMAIL")
	m.IncDeliveryFailure("SMS")

	if got := testutil.ToFloat64(m.runs.WithLabelValues(RunOutcomeCompleted)); got != 2 {
		t.Fatalf("completed runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues(RunOutcomeLockContended)); got != 1 {
		t.Fatalf("contended runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.plannedEvents.WithLabelValues()); got != 3 {
		t.Fatalf("planned events = %v, want 3 (zero counts ignored)", got)
	}
	if got := testutil.ToFloat64(m.actions.WithLabelValues("EMAIL")); got != 1 {
		t.Fatalf("actions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.deliveryFailures.WithLabelValues("SMS")); got != 1 {
		t.Fatalf("delivery failures = %v, want 1", got)
	}
}

func TestChasingMetricsNilReceiver(t *testing.T) {
	var m *ChasingMetrics
	m.IncRun(RunOutcomeError)
	m.ObserveRunDuration(RunOutcomeError, time.Second)
	m.IncPlannedEvents(1)
	m.IncAction("EMAIL")
	m.IncDeliveryFailure("EMAIL")
}

func TestChasingSingleton(t *testing.T) {
	ResetChasingMetricsForTest()
	t.Cleanup(ResetChasingMetricsForTest)

	registry := prometheus.NewRegistry()
	chasingMetricsOnce.Do(func() {
		chasingMetrics = newChasingMetrics(registry, Config{})
	})

	if Chasing() != chasingMetrics {
		t.Fatal("Chasing must return the singleton")
	}
	if ChasingWithConfig(Config{ServiceName: "other"}) != chasingMetrics {
		t.Fatal("later configs must not replace the singleton")
	}
}
