// Package metrics exposes prometheus instrumentation for the chasing engine.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes.
const (
	RunOutcomeCompleted     = "completed"
	RunOutcomeLockContended = "lock_contended"
	RunOutcomeError         = "error"
)

// Config carries the static labels stamped onto every series.
type Config struct {
	ServiceName string
	Environment string
}

// ChasingMetrics captures chasing engine health signals.
type ChasingMetrics struct {
	runs             *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	plannedEvents    *prometheus.CounterVec
	actions          *prometheus.CounterVec
	deliveryFailures *prometheus.CounterVec
}

var (
	chasingMetricsOnce sync.Once
	chasingMetrics     *ChasingMetrics
)

// Chasing returns the singleton chasing metrics registry.
func Chasing() *ChasingMetrics {
	return ChasingWithConfig(Config{})
}

// ChasingWithConfig returns the singleton chasing metrics registry using config labels.
func ChasingWithConfig(cfg Config) *ChasingMetrics {
	chasingMetricsOnce.Do(func() {
		chasingMetrics = newChasingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return chasingMetrics
}

// ResetChasingMetricsForTest resets the chasing metrics singleton for tests.
func ResetChasingMetricsForTest() {
	chasingMetricsOnce = sync.Once{}
	chasingMetrics = nil
}

func newChasingMetrics(registerer prometheus.Registerer, cfg Config) *ChasingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "collecta"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &ChasingMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "collecta_chasing_runs_total",
			Help:        "Chasing runs by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "collecta_chasing_run_duration_seconds",
			Help:        "Duration of chasing runs.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"outcome"}),
		plannedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "collecta_chasing_planned_events_total",
			Help:        "Chasing events emitted by the planner.",
			ConstLabels: constLabels,
		}, []string{}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "collecta_chasing_actions_total",
			Help:        "Collection actions dispatched, by channel.",
			ConstLabels: constLabels,
		}, []string{"channel"}),
		deliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "collecta_chasing_delivery_failures_total",
			Help:        "Collection action delivery failures, by channel.",
			ConstLabels: constLabels,
		}, []string{"channel"}),
	}

	for _, collector := range []prometheus.Collector{
		m.runs, m.runDuration, m.plannedEvents, m.actions, m.deliveryFailures,
	} {
		registerer.MustRegister(collector)
	}
	return m
}

// IncRun records a completed, contended or failed run.
func (m *ChasingMetrics) IncRun(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

// ObserveRunDuration records how long a run took.
func (m *ChasingMetrics) ObserveRunDuration(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// IncPlannedEvents counts planner output.
func (m *ChasingMetrics) IncPlannedEvents(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.plannedEvents.WithLabelValues().Add(float64(count))
}

// IncAction counts a dispatched collection action.
func (m *ChasingMetrics) IncAction(channel string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(channel).Inc()
}

// IncDeliveryFailure counts a failed dispatch.
func (m *ChasingMetrics) IncDeliveryFailure(channel string) {
	if m == nil {
		return
	}
	m.deliveryFailures.WithLabelValues(channel).Inc()
}
