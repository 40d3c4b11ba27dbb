// Package metrics provides the centralized Prometheus metrics registry for signal-lab.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "signal_lab"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	ConfigRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "config_runs_total",
		Help:      "Total number of processed configuration files by kind and outcome",
	}, []string{"kind", "outcome"})
	CircuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of broker client circuit breaker trips",
	})
)

// Histogram metrics
var (
	RunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of a backtest or reconciliation run in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
	}, []string{"kind"})
	BrokerRequestLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "broker_request_latency_seconds",
		Help:      "Latency of broker deal-history requests in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(ConfigRunsTotal)
		registry.MustRegister(CircuitBreakerTripsTotal)
		registry.MustRegister(RunDuration)
		registry.MustRegister(BrokerRequestLatency)

		// Register backtest metrics
		registry.MustRegister(HourRunsTotal)
		registry.MustRegister(MergeCollisionsTotal)
		registry.MustRegister(CombinedTrades)
		registry.MustRegister(CombinedFinalStrategy)

		// Register reconciliation metrics
		registry.MustRegister(DealsFetchedTotal)
		registry.MustRegister(DealsClassifiedTotal)
		registry.MustRegister(UnmatchedDealsTotal)
		registry.MustRegister(TradesReconciledTotal)
		registry.MustRegister(ReconciledEquity)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordConfigRun records one configuration file outcome.
// kind is "backtest" or "reconcile"; outcome is "success", "empty" or "failure".
func RecordConfigRun(kind, outcome string) {
	ConfigRunsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordRunDuration records the duration of a whole run.
func RecordRunDuration(kind string, durationSeconds float64) {
	RunDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordBrokerRequestLatency records broker request latency.
func RecordBrokerRequestLatency(durationSeconds float64) {
	BrokerRequestLatency.Observe(durationSeconds)
}

// RecordCircuitBreakerTrip records a circuit breaker trip.
func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}
