// Package metrics defines backtesting-specific metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Backtest counter vectors
var (
	HourRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backtest_hour_runs_total",
		Help:      "Total number of single-hour backtest runs by hour and status",
	}, []string{"hour", "status"})
	MergeCollisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backtest_merge_collisions_total",
		Help:      "Total number of bars claimed by more than one hour",
	}, []string{"strategy"})
)

// Backtest gauge vectors
var (
	CombinedTrades = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backtest_combined_trades",
		Help:      "Trades in the latest combined result of each strategy",
	}, []string{"strategy", "strategy_id"})
	CombinedFinalStrategy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backtest_combined_final_strategy",
		Help:      "Final cumulative strategy value of the latest combined result",
	}, []string{"strategy", "strategy_id"})
)

// RecordHourRun records a single-hour backtest run.
// status should be one of: "success", "failure", "skipped"
func RecordHourRun(hour int, status string) {
	HourRunsTotal.WithLabelValues(strconv.Itoa(hour), status).Inc()
}

// RecordMergeCollisions records bars claimed by more than one hour.
func RecordMergeCollisions(strategy string, count int) {
	if count <= 0 {
		return
	}
	MergeCollisionsTotal.WithLabelValues(strategy).Add(float64(count))
}

// UpdateCombinedResult updates the combined result gauges for a strategy.
func UpdateCombinedResult(strategy, strategyID string, trades int, finalStrategy float64) {
	CombinedTrades.WithLabelValues(strategy, strategyID).Set(float64(trades))
	CombinedFinalStrategy.WithLabelValues(strategy, strategyID).Set(finalStrategy)
}
