// Package metrics defines reconciliation-specific metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Reconciliation counter vectors
var (
	DealsFetchedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_deals_fetched_total",
		Help:      "Total number of broker deals fetched by symbol pattern",
	}, []string{"symbol_pattern"})
	DealsClassifiedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_deals_classified_total",
		Help:      "Total number of deals by classification role",
	}, []string{"role"})
	UnmatchedDealsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_unmatched_deals_total",
		Help:      "Total number of deals dropped without a counterpart",
	}, []string{"kind"})
	TradesReconciledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_trades_total",
		Help:      "Total number of round-trip trades reconciled by strategy id",
	}, []string{"strategy_id"})
)

// Reconciliation gauge vectors
var (
	ReconciledEquity = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "reconcile_cumulative_equity",
		Help:      "Cumulative cost-adjusted profit of the latest reconciliation",
	}, []string{"strategy_id"})
)

// RecordDealsFetched records the size of a deal fetch.
func RecordDealsFetched(symbolPattern string, count int) {
	DealsFetchedTotal.WithLabelValues(symbolPattern).Add(float64(count))
}

// RecordClassification records classified deal counts.
func RecordClassification(entries, exits, ignored int) {
	DealsClassifiedTotal.WithLabelValues("entry").Add(float64(entries))
	DealsClassifiedTotal.WithLabelValues("exit").Add(float64(exits))
	DealsClassifiedTotal.WithLabelValues("ignored").Add(float64(ignored))
}

// RecordUnmatched records deals dropped during pairing.
func RecordUnmatched(openEntries, orphanExits, duplicateExits int) {
	UnmatchedDealsTotal.WithLabelValues("open_entry").Add(float64(openEntries))
	UnmatchedDealsTotal.WithLabelValues("orphan_exit").Add(float64(orphanExits))
	UnmatchedDealsTotal.WithLabelValues("duplicate_exit").Add(float64(duplicateExits))
}

// RecordTradesReconciled records a completed reconciliation.
func RecordTradesReconciled(strategyID int64, trades int, finalEquity float64) {
	label := strconv.FormatInt(strategyID, 10)
	TradesReconciledTotal.WithLabelValues(label).Add(float64(trades))
	ReconciledEquity.WithLabelValues(label).Set(finalEquity)
}
