// Package logger provides reconciliation logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// ReconcileLogger provides dedicated logging for broker deal reconciliation.
type ReconcileLogger struct {
	*logrus.Entry
}

// NewReconcileLogger creates a new reconciliation logger.
func NewReconcileLogger(baseLogger *logrus.Logger) *ReconcileLogger {
	return &ReconcileLogger{
		Entry: baseLogger.WithField("component", "reconcile"),
	}
}

// LogDealsFetched logs the size of a deal fetch.
func (rl *ReconcileLogger) LogDealsFetched(symbolPattern string, strategyID int64, deals int) {
	rl.WithFields(logrus.Fields{
		"symbol_pattern": symbolPattern,
		"strategy_id":    strategyID,
		"deals":          deals,
	}).Info("Deals fetched")
}

// LogClassification logs how deals were split into entries and exits.
func (rl *ReconcileLogger) LogClassification(mode string, strategyID int64, entries, exits, ignored int) {
	rl.WithFields(logrus.Fields{
		"mode":        mode,
		"strategy_id": strategyID,
		"entries":     entries,
		"exits":       exits,
		"ignored":     ignored,
	}).Debug("Deals classified")
}

// LogUnmatched logs deals dropped because they had no counterpart.
func (rl *ReconcileLogger) LogUnmatched(strategyID int64, openEntries, orphanExits, duplicateExits int) {
	if openEntries == 0 && orphanExits == 0 && duplicateExits == 0 {
		return
	}
	rl.WithFields(logrus.Fields{
		"strategy_id":     strategyID,
		"open_entries":    openEntries,
		"orphan_exits":    orphanExits,
		"duplicate_exits": duplicateExits,
	}).Warn("Unmatched deals dropped")
}

// LogNoTrades logs a run that completed with zero trades.
func (rl *ReconcileLogger) LogNoTrades(configFile string, strategyID int64, reason string) {
	rl.WithFields(logrus.Fields{
		"config_file": configFile,
		"strategy_id": strategyID,
		"reason":      reason,
	}).Warn("No trades for strategy in range")
}

// LogTradesReconciled logs a completed reconciliation.
func (rl *ReconcileLogger) LogTradesReconciled(configFile string, strategyID int64, trades int, finalEquity float64) {
	rl.WithFields(logrus.Fields{
		"config_file":  configFile,
		"strategy_id":  strategyID,
		"trades":       trades,
		"final_equity": finalEquity,
	}).Info("Trades reconciled")
}

// LogConfigFailed logs a configuration unit that failed.
func (rl *ReconcileLogger) LogConfigFailed(configFile string, err error) {
	rl.WithFields(logrus.Fields{
		"config_file": configFile,
		"error":       err.Error(),
	}).Error("Reconciliation failed")
}
