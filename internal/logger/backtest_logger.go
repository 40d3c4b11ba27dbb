// Package logger provides backtest-specific logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// BacktestLogger provides dedicated logging for hourly backtest runs.
type BacktestLogger struct {
	*logrus.Entry
}

// NewBacktestLogger creates a new backtest logger.
func NewBacktestLogger(baseLogger *logrus.Logger) *BacktestLogger {
	return &BacktestLogger{
		Entry: baseLogger.WithField("component", "backtest"),
	}
}

// LogHourStarted logs the start of one hour's runner invocation.
func (bl *BacktestLogger) LogHourStarted(strategyName, symbol string, hour int) {
	bl.WithFields(logrus.Fields{
		"strategy": strategyName,
		"symbol":   symbol,
		"hour":     hour,
	}).Debug("Hour backtest started")
}

// LogHourCompleted logs a successful hour run.
func (bl *BacktestLogger) LogHourCompleted(strategyName string, hour, bars, trades int, duration time.Duration) {
	bl.WithFields(logrus.Fields{
		"strategy":    strategyName,
		"hour":        hour,
		"bars":        bars,
		"trades":      trades,
		"duration_ms": duration.Milliseconds(),
	}).Info("Hour backtest completed")
}

// LogHourFailed logs a runner failure that excludes the hour from aggregation.
func (bl *BacktestLogger) LogHourFailed(strategyName string, hour int, err error) {
	bl.WithFields(logrus.Fields{
		"strategy": strategyName,
		"hour":     hour,
		"error":    err.Error(),
	}).Error("Hour backtest failed, excluded from aggregation")
}

// LogMissingHourParameters logs an active hour with no parameter set.
func (bl *BacktestLogger) LogMissingHourParameters(strategyName string, hour int) {
	bl.WithFields(logrus.Fields{
		"strategy": strategyName,
		"hour":     hour,
	}).Warn("No parameters for active hour, skipping")
}

// LogAmbiguousMerge logs a bar claimed by more than one hour.
func (bl *BacktestLogger) LogAmbiguousMerge(strategyName string, barTime time.Time, previousHour, hour int) {
	bl.WithFields(logrus.Fields{
		"strategy":      strategyName,
		"bar_time":      barTime.Format(time.RFC3339),
		"previous_hour": previousHour,
		"hour":          hour,
	}).Warn("Ambiguous merge: bar claimed by more than one hour")
}

// LogCombined logs the summary of a combined result.
func (bl *BacktestLogger) LogCombined(strategyName string, hours []int, rows, trades int, finalStrategy float64) {
	bl.WithFields(logrus.Fields{
		"strategy":       strategyName,
		"hours":          hours,
		"rows":           rows,
		"trades":         trades,
		"final_strategy": finalStrategy,
	}).Info("Hourly results combined")
}

// LogNoResults logs a strategy where every hour failed or was skipped.
func (bl *BacktestLogger) LogNoResults(strategyName string, failed, skipped int) {
	bl.WithFields(logrus.Fields{
		"strategy":      strategyName,
		"hours_failed":  failed,
		"hours_skipped": skipped,
	}).Warn("No hour produced a result")
}

// LogConfigFailed logs a strategy file that could not be processed.
func (bl *BacktestLogger) LogConfigFailed(configFile string, err error) {
	bl.WithFields(logrus.Fields{
		"config_file": configFile,
		"error":       err.Error(),
	}).Error("Strategy configuration failed")
}
