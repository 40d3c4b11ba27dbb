// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging for runs and sessions.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogSessionOpened logs a broker session connect.
func (al *AuditLogger) LogSessionOpened(venue, account string) {
	al.WithFields(logrus.Fields{
		"venue":   venue,
		"account": account,
	}).Info("Broker session opened")
}

// LogSessionClosed logs a broker session teardown.
func (al *AuditLogger) LogSessionClosed(venue string, err error) {
	entry := al.WithField("venue", venue)
	if err != nil {
		entry.WithField("error", err.Error()).Warn("Broker session closed with error")
		return
	}
	entry.Info("Broker session closed")
}

// LogBatchSummary logs the outcome counts of a batch.
func (al *AuditLogger) LogBatchSummary(runID, kind string, total, succeeded, empty, failed int, duration time.Duration) {
	al.WithFields(logrus.Fields{
		"run_id":      runID,
		"kind":        kind,
		"total":       total,
		"succeeded":   succeeded,
		"empty":       empty,
		"failed":      failed,
		"duration_ms": duration.Milliseconds(),
	}).Info("Batch finished")
}

// LogReportWritten logs an exported artifact.
func (al *AuditLogger) LogReportWritten(path string, rows int) {
	al.WithFields(logrus.Fields{
		"path": path,
		"rows": rows,
	}).Info("Report written")
}
