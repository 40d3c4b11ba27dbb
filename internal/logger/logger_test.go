package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	log := NewLogger("loud")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	log = NewLogger("debug")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNewFormatterByEnvironment(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Level: "verbose", Environment: "production", Output: buf})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	buf.Reset()
	log = New(Options{Level: "debug", Environment: "development", Output: buf})
	log.Debug("text output")
	assert.Nil(t, parseLogOutput(buf))
	assert.Contains(t, buf.String(), "text output")
}

func TestBacktestLoggerHourCompleted(t *testing.T) {
	log, buf := setupTestLogger()
	backtestLogger := NewBacktestLogger(log)

	backtestLogger.LogHourCompleted("win_bb", 9, 120, 4, 250*time.Millisecond)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "backtest", logEntry["component"])
	assert.Equal(t, "win_bb", logEntry["strategy"])
	assert.Equal(t, float64(9), logEntry["hour"])
	assert.Equal(t, float64(4), logEntry["trades"])
	assert.Equal(t, float64(250), logEntry["duration_ms"])
}

func TestBacktestLoggerHourFailed(t *testing.T) {
	log, buf := setupTestLogger()
	backtestLogger := NewBacktestLogger(log)

	backtestLogger.LogHourFailed("win_bb", 11, errors.New("no bars"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "error", logEntry["level"])
	assert.Equal(t, "no bars", logEntry["error"])
}

func TestBacktestLoggerAmbiguousMerge(t *testing.T) {
	log, buf := setupTestLogger()
	backtestLogger := NewBacktestLogger(log)

	ts := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	backtestLogger.LogAmbiguousMerge("win_bb", ts, 9, 10)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, "2025-06-02T10:00:00Z", logEntry["bar_time"])
	assert.Equal(t, float64(9), logEntry["previous_hour"])
}

func TestReconcileLoggerUnmatched(t *testing.T) {
	log, buf := setupTestLogger()
	reconcileLogger := NewReconcileLogger(log)

	reconcileLogger.LogUnmatched(2, 0, 0, 0)
	assert.Zero(t, buf.Len())

	reconcileLogger.LogUnmatched(2, 1, 0, 0)
	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "reconcile", logEntry["component"])
	assert.Equal(t, float64(1), logEntry["open_entries"])
}

func TestReconcileLoggerTradesReconciled(t *testing.T) {
	log, buf := setupTestLogger()
	reconcileLogger := NewReconcileLogger(log)

	reconcileLogger.LogTradesReconciled("win.json", 2, 3, 41.5)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "win.json", logEntry["config_file"])
	assert.Equal(t, 41.5, logEntry["final_equity"])
}

func TestAuditLoggerSessionClosed(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogSessionClosed("rest", errors.New("timeout"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "audit", logEntry["component"])
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, "timeout", logEntry["error"])
}

func TestAuditLoggerBatchSummary(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogBatchSummary("run-1", "reconcile", 5, 3, 1, 1, time.Second)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(3), logEntry["succeeded"])
	assert.Equal(t, float64(1000), logEntry["duration_ms"])
}

func BenchmarkBacktestLoggerHourCompleted(b *testing.B) {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	backtestLogger := NewBacktestLogger(log)

	for i := 0; i < b.N; i++ {
		backtestLogger.LogHourCompleted("win_bb", 9, 120, 4, time.Millisecond)
	}
}
