package database

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/signal-lab/internal/config"
)

// TestConfigEnv names the config file used by database integration tests
const TestConfigEnv = "SIGNAL_LAB_TEST_DB_CONFIG"

// SetupTestDB connects to the database named by TestConfigEnv, skipping the
// test when it is unset.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()
	path := os.Getenv(TestConfigEnv)
	if path == "" {
		t.Skipf("%s not set, skipping database integration test", TestConfigEnv)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("failed to load test config: %v", err)
	}
	cfg.Database.Enabled = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log := logrus.New()
	log.SetOutput(io.Discard)
	db, err := Initialize(ctx, cfg, log)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}
	return db
}

// TeardownTestDB removes the rows written by a test and closes the pool
func TeardownTestDB(t *testing.T, db *DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.Exec(ctx, "DELETE FROM run_summaries"); err != nil {
		t.Logf("warning: failed to clean run summaries: %v", err)
	}
	db.Close()
}
