package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/signal-lab/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS run_summaries (
	id            UUID PRIMARY KEY,
	run_id        UUID NOT NULL,
	kind          TEXT NOT NULL,
	config_file   TEXT NOT NULL,
	strategy      TEXT NOT NULL DEFAULT '',
	strategy_id   BIGINT NOT NULL DEFAULT 0,
	status        TEXT NOT NULL,
	trades        INTEGER NOT NULL DEFAULT 0,
	final_value   DOUBLE PRECISION NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	started_at    TIMESTAMPTZ NOT NULL,
	completed_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS run_summaries_run_id_idx ON run_summaries (run_id);
CREATE INDEX IF NOT EXISTS run_summaries_kind_completed_idx ON run_summaries (kind, completed_at DESC);
`

// Initialize opens the pool and creates the run summary table. It returns
// nil without error when the database is disabled.
func Initialize(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*DB, error) {
	if !cfg.Database.Enabled {
		log.Debug("Database disabled, run summaries will not be stored")
		return nil, nil
	}

	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	err = db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, schema)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	log.WithFields(logrus.Fields{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	}).Info("Database initialized")
	return db, nil
}
