package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/signal-lab/internal/database"
	"github.com/yourusername/signal-lab/internal/models"
)

const (
	errScanRunSummary = "failed to scan run summary: %w"

	runSummaryColumns = `id, run_id, kind, config_file, strategy, strategy_id, status,
		trades, final_value, error_message, started_at, completed_at`
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// PostgresRunSummaryRepository implements RunSummaryRepository for PostgreSQL
type PostgresRunSummaryRepository struct {
	db *database.DB
}

// NewPostgresRunSummaryRepository creates a new run summary repository
func NewPostgresRunSummaryRepository(db *database.DB) RunSummaryRepository {
	return &PostgresRunSummaryRepository{db: db}
}

// Create inserts a run summary
func (r *PostgresRunSummaryRepository) Create(ctx context.Context, s *models.RunSummary) error {
	query := `
		INSERT INTO run_summaries (` + runSummaryColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, query,
		s.ID, s.RunID, s.Kind, s.ConfigFile, s.Strategy, s.StrategyID, s.Status,
		s.Trades, s.FinalValue, s.ErrorMessage, s.StartedAt, s.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run summary: %w", err)
	}
	return nil
}

// GetByRunID retrieves every summary of one batch in insertion order
func (r *PostgresRunSummaryRepository) GetByRunID(ctx context.Context, runID uuid.UUID) ([]*models.RunSummary, error) {
	query := `SELECT ` + runSummaryColumns + ` FROM run_summaries WHERE run_id = $1 ORDER BY started_at, config_file`
	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run summaries: %w", err)
	}
	return collectSummaries(rows)
}

// GetLatest retrieves the most recent summaries of a kind
func (r *PostgresRunSummaryRepository) GetLatest(ctx context.Context, kind string, limit int) ([]*models.RunSummary, error) {
	query := `SELECT ` + runSummaryColumns + ` FROM run_summaries WHERE kind = $1 ORDER BY completed_at DESC LIMIT $2`
	rows, err := r.db.Query(ctx, query, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run summaries: %w", err)
	}
	return collectSummaries(rows)
}

// GetLatestByConfig retrieves the most recent summary of one strategy file
func (r *PostgresRunSummaryRepository) GetLatestByConfig(ctx context.Context, kind, configFile string) (*models.RunSummary, error) {
	query := `SELECT ` + runSummaryColumns + ` FROM run_summaries
		WHERE kind = $1 AND config_file = $2 ORDER BY completed_at DESC LIMIT 1`
	s, err := scanSummary(r.db.QueryRow(ctx, query, kind, configFile))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf(errScanRunSummary, err)
	}
	return s, nil
}

func scanSummary(row pgx.Row) (*models.RunSummary, error) {
	s := &models.RunSummary{}
	err := row.Scan(
		&s.ID, &s.RunID, &s.Kind, &s.ConfigFile, &s.Strategy, &s.StrategyID, &s.Status,
		&s.Trades, &s.FinalValue, &s.ErrorMessage, &s.StartedAt, &s.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func collectSummaries(rows pgx.Rows) ([]*models.RunSummary, error) {
	defer rows.Close()
	var out []*models.RunSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf(errScanRunSummary, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
