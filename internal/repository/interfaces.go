package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/signal-lab/internal/models"
)

// RunSummaryRepository defines the interface for run summary data access
type RunSummaryRepository interface {
	Create(ctx context.Context, summary *models.RunSummary) error
	GetByRunID(ctx context.Context, runID uuid.UUID) ([]*models.RunSummary, error)
	GetLatest(ctx context.Context, kind string, limit int) ([]*models.RunSummary, error)
	GetLatestByConfig(ctx context.Context, kind, configFile string) (*models.RunSummary, error)
}
