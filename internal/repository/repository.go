package repository

import (
	"fmt"

	"github.com/yourusername/signal-lab/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	RunSummary RunSummaryRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		RunSummary: NewPostgresRunSummaryRepository(db),
	}, nil
}
