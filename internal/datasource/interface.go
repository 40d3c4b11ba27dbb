// Package datasource loads historical price bars for the backtest runner.
package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/signal-lab/internal/models"
)

// BarSource loads the bars of a symbol and timeframe within [start, end]
type BarSource interface {
	Bars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Bar, error)
	Name() string
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "not_found")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e DataSourceError) Unwrap() error { return e.Err }

// Common error codes
const (
	ErrCodeNotFound    = "not_found"
	ErrCodeInvalidData = "invalid_data"
	ErrCodeEmpty       = "empty"
)

// Error constructors
var (
	ErrNotFound    = errors.New("data not found")
	ErrInvalidData = errors.New("invalid data format")
	ErrEmpty       = errors.New("no bars in range")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
