// Package backtest runs hour-restricted strategies and stitches their results.
package backtest

import (
	"context"
	"time"

	"github.com/yourusername/signal-lab/internal/models"
	"github.com/yourusername/signal-lab/internal/strategy"
)

// Runner produces the result series of one single-window backtest
type Runner interface {
	Run(ctx context.Context, req RunRequest) ([]models.WindowBar, error)
}

// RunRequest carries everything a single-window backtest needs. SignalArgs
// never contains the take-profit or stop-loss values.
type RunRequest struct {
	Symbol         string
	Timeframe      string
	Start          time.Time
	End            time.Time
	CostPerUnit    float64
	LotSize        float64
	UnitValue      float64
	InitialCash    float64
	DataSourcePath string
	IsIntraday     bool

	Signal       strategy.SignalFunc
	SignalArgs   map[string]float64
	PositionType models.PositionType
	TakeProfit   float64
	StopLoss     float64
	AllowedHours []int
}

// RunnerFunc adapts a function to the Runner interface
type RunnerFunc func(ctx context.Context, req RunRequest) ([]models.WindowBar, error)

// Run calls f(ctx, req)
func (f RunnerFunc) Run(ctx context.Context, req RunRequest) ([]models.WindowBar, error) {
	return f(ctx, req)
}
