package backtest

import (
	"fmt"
	"time"

	"github.com/yourusername/signal-lab/internal/config"
)

// CollisionPolicy decides what happens when two hours claim the same bar
type CollisionPolicy string

const (
	// LastWriteWins keeps the claim of the later hour in ascending order
	LastWriteWins CollisionPolicy = "last_write_wins"
	// RejectCollisions fails the combination with an *models.AmbiguousMergeError
	RejectCollisions CollisionPolicy = "reject"
)

// Settings are the backtest-wide parameters derived from application config
type Settings struct {
	StartDate            time.Time
	EndDate              time.Time
	InitialCash          float64
	Workers              int
	CollisionPolicy      CollisionPolicy
	OutputDir            string
	StrategyDir          string
	DefaultLotSize       float64
	MonteCarloIterations int
	MonteCarloSeed       int64
}

// FromConfig converts app config to backtest settings
func FromConfig(cfg *config.Config) (Settings, error) {
	if cfg == nil {
		return Settings{}, fmt.Errorf("backtest config is required")
	}
	start, end, err := cfg.BacktestRange()
	if err != nil {
		return Settings{}, err
	}

	s := Settings{
		StartDate:            start,
		EndDate:              end,
		InitialCash:          cfg.Backtest.InitialCash,
		Workers:              cfg.Backtest.Workers,
		CollisionPolicy:      CollisionPolicy(cfg.Backtest.CollisionPolicy),
		OutputDir:            cfg.Backtest.OutputDir,
		StrategyDir:          cfg.Backtest.StrategyDir,
		DefaultLotSize:       cfg.Backtest.DefaultLotSize,
		MonteCarloIterations: cfg.Backtest.MonteCarloIterations,
	}

	return s, s.Validate()
}

// Validate validates backtest settings
func (s Settings) Validate() error {
	if s.StartDate.After(s.EndDate) {
		return fmt.Errorf("start date must not be after end date")
	}
	if s.InitialCash <= 0 {
		return fmt.Errorf("initial cash must be positive")
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	switch s.CollisionPolicy {
	case "", LastWriteWins, RejectCollisions:
	default:
		return fmt.Errorf("unknown collision policy %q", s.CollisionPolicy)
	}
	if s.MonteCarloIterations < 0 {
		return fmt.Errorf("monte carlo iterations cannot be negative")
	}
	return nil
}

// RangeEnd is the inclusive upper bound of the bar query: the last instant of EndDate
func (s Settings) RangeEnd() time.Time {
	return s.EndDate.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
