package models

import (
	"time"

	"github.com/google/uuid"
)

// Run kinds stored with every summary
const (
	RunKindBacktest  = "backtest"
	RunKindReconcile = "reconcile"
)

// RunSummary is one persisted row per processed strategy file
type RunSummary struct {
	ID           uuid.UUID `db:"id" json:"id"`
	RunID        uuid.UUID `db:"run_id" json:"run_id"`
	Kind         string    `db:"kind" json:"kind"`
	ConfigFile   string    `db:"config_file" json:"config_file"`
	Strategy     string    `db:"strategy" json:"strategy"`
	StrategyID   int64     `db:"strategy_id" json:"strategy_id"`
	Status       string    `db:"status" json:"status"`
	Trades       int       `db:"trades" json:"trades"`
	FinalValue   float64   `db:"final_value" json:"final_value"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
	StartedAt    time.Time `db:"started_at" json:"started_at"`
	CompletedAt  time.Time `db:"completed_at" json:"completed_at"`
}

// Duration is the wall time spent on the file
func (r RunSummary) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
