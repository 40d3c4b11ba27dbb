package models

import (
	"fmt"
	"time"
)

// Bar is one OHLC candle of the underlying price series
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Trade status codes written by the simulator for each bar
const (
	TradeStatusFlat       = 0
	TradeStatusTakeProfit = 1
	TradeStatusStopLoss   = -1
	TradeStatusBarClose   = 2
)

// WindowBar is one bar of a single-hour backtest result
type WindowBar struct {
	Bar
	Position       int     `json:"position"`
	StrategyPnL    float64 `json:"strategy_pnl"`
	TradeStatus    int     `json:"trade_status"`
	RealizedPoints float64 `json:"realized_points"`
}

// WindowResult is the output of one runner invocation restricted to a single trading hour
type WindowResult struct {
	Hour int         `json:"hour"`
	Bars []WindowBar `json:"bars"`
}

// Validate checks the time index is unique and strictly increasing
func (w WindowResult) Validate() error {
	if w.Hour < 0 || w.Hour > 23 {
		return fmt.Errorf("hour %d out of range", w.Hour)
	}
	for i := 1; i < len(w.Bars); i++ {
		if !w.Bars[i].Time.After(w.Bars[i-1].Time) {
			return fmt.Errorf("hour %d: time index not strictly increasing at %s", w.Hour, w.Bars[i].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// Trades counts bars holding a non-zero position
func (w WindowResult) Trades() int {
	count := 0
	for _, b := range w.Bars {
		if b.Position != 0 {
			count++
		}
	}
	return count
}

// CombinedRow is one bar of the stitched multi-hour series
type CombinedRow struct {
	Bar
	Position           int     `json:"position"`
	StrategyPnL        float64 `json:"strategy_pnl"`
	TradeStatus        int     `json:"trade_status"`
	RealizedPoints     float64 `json:"realized_points"`
	CumulativeStrategy float64 `json:"cumulative_strategy"`
	Equity             float64 `json:"equity"`
	// Hour is the trading hour that claimed this bar, -1 when neutral
	Hour int `json:"hour"`
}

// CombinedResult is the merged backtest across all active hours
type CombinedResult struct {
	Rows        []CombinedRow `json:"rows"`
	InitialCash float64       `json:"initial_cash"`
	Hours       []int         `json:"hours"`
	Collisions  []time.Time   `json:"collisions,omitempty"`
}

// Trades counts rows holding a non-zero position
func (c *CombinedResult) Trades() int {
	if c == nil {
		return 0
	}
	count := 0
	for _, r := range c.Rows {
		if r.Position != 0 {
			count++
		}
	}
	return count
}

// FinalStrategy returns the cumulative strategy result at the last row
func (c *CombinedResult) FinalStrategy() float64 {
	if c == nil || len(c.Rows) == 0 {
		return 0
	}
	return c.Rows[len(c.Rows)-1].CumulativeStrategy
}

// FinalEquity returns the equity at the last row, or the initial cash for an empty series
func (c *CombinedResult) FinalEquity() float64 {
	if c == nil {
		return 0
	}
	if len(c.Rows) == 0 {
		return c.InitialCash
	}
	return c.Rows[len(c.Rows)-1].Equity
}
