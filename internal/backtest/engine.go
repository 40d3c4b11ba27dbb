package backtest

import (
	"context"
	"fmt"

	"github.com/yourusername/signal-lab/internal/datasource"
	"github.com/yourusername/signal-lab/internal/models"
	"github.com/yourusername/signal-lab/internal/strategy"
)

// SourceProvider resolves the bar source for a data directory
type SourceProvider interface {
	ForPath(dir string) (datasource.BarSource, error)
}

// Simulator is the in-repo single-window backtest runner. A signal on bar i
// enters at bar i's close and is settled on bar i+1; the trade is recorded on
// the signal bar so hour-masked signals keep their P&L inside their hour.
type Simulator struct {
	sources SourceProvider
}

// TradeParams are the execution parameters of a simulation
type TradeParams struct {
	TakeProfit  float64 // percent of entry price, <= 0 disables
	StopLoss    float64 // percent of entry price, <= 0 disables
	CostPerUnit float64
	LotSize     float64
	UnitValue   float64
	IsIntraday  bool
}

// NewSimulator creates a simulator reading bars through sources
func NewSimulator(sources SourceProvider) *Simulator {
	return &Simulator{sources: sources}
}

// Run loads the bars, evaluates the signal and simulates every trade
func (s *Simulator) Run(ctx context.Context, req RunRequest) ([]models.WindowBar, error) {
	if req.Signal == nil {
		return nil, fmt.Errorf("signal function is required")
	}
	if req.LotSize <= 0 {
		return nil, fmt.Errorf("lot size must be positive, got %v", req.LotSize)
	}
	if req.UnitValue <= 0 {
		return nil, fmt.Errorf("unit value must be positive, got %v", req.UnitValue)
	}

	source, err := s.sources.ForPath(req.DataSourcePath)
	if err != nil {
		return nil, err
	}
	bars, err := source.Bars(ctx, req.Symbol, req.Timeframe, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load bars for %s %s: %w", req.Symbol, req.Timeframe, err)
	}

	positions, err := req.Signal(bars, strategy.Args{
		Params:       req.SignalArgs,
		AllowedHours: req.AllowedHours,
		PositionType: req.PositionType,
	})
	if err != nil {
		return nil, fmt.Errorf("signal evaluation failed: %w", err)
	}
	if len(positions) != len(bars) {
		return nil, fmt.Errorf("signal returned %d positions for %d bars", len(positions), len(bars))
	}

	return Simulate(bars, positions, TradeParams{
		TakeProfit:  req.TakeProfit,
		StopLoss:    req.StopLoss,
		CostPerUnit: req.CostPerUnit,
		LotSize:     req.LotSize,
		UnitValue:   req.UnitValue,
		IsIntraday:  req.IsIntraday,
	}), nil
}

// Simulate turns a position series into per-bar trade results
func Simulate(bars []models.Bar, positions []int, p TradeParams) []models.WindowBar {
	out := make([]models.WindowBar, len(bars))
	for i := range bars {
		out[i] = models.WindowBar{Bar: bars[i]}
		pos := clampPosition(positions[i])
		if pos == 0 || i+1 >= len(bars) {
			continue
		}
		next := bars[i+1]
		if p.IsIntraday && !sameDay(bars[i], next) {
			continue
		}

		exit, status := settle(pos, bars[i].Close, next, p)
		points := float64(pos) * (exit - bars[i].Close)

		out[i].Position = pos
		out[i].TradeStatus = status
		out[i].RealizedPoints = points
		out[i].StrategyPnL = points*p.LotSize*p.UnitValue - p.CostPerUnit*p.LotSize
	}
	return out
}

// settle resolves a trade entered at entry against the next bar. The stop is
// checked before the target when both are touched inside the bar.
func settle(pos int, entry float64, next models.Bar, p TradeParams) (float64, int) {
	if pos > 0 {
		if p.StopLoss > 0 {
			stop := entry * (1 - p.StopLoss/100)
			if next.Low <= stop {
				return stop, models.TradeStatusStopLoss
			}
		}
		if p.TakeProfit > 0 {
			target := entry * (1 + p.TakeProfit/100)
			if next.High >= target {
				return target, models.TradeStatusTakeProfit
			}
		}
		return next.Close, models.TradeStatusBarClose
	}

	if p.StopLoss > 0 {
		stop := entry * (1 + p.StopLoss/100)
		if next.High >= stop {
			return stop, models.TradeStatusStopLoss
		}
	}
	if p.TakeProfit > 0 {
		target := entry * (1 - p.TakeProfit/100)
		if next.Low <= target {
			return target, models.TradeStatusTakeProfit
		}
	}
	return next.Close, models.TradeStatusBarClose
}

func clampPosition(p int) int {
	switch {
	case p > 0:
		return 1
	case p < 0:
		return -1
	default:
		return 0
	}
}

func sameDay(a, b models.Bar) bool {
	ay, am, ad := a.Time.Date()
	by, bm, bd := b.Time.Date()
	return ay == by && am == bm && ad == bd
}
