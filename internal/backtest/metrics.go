package backtest

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/yourusername/signal-lab/internal/models"
)

// Metrics represents backtest performance metrics of a combined result
type Metrics struct {
	TotalTrades    int                 `json:"total_trades"`
	WinningTrades  int                 `json:"winning_trades"`
	LosingTrades   int                 `json:"losing_trades"`
	WinRate        float64             `json:"win_rate"`
	GrossProfit    float64             `json:"gross_profit"`
	GrossLoss      float64             `json:"gross_loss"`
	NetProfit      float64             `json:"net_profit"`
	ProfitFactor   float64             `json:"profit_factor"`
	AverageWin     float64             `json:"average_win"`
	AverageLoss    float64             `json:"average_loss"`
	Expectancy     float64             `json:"expectancy"`
	LargestWin     float64             `json:"largest_win"`
	LargestLoss    float64             `json:"largest_loss"`
	TakeProfitHits int                 `json:"take_profit_hits"`
	StopLossHits   int                 `json:"stop_loss_hits"`
	MaxDrawdown    float64             `json:"max_drawdown"`
	MaxDrawdownPct float64             `json:"max_drawdown_pct"`
	SharpeRatio    float64             `json:"sharpe_ratio"`
	TradeStdDev    float64             `json:"trade_std_dev"`
	InitialCash    float64             `json:"initial_cash"`
	FinalEquity    float64             `json:"final_equity"`
	TotalReturn    float64             `json:"total_return"`
	TradingDays    int                 `json:"trading_days"`
	ByHour         map[int]HourMetrics `json:"by_hour"`
}

// HourMetrics summarizes the trades claimed by one hour
type HourMetrics struct {
	Trades    int     `json:"trades"`
	Wins      int     `json:"wins"`
	NetProfit float64 `json:"net_profit"`
}

// CalculateMetrics calculates metrics from a combined result
func CalculateMetrics(result *models.CombinedResult) Metrics {
	m := Metrics{ByHour: make(map[int]HourMetrics)}
	if result == nil {
		return m
	}
	m.InitialCash = result.InitialCash
	m.FinalEquity = result.FinalEquity()
	if m.InitialCash > 0 {
		m.TotalReturn = (m.FinalEquity - m.InitialCash) / m.InitialCash
	}

	pnls := TradePnLs(result)
	m.TotalTrades = len(pnls)
	for _, row := range result.Rows {
		if row.Position == 0 {
			continue
		}
		switch row.TradeStatus {
		case models.TradeStatusTakeProfit:
			m.TakeProfitHits++
		case models.TradeStatusStopLoss:
			m.StopLossHits++
		}
		hm := m.ByHour[row.Hour]
		hm.Trades++
		hm.NetProfit += row.StrategyPnL
		if row.StrategyPnL > 0 {
			hm.Wins++
		}
		m.ByHour[row.Hour] = hm
	}

	calculateTradeStats(&m, pnls)
	curve := NewEquityCurve(result)
	m.MaxDrawdown, m.MaxDrawdownPct = curve.MaxDrawdown()

	daily := DailyResults(result)
	m.TradingDays = len(daily)
	m.SharpeRatio = calculateSharpeRatio(daily, m.InitialCash)
	return m
}

// TradePnLs returns the strategy P&L of every traded row in time order
func TradePnLs(result *models.CombinedResult) []float64 {
	pnls := make([]float64, 0)
	for _, row := range result.Rows {
		if row.Position != 0 {
			pnls = append(pnls, row.StrategyPnL)
		}
	}
	return pnls
}

func calculateTradeStats(m *Metrics, pnls []float64) {
	if len(pnls) == 0 {
		return
	}
	var wins, losses stats.Float64Data
	for _, pnl := range pnls {
		if pnl > 0 {
			wins = append(wins, pnl)
		} else if pnl < 0 {
			losses = append(losses, pnl)
		}
	}

	m.WinningTrades = len(wins)
	m.LosingTrades = len(losses)
	m.WinRate = float64(len(wins)) / float64(len(pnls))
	m.GrossProfit, _ = wins.Sum()
	lossSum, _ := losses.Sum()
	m.GrossLoss = math.Abs(lossSum)
	m.NetProfit = m.GrossProfit - m.GrossLoss
	m.Expectancy, _ = stats.Mean(pnls)

	if len(wins) > 0 {
		m.AverageWin, _ = wins.Mean()
		m.LargestWin, _ = wins.Max()
	}
	if len(losses) > 0 {
		m.AverageLoss, _ = losses.Mean()
		m.LargestLoss, _ = losses.Min()
	}
	if len(pnls) > 1 {
		m.TradeStdDev, _ = stats.StandardDeviationSample(pnls)
	}

	switch {
	case m.GrossLoss > 0:
		m.ProfitFactor = m.GrossProfit / m.GrossLoss
	case m.GrossProfit > 0:
		m.ProfitFactor = 999
	}
}

// DailyPnL is the strategy result of one calendar day
type DailyPnL struct {
	Day time.Time
	PnL float64
}

// DailyResults sums the strategy P&L of every row by calendar day of the bar time
func DailyResults(result *models.CombinedResult) []DailyPnL {
	var days []DailyPnL
	for _, row := range result.Rows {
		y, mo, d := row.Time.Date()
		day := time.Date(y, mo, d, 0, 0, 0, 0, row.Time.Location())
		if n := len(days); n > 0 && days[n-1].Day.Equal(day) {
			days[n-1].PnL += row.StrategyPnL
			continue
		}
		days = append(days, DailyPnL{Day: day, PnL: row.StrategyPnL})
	}
	return days
}

// calculateSharpeRatio annualizes daily returns on initial cash over 252 sessions
func calculateSharpeRatio(daily []DailyPnL, initialCash float64) float64 {
	if len(daily) < 2 || initialCash <= 0 {
		return 0
	}
	returns := make([]float64, len(daily))
	for i, d := range daily {
		returns[i] = d.PnL / initialCash
	}
	mean, err := stats.Mean(returns)
	if err != nil {
		return 0
	}
	std, err := stats.StandardDeviationSample(returns)
	if err != nil || std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(252)
}

// HoursByProfit lists the hours ordered by net profit, best first
func (m Metrics) HoursByProfit() []int {
	hours := make([]int, 0, len(m.ByHour))
	for h := range m.ByHour {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		pi, pj := m.ByHour[hours[i]].NetProfit, m.ByHour[hours[j]].NetProfit
		if pi != pj {
			return pi > pj
		}
		return hours[i] < hours[j]
	})
	return hours
}

// ToJSON exports metrics to JSON
func (m Metrics) ToJSON() string {
	data, _ := json.Marshal(m)
	return string(data)
}
