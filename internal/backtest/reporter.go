package backtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/yourusername/signal-lab/internal/models"
)

const rowTimeLayout = "2006-01-02 15:04:05"

// Report bundles everything produced for one strategy file
type Report struct {
	ConfigFile string
	Definition models.StrategyDefinition
	Symbol     string
	Outcome    *AggregateOutcome
	Metrics    Metrics
	MonteCarlo *MonteCarloResult
	OutputPath string
}

type combinedCSVRow struct {
	Time               string  `csv:"time"`
	Open               float64 `csv:"open"`
	High               float64 `csv:"high"`
	Low                float64 `csv:"low"`
	Close              float64 `csv:"close"`
	Position           int     `csv:"position"`
	StrategyPnL        float64 `csv:"strategy_pnl"`
	TradeStatus        int     `csv:"trade_status"`
	RealizedPoints     float64 `csv:"realized_points"`
	CumulativeStrategy float64 `csv:"cumulative_strategy"`
	Equity             float64 `csv:"equity"`
	Hour               int     `csv:"hour"`
}

// CombinedFileName names the combined CSV after symbol, timeframe, strategy kind and id
func CombinedFileName(symbol, timeframe string, kind models.StrategyKind, strategyID string) string {
	return fmt.Sprintf("backtest_%s_%s_%s_magic_%s.csv", sanitizeFilePart(symbol), timeframe, kind, strategyID)
}

// WriteCombinedCSV writes one row per bar of the combined result
func WriteCombinedCSV(path string, result *models.CombinedResult) error {
	if result == nil {
		return fmt.Errorf("no combined result to write")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	rows := make([]combinedCSVRow, len(result.Rows))
	for i, r := range result.Rows {
		rows[i] = combinedCSVRow{
			Time:               r.Time.Format(rowTimeLayout),
			Open:               r.Open,
			High:               r.High,
			Low:                r.Low,
			Close:              r.Close,
			Position:           r.Position,
			StrategyPnL:        r.StrategyPnL,
			TradeStatus:        r.TradeStatus,
			RealizedPoints:     r.RealizedPoints,
			CumulativeStrategy: r.CumulativeStrategy,
			Equity:             r.Equity,
			Hour:               r.Hour,
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// ReadCombinedCSV loads a combined CSV written by WriteCombinedCSV
func ReadCombinedCSV(path string, initialCash float64) (*models.CombinedResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []combinedCSVRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	result := &models.CombinedResult{InitialCash: initialCash}
	hours := make(map[int]bool)
	for _, r := range rows {
		t, err := time.Parse(rowTimeLayout, r.Time)
		if err != nil {
			return nil, fmt.Errorf("invalid time %q in %s: %w", r.Time, path, err)
		}
		result.Rows = append(result.Rows, models.CombinedRow{
			Bar:                models.Bar{Time: t, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close},
			Position:           r.Position,
			StrategyPnL:        r.StrategyPnL,
			TradeStatus:        r.TradeStatus,
			RealizedPoints:     r.RealizedPoints,
			CumulativeStrategy: r.CumulativeStrategy,
			Equity:             r.Equity,
			Hour:               r.Hour,
		})
		if r.Hour >= 0 && !hours[r.Hour] {
			hours[r.Hour] = true
			result.Hours = append(result.Hours, r.Hour)
		}
	}
	return result, nil
}

// GenerateConsoleReport formats a strategy report for terminal output
func GenerateConsoleReport(r Report) string {
	var b strings.Builder
	def := r.Definition
	b.WriteString("Backtest Report\n")
	b.WriteString("================\n")
	b.WriteString(fmt.Sprintf("Strategy: %s (%s)\n", def.Name, def.Kind))
	b.WriteString(fmt.Sprintf("Symbol: %s  Timeframe: %s  Magic: %s\n", r.Symbol, def.Timeframe, def.StrategyIDLabel()))

	if r.Outcome == nil || r.Outcome.Combined == nil {
		b.WriteString("No hour produced a result.\n")
		return b.String()
	}

	o := r.Outcome
	b.WriteString(fmt.Sprintf("Hours combined: %v\n", o.Combined.Hours))
	if len(o.Skipped) > 0 {
		b.WriteString(fmt.Sprintf("Hours skipped (no parameters): %v\n", o.Skipped))
	}
	if len(o.Failures) > 0 {
		b.WriteString(fmt.Sprintf("Hours failed: %d\n", len(o.Failures)))
	}
	if n := len(o.Combined.Collisions); n > 0 {
		b.WriteString(fmt.Sprintf("Ambiguous merges: %d\n", n))
	}

	m := r.Metrics
	b.WriteString(fmt.Sprintf("Total trades: %d\n", m.TotalTrades))
	b.WriteString(fmt.Sprintf("Final result: $%.2f\n", o.Combined.FinalStrategy()))
	b.WriteString(fmt.Sprintf("Final equity: $%.2f\n", m.FinalEquity))
	b.WriteString(fmt.Sprintf("Win rate: %.2f%%\n", m.WinRate*100))
	b.WriteString(fmt.Sprintf("Profit factor: %.2f\n", m.ProfitFactor))
	b.WriteString(fmt.Sprintf("Max drawdown: $%.2f (%.2f%%)\n", m.MaxDrawdown, m.MaxDrawdownPct*100))
	b.WriteString(fmt.Sprintf("Sharpe ratio: %.2f\n", m.SharpeRatio))

	if len(m.ByHour) > 0 {
		b.WriteString("Per hour:\n")
		for _, h := range m.HoursByProfit() {
			hm := m.ByHour[h]
			b.WriteString(fmt.Sprintf("  %02dh  trades=%d  wins=%d  net=%.2f\n", h, hm.Trades, hm.Wins, hm.NetProfit))
		}
	}

	if r.MonteCarlo != nil {
		mc := r.MonteCarlo
		b.WriteString(fmt.Sprintf("Monte Carlo (%d runs): P(profit)=%.2f  5%%=%.2f  95%%=%.2f  median DD=%.2f\n",
			mc.Iterations, mc.ProbabilityOfProfit, mc.Percentile5, mc.Percentile95, mc.MedianMaxDrawdown))
	}
	if r.OutputPath != "" {
		b.WriteString(fmt.Sprintf("CSV: %s\n", r.OutputPath))
	}
	return b.String()
}

func sanitizeFilePart(s string) string {
	return strings.NewReplacer("*", "", "/", "_", "\\", "_", " ", "_").Replace(s)
}
