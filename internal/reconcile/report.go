package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/yourusername/signal-lab/internal/models"
)

const tradeTimeLayout = "2006-01-02 15:04:05"

type tradeCSVRow struct {
	Time               string  `csv:"time"`
	EntryTime          string  `csv:"entry_time"`
	ExitTime           string  `csv:"exit_time"`
	PositionID         int64   `csv:"position_id"`
	EntryDealID        int64   `csv:"entry_deal_id"`
	ExitDealID         int64   `csv:"exit_deal_id"`
	StrategyID         int64   `csv:"magic"`
	Direction          string  `csv:"direction"`
	EntryPrice         float64 `csv:"entry_price"`
	ExitPrice          float64 `csv:"exit_price"`
	Volume             float64 `csv:"volume"`
	Profit             float64 `csv:"profit"`
	ExitComment        string  `csv:"exit_comment"`
	DurationMinutes    float64 `csv:"duration_minutes"`
	PointsAbsolute     float64 `csv:"points_absolute"`
	PointsDirectional  float64 `csv:"points_directional"`
	CostAdjustedProfit float64 `csv:"cost_adjusted_profit"`
	CumulativeEquity   float64 `csv:"cumulative_equity"`
}

// ReportFileName names the trade CSV after symbol, timeframe, strategy kind and id
func ReportFileName(fileSymbol, timeframe, kind string, strategyID int64) string {
	fileSymbol = strings.NewReplacer("*", "", "/", "_", "\\", "_", " ", "_").Replace(fileSymbol)
	return fmt.Sprintf("results_%s_%s_%s_magic_%d.csv", fileSymbol, timeframe, kind, strategyID)
}

// WriteReport writes one row per reconciled trade
func WriteReport(path string, trades []models.RoundTripTrade) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	rows := make([]tradeCSVRow, len(trades))
	for i, t := range trades {
		rows[i] = tradeCSVRow{
			Time:               t.AlignedTime.Format(tradeTimeLayout),
			EntryTime:          t.EntryTime.Format(tradeTimeLayout),
			ExitTime:           t.ExitTime.Format(tradeTimeLayout),
			PositionID:         t.PositionID,
			EntryDealID:        t.EntryDealID,
			ExitDealID:         t.ExitDealID,
			StrategyID:         t.StrategyID,
			Direction:          string(t.Direction),
			EntryPrice:         t.EntryPrice,
			ExitPrice:          t.ExitPrice,
			Volume:             t.Volume,
			Profit:             t.RawProfit,
			ExitComment:        t.ExitComment,
			DurationMinutes:    t.DurationMinutes,
			PointsAbsolute:     t.PointsAbsolute,
			PointsDirectional:  t.PointsDirectional,
			CostAdjustedProfit: t.CostAdjustedProfit,
			CumulativeEquity:   t.CumulativeEquity,
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

// ReadReport loads a trade CSV written by WriteReport. Times are read as UTC.
func ReadReport(path string) ([]models.RoundTripTrade, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []tradeCSVRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	trades := make([]models.RoundTripTrade, 0, len(rows))
	for _, r := range rows {
		var times [3]time.Time
		for i, v := range []string{r.Time, r.EntryTime, r.ExitTime} {
			t, err := time.Parse(tradeTimeLayout, v)
			if err != nil {
				return nil, fmt.Errorf("invalid time %q in %s: %w", v, path, err)
			}
			times[i] = t
		}
		trades = append(trades, models.RoundTripTrade{
			PositionID:         r.PositionID,
			EntryDealID:        r.EntryDealID,
			ExitDealID:         r.ExitDealID,
			AlignedTime:        times[0],
			EntryTime:          times[1],
			ExitTime:           times[2],
			EntryPrice:         r.EntryPrice,
			ExitPrice:          r.ExitPrice,
			Direction:          models.Direction(r.Direction),
			Volume:             r.Volume,
			DurationMinutes:    r.DurationMinutes,
			PointsAbsolute:     r.PointsAbsolute,
			PointsDirectional:  r.PointsDirectional,
			RawProfit:          r.Profit,
			CostAdjustedProfit: r.CostAdjustedProfit,
			CumulativeEquity:   r.CumulativeEquity,
			StrategyID:         r.StrategyID,
			ExitComment:        r.ExitComment,
		})
	}
	return trades, nil
}

// GenerateConsoleReport formats a reconciliation report for terminal output
func GenerateConsoleReport(r *Report) string {
	var b strings.Builder
	s := r.Settings
	b.WriteString("Reconciliation Report\n")
	b.WriteString("=====================\n")
	b.WriteString(fmt.Sprintf("Config: %s  Strategy: %s\n", r.ConfigFile, s.StrategyName))
	b.WriteString(fmt.Sprintf("Symbol: %s  Timeframe: %s  Magic: %d\n", r.SymbolPattern, s.Timeframe, s.StrategyID))
	b.WriteString(fmt.Sprintf("Range: %s to %s\n", s.Start.Format("2006-01-02"), s.End.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Deals: %d (entries=%d exits=%d ignored=%d)\n", r.Deals, r.Entries, r.Exits, r.Ignored))
	if st := r.Stats; st.OpenEntries+st.OrphanExits+st.DuplicateExits+st.DuplicateEntries > 0 {
		b.WriteString(fmt.Sprintf("Unmatched: open=%d orphan=%d duplicate_exits=%d duplicate_entries=%d\n",
			st.OpenEntries, st.OrphanExits, st.DuplicateExits, st.DuplicateEntries))
	}
	if len(r.Trades) == 0 {
		b.WriteString("No trades for this strategy in range.\n")
		return b.String()
	}

	wins := 0
	for _, t := range r.Trades {
		if t.CostAdjustedProfit > 0 {
			wins++
		}
	}
	b.WriteString(fmt.Sprintf("Trades: %d  Wins: %d\n", len(r.Trades), wins))
	b.WriteString(fmt.Sprintf("Final result: $%.2f\n", r.FinalEquity()))
	if r.OutputPath != "" {
		b.WriteString(fmt.Sprintf("CSV: %s\n", r.OutputPath))
	}
	return b.String()
}
