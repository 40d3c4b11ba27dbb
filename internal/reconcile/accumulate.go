package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/yourusername/signal-lab/internal/models"
)

// FilterAndAccumulate keeps the trades of strategyID in aligned-time order and
// fills in cost-adjusted profit and the running equity. Input is not modified.
func FilterAndAccumulate(trades []models.RoundTripTrade, strategyID int64, costPerLot float64) []models.RoundTripTrade {
	kept := make([]models.RoundTripTrade, 0, len(trades))
	for _, t := range trades {
		if t.StrategyID == strategyID {
			kept = append(kept, t)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if !kept[i].AlignedTime.Equal(kept[j].AlignedTime) {
			return kept[i].AlignedTime.Before(kept[j].AlignedTime)
		}
		return kept[i].EntryDealID < kept[j].EntryDealID
	})

	cost := decimal.NewFromFloat(costPerLot)
	running := decimal.Zero
	for i := range kept {
		adjusted := decimal.NewFromFloat(kept[i].RawProfit).Sub(decimal.NewFromFloat(kept[i].Volume).Mul(cost))
		running = running.Add(adjusted)
		kept[i].CostAdjustedProfit = adjusted.InexactFloat64()
		kept[i].CumulativeEquity = running.InexactFloat64()
	}
	return kept
}

// FinalEquity returns the cumulative equity of the last trade, or zero
func FinalEquity(trades []models.RoundTripTrade) float64 {
	if len(trades) == 0 {
		return 0
	}
	return trades[len(trades)-1].CumulativeEquity
}
