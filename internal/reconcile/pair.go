package reconcile

import (
	"errors"
	"fmt"
	"sort"

	"github.com/yourusername/signal-lab/internal/models"
)

// ExitSelection decides which exit closes an entry when a position id has several
type ExitSelection string

const (
	ExitEarliest ExitSelection = "earliest"
	ExitLatest   ExitSelection = "latest"
	ExitReject   ExitSelection = "reject"
)

// ErrAmbiguousExit is returned under ExitReject when a position has more than one exit
var ErrAmbiguousExit = errors.New("position has more than one exit deal")

// PairStats counts the deals that did not become part of a trade
type PairStats struct {
	Matched          int
	OpenEntries      int
	OrphanExits      int
	DuplicateExits   int
	DuplicateEntries int
}

// Pair joins entries to exits on position id. Every deal is used at most once;
// entries without an exit are open trades and exits without an entry are dropped.
func Pair(entries, exits []models.Deal, policy ExitSelection) ([]models.RoundTripTrade, PairStats, error) {
	var stats PairStats
	if policy == "" {
		policy = ExitEarliest
	}

	byPosition := make(map[int64][]models.Deal)
	for _, x := range exits {
		byPosition[x.PositionID] = append(byPosition[x.PositionID], x)
	}
	for _, group := range byPosition {
		sortDeals(group)
	}

	ordered := append([]models.Deal(nil), entries...)
	sortDeals(ordered)

	used := make(map[int64]bool, len(ordered))
	trades := make([]models.RoundTripTrade, 0, len(ordered))
	for _, entry := range ordered {
		if used[entry.PositionID] {
			stats.DuplicateEntries++
			continue
		}
		candidates := byPosition[entry.PositionID]
		if len(candidates) == 0 {
			stats.OpenEntries++
			continue
		}
		used[entry.PositionID] = true

		var exit models.Deal
		switch policy {
		case ExitLatest:
			exit = candidates[len(candidates)-1]
		case ExitReject:
			if len(candidates) > 1 {
				return nil, stats, fmt.Errorf("position %d: %d exits: %w", entry.PositionID, len(candidates), ErrAmbiguousExit)
			}
			exit = candidates[0]
		default:
			exit = candidates[0]
		}
		stats.DuplicateExits += len(candidates) - 1
		trades = append(trades, NewRoundTripTrade(entry, exit))
	}

	for pos, group := range byPosition {
		if !used[pos] {
			stats.OrphanExits += len(group)
		}
	}
	stats.Matched = len(trades)
	return trades, stats, nil
}

// NewRoundTripTrade derives the realized attributes of an entry/exit pair
func NewRoundTripTrade(entry, exit models.Deal) models.RoundTripTrade {
	direction := models.DirectionFromSide(entry.Side)
	points := models.DirectionalPoints(direction, entry.Price, exit.Price)
	abs := exit.Price - entry.Price
	if abs < 0 {
		abs = -abs
	}
	return models.RoundTripTrade{
		PositionID:        entry.PositionID,
		EntryDealID:       entry.DealID,
		ExitDealID:        exit.DealID,
		AlignedTime:       entry.Time,
		EntryTime:         entry.Time,
		ExitTime:          exit.Time,
		EntryPrice:        entry.Price,
		ExitPrice:         exit.Price,
		Direction:         direction,
		Volume:            entry.Volume,
		DurationMinutes:   exit.Time.Sub(entry.Time).Minutes(),
		PointsAbsolute:    abs,
		PointsDirectional: points,
		RawProfit:         exit.Profit,
		StrategyID:        entry.StrategyID,
		ExitComment:       exit.Comment,
	}
}

func sortDeals(deals []models.Deal) {
	sort.SliceStable(deals, func(i, j int) bool {
		if !deals[i].Time.Equal(deals[j].Time) {
			return deals[i].Time.Before(deals[j].Time)
		}
		return deals[i].DealID < deals[j].DealID
	})
}
