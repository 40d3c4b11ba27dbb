package models

import "time"

// DealSide is the side of a venue fill
type DealSide string

const (
	DealBuy  DealSide = "buy"
	DealSell DealSide = "sell"
)

// Deal is a single raw execution record fetched from the venue
type Deal struct {
	DealID     int64     `json:"deal_id"`
	Time       time.Time `json:"time"`
	Side       DealSide  `json:"side"`
	PositionID int64     `json:"position_id"`
	StrategyID int64     `json:"magic"`
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume"`
	Profit     float64   `json:"profit"`
	Comment    string    `json:"comment"`
}

// Direction is the directional exposure of a completed trade
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// DirectionFromSide maps the entry deal side onto a trade direction
func DirectionFromSide(side DealSide) Direction {
	if side == DealSell {
		return DirectionShort
	}
	return DirectionLong
}

// RoundTripTrade is a matched entry and exit sharing a position id
type RoundTripTrade struct {
	PositionID         int64     `json:"position_id"`
	EntryDealID        int64     `json:"entry_deal_id"`
	ExitDealID         int64     `json:"exit_deal_id"`
	AlignedTime        time.Time `json:"time"`
	EntryTime          time.Time `json:"entry_time"`
	ExitTime           time.Time `json:"exit_time"`
	EntryPrice         float64   `json:"entry_price"`
	ExitPrice          float64   `json:"exit_price"`
	Direction          Direction `json:"direction"`
	Volume             float64   `json:"volume"`
	DurationMinutes    float64   `json:"duration_minutes"`
	PointsAbsolute     float64   `json:"points_absolute"`
	PointsDirectional  float64   `json:"points_directional"`
	RawProfit          float64   `json:"profit"`
	CostAdjustedProfit float64   `json:"cost_adjusted_profit"`
	CumulativeEquity   float64   `json:"cumulative_equity"`
	StrategyID         int64     `json:"strategy_id"`
	ExitComment        string    `json:"exit_comment"`
}

// DirectionalPoints returns exit-entry for longs and entry-exit for shorts
func DirectionalPoints(direction Direction, entryPrice, exitPrice float64) float64 {
	if direction == DirectionShort {
		return entryPrice - exitPrice
	}
	return exitPrice - entryPrice
}
