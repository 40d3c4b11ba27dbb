package reconcile

import (
	"time"

	"github.com/yourusername/signal-lab/internal/models"
)

// DefaultOffsetMinutes applies to timeframe codes missing from the table
const DefaultOffsetMinutes = 5

// TimeframeOffset returns the bar duration in minutes for a timeframe code
func TimeframeOffset(code string) int {
	if m, ok := models.TimeframeMinutes(code); ok {
		return m
	}
	return DefaultOffsetMinutes
}

// AlignTime shifts a fill time back by one bar and rounds it to the minute
func AlignTime(t time.Time, offsetMinutes int) time.Time {
	return roundMinute(t.Add(-time.Duration(offsetMinutes) * time.Minute))
}

// roundMinute rounds to the nearest minute, sending an exact 30s tie to the
// even minute.
func roundMinute(t time.Time) time.Time {
	floor := t.Truncate(time.Minute)
	rem := t.Sub(floor)
	switch {
	case rem > 30*time.Second:
		return floor.Add(time.Minute)
	case rem == 30*time.Second && (floor.Unix()/60)%2 != 0:
		return floor.Add(time.Minute)
	}
	return floor
}

// AlignTrades returns copies of trades with AlignedTime derived from the entry time
func AlignTrades(trades []models.RoundTripTrade, offsetMinutes int) []models.RoundTripTrade {
	out := make([]models.RoundTripTrade, len(trades))
	for i, t := range trades {
		t.AlignedTime = AlignTime(t.EntryTime, offsetMinutes)
		out[i] = t
	}
	return out
}
