package reconcile

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/signal-lab/internal/models"
)

var session = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return session.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func entryDeal(id, pos int64, side models.DealSide, t time.Time, price float64, magic int64) models.Deal {
	return models.Deal{DealID: id, Time: t, Side: side, PositionID: pos, StrategyID: magic, Symbol: "WINQ25", Price: price, Volume: 1, Comment: "patt_bb"}
}

func exitDeal(id, pos int64, t time.Time, price, profit float64) models.Deal {
	return models.Deal{DealID: id, Time: t, PositionID: pos, Symbol: "WINQ25", Price: price, Volume: 1, Profit: profit, Comment: "[tp 105]"}
}

func TestClassifiers(t *testing.T) {
	deals := []models.Deal{
		{DealID: 1, StrategyID: 2, Comment: "patt_rsi"},
		{DealID: 2, StrategyID: 0, Comment: "[sl 99]"},
		{DealID: 3, StrategyID: 3, Comment: "patt_bb"},
		{DealID: 4, StrategyID: 3, Comment: "manual"},
	}

	tests := []struct {
		name       string
		classifier Classifier
		entries    []int64
		exits      []int64
		ignored    int
	}{
		{
			name:       "comment tag",
			classifier: CommentTagClassifier{Marker: "patt"},
			entries:    []int64{1, 3},
			exits:      []int64{2, 4},
		},
		{
			name:       "strategy tag",
			classifier: StrategyTagClassifier{StrategyID: 2},
			entries:    []int64{1},
			exits:      []int64{2},
			ignored:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, exits, ignored := Classify(tt.classifier, deals)
			assert.Equal(t, tt.entries, dealIDs(entries))
			assert.Equal(t, tt.exits, dealIDs(exits))
			assert.Equal(t, tt.ignored, ignored)
		})
	}
}

func TestNewClassifier(t *testing.T) {
	c, err := NewClassifier("comment_tag", "", 0)
	require.NoError(t, err)
	assert.Equal(t, CommentTagClassifier{Marker: DefaultEntryMarker}, c)

	c, err = NewClassifier("strategy_tag", "", 7)
	require.NoError(t, err)
	assert.Equal(t, ModeStrategyTag, c.Mode())

	_, err = NewClassifier("strategy_tag", "", 0)
	assert.True(t, models.IsConfigurationError(err))

	_, err = NewClassifier("guess", "", 7)
	assert.True(t, models.IsConfigurationError(err))
}

func TestPairDirectionalPoints(t *testing.T) {
	tests := []struct {
		name      string
		side      models.DealSide
		direction models.Direction
		points    float64
	}{
		{"long", models.DealBuy, models.DirectionLong, 5},
		{"short", models.DealSell, models.DirectionShort, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := []models.Deal{entryDeal(1, 5, tt.side, at(10, 5), 100, 2)}
			exits := []models.Deal{exitDeal(2, 5, at(10, 35), 105, 10)}

			trades, stats, err := Pair(entries, exits, ExitEarliest)
			require.NoError(t, err)
			require.Len(t, trades, 1)

			tr := trades[0]
			assert.Equal(t, tt.direction, tr.Direction)
			assert.Equal(t, tt.points, tr.PointsDirectional)
			assert.Equal(t, 5.0, tr.PointsAbsolute)
			assert.Equal(t, 30.0, tr.DurationMinutes)
			assert.Equal(t, 10.0, tr.RawProfit)
			assert.Equal(t, int64(2), tr.StrategyID)
			assert.Equal(t, PairStats{Matched: 1}, stats)
		})
	}
}

func TestPairUnmatched(t *testing.T) {
	trades, stats, err := Pair([]models.Deal{entryDeal(1, 5, models.DealBuy, at(10, 0), 100, 2)}, nil, ExitEarliest)
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, 1, stats.OpenEntries)

	trades, stats, err = Pair(nil, []models.Deal{exitDeal(2, 5, at(10, 30), 105, 10)}, ExitEarliest)
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, 1, stats.OrphanExits)
}

func TestPairExitSelection(t *testing.T) {
	entries := []models.Deal{entryDeal(1, 5, models.DealBuy, at(10, 0), 100, 2)}
	exits := []models.Deal{
		exitDeal(4, 5, at(11, 0), 110, 20),
		exitDeal(3, 5, at(10, 30), 105, 10),
	}

	tests := []struct {
		policy   ExitSelection
		exitDeal int64
	}{
		{ExitEarliest, 3},
		{ExitLatest, 4},
		{"", 3},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			trades, stats, err := Pair(entries, exits, tt.policy)
			require.NoError(t, err)
			require.Len(t, trades, 1)
			assert.Equal(t, tt.exitDeal, trades[0].ExitDealID)
			assert.Equal(t, 1, stats.DuplicateExits)
		})
	}

	_, _, err := Pair(entries, exits, ExitReject)
	assert.ErrorIs(t, err, ErrAmbiguousExit)
}

func TestPairUsesEveryDealOnce(t *testing.T) {
	entries := []models.Deal{
		entryDeal(1, 5, models.DealBuy, at(10, 0), 100, 2),
		entryDeal(2, 5, models.DealBuy, at(10, 1), 101, 2),
		entryDeal(3, 6, models.DealSell, at(10, 2), 102, 2),
	}
	exits := []models.Deal{
		exitDeal(10, 5, at(10, 30), 105, 10),
		exitDeal(11, 6, at(10, 40), 100, 4),
		exitDeal(12, 7, at(10, 50), 99, -1),
	}

	trades, stats, err := Pair(entries, exits, ExitEarliest)
	require.NoError(t, err)

	seenEntries := map[int64]bool{}
	seenExits := map[int64]bool{}
	for _, tr := range trades {
		assert.False(t, seenEntries[tr.EntryDealID])
		assert.False(t, seenExits[tr.ExitDealID])
		seenEntries[tr.EntryDealID] = true
		seenExits[tr.ExitDealID] = true
	}
	assert.Len(t, trades, 2)
	assert.Equal(t, PairStats{Matched: 2, OrphanExits: 1, DuplicateEntries: 1}, stats)
}

func TestTimeframeOffsetAndAlignTime(t *testing.T) {
	assert.Equal(t, 5, TimeframeOffset("t5"))
	assert.Equal(t, 15, TimeframeOffset("T15"))
	assert.Equal(t, 1440, TimeframeOffset("d1"))
	assert.Equal(t, DefaultOffsetMinutes, TimeframeOffset("weekly"))

	fill := at(10, 5).Add(40 * time.Second)
	assert.Equal(t, at(10, 1), AlignTime(fill, 5))
	assert.Equal(t, at(9, 50), AlignTime(at(10, 5).Add(10*time.Second), 15))

	trades := []models.RoundTripTrade{{EntryTime: fill}}
	aligned := AlignTrades(trades, 5)
	assert.Equal(t, at(10, 1), aligned[0].AlignedTime)
	assert.True(t, trades[0].AlignedTime.IsZero())
}

func TestAlignTimeTiesRoundToEvenMinute(t *testing.T) {
	tests := []struct {
		name string
		fill time.Time
		want time.Time
	}{
		{"tie on even minute stays", at(9, 11).Add(30 * time.Second), at(9, 6)},
		{"tie on odd minute goes up", at(9, 12).Add(30 * time.Second), at(9, 8)},
		{"just under tie", at(9, 12).Add(29 * time.Second), at(9, 7)},
		{"just over tie", at(9, 11).Add(30*time.Second + time.Millisecond), at(9, 7)},
		{"exact minute", at(9, 11), at(9, 6)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AlignTime(tt.fill, 5))
		})
	}
}

func TestFilterAndAccumulate(t *testing.T) {
	trades := []models.RoundTripTrade{
		{EntryDealID: 1, StrategyID: 1, AlignedTime: at(9, 0), RawProfit: 100, Volume: 1},
		{EntryDealID: 2, StrategyID: 2, AlignedTime: at(11, 0), RawProfit: -20, Volume: 2},
		{EntryDealID: 3, StrategyID: 2, AlignedTime: at(10, 0), RawProfit: 30.3, Volume: 1},
		{EntryDealID: 4, StrategyID: 3, AlignedTime: at(9, 30), RawProfit: 7, Volume: 1},
	}

	got := FilterAndAccumulate(trades, 2, 0.5)

	want := []models.RoundTripTrade{
		{EntryDealID: 3, StrategyID: 2, AlignedTime: at(10, 0), RawProfit: 30.3, Volume: 1, CostAdjustedProfit: 29.8, CumulativeEquity: 29.8},
		{EntryDealID: 2, StrategyID: 2, AlignedTime: at(11, 0), RawProfit: -20, Volume: 2, CostAdjustedProfit: -21, CumulativeEquity: 8.8},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FilterAndAccumulate() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 8.8, FinalEquity(got))
	assert.Zero(t, trades[2].CumulativeEquity)
}

func TestFilterAndAccumulateEmpty(t *testing.T) {
	got := FilterAndAccumulate([]models.RoundTripTrade{{StrategyID: 1}}, 2, 0.5)
	assert.Empty(t, got)
	assert.Zero(t, FinalEquity(got))
}

func dealIDs(deals []models.Deal) []int64 {
	var ids []int64
	for _, d := range deals {
		ids = append(ids, d.DealID)
	}
	return ids
}
