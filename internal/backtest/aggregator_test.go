package backtest

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/signal-lab/internal/logger"
	"github.com/yourusername/signal-lab/internal/models"
)

var day = time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func testLogger() *logger.BacktestLogger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return testBacktestLogger(base)
}

func testBacktestLogger(base *logrus.Logger) *logger.BacktestLogger {
	return logger.NewBacktestLogger(base)
}

func newTestAggregator(runner Runner, cfg AggregatorConfig) *HourlyAggregator {
	return NewHourlyAggregator(runner, cfg, testLogger())
}

func flatBar(t time.Time, price float64) models.WindowBar {
	return models.WindowBar{Bar: models.Bar{Time: t, Open: price, High: price, Low: price, Close: price}}
}

func tradeBar(t time.Time, price float64, pos int, pnl float64) models.WindowBar {
	b := flatBar(t, price)
	b.Position = pos
	b.StrategyPnL = pnl
	b.TradeStatus = models.TradeStatusBarClose
	return b
}

// sessionRunner returns the same three-bar session for every hour, with a
// trade only on the bar of the requested hour.
func sessionRunner(trades map[int]models.WindowBar) RunnerFunc {
	return func(ctx context.Context, req RunRequest) ([]models.WindowBar, error) {
		bars := []models.WindowBar{flatBar(at(9, 15), 100), flatBar(at(10, 30), 101), flatBar(at(11, 0), 102)}
		hour := req.AllowedHours[0]
		if tr, ok := trades[hour]; ok {
			for i := range bars {
				if bars[i].Time.Equal(tr.Time) {
					bars[i] = tr
				}
			}
		}
		return bars, nil
	}
}

func twoHourJob() Job {
	return Job{
		Definition: models.StrategyDefinition{
			Name:        "win_bb",
			Symbol:      "WIN@N",
			Timeframe:   "t5",
			Kind:        models.StrategyBBTrend,
			ActiveHours: []int{10, 9},
			HourParameters: map[int]models.ParameterSet{
				9:  {TakeProfit: 0.2, StopLoss: 0.1, Signal: map[string]float64{"bb_length": 20, "std": 2}},
				10: {TakeProfit: 0.3, StopLoss: 0.15, Signal: map[string]float64{"bb_length": 14, "std": 1.5}},
			},
			StrategyID: 7,
		},
		Symbol:      "WIN@N",
		Start:       day,
		End:         day.Add(24*time.Hour - time.Nanosecond),
		CostPerUnit: 1,
		UnitValue:   0.2,
		LotSize:     1,
		InitialCash: 30000,
	}
}

func TestAggregatorCombinesTwoHours(t *testing.T) {
	runner := sessionRunner(map[int]models.WindowBar{
		9:  tradeBar(at(9, 15), 100, 1, 50),
		10: tradeBar(at(10, 30), 101, -1, -20),
	})
	agg := newTestAggregator(runner, AggregatorConfig{})

	outcome, err := agg.Run(context.Background(), twoHourJob())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome.Status)
	assert.Empty(t, outcome.Failures)
	assert.Empty(t, outcome.Skipped)

	c := outcome.Combined
	require.Len(t, c.Rows, 3)
	assert.Equal(t, []int{9, 10}, c.Hours)

	assert.Equal(t, 1, c.Rows[0].Position)
	assert.Equal(t, 9, c.Rows[0].Hour)
	assert.Equal(t, 50.0, c.Rows[0].CumulativeStrategy)

	assert.Equal(t, -1, c.Rows[1].Position)
	assert.Equal(t, 10, c.Rows[1].Hour)
	assert.Equal(t, 30.0, c.Rows[1].CumulativeStrategy)

	assert.Equal(t, 0, c.Rows[2].Position)
	assert.Equal(t, -1, c.Rows[2].Hour)
	assert.Equal(t, 30.0, c.FinalStrategy())
	assert.Equal(t, 30030.0, c.FinalEquity())
	assert.Equal(t, 2, c.Trades())
}

func TestRunForHourBuildsRequest(t *testing.T) {
	var got RunRequest
	runner := RunnerFunc(func(ctx context.Context, req RunRequest) ([]models.WindowBar, error) {
		got = req
		return []models.WindowBar{flatBar(at(9, 0), 100)}, nil
	})
	agg := newTestAggregator(runner, AggregatorConfig{})
	job := twoHourJob()
	params := models.ParameterSet{
		TakeProfit:   0.25,
		StopLoss:     0.1,
		PositionType: models.PositionLong,
		Signal:       map[string]float64{"bb_length": 20, "tp": 9, "sl": 9},
	}

	res, err := agg.RunForHour(context.Background(), job, 9, params)
	require.NoError(t, err)
	assert.Equal(t, 9, res.Hour)

	assert.Equal(t, []int{9}, got.AllowedHours)
	assert.Equal(t, map[string]float64{"bb_length": 20}, got.SignalArgs)
	assert.Equal(t, 0.25, got.TakeProfit)
	assert.Equal(t, 0.1, got.StopLoss)
	assert.Equal(t, models.PositionLong, got.PositionType)
	assert.NotNil(t, got.Signal)

	got.SignalArgs["bb_length"] = 99
	assert.Equal(t, 20.0, params.Signal["bb_length"], "caller parameters must not be shared with the runner")
	assert.Equal(t, 20.0, job.Definition.HourParameters[9].Signal["bb_length"])
}

func TestRunForHourWrapsFailures(t *testing.T) {
	tests := []struct {
		name   string
		runner RunnerFunc
	}{
		{
			name: "runner error",
			runner: func(ctx context.Context, req RunRequest) ([]models.WindowBar, error) {
				return nil, errors.New("no data")
			},
		},
		{
			name: "runner panic",
			runner: func(ctx context.Context, req RunRequest) ([]models.WindowBar, error) {
				panic("index out of range")
			},
		},
		{
			name: "unordered index",
			runner: func(ctx context.Context, req RunRequest) ([]models.WindowBar, error) {
				return []models.WindowBar{flatBar(at(9, 5), 1), flatBar(at(9, 0), 1)}, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := newTestAggregator(tt.runner, AggregatorConfig{})
			_, err := agg.RunForHour(context.Background(), twoHourJob(), 9, models.ParameterSet{})
			require.Error(t, err)
			var upErr *models.UpstreamUnavailableError
			require.ErrorAs(t, err, &upErr)
			assert.Equal(t, "hour 09", upErr.Key)
		})
	}
}

func TestAggregatorSkipsHoursWithoutParameters(t *testing.T) {
	job := twoHourJob()
	job.Definition.ActiveHours = []int{9, 10, 11}
	runner := sessionRunner(map[int]models.WindowBar{9: tradeBar(at(9, 15), 100, 1, 50)})

	outcome, err := newTestAggregator(runner, AggregatorConfig{}).Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, []int{11}, outcome.Skipped)
	assert.Equal(t, []int{9, 10}, outcome.Combined.Hours)
}

func TestAggregatorIsolatesFailingHour(t *testing.T) {
	base := sessionRunner(map[int]models.WindowBar{9: tradeBar(at(9, 15), 100, 1, 50)})
	runner := RunnerFunc(func(ctx context.Context, req RunRequest) ([]models.WindowBar, error) {
		if req.AllowedHours[0] == 10 {
			panic("broken hour")
		}
		return base(ctx, req)
	})

	outcome, err := newTestAggregator(runner, AggregatorConfig{}).Run(context.Background(), twoHourJob())
	require.NoError(t, err)
	require.Contains(t, outcome.Failures, 10)
	assert.True(t, models.IsUpstreamUnavailable(outcome.Failures[10]))
	assert.Equal(t, []int{9}, outcome.Combined.Hours)
	assert.Equal(t, 50.0, outcome.Combined.FinalStrategy())
}

func TestAggregatorNoResults(t *testing.T) {
	runner := RunnerFunc(func(ctx context.Context, req RunRequest) ([]models.WindowBar, error) {
		return nil, errors.New("feed down")
	})

	outcome, err := newTestAggregator(runner, AggregatorConfig{}).Run(context.Background(), twoHourJob())
	require.Error(t, err)
	assert.True(t, IsNoResults(err))
	require.NotNil(t, outcome)
	assert.Equal(t, OutcomeNoResults, outcome.Status)
	assert.Nil(t, outcome.Combined)
	assert.Len(t, outcome.Failures, 2)
}

func TestAggregatorNoTradesIsNotFailure(t *testing.T) {
	outcome, err := newTestAggregator(sessionRunner(nil), AggregatorConfig{}).Run(context.Background(), twoHourJob())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoTrades, outcome.Status)
	assert.Len(t, outcome.Combined.Rows, 3)
	assert.Equal(t, 0.0, outcome.Combined.FinalStrategy())
	assert.Equal(t, 30000.0, outcome.Combined.FinalEquity())
}

func TestAggregatorRejectsUnknownKind(t *testing.T) {
	job := twoHourJob()
	job.Definition.Kind = "astrology"
	calls := 0
	runner := RunnerFunc(func(ctx context.Context, req RunRequest) ([]models.WindowBar, error) {
		calls++
		return nil, nil
	})

	_, err := newTestAggregator(runner, AggregatorConfig{}).Run(context.Background(), job)
	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
	assert.ErrorIs(t, err, models.ErrUnknownStrategyKind)
	assert.Zero(t, calls)
}

func TestAggregatorParallelMatchesSequential(t *testing.T) {
	job := twoHourJob()
	job.Definition.ActiveHours = []int{9, 10, 11}
	job.Definition.HourParameters[11] = models.ParameterSet{Signal: map[string]float64{"bb_length": 10, "std": 2}}
	trades := map[int]models.WindowBar{
		9:  tradeBar(at(9, 15), 100, 1, 50),
		10: tradeBar(at(10, 30), 101, -1, -20),
		11: tradeBar(at(11, 0), 102, 1, 5),
	}

	var mu sync.Mutex
	order := []int{}
	runner := RunnerFunc(func(ctx context.Context, req RunRequest) ([]models.WindowBar, error) {
		// later hours finish first
		time.Sleep(time.Duration(12-req.AllowedHours[0]) * 5 * time.Millisecond)
		mu.Lock()
		order = append(order, req.AllowedHours[0])
		mu.Unlock()
		return sessionRunner(trades)(ctx, req)
	})

	sequential, err := newTestAggregator(runner, AggregatorConfig{Workers: 1}).Run(context.Background(), job)
	require.NoError(t, err)
	parallel, err := newTestAggregator(runner, AggregatorConfig{Workers: 3}).Run(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, sequential.Combined, parallel.Combined)
	assert.Equal(t, 35.0, parallel.Combined.FinalStrategy())
	assert.Len(t, order, 6)
}

func TestAggregatorHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestAggregator(sessionRunner(nil), AggregatorConfig{}).Run(ctx, twoHourJob())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCombineIgnoresBarsOutsideHour(t *testing.T) {
	agg := newTestAggregator(nil, AggregatorConfig{})
	results := map[int]models.WindowResult{
		9: {Hour: 9, Bars: []models.WindowBar{
			tradeBar(at(9, 15), 100, 1, 50),
			tradeBar(at(10, 30), 101, 1, 500),
		}},
	}

	combined, err := agg.Combine("s", results, 1000)
	require.NoError(t, err)
	require.Len(t, combined.Rows, 2)
	assert.Equal(t, 0, combined.Rows[1].Position)
	assert.Equal(t, 50.0, combined.FinalStrategy())
}

func TestCombineUsesUnionTimeIndex(t *testing.T) {
	agg := newTestAggregator(nil, AggregatorConfig{})
	results := map[int]models.WindowResult{
		10: {Hour: 10, Bars: []models.WindowBar{tradeBar(at(10, 0), 5, -1, 7)}},
		9:  {Hour: 9, Bars: []models.WindowBar{tradeBar(at(9, 0), 4, 1, 3), flatBar(at(11, 0), 6)}},
	}

	combined, err := agg.Combine("s", results, 0)
	require.NoError(t, err)
	require.Len(t, combined.Rows, 3)
	assert.Equal(t, at(9, 0), combined.Rows[0].Time)
	assert.Equal(t, at(10, 0), combined.Rows[1].Time)
	assert.Equal(t, at(11, 0), combined.Rows[2].Time)
	assert.Equal(t, []float64{3, 10, 10}, []float64{
		combined.Rows[0].CumulativeStrategy,
		combined.Rows[1].CumulativeStrategy,
		combined.Rows[2].CumulativeStrategy,
	})
}

func TestCombineFollowsAscendingHourOrder(t *testing.T) {
	agg := newTestAggregator(nil, AggregatorConfig{})
	results := map[int]models.WindowResult{
		14: {Bars: []models.WindowBar{flatBar(at(12, 0), 99)}},
		9:  {Bars: []models.WindowBar{flatBar(at(12, 0), 42)}},
	}
	ordered := []models.WindowResult{
		{Hour: 9, Bars: results[9].Bars},
		{Hour: 14, Bars: results[14].Bars},
	}

	combined, err := agg.Combine("s", results, 0)
	require.NoError(t, err)
	explicit, err := agg.CombineOrdered("s", ordered, 0)
	require.NoError(t, err)

	require.Len(t, combined.Rows, 1)
	assert.Equal(t, 42.0, combined.Rows[0].Close)
	assert.Equal(t, explicit.Rows, combined.Rows)
}

func TestCombineDoesNotMutateInputs(t *testing.T) {
	agg := newTestAggregator(nil, AggregatorConfig{})
	bars := []models.WindowBar{tradeBar(at(9, 0), 4, 1, 3)}
	results := map[int]models.WindowResult{9: {Hour: 9, Bars: bars}}

	combined, err := agg.Combine("s", results, 0)
	require.NoError(t, err)
	combined.Rows[0].StrategyPnL = 1000
	assert.Equal(t, 3.0, bars[0].StrategyPnL)
}

func TestCombineEmpty(t *testing.T) {
	_, err := newTestAggregator(nil, AggregatorConfig{}).Combine("s", nil, 0)
	assert.ErrorIs(t, err, models.ErrNoResults)
}

func TestCombineOrderedCollisions(t *testing.T) {
	first := models.WindowResult{Hour: 9, Bars: []models.WindowBar{tradeBar(at(9, 0), 4, 1, 3)}}
	second := models.WindowResult{Hour: 9, Bars: []models.WindowBar{tradeBar(at(9, 0), 4, -1, -8)}}

	t.Run("last write wins", func(t *testing.T) {
		agg := newTestAggregator(nil, AggregatorConfig{CollisionPolicy: LastWriteWins})
		combined, err := agg.CombineOrdered("s", []models.WindowResult{first, second}, 0)
		require.NoError(t, err)
		assert.Equal(t, -1, combined.Rows[0].Position)
		assert.Equal(t, -8.0, combined.FinalStrategy())
		assert.Equal(t, []time.Time{at(9, 0)}, combined.Collisions)
	})

	t.Run("reject", func(t *testing.T) {
		agg := newTestAggregator(nil, AggregatorConfig{CollisionPolicy: RejectCollisions})
		_, err := agg.CombineOrdered("s", []models.WindowResult{first, second}, 0)
		var mergeErr *models.AmbiguousMergeError
		require.ErrorAs(t, err, &mergeErr)
		assert.Equal(t, at(9, 0), mergeErr.Time)
		assert.Equal(t, []int{9, 9}, mergeErr.Hours)
	})
}
