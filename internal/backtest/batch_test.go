package backtest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/yourusername/signal-lab/internal/config"
	"github.com/yourusername/signal-lab/internal/models"
	mock_repository "github.com/yourusername/signal-lab/internal/repository/mocks"
)

const combinedJSON = `{
  "symbol": "WINQ25",
  "timeframe": "t5",
  "strategy": "bb_trend",
  "hours": [9, 10],
  "hour_params": {
    "9": {"bb_length": 20, "std": 2},
    "10": {"bb_length": 14, "std": 1.5}
  },
  "lote": 1,
  "magic_number": 7
}`

func writeStrategyDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func batchFixture(t *testing.T, runner Runner, opts ...BatchOption) (*BatchRunner, Settings) {
	t.Helper()
	cfg := &config.Config{
		Backtest: config.BacktestConfig{DefaultCostPerUnit: 0.5, DefaultUnitValue: 100000, DataPath: "./data"},
		Symbols: map[string]config.SymbolConfig{
			"WIN@N": {Match: "WIN", CostPerUnit: 1, UnitValue: 0.2, DataPath: "./data/b3"},
		},
	}
	settings := Settings{
		StartDate:      day,
		EndDate:        day,
		InitialCash:    30000,
		OutputDir:      t.TempDir(),
		DefaultLotSize: 0.01,
	}
	base := logrus.New()
	base.SetOutput(io.Discard)
	agg := NewHourlyAggregator(runner, AggregatorConfig{}, testBacktestLogger(base))
	return NewBatchRunner(cfg, settings, agg, base, opts...), settings
}

func TestBatchRunnerRunDir(t *testing.T) {
	dir := writeStrategyDir(t, map[string]string{
		"WIN_t5_bb_combined_strategy.json":   combinedJSON,
		"notes.json":                         `{"symbol": "WIN", "strategy": "bb_trend", "timeframe": "t5"}`,
		"broken_combined_strategy.json":      `{"symbol": `,
		"astrology_combined_strategy.json":   `{"symbol": "WIN", "timeframe": "t5", "strategy": "astrology", "hours": [9], "hour_params": {"9": {}}}`,
		"empty_t5_bb_combined_strategy.json": `{"symbol": "WDO", "timeframe": "t5", "strategy": "bb_trend", "hours": [9], "hour_params": {"9": {}}}`,
	})

	runner := RunnerFunc(func(ctx context.Context, req RunRequest) ([]models.WindowBar, error) {
		if req.Symbol != "WIN@N" {
			return sessionRunner(nil)(ctx, req)
		}
		return sessionRunner(map[int]models.WindowBar{
			9:  tradeBar(at(9, 15), 100, 1, 50),
			10: tradeBar(at(10, 30), 101, -1, -20),
		})(ctx, req)
	})

	ctrl := gomock.NewController(t)
	repo := mock_repository.NewMockRunSummaryRepository(ctrl)
	var mu sync.Mutex
	stored := map[string]string{}
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, s *models.RunSummary) error {
		mu.Lock()
		defer mu.Unlock()
		stored[s.ConfigFile] = s.Status
		return nil
	}).Times(4)

	batch, settings := batchFixture(t, runner, WithSummaryRepository(repo))
	summary, err := batch.RunDir(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Empty)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Error(t, summary.Err())

	want := map[string]string{
		"WIN_t5_bb_combined_strategy.json":   "completed",
		"empty_t5_bb_combined_strategy.json": "no_trades",
		"broken_combined_strategy.json":      FileFailed,
		"astrology_combined_strategy.json":   FileFailed,
	}
	if diff := cmp.Diff(want, stored); diff != "" {
		t.Errorf("stored summaries mismatch (-want +got):\n%s", diff)
	}

	out := filepath.Join(settings.OutputDir, "backtest_WIN@N_t5_bb_trend_magic_7.csv")
	combined, err := ReadCombinedCSV(out, 30000)
	require.NoError(t, err)
	assert.Equal(t, 30.0, combined.FinalStrategy())
	assert.Equal(t, 30030.0, combined.FinalEquity())
}

func TestBatchRunnerRunFileNoResults(t *testing.T) {
	dir := writeStrategyDir(t, map[string]string{"single.json": combinedJSON})
	runner := RunnerFunc(func(ctx context.Context, req RunRequest) ([]models.WindowBar, error) {
		return nil, os.ErrNotExist
	})

	batch, _ := batchFixture(t, runner)
	res := batch.RunFile(context.Background(), filepath.Join(dir, "single.json"))

	assert.Equal(t, string(OutcomeNoResults), res.Status)
	assert.True(t, IsNoResults(res.Err))
	require.NotNil(t, res.Report)
	assert.Len(t, res.Report.Outcome.Failures, 2)
}

func TestBatchRunnerJobFor(t *testing.T) {
	batch, settings := batchFixture(t, sessionRunner(nil))

	job := batch.JobFor(models.StrategyDefinition{Symbol: "WINQ25"})
	assert.Equal(t, "WIN@N", job.Symbol)
	assert.Equal(t, 1.0, job.CostPerUnit)
	assert.Equal(t, 0.2, job.UnitValue)
	assert.Equal(t, "./data/b3", job.DataSourcePath)
	assert.Equal(t, 0.01, job.LotSize)
	assert.Equal(t, settings.RangeEnd(), job.End)

	other := batch.JobFor(models.StrategyDefinition{Symbol: "EURUSD", LotSize: 0.5})
	assert.Equal(t, "EURUSD", other.Symbol)
	assert.Equal(t, 100000.0, other.UnitValue)
	assert.Equal(t, 0.5, other.LotSize)
	assert.Equal(t, "./data", other.DataSourcePath)
}
