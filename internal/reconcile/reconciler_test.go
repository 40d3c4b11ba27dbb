package reconcile

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mock_broker "github.com/yourusername/signal-lab/internal/broker/mocks"
	"github.com/yourusername/signal-lab/internal/config"
	"github.com/yourusername/signal-lab/internal/models"
	mock_repository "github.com/yourusername/signal-lab/internal/repository/mocks"
)

const strategyJSON = `{
  "symbol": "WINQ25",
  "timeframe": "t5",
  "strategy": "bb_trend",
  "magic_number": 2,
  "data_ini": "2025-06-02",
  "data_fim": "2025-06-02"
}`

func testConfig(t *testing.T) config.ReconcileConfig {
	t.Helper()
	return config.ReconcileConfig{
		OutputDir:          t.TempDir(),
		ClassificationMode: "comment_tag",
		EntryMarker:        "patt",
		ExitSelection:      "earliest",
		DefaultCostPerLot:  0.5,
		DefaultStrategyID:  2,
		DefaultTimeframe:   "t5",
		DefaultStartDate:   "2025-06-01",
	}
}

func newTestReconciler(t *testing.T, cfg config.ReconcileConfig, opts ...Option) *Reconciler {
	t.Helper()
	base := logrus.New()
	base.SetOutput(io.Discard)
	opts = append([]Option{WithClock(func() time.Time { return at(18, 0) })}, opts...)
	r, err := NewReconciler(cfg, base, opts...)
	require.NoError(t, err)
	return r
}

func testSettings() config.ReconcileSettings {
	return config.ReconcileSettings{
		ConfigFile:   "bb.json",
		StrategyName: "bb_trend",
		Symbol:       "WINQ25",
		Timeframe:    "t5",
		StrategyID:   2,
		CostPerLot:   0.5,
		Start:        session,
		End:          session,
	}
}

func sessionDeals() []models.Deal {
	return []models.Deal{
		entryDeal(1, 100, models.DealBuy, at(10, 5), 100, 2),
		exitDeal(2, 100, at(10, 40), 105, 10),
		entryDeal(3, 101, models.DealSell, at(11, 5), 200, 2),
		exitDeal(4, 101, at(11, 20), 202, -4),
		entryDeal(5, 102, models.DealBuy, at(12, 5), 300, 9),
		exitDeal(6, 102, at(12, 30), 301, 2),
		entryDeal(7, 103, models.DealBuy, at(13, 5), 400, 2),
	}
}

func TestReconcilerRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mock_broker.NewMockDealFetcher(ctrl)
	cfg := testConfig(t)
	r := newTestReconciler(t, cfg)

	fetcher.EXPECT().
		FetchDeals(gomock.Any(), "*WIN*", session, session.AddDate(0, 0, 1)).
		Return(sessionDeals(), nil)

	report, err := r.Run(context.Background(), fetcher, testSettings())
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, report.Status)
	assert.Equal(t, 7, report.Deals)
	assert.Equal(t, 4, report.Entries)
	assert.Equal(t, 3, report.Exits)
	assert.Equal(t, PairStats{Matched: 3, OpenEntries: 1}, report.Stats)

	require.Len(t, report.Trades, 2)
	assert.Equal(t, at(10, 0), report.Trades[0].AlignedTime)
	assert.Equal(t, 9.5, report.Trades[0].CostAdjustedProfit)
	assert.Equal(t, -2.0, report.Trades[1].PointsDirectional)
	assert.Equal(t, 5.0, report.FinalEquity())

	wantPath := filepath.Join(cfg.OutputDir, "results_WIN_t5_bb_trend_magic_2.csv")
	assert.Equal(t, wantPath, report.OutputPath)

	written, err := ReadReport(wantPath)
	require.NoError(t, err)
	require.Len(t, written, 2)
	assert.Equal(t, report.Trades[1].AlignedTime, written[1].AlignedTime)
	assert.Equal(t, 5.0, written[1].CumulativeEquity)
	assert.Equal(t, models.DirectionShort, written[1].Direction)

	console := GenerateConsoleReport(report)
	assert.Contains(t, console, "Trades: 2")
	assert.Contains(t, console, "Final result: $5.00")
}

func TestReconcilerRunNoTrades(t *testing.T) {
	tests := []struct {
		name  string
		deals []models.Deal
	}{
		{"no deals", nil},
		{"entry without exit", []models.Deal{entryDeal(1, 5, models.DealBuy, at(10, 0), 100, 2)}},
		{"exit without entry", []models.Deal{exitDeal(2, 5, at(10, 30), 105, 10)}},
		{"other strategy", []models.Deal{entryDeal(1, 5, models.DealBuy, at(10, 0), 100, 3), exitDeal(2, 5, at(10, 30), 105, 10)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			fetcher := mock_broker.NewMockDealFetcher(ctrl)
			cfg := testConfig(t)
			r := newTestReconciler(t, cfg)
			fetcher.EXPECT().FetchDeals(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(tt.deals, nil)

			report, err := r.Run(context.Background(), fetcher, testSettings())
			require.NoError(t, err)
			assert.Equal(t, StatusNoTrades, report.Status)
			assert.Empty(t, report.Trades)
			assert.Empty(t, report.OutputPath)

			entries, _ := os.ReadDir(cfg.OutputDir)
			assert.Empty(t, entries)
		})
	}
}

func TestReconcilerRunStrategyTagMode(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mock_broker.NewMockDealFetcher(ctrl)
	cfg := testConfig(t)
	cfg.ClassificationMode = "strategy_tag"
	r := newTestReconciler(t, cfg)

	deals := []models.Deal{
		{DealID: 1, Time: at(10, 5), Side: models.DealSell, PositionID: 8, StrategyID: 2, Price: 100, Volume: 2},
		{DealID: 2, Time: at(10, 30), PositionID: 8, StrategyID: 0, Price: 90, Volume: 2, Profit: 40},
		{DealID: 3, Time: at(10, 31), PositionID: 9, StrategyID: 4, Price: 90, Volume: 1},
	}
	fetcher.EXPECT().FetchDeals(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(deals, nil)

	report, err := r.Run(context.Background(), fetcher, testSettings())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Ignored)
	require.Len(t, report.Trades, 1)
	assert.Equal(t, 10.0, report.Trades[0].PointsDirectional)
	assert.Equal(t, 39.0, report.FinalEquity())
}

func TestReconcilerRunErrors(t *testing.T) {
	t.Run("fetch failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		fetcher := mock_broker.NewMockDealFetcher(ctrl)
		r := newTestReconciler(t, testConfig(t))
		fetcher.EXPECT().FetchDeals(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))

		_, err := r.Run(context.Background(), fetcher, testSettings())
		assert.True(t, models.IsUpstreamUnavailable(err))
	})

	t.Run("ambiguous exit rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		fetcher := mock_broker.NewMockDealFetcher(ctrl)
		cfg := testConfig(t)
		cfg.ExitSelection = "reject"
		r := newTestReconciler(t, cfg)
		fetcher.EXPECT().FetchDeals(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return([]models.Deal{
			entryDeal(1, 5, models.DealBuy, at(10, 0), 100, 2),
			exitDeal(2, 5, at(10, 30), 105, 5),
			exitDeal(3, 5, at(10, 35), 106, 6),
		}, nil)

		_, err := r.Run(context.Background(), fetcher, testSettings())
		assert.ErrorIs(t, err, ErrAmbiguousExit)
		assert.True(t, models.IsConfigurationError(err))
	})

	t.Run("strategy tag without id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		fetcher := mock_broker.NewMockDealFetcher(ctrl)
		cfg := testConfig(t)
		cfg.ClassificationMode = "strategy_tag"
		r := newTestReconciler(t, cfg)
		s := testSettings()
		s.StrategyID = 0

		_, err := r.Run(context.Background(), fetcher, s)
		assert.True(t, models.IsConfigurationError(err))
	})
}

func TestNewReconcilerRejectsUnknownPolicies(t *testing.T) {
	cfg := testConfig(t)
	cfg.ExitSelection = "median"
	_, err := NewReconciler(cfg, logrus.New())
	assert.True(t, models.IsConfigurationError(err))

	cfg = testConfig(t)
	cfg.ClassificationMode = "volume"
	_, err = NewReconciler(cfg, logrus.New())
	assert.True(t, models.IsConfigurationError(err))
}

func writeConfigDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestBatch(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"a_bb.json":     strategyJSON,
		"b_broken.json": `{"symbol": `,
		"c_wdo.json":    `{"symbol": "WDOQ25", "timeframe": "t5", "strategy": "bb_trend", "magic_number": 2, "data_ini": "2025-06-02"}`,
		"notes.txt":     "ignored",
	})

	ctrl := gomock.NewController(t)
	sess := mock_broker.NewMockSession(ctrl)
	repo := mock_repository.NewMockRunSummaryRepository(ctrl)
	r := newTestReconciler(t, testConfig(t), WithSummaryRepository(repo))

	var stored []*models.RunSummary
	sess.EXPECT().Venue().Return("mock").AnyTimes()
	gomock.InOrder(
		sess.EXPECT().Connect(gomock.Any()).Return(nil),
		sess.EXPECT().FetchDeals(gomock.Any(), "*WIN*", gomock.Any(), gomock.Any()).Return(sessionDeals(), nil),
		sess.EXPECT().FetchDeals(gomock.Any(), "*WDOQ25*", session, session.AddDate(0, 0, 1)).Return(nil, nil),
		sess.EXPECT().Close(gomock.Any()).Return(nil),
	)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, s *models.RunSummary) error {
		stored = append(stored, s)
		return nil
	}).Times(3)

	summary, err := r.Batch(context.Background(), sess, dir, "")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Empty)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Results, 3)
	assert.Equal(t, StatusFailed, summary.Results[1].Status)
	assert.True(t, models.IsConfigurationError(summary.Results[1].Err))
	assert.Error(t, summary.Err())

	require.Len(t, stored, 3)
	assert.Equal(t, models.RunKindReconcile, stored[0].Kind)
	assert.Equal(t, 2, stored[0].Trades)
	assert.Equal(t, 5.0, stored[0].FinalValue)
	assert.Equal(t, summary.RunID, stored[2].RunID)
	assert.Equal(t, "no_trades", stored[2].Status)
}

func TestBatchSessionFailures(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"a_bb.json": strategyJSON,
		"b_bb.json": strategyJSON,
	})

	t.Run("connect failure aborts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		sess := mock_broker.NewMockSession(ctrl)
		r := newTestReconciler(t, testConfig(t))
		sess.EXPECT().Venue().Return("mock").AnyTimes()
		sess.EXPECT().Connect(gomock.Any()).Return(errors.New("terminal not running"))

		summary, err := r.Batch(context.Background(), sess, dir, "")
		assert.True(t, models.IsUpstreamUnavailable(err))
		assert.Empty(t, summary.Results)
	})

	t.Run("lost session aborts the rest", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		sess := mock_broker.NewMockSession(ctrl)
		r := newTestReconciler(t, testConfig(t))
		sess.EXPECT().Venue().Return("mock").AnyTimes()
		sess.EXPECT().Connect(gomock.Any()).Return(nil)
		sess.EXPECT().FetchDeals(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, models.ErrSessionClosed)
		sess.EXPECT().Close(gomock.Any()).Return(nil)

		summary, err := r.Batch(context.Background(), sess, dir, "")
		assert.ErrorIs(t, err, models.ErrSessionClosed)
		assert.Len(t, summary.Results, 1)
		assert.Equal(t, 1, summary.Failed)
	})

	t.Run("empty directory opens no session", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		sess := mock_broker.NewMockSession(ctrl)
		r := newTestReconciler(t, testConfig(t))

		summary, err := r.Batch(context.Background(), sess, t.TempDir(), "")
		require.NoError(t, err)
		assert.Empty(t, summary.Results)
	})
}

func TestBatchEndOverride(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{"a_bb.json": strategyJSON})

	ctrl := gomock.NewController(t)
	sess := mock_broker.NewMockSession(ctrl)
	r := newTestReconciler(t, testConfig(t))
	sess.EXPECT().Venue().Return("mock").AnyTimes()
	sess.EXPECT().Connect(gomock.Any()).Return(nil)
	sess.EXPECT().FetchDeals(gomock.Any(), "*WIN*", session, session.AddDate(0, 0, 5)).Return(nil, nil)
	sess.EXPECT().Close(gomock.Any()).Return(nil)

	summary, err := r.Batch(context.Background(), sess, dir, "2025-06-06")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Empty)
}

func TestBatchFetchRangeIsUTCOnLocalClock(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{"a_bb.json": strategyJSON})
	saoPaulo := time.FixedZone("BRT", -3*60*60)

	ctrl := gomock.NewController(t)
	sess := mock_broker.NewMockSession(ctrl)
	r := newTestReconciler(t, testConfig(t), WithClock(func() time.Time {
		return time.Date(2025, 6, 2, 21, 0, 0, 0, saoPaulo)
	}))
	sess.EXPECT().Venue().Return("mock").AnyTimes()
	sess.EXPECT().Connect(gomock.Any()).Return(nil)
	sess.EXPECT().FetchDeals(gomock.Any(), "*WIN*", session, session.AddDate(0, 0, 1)).
		Return([]models.Deal{
			entryDeal(1, 100, models.DealBuy, session.Add(time.Hour), 100, 2),
			exitDeal(2, 100, session.Add(70*time.Minute), 105, 10),
		}, nil)
	sess.EXPECT().Close(gomock.Any()).Return(nil)

	summary, err := r.Batch(context.Background(), sess, dir, "")
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, 1, summary.Succeeded)
	require.NotNil(t, summary.Results[0].Report)
	assert.Len(t, summary.Results[0].Report.Trades, 1)
}
