package reconcile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/signal-lab/internal/broker"
	"github.com/yourusername/signal-lab/internal/config"
	"github.com/yourusername/signal-lab/internal/logger"
	"github.com/yourusername/signal-lab/internal/metrics"
	"github.com/yourusername/signal-lab/internal/models"
	"github.com/yourusername/signal-lab/internal/repository"
)

// Status is the outcome of one reconciliation
type Status string

const (
	StatusCompleted Status = "completed"
	StatusNoTrades  Status = "no_trades"
	StatusFailed    Status = "failed"
)

// Report is everything derived for one strategy configuration
type Report struct {
	ConfigFile    string
	Settings      config.ReconcileSettings
	SymbolPattern string
	Status        Status
	Deals         int
	Entries       int
	Exits         int
	Ignored       int
	Stats         PairStats
	Trades        []models.RoundTripTrade
	OutputPath    string
}

// FinalEquity returns the cumulative equity after the last trade
func (r *Report) FinalEquity() float64 {
	return FinalEquity(r.Trades)
}

// Reconciler rebuilds realized trades for strategy configurations
type Reconciler struct {
	cfg       config.ReconcileConfig
	log       *logger.ReconcileLogger
	audit     *logger.AuditLogger
	summaries repository.RunSummaryRepository
	now       func() time.Time
}

// Option customizes a Reconciler
type Option func(*Reconciler)

// WithSummaryRepository stores one summary row per processed configuration
func WithSummaryRepository(repo repository.RunSummaryRepository) Option {
	return func(r *Reconciler) { r.summaries = repo }
}

// WithClock overrides the clock used for the default end date
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// NewReconciler creates a reconciler. The classification mode and exit
// selection are fixed for its lifetime.
func NewReconciler(cfg config.ReconcileConfig, base *logrus.Logger, opts ...Option) (*Reconciler, error) {
	switch ClassificationMode(cfg.ClassificationMode) {
	case ModeCommentTag, ModeStrategyTag:
	case "":
		cfg.ClassificationMode = string(ModeCommentTag)
	default:
		return nil, &models.ConfigurationError{Source: "reconcile", Field: "classification_mode", Err: fmt.Errorf("unknown mode %q", cfg.ClassificationMode)}
	}
	switch ExitSelection(cfg.ExitSelection) {
	case ExitEarliest, ExitLatest, ExitReject:
	case "":
		cfg.ExitSelection = string(ExitEarliest)
	default:
		return nil, &models.ConfigurationError{Source: "reconcile", Field: "exit_selection", Err: fmt.Errorf("unknown policy %q", cfg.ExitSelection)}
	}

	r := &Reconciler{
		cfg:   cfg,
		log:   logger.NewReconcileLogger(base),
		audit: logger.NewAuditLogger(base),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run fetches the deals of one configuration and reconciles them. A fetch
// failure is returned as *models.UpstreamUnavailableError; an empty outcome is
// a report with StatusNoTrades, not an error.
func (r *Reconciler) Run(ctx context.Context, fetcher broker.DealFetcher, s config.ReconcileSettings) (*Report, error) {
	configName := filepath.Base(s.ConfigFile)
	report := &Report{
		ConfigFile:    configName,
		Settings:      s,
		SymbolPattern: broker.NormalizeSymbolPattern(s.Symbol),
	}

	classifier, err := NewClassifier(r.cfg.ClassificationMode, r.cfg.EntryMarker, s.StrategyID)
	if err != nil {
		var cfgErr *models.ConfigurationError
		if errors.As(err, &cfgErr) {
			cfgErr.Source = configName
		}
		return report, err
	}

	deals, err := fetcher.FetchDeals(ctx, report.SymbolPattern, s.Start, s.FetchEnd())
	if err != nil {
		return report, &models.UpstreamUnavailableError{Component: "broker", Key: report.SymbolPattern, Err: err}
	}
	report.Deals = len(deals)
	r.log.LogDealsFetched(report.SymbolPattern, s.StrategyID, len(deals))
	metrics.RecordDealsFetched(report.SymbolPattern, len(deals))

	entries, exits, ignored := Classify(classifier, deals)
	report.Entries, report.Exits, report.Ignored = len(entries), len(exits), ignored
	r.log.LogClassification(string(classifier.Mode()), s.StrategyID, len(entries), len(exits), ignored)
	metrics.RecordClassification(len(entries), len(exits), ignored)

	pairs, stats, err := Pair(entries, exits, ExitSelection(r.cfg.ExitSelection))
	report.Stats = stats
	if err != nil {
		return report, &models.ConfigurationError{Source: configName, Field: "exit_selection", Err: err}
	}
	if stats.OpenEntries+stats.OrphanExits+stats.DuplicateExits > 0 {
		r.log.LogUnmatched(s.StrategyID, stats.OpenEntries, stats.OrphanExits, stats.DuplicateExits)
		metrics.RecordUnmatched(stats.OpenEntries, stats.OrphanExits, stats.DuplicateExits)
	}

	aligned := AlignTrades(pairs, TimeframeOffset(s.Timeframe))
	report.Trades = FilterAndAccumulate(aligned, s.StrategyID, s.CostPerLot)

	if len(report.Trades) == 0 {
		report.Status = StatusNoTrades
		r.log.LogNoTrades(configName, s.StrategyID, noTradesReason(report))
		return report, nil
	}

	report.Status = StatusCompleted
	r.log.LogTradesReconciled(configName, s.StrategyID, len(report.Trades), report.FinalEquity())
	metrics.RecordTradesReconciled(s.StrategyID, len(report.Trades), report.FinalEquity())

	if r.cfg.OutputDir != "" {
		out := filepath.Join(r.cfg.OutputDir, ReportFileName(broker.FileSymbol(report.SymbolPattern), s.Timeframe, s.StrategyName, s.StrategyID))
		if err := WriteReport(out, report.Trades); err != nil {
			return report, err
		}
		report.OutputPath = out
		r.audit.LogReportWritten(out, len(report.Trades))
	}
	return report, nil
}

func noTradesReason(r *Report) string {
	switch {
	case r.Deals == 0:
		return "no deals in range"
	case r.Stats.Matched == 0:
		return "no round trips after pairing"
	default:
		return "no trades for this strategy id"
	}
}

// FileResult is the outcome of one configuration file in a batch
type FileResult struct {
	ConfigFile string
	Status     Status
	Report     *Report
	Err        error
}

// BatchSummary aggregates the outcomes of a batch
type BatchSummary struct {
	RunID     uuid.UUID
	Results   []FileResult
	Succeeded int
	Empty     int
	Failed    int
	Duration  time.Duration
}

func (s *BatchSummary) add(res FileResult) {
	s.Results = append(s.Results, res)
	switch res.Status {
	case StatusCompleted:
		s.Succeeded++
	case StatusNoTrades:
		s.Empty++
	default:
		s.Failed++
	}
}

// Err returns a combined error describing failed files, or nil
func (s *BatchSummary) Err() error {
	var errs []error
	for _, r := range s.Results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.ConfigFile, r.Err))
		}
	}
	return errors.Join(errs...)
}

// Batch reconciles every configuration file directly inside dir through one
// broker session. Per-file failures are recorded and processing continues;
// a session failure aborts the batch and is returned.
func (r *Reconciler) Batch(ctx context.Context, session broker.Session, dir, endOverride string) (*BatchSummary, error) {
	files, err := config.FindStrategyFiles(dir)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	summary := &BatchSummary{RunID: uuid.New()}
	if len(files) == 0 {
		r.log.WithField("dir", dir).Warn("No configuration files found")
		return summary, nil
	}
	r.log.WithFields(logrus.Fields{"dir": dir, "files": len(files), "run_id": summary.RunID}).Info("Starting reconciliation batch")

	err = broker.WithSession(ctx, session, r.audit, func(fetcher broker.DealFetcher) error {
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := r.runFile(ctx, summary.RunID, fetcher, path, endOverride)
			summary.add(res)
			if res.Err != nil && isSessionFailure(res.Err) {
				return res.Err
			}
		}
		return nil
	})

	summary.Duration = time.Since(started)
	r.audit.LogBatchSummary(summary.RunID.String(), models.RunKindReconcile, len(files), summary.Succeeded, summary.Empty, summary.Failed, summary.Duration)
	metrics.RecordRunDuration(models.RunKindReconcile, summary.Duration.Seconds())
	return summary, err
}

// RunFile reconciles a single configuration file with an already connected fetcher
func (r *Reconciler) RunFile(ctx context.Context, fetcher broker.DealFetcher, path, endOverride string) FileResult {
	return r.runFile(ctx, uuid.New(), fetcher, path, endOverride)
}

func (r *Reconciler) runFile(ctx context.Context, runID uuid.UUID, fetcher broker.DealFetcher, path, endOverride string) FileResult {
	res := FileResult{ConfigFile: filepath.Base(path)}
	started := time.Now()

	file, err := config.LoadStrategyFile(path)
	if err != nil {
		return r.fail(ctx, runID, res, config.ReconcileSettings{}, started, err)
	}
	settings, err := file.ReconcileSettings(r.cfg, r.now(), endOverride)
	if err != nil {
		return r.fail(ctx, runID, res, settings, started, err)
	}

	report, err := r.Run(ctx, fetcher, settings)
	res.Report = report
	if err != nil {
		return r.fail(ctx, runID, res, settings, started, err)
	}

	res.Status = report.Status
	outcome := "success"
	if report.Status == StatusNoTrades {
		outcome = "empty"
	}
	metrics.RecordConfigRun(models.RunKindReconcile, outcome)
	r.record(ctx, runID, res, settings, len(report.Trades), report.FinalEquity(), started)
	return res
}

func (r *Reconciler) fail(ctx context.Context, runID uuid.UUID, res FileResult, s config.ReconcileSettings, started time.Time, err error) FileResult {
	res.Status = StatusFailed
	res.Err = err
	r.log.LogConfigFailed(res.ConfigFile, err)
	metrics.RecordConfigRun(models.RunKindReconcile, "failure")
	r.record(ctx, runID, res, s, 0, 0, started)
	return res
}

func (r *Reconciler) record(ctx context.Context, runID uuid.UUID, res FileResult, s config.ReconcileSettings, trades int, final float64, started time.Time) {
	if r.summaries == nil {
		return
	}
	summary := &models.RunSummary{
		ID:          uuid.New(),
		RunID:       runID,
		Kind:        models.RunKindReconcile,
		ConfigFile:  res.ConfigFile,
		Strategy:    s.StrategyName,
		StrategyID:  s.StrategyID,
		Status:      string(res.Status),
		Trades:      trades,
		FinalValue:  final,
		StartedAt:   started,
		CompletedAt: time.Now(),
	}
	if res.Err != nil {
		summary.ErrorMessage = res.Err.Error()
	}
	if err := r.summaries.Create(ctx, summary); err != nil {
		r.log.WithError(err).WithField("config_file", res.ConfigFile).Warn("Failed to store run summary")
	}
}

// isSessionFailure reports errors after which no further deals can be fetched
func isSessionFailure(err error) bool {
	var authErr *broker.AuthenticationError
	return errors.Is(err, models.ErrSessionClosed) ||
		errors.Is(err, broker.ErrCircuitOpen) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &authErr)
}
