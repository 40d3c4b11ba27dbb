package backtest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/signal-lab/internal/config"
	"github.com/yourusername/signal-lab/internal/logger"
	"github.com/yourusername/signal-lab/internal/metrics"
	"github.com/yourusername/signal-lab/internal/models"
	"github.com/yourusername/signal-lab/internal/repository"
)

// File outcome statuses beyond the aggregate ones
const (
	FileFailed  = "failed"
	FileSkipped = "skipped"
)

// FileResult is the outcome of one strategy file
type FileResult struct {
	ConfigFile string
	Status     string
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
	Skipped   int
	Duration  time.Duration
}

// BatchRunner runs every strategy file of a directory, isolating failures per file
type BatchRunner struct {
	cfg        *config.Config
	settings   Settings
	aggregator *HourlyAggregator
	log        *logger.BacktestLogger
	audit      *logger.AuditLogger
	summaries  repository.RunSummaryRepository
}

// BatchOption customizes a BatchRunner
type BatchOption func(*BatchRunner)

// WithSummaryRepository stores one summary row per processed file
func WithSummaryRepository(repo repository.RunSummaryRepository) BatchOption {
	return func(b *BatchRunner) { b.summaries = repo }
}

// NewBatchRunner creates a batch runner
func NewBatchRunner(cfg *config.Config, settings Settings, aggregator *HourlyAggregator, base *logrus.Logger, opts ...BatchOption) *BatchRunner {
	b := &BatchRunner{
		cfg:        cfg,
		settings:   settings,
		aggregator: aggregator,
		log:        logger.NewBacktestLogger(base),
		audit:      logger.NewAuditLogger(base),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RunDir processes every combined strategy file directly inside dir in name order
func (b *BatchRunner) RunDir(ctx context.Context, dir string) (*BatchSummary, error) {
	files, err := config.FindStrategyFiles(dir)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	summary := &BatchSummary{RunID: uuid.New()}
	b.log.WithFields(logrus.Fields{"dir": dir, "files": len(files), "run_id": summary.RunID}).Info("Starting backtest batch")

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res := b.runPath(ctx, summary.RunID, path, true)
		summary.add(res)
	}

	summary.Duration = time.Since(started)
	b.audit.LogBatchSummary(summary.RunID.String(), "backtest", len(files), summary.Succeeded, summary.Empty, summary.Failed, summary.Duration)
	metrics.RecordRunDuration("backtest", summary.Duration.Seconds())
	return summary, nil
}

// RunFile processes a single strategy file regardless of its name
func (b *BatchRunner) RunFile(ctx context.Context, path string) FileResult {
	return b.runPath(ctx, uuid.New(), path, false)
}

func (s *BatchSummary) add(res FileResult) {
	s.Results = append(s.Results, res)
	switch res.Status {
	case string(OutcomeCompleted):
		s.Succeeded++
	case string(OutcomeNoTrades):
		s.Empty++
	case FileSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

func (b *BatchRunner) runPath(ctx context.Context, runID uuid.UUID, path string, onlyCombined bool) FileResult {
	name := filepath.Base(path)
	res := FileResult{ConfigFile: name}
	started := time.Now()

	file, err := config.LoadStrategyFile(path)
	if err != nil {
		if onlyCombined && !config.IsCombinedStrategyName(name) {
			res.Status = FileSkipped
			return res
		}
		return b.fail(ctx, runID, res, started, err)
	}
	if onlyCombined && !file.IsCombinedStrategy() {
		b.log.WithField("config_file", name).Debug("Not a combined strategy file, skipping")
		res.Status = FileSkipped
		return res
	}

	job := b.JobFor(file.Definition)
	report := &Report{ConfigFile: name, Definition: file.Definition, Symbol: job.Symbol}
	res.Report = report

	outcome, err := b.aggregator.Run(ctx, job)
	report.Outcome = outcome
	if err != nil {
		res = b.fail(ctx, runID, res, started, err)
		if IsNoResults(err) {
			res.Status = string(OutcomeNoResults)
		}
		return res
	}

	report.Metrics = CalculateMetrics(outcome.Combined)
	if b.settings.MonteCarloIterations > 0 && report.Metrics.TotalTrades > 0 {
		mc, err := RunMonteCarlo(ctx, TradePnLs(outcome.Combined), MonteCarloConfig{
			Iterations:  b.settings.MonteCarloIterations,
			Seed:        b.settings.MonteCarloSeed,
			InitialCash: job.InitialCash,
		})
		if err == nil {
			report.MonteCarlo = &mc
		}
	}

	def := file.Definition
	out := filepath.Join(b.settings.OutputDir, CombinedFileName(job.Symbol, def.Timeframe, def.Kind, def.StrategyIDLabel()))
	if err := WriteCombinedCSV(out, outcome.Combined); err != nil {
		return b.fail(ctx, runID, res, started, err)
	}
	report.OutputPath = out
	b.audit.LogReportWritten(out, len(outcome.Combined.Rows))

	res.Status = string(outcome.Status)
	outcomeLabel := "success"
	if outcome.Status == OutcomeNoTrades {
		outcomeLabel = "empty"
	}
	metrics.RecordConfigRun("backtest", outcomeLabel)
	b.record(ctx, runID, res, def, report.Metrics.TotalTrades, outcome.Combined.FinalStrategy(), started)
	return res
}

// JobFor resolves a strategy definition against symbol constants and the run range
func (b *BatchRunner) JobFor(def models.StrategyDefinition) Job {
	sym := b.cfg.ResolveSymbol(def.Symbol)
	lot := def.LotSize
	if lot <= 0 {
		lot = b.settings.DefaultLotSize
	}
	return Job{
		Definition:     def,
		Symbol:         sym.Name,
		Start:          b.settings.StartDate,
		End:            b.settings.RangeEnd(),
		CostPerUnit:    sym.CostPerUnit,
		UnitValue:      sym.UnitValue,
		LotSize:        lot,
		InitialCash:    b.settings.InitialCash,
		DataSourcePath: sym.DataPath,
	}
}

func (b *BatchRunner) fail(ctx context.Context, runID uuid.UUID, res FileResult, started time.Time, err error) FileResult {
	res.Status = FileFailed
	res.Err = err
	b.log.LogConfigFailed(res.ConfigFile, err)
	metrics.RecordConfigRun("backtest", "failure")

	var def models.StrategyDefinition
	if res.Report != nil {
		def = res.Report.Definition
	}
	b.record(ctx, runID, res, def, 0, 0, started)
	return res
}

func (b *BatchRunner) record(ctx context.Context, runID uuid.UUID, res FileResult, def models.StrategyDefinition, trades int, final float64, started time.Time) {
	if b.summaries == nil {
		return
	}
	summary := &models.RunSummary{
		ID:          uuid.New(),
		RunID:       runID,
		Kind:        models.RunKindBacktest,
		ConfigFile:  res.ConfigFile,
		Strategy:    string(def.Kind),
		StrategyID:  def.StrategyID,
		Status:      res.Status,
		Trades:      trades,
		FinalValue:  final,
		StartedAt:   started,
		CompletedAt: time.Now(),
	}
	if res.Err != nil {
		summary.ErrorMessage = res.Err.Error()
	}
	if err := b.summaries.Create(ctx, summary); err != nil {
		b.log.WithError(err).WithField("config_file", res.ConfigFile).Warn("Failed to store run summary")
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
