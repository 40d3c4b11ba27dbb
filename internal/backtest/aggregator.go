package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/signal-lab/internal/logger"
	"github.com/yourusername/signal-lab/internal/metrics"
	"github.com/yourusername/signal-lab/internal/models"
	"github.com/yourusername/signal-lab/internal/strategy"
)

// OutcomeStatus distinguishes a failed aggregation from a successful empty one
type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeNoTrades  OutcomeStatus = "no_trades"
	OutcomeNoResults OutcomeStatus = "no_results"
)

// Job is one strategy definition resolved against its trading constants
type Job struct {
	Definition     models.StrategyDefinition
	Symbol         string
	Start          time.Time
	End            time.Time
	CostPerUnit    float64
	UnitValue      float64
	LotSize        float64
	InitialCash    float64
	DataSourcePath string
}

// AggregateOutcome is the result of running every active hour of a strategy
type AggregateOutcome struct {
	Strategy string
	Status   OutcomeStatus
	Combined *models.CombinedResult
	Results  map[int]models.WindowResult
	Failures map[int]error
	Skipped  []int
}

// AggregatorConfig configures the hourly aggregator
type AggregatorConfig struct {
	Workers         int
	CollisionPolicy CollisionPolicy
}

// HourlyAggregator runs a strategy once per active hour and merges the results
type HourlyAggregator struct {
	runner Runner
	cfg    AggregatorConfig
	log    *logger.BacktestLogger
}

// NewHourlyAggregator creates an aggregator over runner
func NewHourlyAggregator(runner Runner, cfg AggregatorConfig, log *logger.BacktestLogger) *HourlyAggregator {
	if cfg.CollisionPolicy == "" {
		cfg.CollisionPolicy = LastWriteWins
	}
	return &HourlyAggregator{runner: runner, cfg: cfg, log: log}
}

// RunForHour runs the strategy restricted to a single hour. The parameter set
// is copied, take-profit and stop-loss are split off, and the allowed hours
// are forced to {hour}. Any runner failure, panics included, is returned as
// an *models.UpstreamUnavailableError keyed by the hour.
func (a *HourlyAggregator) RunForHour(ctx context.Context, job Job, hour int, params models.ParameterSet) (result models.WindowResult, err error) {
	key := fmt.Sprintf("hour %02d", hour)
	defer func() {
		if r := recover(); r != nil {
			err = &models.UpstreamUnavailableError{Component: "runner", Key: key, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	signal, err := strategy.Lookup(job.Definition.Kind)
	if err != nil {
		return models.WindowResult{}, &models.ConfigurationError{Source: job.Definition.Name, Field: "strategy", Err: err}
	}

	params = params.Clone()
	req := RunRequest{
		Symbol:         job.Symbol,
		Timeframe:      job.Definition.Timeframe,
		Start:          job.Start,
		End:            job.End,
		CostPerUnit:    job.CostPerUnit,
		LotSize:        job.LotSize,
		UnitValue:      job.UnitValue,
		InitialCash:    job.InitialCash,
		DataSourcePath: job.DataSourcePath,
		IsIntraday:     job.Definition.IsIntraday,
		Signal:         signal,
		SignalArgs:     params.SignalArgs(),
		PositionType:   params.PositionType,
		TakeProfit:     params.TakeProfit,
		StopLoss:       params.StopLoss,
		AllowedHours:   []int{hour},
	}

	bars, err := a.runner.Run(ctx, req)
	if err != nil {
		return models.WindowResult{}, &models.UpstreamUnavailableError{Component: "runner", Key: key, Err: err}
	}

	result = models.WindowResult{Hour: hour, Bars: bars}
	if err := result.Validate(); err != nil {
		return models.WindowResult{}, &models.UpstreamUnavailableError{Component: "runner", Key: key, Err: err}
	}
	return result, nil
}

type hourRun struct {
	hour   int
	result models.WindowResult
	err    error
}

// Run executes every active hour and combines the successful results in
// ascending hour order. Hours without parameters are skipped, failing hours
// are recorded in Failures. When no hour succeeds the outcome has status
// no_results and the error wraps models.ErrNoResults.
func (a *HourlyAggregator) Run(ctx context.Context, job Job) (*AggregateOutcome, error) {
	def := job.Definition
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if _, err := strategy.Lookup(def.Kind); err != nil {
		return nil, &models.ConfigurationError{Source: def.Name, Field: "strategy", Err: err}
	}

	outcome := &AggregateOutcome{
		Strategy: def.Name,
		Results:  make(map[int]models.WindowResult),
		Failures: make(map[int]error),
	}

	runs := make([]hourRun, 0, len(def.ActiveHours))
	for _, hour := range def.SortedHours() {
		if _, ok := def.HourParameters[hour]; !ok {
			a.log.LogMissingHourParameters(def.Name, hour)
			metrics.RecordHourRun(hour, "skipped")
			outcome.Skipped = append(outcome.Skipped, hour)
			continue
		}
		runs = append(runs, hourRun{hour: hour})
	}

	if err := a.runHours(ctx, job, runs); err != nil {
		return nil, err
	}

	for _, r := range runs {
		if r.err != nil {
			outcome.Failures[r.hour] = r.err
			continue
		}
		outcome.Results[r.hour] = r.result
	}

	if len(outcome.Results) == 0 {
		outcome.Status = OutcomeNoResults
		a.log.LogNoResults(def.Name, len(outcome.Failures), len(outcome.Skipped))
		return outcome, fmt.Errorf("%s: %w", def.Name, models.ErrNoResults)
	}

	combined, err := a.Combine(def.Name, outcome.Results, job.InitialCash)
	if err != nil {
		return outcome, err
	}
	outcome.Combined = combined

	trades := combined.Trades()
	outcome.Status = OutcomeCompleted
	if trades == 0 {
		outcome.Status = OutcomeNoTrades
	}
	a.log.LogCombined(def.Name, combined.Hours, len(combined.Rows), trades, combined.FinalStrategy())
	metrics.UpdateCombinedResult(def.Name, def.StrategyIDLabel(), trades, combined.FinalStrategy())
	return outcome, nil
}

// runHours fills runs in place, sequentially or with bounded parallelism.
// Slots are indexed so the merge order never depends on completion order.
func (a *HourlyAggregator) runHours(ctx context.Context, job Job, runs []hourRun) error {
	if a.cfg.Workers <= 1 {
		for i := range runs {
			if err := ctx.Err(); err != nil {
				return err
			}
			a.runSlot(ctx, job, &runs[i])
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)
	for i := range runs {
		slot := &runs[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a.runSlot(gctx, job, slot)
			return nil
		})
	}
	return g.Wait()
}

func (a *HourlyAggregator) runSlot(ctx context.Context, job Job, slot *hourRun) {
	name := job.Definition.Name
	params, _ := job.Definition.ParametersFor(slot.hour)

	a.log.LogHourStarted(name, job.Symbol, slot.hour)
	started := time.Now()
	slot.result, slot.err = a.RunForHour(ctx, job, slot.hour, params)
	if slot.err != nil {
		a.log.LogHourFailed(name, slot.hour, slot.err)
		metrics.RecordHourRun(slot.hour, "failure")
		return
	}
	a.log.LogHourCompleted(name, slot.hour, len(slot.result.Bars), slot.result.Trades(), time.Since(started))
	metrics.RecordHourRun(slot.hour, "success")
}

// Combine merges per-hour results, keyed by their configured hour, in
// ascending hour order; that ascending order is the configured hour order
// for collision resolution. Callers needing another order use
// CombineOrdered. An empty map yields models.ErrNoResults.
func (a *HourlyAggregator) Combine(name string, results map[int]models.WindowResult, initialCash float64) (*models.CombinedResult, error) {
	if len(results) == 0 {
		return nil, models.ErrNoResults
	}
	hours := make([]int, 0, len(results))
	for h := range results {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	ordered := make([]models.WindowResult, 0, len(hours))
	for _, h := range hours {
		r := results[h]
		r.Hour = h
		ordered = append(ordered, r)
	}
	return a.CombineOrdered(name, ordered, initialCash)
}

// CombineOrdered merges results in the given order into a new combined
// series. The time index is the union of every input's bars; OHLC comes from
// the first result holding each timestamp. A result only claims bars whose
// clock hour equals its hour and whose position is non-zero. A bar claimed
// twice is a collision, resolved by the configured policy.
func (a *HourlyAggregator) CombineOrdered(name string, results []models.WindowResult, initialCash float64) (*models.CombinedResult, error) {
	if len(results) == 0 {
		return nil, models.ErrNoResults
	}

	index := make(map[time.Time]int)
	var rows []models.CombinedRow
	for _, r := range results {
		for _, b := range r.Bars {
			key := b.Time.UTC()
			if _, ok := index[key]; ok {
				continue
			}
			index[key] = len(rows)
			rows = append(rows, models.CombinedRow{Bar: b.Bar, Hour: -1})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Time.Before(rows[j].Time) })
	for i, row := range rows {
		index[row.Time.UTC()] = i
	}

	combined := &models.CombinedResult{InitialCash: initialCash}
	seen := make(map[int]bool, len(results))
	for _, r := range results {
		if !seen[r.Hour] {
			seen[r.Hour] = true
			combined.Hours = append(combined.Hours, r.Hour)
		}
		for _, b := range r.Bars {
			if b.Position == 0 || b.Time.Hour() != r.Hour {
				continue
			}
			row := &rows[index[b.Time.UTC()]]
			if row.Hour >= 0 {
				if err := a.collide(name, combined, b.Time, row.Hour, r.Hour); err != nil {
					return nil, err
				}
			}
			row.Position = b.Position
			row.StrategyPnL = b.StrategyPnL
			row.TradeStatus = b.TradeStatus
			row.RealizedPoints = b.RealizedPoints
			row.Hour = r.Hour
		}
	}
	sort.Ints(combined.Hours)

	combined.Rows = rows
	Accumulate(combined)
	metrics.RecordMergeCollisions(name, len(combined.Collisions))
	return combined, nil
}

func (a *HourlyAggregator) collide(name string, combined *models.CombinedResult, t time.Time, previous, hour int) error {
	combined.Collisions = append(combined.Collisions, t)
	a.log.LogAmbiguousMerge(name, t, previous, hour)
	if a.cfg.CollisionPolicy == RejectCollisions {
		return &models.AmbiguousMergeError{Time: t, Hours: []int{previous, hour}}
	}
	return nil
}

// Accumulate recomputes the cumulative strategy and equity columns
func Accumulate(c *models.CombinedResult) {
	running := 0.0
	for i := range c.Rows {
		running += c.Rows[i].StrategyPnL
		c.Rows[i].CumulativeStrategy = running
		c.Rows[i].Equity = c.InitialCash + running
	}
}

// IsNoResults reports whether err means every hour failed or was skipped
func IsNoResults(err error) bool {
	return errors.Is(err, models.ErrNoResults)
}
