package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/montanaflynn/stats"
)

// MonteCarloConfig configures trade resampling
type MonteCarloConfig struct {
	Iterations  int
	Seed        int64
	InitialCash float64
}

// MonteCarloResult summarizes the distribution of resampled trade sequences
type MonteCarloResult struct {
	Iterations          int                `json:"iterations"`
	MeanFinalEquity     float64            `json:"mean_final_equity"`
	StdFinalEquity      float64            `json:"std_final_equity"`
	Percentile5         float64            `json:"percentile_5"`
	Percentile95        float64            `json:"percentile_95"`
	MedianMaxDrawdown   float64            `json:"median_max_drawdown"`
	WorstMaxDrawdown    float64            `json:"worst_max_drawdown"`
	ProbabilityOfProfit float64            `json:"probability_of_profit"`
	ConfidenceIntervals map[string]float64 `json:"confidence_intervals"`
	Distribution        []float64          `json:"-"`
}

// RunMonteCarlo resamples the trade P&L sequence with replacement and reports
// the spread of final equity and max drawdown. A zero seed uses the clock.
func RunMonteCarlo(ctx context.Context, pnls []float64, cfg MonteCarloConfig) (MonteCarloResult, error) {
	if len(pnls) == 0 {
		return MonteCarloResult{}, fmt.Errorf("monte carlo needs at least one trade")
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = 1000
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	rng := rand.New(rand.NewSource(seed))
	distribution := make([]float64, cfg.Iterations)
	drawdowns := make([]float64, cfg.Iterations)

	for i := 0; i < cfg.Iterations; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return MonteCarloResult{}, err
			}
		}
		equity := cfg.InitialCash
		peak := equity
		maxDD := 0.0
		for range pnls {
			equity += pnls[rng.Intn(len(pnls))]
			if equity > peak {
				peak = equity
			}
			if dd := peak - equity; dd > maxDD {
				maxDD = dd
			}
		}
		distribution[i] = equity
		drawdowns[i] = maxDD
	}

	result := MonteCarloResult{
		Iterations:          cfg.Iterations,
		ProbabilityOfProfit: probabilityAbove(distribution, cfg.InitialCash),
		ConfidenceIntervals: CalculateConfidenceIntervals(distribution, []float64{0.9, 0.95, 0.99}),
		Distribution:        distribution,
	}
	result.MeanFinalEquity, _ = stats.Mean(distribution)
	result.StdFinalEquity, _ = stats.StandardDeviationPopulation(distribution)
	result.Percentile5 = percentile(distribution, 5)
	result.Percentile95 = percentile(distribution, 95)
	result.MedianMaxDrawdown, _ = stats.Median(drawdowns)
	result.WorstMaxDrawdown, _ = stats.Max(drawdowns)
	return result, nil
}

// CalculateConfidenceIntervals computes the width of central intervals of the distribution
func CalculateConfidenceIntervals(distribution []float64, levels []float64) map[string]float64 {
	results := make(map[string]float64)
	for _, level := range levels {
		tail := (1.0 - level) / 2.0 * 100
		low := percentile(distribution, tail)
		high := percentile(distribution, 100-tail)
		results[formatPercent(level)] = high - low
	}
	return results
}

// ToJSON exports the monte carlo summary
func (m MonteCarloResult) ToJSON() string {
	data, _ := json.Marshal(m)
	return string(data)
}

func percentile(values []float64, p float64) float64 {
	v, err := stats.PercentileNearestRank(values, p)
	if err != nil {
		return 0
	}
	return v
}

func probabilityAbove(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if v > threshold {
			count++
		}
	}
	return float64(count) / float64(len(values))
}

func formatPercent(level float64) string {
	return fmt.Sprintf("%.0f%%", level*100)
}
