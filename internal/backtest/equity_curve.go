package backtest

import (
	"bytes"
	"encoding/json"
	"math"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"

	"github.com/yourusername/signal-lab/internal/models"
)

// EquityPoint represents a point in the equity curve
type EquityPoint struct {
	Time     time.Time `json:"time" csv:"-"`
	Stamp    string    `json:"-" csv:"time"`
	Value    float64   `json:"value" csv:"value"`
	Drawdown float64   `json:"drawdown" csv:"drawdown"`
}

// EquityCurve represents a time-series of equity points
type EquityCurve []EquityPoint

// NewEquityCurve builds the curve from the equity column of a combined result.
// Drawdown is the fraction below the running peak.
func NewEquityCurve(result *models.CombinedResult) EquityCurve {
	if result == nil {
		return EquityCurve{}
	}
	curve := make(EquityCurve, 0, len(result.Rows))
	peak := result.InitialCash
	for _, row := range result.Rows {
		if row.Equity > peak {
			peak = row.Equity
		}
		drawdown := 0.0
		if peak > 0 && row.Equity < peak {
			drawdown = (peak - row.Equity) / peak
		}
		curve = append(curve, EquityPoint{Time: row.Time, Value: row.Equity, Drawdown: drawdown})
	}
	return curve
}

// GetReturns calculates periodic returns from equity curve
func (e EquityCurve) GetReturns() []float64 {
	if len(e) < 2 {
		return []float64{}
	}
	returns := make([]float64, 0, len(e)-1)
	for i := 1; i < len(e); i++ {
		prev := e[i-1].Value
		curr := e[i].Value
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (curr-prev)/prev)
	}
	return returns
}

// GetVolatility calculates the population standard deviation of returns
func (e EquityCurve) GetVolatility() float64 {
	returns := e.GetReturns()
	if len(returns) == 0 {
		return 0
	}
	std, err := stats.StandardDeviationPopulation(returns)
	if err != nil {
		return 0
	}
	return std
}

// GetDownsideDeviation calculates downside deviation of returns
func (e EquityCurve) GetDownsideDeviation() float64 {
	returns := e.GetReturns()
	variance := 0.0
	count := 0
	for _, r := range returns {
		if r < 0 {
			variance += r * r
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(variance / float64(count))
}

// MaxDrawdown returns the largest peak-to-trough fall in currency and as a fraction of the peak
func (e EquityCurve) MaxDrawdown() (float64, float64) {
	maxAbs, maxPct := 0.0, 0.0
	peak := math.Inf(-1)
	for _, p := range e {
		if p.Value > peak {
			peak = p.Value
		}
		if dd := peak - p.Value; dd > maxAbs {
			maxAbs = dd
		}
		if p.Drawdown > maxPct {
			maxPct = p.Drawdown
		}
	}
	return maxAbs, maxPct
}

// ToCSV exports equity curve to CSV string
func (e EquityCurve) ToCSV() (string, error) {
	rows := make([]EquityPoint, len(e))
	for i, p := range e {
		p.Stamp = p.Time.Format(time.RFC3339)
		rows[i] = p
	}
	var buf bytes.Buffer
	if err := gocsv.Marshal(&rows, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ToJSON exports equity curve to JSON string
func (e EquityCurve) ToJSON() string {
	data, _ := json.Marshal(e)
	return string(data)
}
