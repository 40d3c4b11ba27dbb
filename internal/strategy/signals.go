package strategy

import (
	"math"

	"github.com/yourusername/signal-lab/internal/models"
)

// PatternRSITrend goes long on a rising bar with RSI above rsi_high and short
// on a falling bar with RSI below rsi_low.
func PatternRSITrend(bars []models.Bar, args Args) ([]int, error) {
	return patternRSI(bars, args, 1)
}

// PatternRSIAntiTrend fades the same conditions as PatternRSITrend.
func PatternRSIAntiTrend(bars []models.Bar, args Args) ([]int, error) {
	return patternRSI(bars, args, -1)
}

func patternRSI(bars []models.Bar, args Args, sign int) ([]int, error) {
	length, err := args.period("length_rsi")
	if err != nil {
		return nil, err
	}
	low, err := args.param("rsi_low")
	if err != nil {
		return nil, err
	}
	high, err := args.param("rsi_high")
	if err != nil {
		return nil, err
	}

	closeSeries := closePrices(bars)
	pct := PctChange(closeSeries)
	rsi := fillNaN(RSI(closeSeries, length), 0)

	positions := make([]int, len(bars))
	for i := range bars {
		switch {
		case pct[i] > 0 && rsi[i] > high:
			positions[i] = sign
		case pct[i] < 0 && rsi[i] < low:
			positions[i] = -sign
		}
	}
	return finalize(bars, positions, args)
}

// BBTrend goes long when the close breaks above the upper Bollinger band and
// short when it breaks below the lower band.
func BBTrend(bars []models.Bar, args Args) ([]int, error) {
	return bollinger(bars, args, 1)
}

// BBAntiTrend fades Bollinger band breakouts.
func BBAntiTrend(bars []models.Bar, args Args) ([]int, error) {
	return bollinger(bars, args, -1)
}

func bollinger(bars []models.Bar, args Args, sign int) ([]int, error) {
	length, err := args.period("bb_length")
	if err != nil {
		return nil, err
	}
	width, err := args.param("std")
	if err != nil {
		return nil, err
	}

	closeSeries := closePrices(bars)
	mean, std := MeanStd(closeSeries, length)

	positions := make([]int, len(bars))
	for i := 1; i < len(bars); i++ {
		if math.IsNaN(mean[i]) || math.IsNaN(mean[i-1]) {
			continue
		}
		lower, upper := mean[i]-width*std[i], mean[i]+width*std[i]
		prevLower, prevUpper := mean[i-1]-width*std[i-1], mean[i-1]+width*std[i-1]

		crossDown := closeSeries[i] < lower && closeSeries[i-1] >= prevLower
		crossUp := closeSeries[i] > upper && closeSeries[i-1] <= prevUpper
		switch {
		case crossDown:
			positions[i] = -sign
		case crossUp:
			positions[i] = sign
		}
	}
	return finalize(bars, positions, args)
}

// MACDCrossoverTrend follows crossings of the MACD line through its signal line.
func MACDCrossoverTrend(bars []models.Bar, args Args) ([]int, error) {
	return macdCrossover(bars, args, 1)
}

// MACDCrossoverAntiTrend fades crossings of the MACD line through its signal line.
func MACDCrossoverAntiTrend(bars []models.Bar, args Args) ([]int, error) {
	return macdCrossover(bars, args, -1)
}

func macdCrossover(bars []models.Bar, args Args, sign int) ([]int, error) {
	fast, err := args.period("fast_period")
	if err != nil {
		return nil, err
	}
	slow, err := args.period("slow_period")
	if err != nil {
		return nil, err
	}
	signalPeriod, err := args.period("signal_period")
	if err != nil {
		return nil, err
	}

	macd, signal := MACD(closePrices(bars), fast, slow, signalPeriod)

	positions := make([]int, len(bars))
	for i := 1; i < len(bars); i++ {
		crossDown := macd[i] < signal[i] && macd[i-1] > signal[i-1]
		crossUp := macd[i] > signal[i] && macd[i-1] <= signal[i-1]
		switch {
		case crossDown:
			positions[i] = -sign
		case crossUp:
			positions[i] = sign
		}
	}
	return finalize(bars, positions, args)
}

// MACD returns the MACD line and its signal line with warmup values set to zero
func MACD(x []float64, fast, slow, signalPeriod int) (macd, signal []float64) {
	fastEMA := EMA(x, fast)
	slowEMA := EMA(x, slow)
	macd = make([]float64, len(x))
	first := -1
	for i := range x {
		macd[i] = fastEMA[i] - slowEMA[i]
		if first < 0 && !math.IsNaN(macd[i]) {
			first = i
		}
	}
	signal = make([]float64, len(x))
	for i := range signal {
		signal[i] = math.NaN()
	}
	if first >= 0 {
		tail := EMA(macd[first:], signalPeriod)
		copy(signal[first:], tail)
	}
	return fillNaN(macd, 0), fillNaN(signal, 0)
}

// MomentumBreakout trades strong momentum over lookback_period confirmed by
// volume above volume_factor times its rolling average.
func MomentumBreakout(bars []models.Bar, args Args) ([]int, error) {
	lookback, err := args.period("lookback_period")
	if err != nil {
		return nil, err
	}
	threshold, err := args.param("momentum_threshold")
	if err != nil {
		return nil, err
	}
	factor := args.paramOr("volume_factor", 1.5)

	closeSeries := closePrices(bars)
	volumes := make([]float64, len(bars))
	var totalVolume float64
	for i, b := range bars {
		volumes[i] = b.Volume
		totalVolume += b.Volume
	}
	meanVolume := 0.0
	if len(bars) > 0 {
		meanVolume = totalVolume / float64(len(bars))
	}
	avgVolume := fillNaN(SMA(volumes, lookback), meanVolume)

	positions := make([]int, len(bars))
	for i := lookback; i < len(bars); i++ {
		base := closeSeries[i-lookback]
		if base == 0 {
			continue
		}
		momentum := (closeSeries[i] - base) / base
		if volumes[i] <= avgVolume[i]*factor {
			continue
		}
		switch {
		case momentum > threshold:
			positions[i] = 1
		case momentum < -threshold:
			positions[i] = -1
		}
	}
	return finalize(bars, positions, args)
}

func closePrices(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
