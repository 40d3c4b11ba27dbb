package strategy

import (
	"fmt"
	"time"

	"github.com/yourusername/signal-lab/internal/models"
)

// Args are the inputs a signal function receives besides the price series
type Args struct {
	Params       map[string]float64
	AllowedHours []int
	PositionType models.PositionType
}

// SignalFunc computes a position series in {-1,0,1} aligned to the input bars
type SignalFunc func(bars []models.Bar, args Args) ([]int, error)

var registry = map[models.StrategyKind]SignalFunc{
	models.StrategyPatternRSITrend:        PatternRSITrend,
	models.StrategyPatternRSIAntiTrend:    PatternRSIAntiTrend,
	models.StrategyBBTrend:                BBTrend,
	models.StrategyBBAntiTrend:            BBAntiTrend,
	models.StrategyMACDCrossoverTrend:     MACDCrossoverTrend,
	models.StrategyMACDCrossoverAntiTrend: MACDCrossoverAntiTrend,
	models.StrategyMomentumBreakout:       MomentumBreakout,
}

// Lookup resolves a strategy kind to its signal function
func Lookup(kind models.StrategyKind) (SignalFunc, error) {
	fn, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownStrategyKind, kind)
	}
	return fn, nil
}

// Kinds lists every registered strategy kind
func Kinds() []models.StrategyKind {
	kinds := make([]models.StrategyKind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	return kinds
}

func (a Args) param(name string) (float64, error) {
	v, ok := a.Params[name]
	if !ok {
		return 0, fmt.Errorf("missing signal parameter %q", name)
	}
	return v, nil
}

func (a Args) paramOr(name string, fallback float64) float64 {
	if v, ok := a.Params[name]; ok {
		return v
	}
	return fallback
}

func (a Args) period(name string) (int, error) {
	v, err := a.param(name)
	if err != nil {
		return 0, err
	}
	if v < 1 {
		return 0, fmt.Errorf("signal parameter %q must be >= 1, got %v", name, v)
	}
	return int(v), nil
}

// finalize applies the direction restriction and the hour mask in place
func finalize(bars []models.Bar, positions []int, args Args) ([]int, error) {
	switch args.PositionType {
	case "", models.PositionBoth:
	case models.PositionLong:
		for i, p := range positions {
			if p < 0 {
				positions[i] = 0
			}
		}
	case models.PositionShort:
		for i, p := range positions {
			if p > 0 {
				positions[i] = 0
			}
		}
	default:
		return nil, fmt.Errorf("position_type must be long, short or both, got %q", args.PositionType)
	}
	return MaskHours(bars, positions, args.AllowedHours), nil
}

// MaskHours zeroes every position whose bar hour is not allowed; a nil set allows all hours
func MaskHours(bars []models.Bar, positions []int, allowed []int) []int {
	if allowed == nil {
		return positions
	}
	var set [24]bool
	for _, h := range allowed {
		if h >= 0 && h < 24 {
			set[h] = true
		}
	}
	for i := range positions {
		if !set[localHour(bars[i].Time)] {
			positions[i] = 0
		}
	}
	return positions
}

func localHour(t time.Time) int {
	return t.Hour()
}
