package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// StrategyKind names a signal function
type StrategyKind string

const (
	StrategyPatternRSITrend        StrategyKind = "pattern_rsi_trend"
	StrategyPatternRSIAntiTrend    StrategyKind = "pattern_rsi_anti_trend"
	StrategyBBTrend                StrategyKind = "bb_trend"
	StrategyBBAntiTrend            StrategyKind = "bb_anti_trend"
	StrategyMACDCrossoverTrend     StrategyKind = "macd_crossover_trend"
	StrategyMACDCrossoverAntiTrend StrategyKind = "macd_crossover_anti_trend"
	StrategyMomentumBreakout       StrategyKind = "momentum_breakout"
)

// PositionType restricts the direction a signal function may emit
type PositionType string

const (
	PositionBoth  PositionType = "both"
	PositionLong  PositionType = "long"
	PositionShort PositionType = "short"
)

// Default risk parameters applied when a parameter set omits them
const (
	DefaultTakeProfit = 0.15
	DefaultStopLoss   = 0.15
)

// ParameterSet holds the per-hour risk and signal parameters
type ParameterSet struct {
	TakeProfit   float64            `json:"tp"`
	StopLoss     float64            `json:"sl"`
	PositionType PositionType       `json:"position_type,omitempty"`
	Signal       map[string]float64 `json:"-"`
}

// UnmarshalJSON reads tp/sl/position_type and keeps every other numeric key as a signal parameter
func (p *ParameterSet) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.TakeProfit = DefaultTakeProfit
	p.StopLoss = DefaultStopLoss
	p.PositionType = PositionBoth
	p.Signal = make(map[string]float64, len(raw))

	for key, value := range raw {
		switch key {
		case "tp":
			if err := json.Unmarshal(value, &p.TakeProfit); err != nil {
				return fmt.Errorf("tp: %w", err)
			}
		case "sl":
			if err := json.Unmarshal(value, &p.StopLoss); err != nil {
				return fmt.Errorf("sl: %w", err)
			}
		case "position_type":
			var pt string
			if err := json.Unmarshal(value, &pt); err != nil {
				return fmt.Errorf("position_type: %w", err)
			}
			p.PositionType = PositionType(pt)
		case "allowed_hours":
			// set per run by the aggregator
		default:
			var f float64
			if err := json.Unmarshal(value, &f); err != nil {
				return fmt.Errorf("parameter %q must be numeric: %w", key, err)
			}
			p.Signal[key] = f
		}
	}
	return nil
}

// MarshalJSON writes the flat representation read by UnmarshalJSON
func (p ParameterSet) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Signal)+3)
	for k, v := range p.Signal {
		out[k] = v
	}
	out["tp"] = p.TakeProfit
	out["sl"] = p.StopLoss
	if p.PositionType != "" {
		out["position_type"] = p.PositionType
	}
	return json.Marshal(out)
}

// Clone returns a deep copy
func (p ParameterSet) Clone() ParameterSet {
	clone := p
	clone.Signal = make(map[string]float64, len(p.Signal))
	for k, v := range p.Signal {
		clone.Signal[k] = v
	}
	return clone
}

// SignalArgs returns a fresh copy of the signal parameters without take-profit and stop-loss
func (p ParameterSet) SignalArgs() map[string]float64 {
	args := make(map[string]float64, len(p.Signal))
	for k, v := range p.Signal {
		if k == "tp" || k == "sl" {
			continue
		}
		args[k] = v
	}
	return args
}

// StrategyDefinition is the immutable description of an hour-restricted strategy
type StrategyDefinition struct {
	Name           string               `json:"name"`
	Symbol         string               `json:"symbol"`
	Timeframe      string               `json:"timeframe"`
	Kind           StrategyKind         `json:"strategy"`
	ActiveHours    []int                `json:"hours"`
	HourParameters map[int]ParameterSet `json:"hour_params"`
	LotSize        float64              `json:"lote"`
	IsIntraday     bool                 `json:"daytrade"`
	StrategyID     int64                `json:"magic_number"`
}

// Validate checks the required fields
func (s StrategyDefinition) Validate() error {
	if s.Symbol == "" {
		return &ConfigurationError{Source: s.Name, Field: "symbol", Err: ErrMissingField}
	}
	if s.Kind == "" {
		return &ConfigurationError{Source: s.Name, Field: "strategy", Err: ErrMissingField}
	}
	if s.Timeframe == "" {
		return &ConfigurationError{Source: s.Name, Field: "timeframe", Err: ErrMissingField}
	}
	for _, h := range s.ActiveHours {
		if h < 0 || h > 23 {
			return &ConfigurationError{Source: s.Name, Field: "hours", Err: fmt.Errorf("hour %d out of range", h)}
		}
	}
	return nil
}

// SortedHours returns the active hours in ascending order without duplicates
func (s StrategyDefinition) SortedHours() []int {
	seen := make(map[int]bool, len(s.ActiveHours))
	hours := make([]int, 0, len(s.ActiveHours))
	for _, h := range s.ActiveHours {
		if seen[h] {
			continue
		}
		seen[h] = true
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours
}

// ParametersFor returns a private copy of the parameters for an hour
func (s StrategyDefinition) ParametersFor(hour int) (ParameterSet, bool) {
	params, ok := s.HourParameters[hour]
	if !ok {
		return ParameterSet{}, false
	}
	return params.Clone(), true
}

// StrategyIDLabel renders the strategy id for file names and metric labels
func (s StrategyDefinition) StrategyIDLabel() string {
	if s.StrategyID == 0 {
		return "NO_MAGIC"
	}
	return strconv.FormatInt(s.StrategyID, 10)
}
