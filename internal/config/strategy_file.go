package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yourusername/signal-lab/internal/models"
)

const combinedStrategyMarker = "combined_strategy"

// StrategyFile is one parsed per-strategy JSON configuration file
type StrategyFile struct {
	Path       string
	Definition models.StrategyDefinition

	StartDate     string
	EndDate       string
	CostPerLot    *float64
	HasStrategyID bool
	hasHourParams bool
}

type strategyFileExtras struct {
	DataIni     string          `json:"data_ini"`
	DataFim     string          `json:"data_fim"`
	CostPerLot  *float64        `json:"cost_per_lot"`
	MagicNumber json.RawMessage `json:"magic_number"`
	HourParams  json.RawMessage `json:"hour_params"`
}

// LoadStrategyFile reads a strategy JSON file. Structural problems are
// reported as *models.ConfigurationError keyed by the file name.
func LoadStrategyFile(path string) (*StrategyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.ConfigurationError{Source: filepath.Base(path), Err: err}
	}
	return ParseStrategyFile(filepath.Base(path), data)
}

// ParseStrategyFile parses strategy JSON held in memory
func ParseStrategyFile(name string, data []byte) (*StrategyFile, error) {
	var extras strategyFileExtras
	if err := json.Unmarshal(data, &extras); err != nil {
		return nil, &models.ConfigurationError{Source: name, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	var def models.StrategyDefinition
	magic := bytes.TrimSpace(extras.MagicNumber)
	hasID := len(magic) > 0 && !bytes.Equal(magic, []byte("null"))
	if hasID && magic[0] == '"' {
		// "NO_MAGIC" and other labels mean the strategy carries no id
		data, err := stripKey(data, "magic_number")
		if err != nil {
			return nil, &models.ConfigurationError{Source: name, Err: err}
		}
		hasID = false
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, &models.ConfigurationError{Source: name, Err: err}
		}
	} else if err := json.Unmarshal(data, &def); err != nil {
		return nil, &models.ConfigurationError{Source: name, Err: err}
	}

	if def.Name == "" {
		def.Name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	return &StrategyFile{
		Path:          name,
		Definition:    def,
		StartDate:     extras.DataIni,
		EndDate:       extras.DataFim,
		CostPerLot:    extras.CostPerLot,
		HasStrategyID: hasID,
		hasHourParams: len(bytes.TrimSpace(extras.HourParams)) > 0,
	}, nil
}

func stripKey(data []byte, key string) ([]byte, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	delete(raw, key)
	return json.Marshal(raw)
}

// IsCombinedStrategy reports whether the file describes an hourly combined
// strategy: either its name says so or it carries both hours and hour_params.
func (f *StrategyFile) IsCombinedStrategy() bool {
	if IsCombinedStrategyName(f.Path) {
		return true
	}
	return len(f.Definition.ActiveHours) > 0 && f.hasHourParams
}

// IsCombinedStrategyName reports whether a file name marks a combined strategy
func IsCombinedStrategyName(path string) bool {
	return strings.Contains(filepath.Base(path), combinedStrategyMarker)
}

// FindStrategyFiles lists the *.json files directly inside dir, sorted by name
func FindStrategyFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to search strategy files: %w", err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

// ReconcileSettings is a strategy file resolved for reconciliation with every
// default applied.
type ReconcileSettings struct {
	ConfigFile   string
	StrategyName string
	Symbol       string
	Timeframe    string
	StrategyID   int64
	CostPerLot   float64
	Start        time.Time
	End          time.Time
}

// ReconcileSettings applies the reconciliation defaults. endOverride, when
// non-empty, replaces the file's end date; a missing end date means today.
// Dates are calendar days in UTC, matching deal times.
func (f *StrategyFile) ReconcileSettings(defaults ReconcileConfig, now time.Time, endOverride string) (ReconcileSettings, error) {
	def := f.Definition
	if def.Kind == "" {
		return ReconcileSettings{}, &models.ConfigurationError{Source: f.Path, Field: "strategy", Err: models.ErrMissingField}
	}

	settings := ReconcileSettings{
		ConfigFile:   f.Path,
		StrategyName: string(def.Kind),
		Symbol:       def.Symbol,
		Timeframe:    def.Timeframe,
		StrategyID:   def.StrategyID,
		CostPerLot:   defaults.DefaultCostPerLot,
	}
	if settings.Symbol == "" {
		settings.Symbol = "WIN"
	}
	if settings.Timeframe == "" {
		settings.Timeframe = defaults.DefaultTimeframe
	}
	if !f.HasStrategyID {
		settings.StrategyID = defaults.DefaultStrategyID
	}
	if f.CostPerLot != nil {
		settings.CostPerLot = *f.CostPerLot
	}

	startStr := f.StartDate
	if startStr == "" {
		startStr = defaults.DefaultStartDate
	}
	start, err := time.ParseInLocation(dateLayout, startStr, time.UTC)
	if err != nil {
		return ReconcileSettings{}, &models.ConfigurationError{Source: f.Path, Field: "data_ini", Err: err}
	}

	endStr := endOverride
	if endStr == "" {
		endStr = f.EndDate
	}
	// deal times are UTC, so "today" is the UTC calendar day
	today := now.UTC()
	end := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if endStr != "" {
		end, err = time.ParseInLocation(dateLayout, endStr, time.UTC)
		if err != nil {
			return ReconcileSettings{}, &models.ConfigurationError{Source: f.Path, Field: "data_fim", Err: err}
		}
	}
	if end.Before(start) {
		return ReconcileSettings{}, &models.ConfigurationError{Source: f.Path, Field: "data_fim", Err: fmt.Errorf("end %s before start %s", endStr, startStr)}
	}

	settings.Start = start
	settings.End = end
	return settings, nil
}

// FetchEnd is the exclusive upper bound of the deal query: the day after End
func (s ReconcileSettings) FetchEnd() time.Time {
	return s.End.AddDate(0, 0, 1)
}
