// Package config provides configuration management for the signal-lab tools.
package config

import (
	"fmt"
	"sort"
	"strings"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig               `mapstructure:"app" validate:"required"`
	Backtest  BacktestConfig          `mapstructure:"backtest" validate:"required"`
	Reconcile ReconcileConfig         `mapstructure:"reconcile" validate:"required"`
	Broker    BrokerConfig            `mapstructure:"broker"`
	Database  DatabaseConfig          `mapstructure:"database"`
	Metrics   MetricsConfig           `mapstructure:"metrics"`
	Symbols   map[string]SymbolConfig `mapstructure:"symbols" validate:"dive"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// BacktestConfig represents hourly backtest configuration
type BacktestConfig struct {
	StartDate          string  `mapstructure:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate            string  `mapstructure:"end_date" validate:"required,datetime=2006-01-02"`
	InitialCash        float64 `mapstructure:"initial_cash" validate:"required,gt=0"`
	DataPath           string  `mapstructure:"data_path" validate:"required"`
	OutputDir          string  `mapstructure:"output_dir" validate:"required"`
	StrategyDir        string  `mapstructure:"strategy_dir" validate:"required"`
	Workers            int     `mapstructure:"workers" validate:"gte=0,lte=24"`
	CollisionPolicy    string  `mapstructure:"collision_policy" validate:"required,oneof=last_write_wins reject"`
	DefaultCostPerUnit float64 `mapstructure:"default_cost_per_unit" validate:"gte=0"`
	DefaultUnitValue   float64 `mapstructure:"default_unit_value" validate:"gt=0"`
	DefaultLotSize     float64 `mapstructure:"default_lot_size" validate:"gt=0"`
	CacheTTLSeconds    int     `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
	// MonteCarloIterations enables trade-order resampling of combined results when > 0
	MonteCarloIterations int `mapstructure:"monte_carlo_iterations" validate:"gte=0"`
}

// ReconcileConfig represents broker reconciliation configuration
type ReconcileConfig struct {
	ConfigDir          string  `mapstructure:"config_dir" validate:"required"`
	OutputDir          string  `mapstructure:"output_dir" validate:"required"`
	ClassificationMode string  `mapstructure:"classification_mode" validate:"required,classification"`
	EntryMarker        string  `mapstructure:"entry_marker"`
	ExitSelection      string  `mapstructure:"exit_selection" validate:"required,exitselection"`
	DefaultCostPerLot  float64 `mapstructure:"default_cost_per_lot" validate:"gte=0"`
	DefaultStrategyID  int64   `mapstructure:"default_strategy_id" validate:"gte=0"`
	DefaultTimeframe   string  `mapstructure:"default_timeframe" validate:"required,timeframe"`
	DefaultStartDate   string  `mapstructure:"default_start_date" validate:"required,datetime=2006-01-02"`
	Schedule           string  `mapstructure:"schedule"`
}

// BrokerConfig represents the broker deal-history endpoint
type BrokerConfig struct {
	Venue             string  `mapstructure:"venue" validate:"required,oneof=rest csv"`
	APIURL            string  `mapstructure:"api_url" validate:"omitempty,url"`
	DealsFile         string  `mapstructure:"deals_file"`
	Login             string  `mapstructure:"login"`
	Password          string  `mapstructure:"password"`
	Server            string  `mapstructure:"server"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"gte=0"`
	RetryAttempts     int     `mapstructure:"retry_attempts" validate:"gte=0"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=0"`
}

// DatabaseConfig represents the optional run-summary database
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"gte=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// SymbolConfig holds per-instrument trading constants. Match, when set, maps
// any raw symbol containing it onto this entry (e.g. WINQ25 onto WIN@N).
type SymbolConfig struct {
	Match       string  `mapstructure:"match"`
	CostPerUnit float64 `mapstructure:"cost_per_unit" validate:"gte=0"`
	UnitValue   float64 `mapstructure:"unit_value" validate:"gte=0"`
	DataPath    string  `mapstructure:"data_path"`
}

// ResolvedSymbol is a symbol with every trading constant filled in
type ResolvedSymbol struct {
	Name        string
	CostPerUnit float64
	UnitValue   float64
	DataPath    string
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// ResolveSymbol maps a raw strategy symbol onto its configured constants,
// falling back to the backtest defaults for unknown instruments.
func (c *Config) ResolveSymbol(raw string) ResolvedSymbol {
	upper := strings.ToUpper(raw)
	resolved := ResolvedSymbol{
		Name:        raw,
		CostPerUnit: c.Backtest.DefaultCostPerUnit,
		UnitValue:   c.Backtest.DefaultUnitValue,
		DataPath:    c.Backtest.DataPath,
	}

	name, sym, ok := c.lookupSymbol(upper)
	if !ok {
		return resolved
	}
	resolved.Name = name
	if sym.CostPerUnit > 0 {
		resolved.CostPerUnit = sym.CostPerUnit
	}
	if sym.UnitValue > 0 {
		resolved.UnitValue = sym.UnitValue
	}
	if sym.DataPath != "" {
		resolved.DataPath = sym.DataPath
	}
	return resolved
}

func (c *Config) lookupSymbol(upper string) (string, SymbolConfig, bool) {
	if sym, ok := c.Symbols[upper]; ok {
		return upper, sym, true
	}

	names := make([]string, 0, len(c.Symbols))
	for name := range c.Symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sym := c.Symbols[name]
		if sym.Match != "" && strings.Contains(upper, strings.ToUpper(sym.Match)) {
			return name, sym, true
		}
	}
	return "", SymbolConfig{}, false
}

// normalizeSymbols upper-cases symbol keys, which viper lower-cases on load.
func (c *Config) normalizeSymbols() {
	if len(c.Symbols) == 0 {
		return
	}
	normalized := make(map[string]SymbolConfig, len(c.Symbols))
	for name, sym := range c.Symbols {
		normalized[strings.ToUpper(name)] = sym
	}
	c.Symbols = normalized
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
