// Package main provides the entry point for the hourly combined backtest CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/signal-lab/internal/backtest"
	"github.com/yourusername/signal-lab/internal/config"
	"github.com/yourusername/signal-lab/internal/database"
	"github.com/yourusername/signal-lab/internal/datasource"
	"github.com/yourusername/signal-lab/internal/health"
	"github.com/yourusername/signal-lab/internal/logger"
	"github.com/yourusername/signal-lab/internal/metrics"
	"github.com/yourusername/signal-lab/internal/repository"
)

// Build information - set via ldflags
var Version = "dev"

var (
	configFile    string
	strategiesDir string
	startDate     string
	endDate       string
	outputDir     string
	strategyFile  string
	workers       int

	log   *logrus.Logger
	cfg   *config.Config
	db    *database.DB
	repos *repository.Repositories
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultPath(), "Path to configuration file")
	rootCmd.Flags().StringVar(&strategiesDir, "strategies-dir", "", "Directory holding *combined_strategy*.json files")
	rootCmd.Flags().StringVar(&startDate, "start", "", "Override start date (YYYY-MM-DD)")
	rootCmd.Flags().StringVar(&endDate, "end", "", "Override end date (YYYY-MM-DD)")
	rootCmd.Flags().StringVar(&outputDir, "output", "", "Directory for combined CSV results")
	rootCmd.Flags().StringVar(&strategyFile, "file", "", "Run a single strategy file instead of a directory")
	rootCmd.Flags().IntVar(&workers, "workers", -1, "Hours run in parallel (0 or 1 runs sequentially)")
}

var rootCmd = &cobra.Command{
	Use:          "backtest",
	Short:        "Run hourly combined backtests",
	Long:         `Runs every combined strategy file once per active hour, merges the hour windows into one series and writes the combined CSV.`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return setupDependencies(cmd.Context())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		defer closeDependencies()
		return runBacktest(cmd.Context())
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}

	if strategiesDir != "" {
		cfg.Backtest.StrategyDir = strategiesDir
	}
	if startDate != "" {
		cfg.Backtest.StartDate = startDate
	}
	if endDate != "" {
		cfg.Backtest.EndDate = endDate
	}
	if outputDir != "" {
		cfg.Backtest.OutputDir = outputDir
	}
	if workers >= 0 {
		cfg.Backtest.Workers = workers
	}

	return config.Validate(cfg)
}

func setupDependencies(ctx context.Context) error {
	log = logger.New(logger.Options{Level: cfg.App.LogLevel, Environment: cfg.App.Environment})

	var err error
	db, err = database.Initialize(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if db != nil {
		repos, err = repository.NewRepositories(db)
		if err != nil {
			return fmt.Errorf("failed to initialize repositories: %w", err)
		}
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		srv := health.NewServer(health.Config{
			ServiceName: "backtest",
			Version:     Version,
			Port:        cfg.Metrics.Port,
			MetricsPath: cfg.Metrics.Path,
			Metrics:     metrics.Handler(),
			Logger:      log,
			DB:          pinger(),
		})
		if err := srv.Start(ctx); err != nil {
			return err
		}
		srv.SetReady(true)
	}
	return nil
}

func pinger() health.DatabasePinger {
	if db == nil {
		return nil
	}
	return db
}

func closeDependencies() {
	if db != nil {
		db.Close()
	}
}

func runBacktest(ctx context.Context) error {
	settings, err := backtest.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid backtest settings: %w", err)
	}

	sources := datasource.NewFactory(cfg.Backtest.DataPath, time.Duration(cfg.Backtest.CacheTTLSeconds)*time.Second)
	aggregator := backtest.NewHourlyAggregator(
		backtest.NewSimulator(sources),
		backtest.AggregatorConfig{Workers: settings.Workers, CollisionPolicy: settings.CollisionPolicy},
		logger.NewBacktestLogger(log),
	)

	var opts []backtest.BatchOption
	if repos != nil {
		opts = append(opts, backtest.WithSummaryRepository(repos.RunSummary))
	}
	runner := backtest.NewBatchRunner(cfg, settings, aggregator, log, opts...)

	log.WithFields(logrus.Fields{
		"start":   settings.StartDate.Format("2006-01-02"),
		"end":     settings.EndDate.Format("2006-01-02"),
		"workers": settings.Workers,
	}).Info("Starting backtest")

	if strategyFile != "" {
		res := runner.RunFile(ctx, strategyFile)
		printResult(res)
		return res.Err
	}

	summary, err := runner.RunDir(ctx, settings.StrategyDir)
	if err != nil {
		return err
	}
	for _, res := range summary.Results {
		printResult(res)
	}

	fmt.Println("\n=== Backtest Summary ===")
	fmt.Printf("Run ID: %s\n", summary.RunID)
	fmt.Printf("Files: %d (skipped %d)\n", len(summary.Results), summary.Skipped)
	fmt.Printf("Succeeded: %d\n", summary.Succeeded)
	fmt.Printf("No trades: %d\n", summary.Empty)
	fmt.Printf("Failed: %d\n", summary.Failed)
	fmt.Printf("Duration: %v\n", summary.Duration)

	if summary.Failed > 0 && summary.Succeeded+summary.Empty == 0 {
		return summary.Err()
	}
	return nil
}

func printResult(res backtest.FileResult) {
	if res.Status == backtest.FileSkipped {
		return
	}
	if res.Report != nil {
		fmt.Println(backtest.GenerateConsoleReport(*res.Report))
	}
	if res.Err != nil {
		fmt.Printf("%s: %s: %v\n", res.ConfigFile, res.Status, res.Err)
	}
}
