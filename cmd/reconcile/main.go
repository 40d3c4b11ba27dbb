// Package main provides the entry point for the broker trade reconciliation CLI.
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

	"github.com/yourusername/signal-lab/internal/broker"
	"github.com/yourusername/signal-lab/internal/config"
	"github.com/yourusername/signal-lab/internal/database"
	"github.com/yourusername/signal-lab/internal/health"
	"github.com/yourusername/signal-lab/internal/logger"
	"github.com/yourusername/signal-lab/internal/metrics"
	"github.com/yourusername/signal-lab/internal/reconcile"
	"github.com/yourusername/signal-lab/internal/repository"
	"github.com/yourusername/signal-lab/internal/scheduler"
)

// Build information - set via ldflags
var Version = "dev"

var (
	configFile string
	configsDir string
	endDate    string
	outputDir  string
	mode       string
	schedule   string
	dealsFile  string
	envFile    string

	log    *logrus.Logger
	cfg    *config.Config
	db     *database.DB
	repos  *repository.Repositories
	status *health.Server
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultPath(), "Path to configuration file")
	rootCmd.Flags().StringVar(&configsDir, "configs-dir", "", "Directory holding strategy *.json files")
	rootCmd.Flags().StringVar(&endDate, "end", "", "End date for every configuration (YYYY-MM-DD, default today)")
	rootCmd.Flags().StringVar(&outputDir, "output", "", "Directory for reconciled trade CSVs")
	rootCmd.Flags().StringVar(&mode, "mode", "", "Deal classification: comment_tag or strategy_tag")
	rootCmd.Flags().StringVar(&schedule, "schedule", "", `Keep running and reconcile on a cron schedule, e.g. "@every 15m"`)
	rootCmd.Flags().StringVar(&dealsFile, "deals-file", "", "Replay an exported deal history CSV instead of the broker API")
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "Env file with BROKER_LOGIN, BROKER_PASSWORD and BROKER_SERVER")
}

var rootCmd = &cobra.Command{
	Use:          "reconcile",
	Short:        "Rebuild realized trades from broker deal history",
	Long:         `Fetches the deal history of every strategy configuration through one broker session, pairs entries with exits and writes the realized trades with cumulative equity.`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return setupDependencies(cmd.Context())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		defer closeDependencies()
		return runReconcile(cmd.Context())
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

func loadConfig(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}

	if configsDir != "" {
		cfg.Reconcile.ConfigDir = configsDir
	}
	if outputDir != "" {
		cfg.Reconcile.OutputDir = outputDir
	}
	if mode != "" {
		cfg.Reconcile.ClassificationMode = mode
	}
	if schedule != "" {
		cfg.Reconcile.Schedule = schedule
	}
	if dealsFile != "" {
		cfg.Broker.Venue = "csv"
		cfg.Broker.DealsFile = dealsFile
	}

	if err := config.LoadCredentials(ctx, cfg, envFile); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	return config.ValidateBroker(cfg)
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
		status = health.NewServer(health.Config{
			ServiceName: "reconcile",
			Version:     Version,
			Port:        cfg.Metrics.Port,
			MetricsPath: cfg.Metrics.Path,
			Metrics:     metrics.Handler(),
			Logger:      log,
			DB:          pinger(),
		})
		if err := status.Start(ctx); err != nil {
			return err
		}
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

func runReconcile(ctx context.Context) error {
	session, err := broker.NewSession(cfg.Broker, log)
	if err != nil {
		return err
	}

	var opts []reconcile.Option
	if repos != nil {
		opts = append(opts, reconcile.WithSummaryRepository(repos.RunSummary))
	}
	reconciler, err := reconcile.NewReconciler(cfg.Reconcile, log, opts...)
	if err != nil {
		return err
	}

	run := func(ctx context.Context) error {
		summary, err := reconciler.Batch(ctx, session, cfg.Reconcile.ConfigDir, endDate)
		if summary != nil {
			printSummary(summary)
		}
		if status != nil {
			status.RecordRun(time.Now(), err)
		}
		return err
	}

	if cfg.Reconcile.Schedule == "" {
		return run(ctx)
	}
	return monitor(ctx, run)
}

// monitor runs once immediately, then on every tick of the schedule until ctx ends
func monitor(ctx context.Context, run scheduler.Job) error {
	sched := scheduler.NewScheduler(log)
	if err := sched.Schedule("reconcile", cfg.Reconcile.Schedule, 0, run); err != nil {
		return err
	}

	if err := run(ctx); err != nil {
		log.WithError(err).Error("Initial reconciliation failed")
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	if status != nil {
		status.SetReady(true)
	}
	log.WithFields(logrus.Fields{
		"schedule": cfg.Reconcile.Schedule,
		"next_run": sched.GetNextRun(),
	}).Info("Monitoring broker deals")

	<-ctx.Done()
	log.Info("Shutting down monitor")
	return sched.Stop()
}

func printSummary(summary *reconcile.BatchSummary) {
	for _, res := range summary.Results {
		if res.Report != nil && res.Err == nil {
			fmt.Println(reconcile.GenerateConsoleReport(res.Report))
		}
		if res.Err != nil {
			fmt.Printf("%s: %s: %v\n", res.ConfigFile, res.Status, res.Err)
		}
	}

	fmt.Println("\n=== Reconciliation Summary ===")
	fmt.Printf("Run ID: %s\n", summary.RunID)
	fmt.Printf("Files: %d\n", len(summary.Results))
	fmt.Printf("Succeeded: %d\n", summary.Succeeded)
	fmt.Printf("No trades: %d\n", summary.Empty)
	fmt.Printf("Failed: %d\n", summary.Failed)
	fmt.Printf("Duration: %v\n", summary.Duration)
}
