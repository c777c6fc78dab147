package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/tablint/pkg/cli"
	"mercator-hq/tablint/pkg/config"
	"mercator-hq/tablint/pkg/history"
	"mercator-hq/tablint/pkg/runner"
	"mercator-hq/tablint/pkg/telemetry/logging"
	"mercator-hq/tablint/pkg/telemetry/metrics"
	"mercator-hq/tablint/pkg/telemetry/tracing"
)

// defaultConfigFile is used when --config is not given and the file exists
// in the working directory.
const defaultConfigFile = "tablint.yaml"

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tablint",
	Short: "tablint - rule-based validation for tabular records",
	Long: `tablint validates tabular records against a rule document of pattern
and range rules, combines rule outcomes into groups, and writes a JSON report
of the offending record identifiers.

Records can come from CSV, JSON Lines, SQLite, GeoPackage or PostgreSQL.
Reports are written to a directory or uploaded to S3.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code matching the
// returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: ./"+defaultConfigFile+" when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// configPath returns the config file to load, or "" for defaults and
// environment only.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

// loadConfig loads the configuration named by --config.
func loadConfig() (*config.Config, error) {
	path := configPath()
	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		if path != "" && errors.Is(err, fs.ErrNotExist) {
			return nil, cli.NewConfigError("config", fmt.Sprintf("config file %s not found", path))
		}
		return nil, cli.NewConfigError("config", err.Error())
	}
	return cfg, nil
}

// newLogger builds the logger from cfg; --verbose forces debug level.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	lc := cfg.Telemetry.Logging
	level := lc.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:     level,
		Format:    lc.Format,
		AddSource: lc.AddSource,
		Redact:    lc.Redact,
		Writer:    os.Stderr,
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}

// app bundles what every lint command needs.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	runner  *runner.Runner
	history history.Store
	tracer  *tracing.Tracer
	metrics *metrics.Collector
}

// newApp loads configuration and wires the runner with history and
// metrics as configured.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}
	a := &app{cfg: cfg, logger: logger, tracer: tracer}

	opts := []runner.Option{runner.WithTracer(tracer)}
	if cfg.History.Enabled {
		store, err := openHistory(cfg, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.history = store
		opts = append(opts, runner.WithHistory(store))
	}
	if cfg.Telemetry.Metrics.Enabled {
		a.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		opts = append(opts, runner.WithMetrics(a.metrics))
	}

	a.runner = runner.New(cfg, logger, opts...)
	return a, nil
}

func openHistory(cfg *config.Config, logger *logging.Logger) (history.Store, error) {
	store, err := history.OpenSQLite(history.SQLiteConfig{
		Path:        cfg.History.Path,
		WALMode:     true,
		BusyTimeout: cfg.History.BusyTimeout,
	}, logger.Slog())
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	return store, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM that
// carries any trace context passed in through TRACEPARENT.
func (a *app) signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return cli.SetupSignalHandler(tracing.ExtractEnv(parent, os.Getenv))
}

// Close flushes traces and releases the history store.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("failed to flush traces", "error", err)
	}

	if a.history == nil {
		return
	}
	if err := a.history.Close(); err != nil {
		a.logger.Warn("failed to close run history", "error", err)
	}
}
