package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/tablint/pkg/cli"
	"mercator-hq/tablint/pkg/schedule"
	"mercator-hq/tablint/pkg/server"
)

var scheduleFlags struct {
	jobFlags
	cron       string
	runOnStart bool
	listen     string
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run validation on a cron schedule",
	Long: `Run validation on a cron schedule until interrupted.

The schedule is a standard five-field cron expression or a descriptor such as
@hourly, @daily or "@every 15m". A tick that arrives while the previous run is
still going is skipped. Failed runs are logged and the schedule continues.

Examples:
  # Validate every night at 02:00
  tablint schedule --cron "0 2 * * *" --rules rules.yaml --source parcels.csv

  # Schedule and rules from the config file, first run immediately
  tablint schedule --config tablint.yaml --run-on-start

  # Expose /metrics, /healthz and /readyz on port 9090
  tablint schedule --cron "@every 15m" --listen :9090 --rules rules.yaml --source parcels.csv`,
	RunE: scheduleLint,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleFlags.bind(scheduleCmd)
	scheduleCmd.Flags().StringVar(&scheduleFlags.cron, "cron", "", "cron schedule (default from config)")
	scheduleCmd.Flags().BoolVar(&scheduleFlags.runOnStart, "run-on-start", false, "run once before the first tick")
	scheduleCmd.Flags().StringVar(&scheduleFlags.listen, "listen", "", "serve metrics and health on this address (default from config)")
}

func scheduleLint(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	spec := scheduleFlags.cron
	if spec == "" {
		spec = a.cfg.Schedule.Cron
	}
	if spec == "" {
		return cli.NewConfigError("cron", "no schedule given (use --cron or schedule.cron)")
	}

	job := a.runner.Resolve(scheduleFlags.job())
	s, err := schedule.New(spec, func(ctx context.Context) error {
		_, err := a.runner.Run(ctx, job)
		return err
	}, a.logger.Slog())
	if err != nil {
		return cli.NewConfigError("cron", err.Error())
	}

	ctx, stop := a.signalContext(cmd.Context())
	defer stop()

	if scheduleFlags.runOnStart || a.cfg.Schedule.RunOnStart {
		s.RunNow(ctx)
	}

	if err := s.Start(ctx); err != nil {
		return err
	}
	if next := s.NextRun(); next != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %q, next run at %s (Ctrl+C to stop)\n", spec, next.Format("2006-01-02 15:04:05"))
	}

	listen := scheduleFlags.listen
	if listen == "" {
		listen = a.cfg.Schedule.ListenAddress
	}
	if listen == "" {
		<-ctx.Done()
		s.Stop()
		return nil
	}

	opts := []server.Option{
		server.WithChecker(a.checks(job, 0)),
		server.WithLogger(a.logger.Slog()),
	}
	if a.metrics != nil {
		opts = append(opts, server.WithGatherer(a.metrics.Registry()))
	}
	srv := server.New(server.Config{
		ListenAddress:   listen,
		ShutdownTimeout: a.cfg.Schedule.ShutdownTimeout,
	}, opts...)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving status on %s\n", listen)

	err = srv.Start(ctx)
	s.Stop()
	if err != nil {
		return cli.NewCommandError("schedule", err)
	}
	return nil
}
