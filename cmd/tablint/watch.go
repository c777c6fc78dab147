package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/tablint/pkg/cli"
	"mercator-hq/tablint/pkg/source"
	"mercator-hq/tablint/pkg/watch"
)

var watchFlags struct {
	jobFlags
	debounce time.Duration
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run validation whenever the rules or the data change",
	Long: `Run once, then watch the rule document and a file-based record source
and run again after every change. Bursts of changes are coalesced.

A failed run is reported and watching continues. Stop with Ctrl+C.

Examples:
  # Edit rules.yaml in another window and see the result on save
  tablint watch --rules rules.yaml --source parcels.csv

  # Wait two seconds of quiet before re-running
  tablint watch --rules rules.yaml --source city.gpkg?table=parcels --debounce 2s`,
	RunE: watchLint,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchFlags.bind(watchCmd)
	watchCmd.Flags().DurationVar(&watchFlags.debounce, "debounce", 0, "quiet period before re-running (default from config, 500ms)")
}

func watchLint(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	job := a.runner.Resolve(watchFlags.job())
	if job.RulesPath == "" {
		return cli.NewConfigError("rules", "no rule document given (use --rules or run.rules_path)")
	}

	paths := []string{job.RulesPath}
	if p, ok := source.LocalPath(job.SourceURI); ok {
		paths = append(paths, p)
	}

	debounce := watchFlags.debounce
	if debounce <= 0 {
		debounce = a.cfg.Watch.Debounce
	}

	w, err := watch.New(watch.Config{Paths: paths, Debounce: debounce}, a.logger.Slog())
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := a.signalContext(cmd.Context())
	defer stop()

	out := cmd.OutOrStdout()
	runOnce := func(ctx context.Context) {
		res, err := a.runner.Run(ctx, job)
		if err != nil {
			fmt.Fprintf(out, "✗ run failed: %v\n", err)
			return
		}
		_ = cli.NewFormatter(cli.FormatText).FormatTo(out, runSummary{res})
	}

	runOnce(ctx)
	fmt.Fprintf(out, "Watching %d file(s) for changes (Ctrl+C to stop)\n", len(paths))

	return w.Watch(ctx, func(ctx context.Context, _ []string) {
		runOnce(ctx)
	})
}
