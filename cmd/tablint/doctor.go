package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/tablint/pkg/cli"
	"mercator-hq/tablint/pkg/runner"
	"mercator-hq/tablint/pkg/sink"
	"mercator-hq/tablint/pkg/telemetry/health"
)

var doctorFlags struct {
	jobFlags
	format  string
	timeout time.Duration
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that a run can succeed without running it",
	Long: `Check every dependency of a run: the rule document compiles, the source
opens and has the identifier column, the report destination is writable, and
history, metrics and tracing are set up as configured.

Examples:
  tablint doctor --rules rules.yaml --source "gpkg:city.gpkg?table=parcels"
  tablint doctor --config tablint.yaml --format json`,
	RunE: doctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorFlags.bind(doctorCmd)
	doctorCmd.Flags().StringVarP(&doctorFlags.format, "format", "f", "text", "output format (text, json)")
	doctorCmd.Flags().DurationVar(&doctorFlags.timeout, "timeout", 10*time.Second, "timeout for each check")
}

func doctor(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(doctorFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return cli.NewConfigError("format", "doctor supports text and json")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := a.signalContext(cmd.Context())
	defer stop()

	report := a.checks(doctorFlags.job(), doctorFlags.timeout).Run(ctx)
	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), doctorReport{report}); err != nil {
		return err
	}
	if !report.Healthy() {
		return cli.NewCommandError("doctor", errors.New("one or more checks failed"))
	}
	return nil
}

// checks registers a check for every dependency of job.
func (a *app) checks(job runner.Job, timeout time.Duration) *health.Checker {
	job = a.runner.Resolve(job)
	c := health.New(timeout)

	c.Register("rules", func(ctx context.Context) error {
		if job.RulesPath == "" {
			return errors.New("no rule document given")
		}
		plan, err := a.runner.Check(job.RulesPath)
		if err != nil {
			return errors.New(firstLine(err))
		}
		if len(plan.Warnings) > 0 {
			a.logger.Warn("rule document has warnings", "count", len(plan.Warnings))
		}
		return nil
	})

	c.Register("source", func(ctx context.Context) error {
		if _, err := a.runner.Probe(ctx, job); err != nil {
			return errors.New(firstLine(err))
		}
		return nil
	})

	c.Register("sink", func(ctx context.Context) error {
		if a.cfg.Sink.Kind == "s3" {
			_, err := sink.New(ctx, &a.cfg.Sink, job.OutputDir)
			return err
		}
		return checkWritableDir(job.OutputDir)
	})

	c.Register("history", func(ctx context.Context) error {
		if a.history == nil {
			return health.ErrSkipped
		}
		_, err := a.history.List(ctx, 1)
		return err
	})

	c.Register("metrics", func(ctx context.Context) error {
		mc := a.cfg.Telemetry.Metrics
		if !mc.Enabled {
			return health.ErrSkipped
		}
		if mc.Textfile == "" {
			return nil
		}
		return checkWritableDir(filepath.Dir(mc.Textfile))
	})

	c.Register("tracing", func(ctx context.Context) error {
		if !a.tracer.Enabled() {
			return health.ErrSkipped
		}
		return nil
	})

	return c
}

// checkWritableDir creates dir if needed and writes a scratch file to it.
func checkWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".tablint-doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// doctorReport renders a health report.
type doctorReport struct {
	*health.Report
}

func (r doctorReport) Text() string {
	var sb strings.Builder
	for _, c := range r.Checks {
		mark := "✓"
		switch c.Status {
		case health.StatusFailed:
			mark = "✗"
		case health.StatusSkipped:
			mark = "-"
		}
		fmt.Fprintf(&sb, "%s %-8s %s", mark, c.Name, c.Status)
		if c.Message != "" {
			fmt.Fprintf(&sb, ": %s", c.Message)
		}
		sb.WriteString("\n")
	}
	if r.Healthy() {
		sb.WriteString("Ready to run")
	} else {
		sb.WriteString("Not ready")
	}
	return sb.String()
}
