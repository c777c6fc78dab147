package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/tablint/pkg/cli"
	"mercator-hq/tablint/pkg/runner"
)

// jobFlags are the per-run flags shared by run, watch and schedule.
type jobFlags struct {
	rules      string
	source     string
	idField    string
	outputDir  string
	outputFile string
}

func (f *jobFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.rules, "rules", "r", "", "rule document (JSON or YAML)")
	cmd.Flags().StringVarP(&f.source, "source", "s", "", "record source URI")
	cmd.Flags().StringVar(&f.idField, "id-field", "", "record identifier column")
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "report directory")
	cmd.Flags().StringVar(&f.outputFile, "output-file", "", "report file name")
}

func (f *jobFlags) job() runner.Job {
	return runner.Job{
		RulesPath:  f.rules,
		SourceURI:  f.source,
		IDField:    f.idField,
		OutputDir:  f.outputDir,
		OutputFile: f.outputFile,
	}
}

var runFlags struct {
	jobFlags
	format           string
	failOnViolations bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Validate records against a rule document",
	Long: `Validate every record of a source against a rule document and write the
JSON report.

Flags override the run and source sections of the config file.

Source URIs:
  csv:parcels.csv                           CSV with a header row
  jsonl:parcels.jsonl                       one JSON object per line
  sqlite:city.db?table=parcels              SQLite table
  gpkg:city.gpkg?table=parcels              GeoPackage feature table
  postgres://user@host/db?table=gis.parcels PostgreSQL table
A bare path is accepted when its extension names the format.

Examples:
  # Validate a CSV file, report to ./results.json
  tablint run --rules rules.yaml --source parcels.csv

  # GeoPackage table, custom report name
  tablint run --rules rules.json --source "gpkg:city.gpkg?table=parcels" --output-file parcels

  # Exit with status 2 when anything is flagged (CI)
  tablint run --rules rules.yaml --source parcels.csv --fail-on-violations`,
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runFlags.bind(runCmd)
	runCmd.Flags().StringVarP(&runFlags.format, "format", "f", "text", "summary format (text, json)")
	runCmd.Flags().BoolVar(&runFlags.failOnViolations, "fail-on-violations", false, "exit with status 2 when violations are found")
}

func runLint(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(runFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return cli.NewConfigError("format", "run summary supports text and json")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := a.signalContext(cmd.Context())
	defer stop()

	res, err := a.runner.Run(ctx, runFlags.job())
	if err != nil {
		return err
	}

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), runSummary{res}); err != nil {
		return err
	}

	if runFlags.failOnViolations && res.HasViolations() {
		return &cli.ViolationsError{
			FieldViolations: res.Stats.FieldViolations,
			GroupViolations: res.Stats.GroupViolations,
		}
	}
	return nil
}

// runSummary renders a run result for the terminal.
type runSummary struct {
	*runner.Result
}

func (s runSummary) Text() string {
	var sb strings.Builder
	for _, w := range s.Warnings {
		fmt.Fprintf(&sb, "warning: %s\n", w.String())
	}

	status := "✓"
	if s.HasViolations() {
		status = "✗"
	}
	fmt.Fprintf(&sb, "%s %d records checked from %s (id: %s)\n", status, s.Stats.Records, s.Source, s.IDField)
	fmt.Fprintf(&sb, "  field violations: %d\n", s.Stats.FieldViolations)
	fmt.Fprintf(&sb, "  group violations: %d\n", s.Stats.GroupViolations)
	if s.Stats.TypeMismatches > 0 {
		fmt.Fprintf(&sb, "  type mismatches:  %d\n", s.Stats.TypeMismatches)
	}
	fmt.Fprintf(&sb, "  report:           %s\n", s.Location)
	fmt.Fprintf(&sb, "  run id:           %s\n", s.RunID)
	fmt.Fprintf(&sb, "  duration:         %s", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	return sb.String()
}
