package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"mercator-hq/tablint/pkg/cli"
	"mercator-hq/tablint/pkg/runner"
	"mercator-hq/tablint/pkg/sink"
)

var batchFlags struct {
	manifest    string
	parallel    int
	format      string
	progress    bool
	failOnViols bool
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run several independent validation jobs",
	Long: `Run the jobs listed in a manifest, several at a time.

Each job has its own rules, source and report; unset fields fall back to the
config file. Unnamed jobs are named job-1, job-2 and so on, and a job without
an output_file writes <name>.json. Two jobs may not write the same report. A
failed job does not stop the others.

Manifest format:
  jobs:
    - name: parcels
      rules: rules/parcels.yaml
      source: gpkg:city.gpkg?table=parcels
    - name: owners
      rules: rules/owners.json
      source: csv:owners.csv
      id_field: OWNER_ID

Examples:
  # Four jobs at a time
  tablint batch --manifest jobs.yaml --parallel 4

  # Summary as CSV
  tablint batch --manifest jobs.yaml --format csv > summary.csv`,
	RunE: batchLint,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&batchFlags.manifest, "manifest", "m", "", "job manifest (YAML)")
	batchCmd.Flags().IntVarP(&batchFlags.parallel, "parallel", "p", 2, "jobs to run at once")
	batchCmd.Flags().StringVarP(&batchFlags.format, "format", "f", "text", "summary format (text, json, csv)")
	batchCmd.Flags().BoolVar(&batchFlags.progress, "progress", true, "show progress on stderr")
	batchCmd.Flags().BoolVar(&batchFlags.failOnViols, "fail-on-violations", false, "exit with status 2 when any job finds violations")
	_ = batchCmd.MarkFlagRequired("manifest")
}

// batchManifest is the on-disk job list.
type batchManifest struct {
	Jobs []runner.Job `yaml:"jobs"`
}

func loadManifest(path string) ([]runner.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cli.NewConfigError("manifest", fmt.Sprintf("failed to read %s: %v", path, err))
	}

	var m batchManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, cli.NewConfigError("manifest", fmt.Sprintf("failed to parse %s: %v", path, err))
	}
	if len(m.Jobs) == 0 {
		return nil, cli.NewConfigError("manifest", fmt.Sprintf("%s lists no jobs", path))
	}

	for i := range m.Jobs {
		job := &m.Jobs[i]
		if job.Name == "" {
			job.Name = "job-" + strconv.Itoa(i+1)
		}
		if job.OutputFile == "" {
			job.OutputFile = job.Name
		}
	}
	return m.Jobs, nil
}

// checkReportTargets rejects a manifest in which two jobs resolve to the
// same report file.
func checkReportTargets(a *app, jobs []runner.Job) error {
	seen := make(map[string]string, len(jobs))
	for _, job := range jobs {
		job = a.runner.Resolve(job)
		target := sink.FileName(job.OutputFile)
		if a.cfg.Sink.Kind != "s3" {
			target = filepath.Clean(filepath.Join(job.OutputDir, target))
		}
		if other, ok := seen[target]; ok {
			return cli.NewConfigError("manifest", fmt.Sprintf("jobs %q and %q both write %s", other, job.Name, target))
		}
		seen[target] = job.Name
	}
	return nil
}

// BatchOutcome is the result of one job in a batch.
type BatchOutcome struct {
	Job    string         `json:"job"`
	Result *runner.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`

	err error
}

// BatchSummary is the outcome of every job, in manifest order.
type BatchSummary struct {
	Outcomes []BatchOutcome `json:"jobs"`
}

func batchLint(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(batchFlags.format)
	if err != nil {
		return err
	}
	if batchFlags.parallel < 1 {
		return cli.NewConfigError("parallel", "must be at least 1")
	}

	jobs, err := loadManifest(batchFlags.manifest)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := checkReportTargets(a, jobs); err != nil {
		return err
	}

	ctx, stop := a.signalContext(cmd.Context())
	defer stop()

	var progress cli.ProgressReporter = cli.NopProgress{}
	if batchFlags.progress && format == cli.FormatText {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr())
	}
	progress.Start(int64(len(jobs)))

	summary := &BatchSummary{Outcomes: make([]BatchOutcome, len(jobs))}

	// Jobs never return an error to the group, so one failure does not
	// cancel the rest.
	var g errgroup.Group
	g.SetLimit(batchFlags.parallel)
	for i, job := range jobs {
		g.Go(func() error {
			res, err := a.runner.Run(ctx, job)
			out := BatchOutcome{Job: job.Name, Result: res, err: err}
			if err != nil {
				out.Error = firstLine(err)
			}
			summary.Outcomes[i] = out
			progress.Increment()
			return nil
		})
	}
	_ = g.Wait()
	progress.Finish()

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), summary); err != nil {
		return err
	}
	return summary.failure(batchFlags.failOnViols)
}

// failure returns the joined job errors, or a ViolationsError when every job
// succeeded and failOnViolations is set.
func (s *BatchSummary) failure(failOnViolations bool) error {
	var errs []error
	var fieldViols, groupViols int
	for _, o := range s.Outcomes {
		if o.err != nil {
			errs = append(errs, fmt.Errorf("job %s: %w", o.Job, o.err))
			continue
		}
		fieldViols += o.Result.Stats.FieldViolations
		groupViols += o.Result.Stats.GroupViolations
	}
	if len(errs) > 0 {
		return cli.NewCommandError("batch", errors.Join(errs...))
	}
	if failOnViolations && fieldViols+groupViols > 0 {
		return &cli.ViolationsError{FieldViolations: fieldViols, GroupViolations: groupViols}
	}
	return nil
}

// Header implements cli.Table.
func (s *BatchSummary) Header() []string {
	return []string{"job", "status", "records", "field_violations", "group_violations", "type_mismatches", "report", "error"}
}

// Rows implements cli.Table.
func (s *BatchSummary) Rows() [][]string {
	rows := make([][]string, 0, len(s.Outcomes))
	for _, o := range s.Outcomes {
		if o.err != nil {
			rows = append(rows, []string{o.Job, "error", "", "", "", "", "", o.Error})
			continue
		}
		st := o.Result.Stats
		rows = append(rows, []string{
			o.Job, "ok",
			strconv.Itoa(st.Records),
			strconv.Itoa(st.FieldViolations),
			strconv.Itoa(st.GroupViolations),
			strconv.Itoa(st.TypeMismatches),
			o.Result.Location,
			"",
		})
	}
	return rows
}

// Text implements cli.Texter.
func (s *BatchSummary) Text() string {
	var sb strings.Builder
	failed := 0
	for _, o := range s.Outcomes {
		if o.err != nil {
			failed++
			fmt.Fprintf(&sb, "✗ %-20s %s\n", o.Job, o.Error)
			continue
		}
		st := o.Result.Stats
		fmt.Fprintf(&sb, "✓ %-20s %d records, %d field / %d group violations -> %s\n",
			o.Job, st.Records, st.FieldViolations, st.GroupViolations, o.Result.Location)
	}
	fmt.Fprintf(&sb, "%d job(s), %d failed", len(s.Outcomes), failed)
	return sb.String()
}

// firstLine returns the first line of err's message; rule errors append
// source context on the following lines.
func firstLine(err error) string {
	line, _, _ := strings.Cut(strings.TrimSpace(err.Error()), "\n")
	return line
}
