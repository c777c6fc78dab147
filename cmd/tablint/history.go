package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/tablint/pkg/cli"
	"mercator-hq/tablint/pkg/history"
)

var historyFlags struct {
	limit     int
	format    string
	report    bool
	olderThan time.Duration
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded runs",
	Long: `Inspect the run history database.

Runs are recorded when history.enabled is set in the config file.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, most recent first",
	Long: `List recent runs, most recent first.

Examples:
  tablint history list
  tablint history list --limit 50 --format csv`,
	Args: cobra.NoArgs,
	RunE: historyList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run",
	Long: `Show one run, optionally with its full report.

Examples:
  tablint history show 6f1c2a4e-3b7d-4c1e-9a55-0d2f7c8e9b10
  tablint history show 6f1c2a4e-3b7d-4c1e-9a55-0d2f7c8e9b10 --report`,
	Args: cobra.ExactArgs(1),
	RunE: historyShow,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs older than a given age",
	Long: `Delete runs that started before now minus --older-than.

Examples:
  # Keep thirty days
  tablint history prune --older-than 720h`,
	Args: cobra.NoArgs,
	RunE: historyPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyPruneCmd)

	historyListCmd.Flags().IntVarP(&historyFlags.limit, "limit", "n", history.DefaultListLimit, "max runs")
	historyListCmd.Flags().StringVarP(&historyFlags.format, "format", "f", "text", "output format (text, json, csv)")

	historyShowCmd.Flags().StringVarP(&historyFlags.format, "format", "f", "text", "output format (text, json)")
	historyShowCmd.Flags().BoolVar(&historyFlags.report, "report", false, "include the report")

	historyPruneCmd.Flags().DurationVar(&historyFlags.olderThan, "older-than", 0, "age of the runs to delete, e.g. 720h")
	_ = historyPruneCmd.MarkFlagRequired("older-than")
}

func openHistoryStore() (history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	return openHistory(cfg, logger)
}

func historyList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(historyFlags.format)
	if err != nil {
		return err
	}

	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), historyFlags.limit)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), runList(runs))
}

func historyShow(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(historyFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return cli.NewConfigError("format", "history show supports text and json")
	}

	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Get(cmd.Context(), args[0])
	if errors.Is(err, history.ErrNotFound) {
		return cli.NewCommandError("history show", fmt.Errorf("run %s not found", args[0]))
	}
	if err != nil {
		return err
	}
	if !historyFlags.report {
		run.Report = nil
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), runDetail{run})
}

func historyPrune(cmd *cobra.Command, args []string) error {
	if historyFlags.olderThan <= 0 {
		return cli.NewConfigError("older-than", "must be positive")
	}

	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	cutoff := time.Now().Add(-historyFlags.olderThan)
	n, err := store.Prune(cmd.Context(), cutoff)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d run(s) started before %s\n", n, cutoff.Format(time.RFC3339))
	return nil
}

// runList renders history rows.
type runList []*history.Run

func (l runList) Header() []string {
	return []string{"id", "started_at", "duration", "status", "records", "field_violations", "group_violations", "type_mismatches", "rules", "source", "error"}
}

func (l runList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Format(time.RFC3339),
			r.Duration().Round(time.Millisecond).String(),
			r.Status,
			strconv.Itoa(r.Records),
			strconv.Itoa(r.FieldViolations),
			strconv.Itoa(r.GroupViolations),
			strconv.Itoa(r.TypeMismatches),
			r.RulesPath,
			r.Source,
			r.Error,
		})
	}
	return rows
}

func (l runList) Text() string {
	if len(l) == 0 {
		return "No runs recorded"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-36s  %-19s  %-7s  %8s  %6s  %6s  %s\n", "ID", "STARTED", "STATUS", "RECORDS", "FIELD", "GROUP", "SOURCE")
	for _, r := range l {
		fmt.Fprintf(&sb, "%-36s  %-19s  %-7s  %8d  %6d  %6d  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status,
			r.Records, r.FieldViolations, r.GroupViolations, r.Source)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// runDetail renders a single run.
type runDetail struct {
	*history.Run
}

func (d runDetail) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Run:       %s\n", d.ID)
	fmt.Fprintf(&sb, "Status:    %s\n", d.Status)
	fmt.Fprintf(&sb, "Started:   %s\n", d.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Duration:  %s\n", d.Duration().Round(time.Millisecond))
	fmt.Fprintf(&sb, "Rules:     %s\n", d.RulesPath)
	fmt.Fprintf(&sb, "Source:    %s\n", d.Source)
	if d.Error != "" {
		fmt.Fprintf(&sb, "Error:     %s\n", d.Error)
	} else {
		fmt.Fprintf(&sb, "Records:   %d\n", d.Records)
		fmt.Fprintf(&sb, "Field violations: %d\n", d.FieldViolations)
		fmt.Fprintf(&sb, "Group violations: %d\n", d.GroupViolations)
		fmt.Fprintf(&sb, "Type mismatches:  %d\n", d.TypeMismatches)
	}
	if len(d.Report) > 0 {
		sb.WriteString("\n")
		sb.Write(d.Report)
	}
	return sb.String()
}
