package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/tablint/pkg/cli"
	"mercator-hq/tablint/pkg/rules/compiler"
	rulesErrors "mercator-hq/tablint/pkg/rules/errors"
	"mercator-hq/tablint/pkg/runner"
)

var checkFlags struct {
	rules  string
	format string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Parse and compile a rule document without reading records",
	Long: `Parse and compile a rule document and list every problem found.

All configuration errors are reported together, not only the first.
Duplicate declarations are reported as warnings.

Examples:
  # Check a rule document
  tablint check --rules rules.yaml

  # JSON output for CI
  tablint check --rules rules.json --format json`,
	RunE: checkRules,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkFlags.rules, "rules", "r", "", "rule document (JSON or YAML)")
	checkCmd.Flags().StringVarP(&checkFlags.format, "format", "f", "text", "output format (text, json)")
}

// CheckResult is the outcome of checking one rule document.
type CheckResult struct {
	File     string       `json:"file"`
	Valid    bool         `json:"valid"`
	Rules    int          `json:"rules"`
	Fields   int          `json:"fields"`
	Bindings int          `json:"bindings"`
	Groups   int          `json:"groups"`
	Errors   []CheckIssue `json:"errors,omitempty"`
	Warnings []CheckIssue `json:"warnings,omitempty"`
}

// CheckIssue is a single error or warning.
type CheckIssue struct {
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Section string `json:"section,omitempty"`
	Index   *int   `json:"index,omitempty"`
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Group   string `json:"group,omitempty"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

func checkRules(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(checkFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return cli.NewConfigError("format", "check supports text and json")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	path := checkFlags.rules
	if path == "" {
		path = cfg.Run.RulesPath
	}
	if path == "" {
		return cli.NewConfigError("rules", "no rule document given (use --rules or run.rules_path)")
	}

	plan, checkErr := runner.New(cfg, logger).Check(path)
	result := buildCheckResult(path, plan, checkErr)

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if checkErr != nil {
		return &checkFailedError{file: path, count: len(result.Errors), err: checkErr}
	}
	return nil
}

// checkFailedError keeps the exit code of the underlying error without
// printing the diagnostics a second time.
type checkFailedError struct {
	file  string
	count int
	err   error
}

func (e *checkFailedError) Error() string {
	return fmt.Sprintf("%s: %d error(s)", e.file, e.count)
}

func (e *checkFailedError) Unwrap() error {
	return e.err
}

func buildCheckResult(path string, plan *compiler.Plan, err error) *CheckResult {
	result := &CheckResult{File: path, Valid: err == nil}

	if plan != nil {
		result.Rules = plan.Registry.Len()
		result.Fields = len(plan.Fields())
		result.Bindings = len(plan.Bindings)
		result.Groups = len(plan.Groups)
		for _, w := range plan.Warnings {
			result.Warnings = append(result.Warnings, CheckIssue{
				Line:    w.Location.Line,
				Column:  w.Location.Column,
				Section: w.Section,
				Index:   index(w.Index),
				Message: w.Message,
			})
		}
	}

	if err == nil {
		return result
	}

	var list *rulesErrors.ErrorList
	var single *rulesErrors.Error
	switch {
	case errors.As(err, &list):
		for _, e := range list.Errors {
			result.Errors = append(result.Errors, issueFrom(e))
		}
	case errors.As(err, &single):
		result.Errors = append(result.Errors, issueFrom(single))
	default:
		result.Errors = append(result.Errors, CheckIssue{Message: err.Error()})
	}
	return result
}

func issueFrom(e *rulesErrors.Error) CheckIssue {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return CheckIssue{
		Line:    e.Location.Line,
		Column:  e.Location.Column,
		Section: e.Section,
		Index:   index(e.Index),
		Field:   e.Field,
		Rule:    e.Rule,
		Group:   e.Group,
		Type:    string(e.Type),
		Message: msg,
	}
}

func index(i int) *int {
	if i < 0 {
		return nil
	}
	return &i
}

// Text renders the result the way compilers print diagnostics.
func (r *CheckResult) Text() string {
	var sb strings.Builder
	for _, e := range r.Errors {
		fmt.Fprintf(&sb, "%s: error: %s\n", r.position(e), e.describe())
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&sb, "%s: warning: %s\n", r.position(w), w.describe())
	}

	if r.Valid {
		fmt.Fprintf(&sb, "✓ %s: %d rules, %d fields, %d bindings, %d groups", r.File, r.Rules, r.Fields, r.Bindings, r.Groups)
	} else {
		fmt.Fprintf(&sb, "✗ %s: %d error(s)", r.File, len(r.Errors))
	}
	return sb.String()
}

func (r *CheckResult) position(i CheckIssue) string {
	if i.Line > 0 {
		return fmt.Sprintf("%s:%d:%d", r.File, i.Line, i.Column)
	}
	return r.File
}

func (i CheckIssue) describe() string {
	var where []string
	if i.Section != "" && i.Index != nil {
		where = append(where, fmt.Sprintf("%s[%d]", i.Section, *i.Index))
	}
	if i.Field != "" {
		where = append(where, fmt.Sprintf("field %q", i.Field))
	}
	if i.Rule != "" {
		where = append(where, fmt.Sprintf("rule %q", i.Rule))
	}
	if i.Group != "" {
		where = append(where, fmt.Sprintf("group %q", i.Group))
	}
	if len(where) == 0 {
		return i.Message
	}
	return fmt.Sprintf("%s (%s)", i.Message, strings.Join(where, ", "))
}
