package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/tablint/pkg/config"
	"mercator-hq/tablint/pkg/rules/report"
)

func sampleReport() *report.Report {
	return &report.Report{
		RunDatetime: "2024-01-01 10:00:00",
		Fields: []report.FieldEntry{
			{Field: "age", Rules: []report.RuleResult{{RuleName: "plausible", ErrorIDs: []any{1, 2}}}},
		},
		Groups: []report.GroupEntry{
			{Group: "suspect", ErrorIDs: []any{1}},
		},
	}
}

func TestCollector_RecordRun(t *testing.T) {
	c := NewCollector(&config.MetricsConfig{Enabled: true}, nil)

	c.RecordRun(Sample{
		Status:         StatusSuccess,
		Records:        10,
		TypeMismatches: 2,
		Duration:       time.Second,
		FinishedAt:     time.Unix(1700000000, 0),
		Report:         sampleReport(),
	})
	c.RecordRun(Sample{Status: StatusError, Records: 99, FinishedAt: time.Unix(1700000100, 0)})

	if got := testutil.ToFloat64(c.run.recordsTotal); got != 10 {
		t.Errorf("records_total = %v, want 10", got)
	}
	if got := testutil.ToFloat64(c.run.typeMismatchesTotal); got != 2 {
		t.Errorf("type_mismatches_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.run.violationsTotal.WithLabelValues("field", "age", "plausible")); got != 2 {
		t.Errorf("field violations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.run.violationsTotal.WithLabelValues("group", "suspect", "")); got != 1 {
		t.Errorf("group violations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.run.runsTotal.WithLabelValues(StatusError)); got != 1 {
		t.Errorf("error runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.run.lastRunTimestamp.WithLabelValues(StatusSuccess)); got != 1700000000 {
		t.Errorf("last success timestamp = %v", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	c := NewCollector(&config.MetricsConfig{Enabled: false, Textfile: filepath.Join(t.TempDir(), "x.prom")}, nil)
	c.RecordRun(Sample{Status: StatusSuccess, Records: 5})

	if got := testutil.ToFloat64(c.run.recordsTotal); got != 0 {
		t.Errorf("records_total = %v, want 0", got)
	}
	if err := c.WriteTextfile(); err != nil {
		t.Errorf("WriteTextfile() error = %v", err)
	}
	if _, err := os.Stat(c.config.Textfile); !os.IsNotExist(err) {
		t.Error("disabled collector wrote a textfile")
	}
}

func TestCollector_WriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tablint.prom")
	c := NewCollector(&config.MetricsConfig{Enabled: true, Textfile: path, Namespace: "lint"}, nil)
	c.RecordRun(Sample{Status: StatusSuccess, Records: 3, Report: sampleReport(), FinishedAt: time.Now()})

	if err := c.WriteTextfile(); err != nil {
		t.Fatalf("WriteTextfile() failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"lint_records_total 3",
		`lint_violations_total{name="age",rule="plausible",scope="field"} 2`,
		"# TYPE lint_run_duration_seconds histogram",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)
	if !cl.Allow("a") || !cl.Allow("b") || !cl.Allow("a") {
		t.Error("known or in-limit label sets must be allowed")
	}
	if cl.Allow("c") {
		t.Error("label set beyond the limit was allowed")
	}
	if cl.Count() != 2 {
		t.Errorf("Count() = %d, want 2", cl.Count())
	}
}
