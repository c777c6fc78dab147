package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/tablint/pkg/rules/compiler"
	"mercator-hq/tablint/pkg/rules/document"
	rulesErrors "mercator-hq/tablint/pkg/rules/errors"
)

func newEngine(t *testing.T, src string, config *Config, logger *slog.Logger) *Engine {
	t.Helper()
	doc, err := document.NewParser().ParseBytes([]byte(src), "")
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}
	plan, err := compiler.Compile(doc, compiler.DefaultOptions())
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	}
	eng, err := New(plan, config, logger)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return eng
}

func run(t *testing.T, eng *Engine, records []Record) (*compiler.State, Stats) {
	t.Helper()
	state, stats, err := eng.Run(context.Background(), NewSliceIterator(records))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	return state, stats
}

func rec(id any, kv ...any) Record {
	values := make(map[string]any)
	for i := 0; i+1 < len(kv); i += 2 {
		values[kv[i].(string)] = kv[i+1]
	}
	return Record{ID: id, Values: values}
}

func assertIDs(t *testing.T, what string, got []any, want ...any) {
	t.Helper()
	if want == nil {
		want = []any{}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("%s mismatch (-want +got):\n%s", what, diff)
	}
}

func TestRun_OutsideRange(t *testing.T) {
	eng := newEngine(t, `
fields:
  - fieldName: age
    rules: [{ruleName: plausible, type: range, fromValue: 0, toValue: 120, outside: true}]
`, nil, nil)

	state, stats := run(t, eng, []Record{rec(1, "age", 150), rec(2, "age", 40)})

	assertIDs(t, "age failures", state.FieldFailures(0), 1)
	if stats.Records != 2 || stats.FieldViolations != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRun_PatternMatchIsViolation(t *testing.T) {
	eng := newEngine(t, `
globalRules:
  - {ruleName: digits, type: regex, pattern: '^\d+$'}
fields:
  - {fieldName: code, rules: [{ruleName: digits}]}
`, nil, nil)

	state, _ := run(t, eng, []Record{rec(7, "code", "abc123"), rec(8, "code", "12345")})

	assertIDs(t, "code failures", state.FieldFailures(0), 8)
}

const twoRuleGroups = `
fields:
  - fieldName: a
    rules: [{ruleName: neg, type: range, fromValue: -1000, toValue: -1}]
  - fieldName: b
    rules: [{ruleName: big, type: range, fromValue: 100, toValue: 1000}]
ruleGroups:
  - groupName: either
    match: any
    description: a negative or b big
    rules: [{fieldName: a, ruleName: neg}, {fieldName: b, ruleName: big}]
  - groupName: both
    match: all
    rules: [{fieldName: a, ruleName: neg}, {fieldName: b, ruleName: big}]
`

func TestRun_GroupAnyAndAll(t *testing.T) {
	eng := newEngine(t, twoRuleGroups, nil, nil)

	state, stats := run(t, eng, []Record{
		rec(1, "a", 0, "b", 0),
		rec(3, "a", -5, "b", 0),
		rec(5, "a", 0, "b", 500),
		rec(9, "a", -5, "b", 500),
	})

	assertIDs(t, "a failures", state.FieldFailures(0), 3, 9)
	assertIDs(t, "b failures", state.FieldFailures(1), 5, 9)
	assertIDs(t, "any group", state.GroupFailures(0), 3, 5, 9)
	assertIDs(t, "all group", state.GroupFailures(1), 9)
	if stats.GroupViolations != 4 {
		t.Errorf("GroupViolations = %d, want 4", stats.GroupViolations)
	}
}

func TestRun_MissingFieldSkipped(t *testing.T) {
	eng := newEngine(t, twoRuleGroups, nil, nil)

	state, stats := run(t, eng, []Record{
		rec(1, "a", -5),
		rec(2, "b", 500),
		rec(3),
	})

	assertIDs(t, "a failures", state.FieldFailures(0), 1)
	assertIDs(t, "b failures", state.FieldFailures(1), 2)
	assertIDs(t, "any group", state.GroupFailures(0), 1, 2)
	assertIDs(t, "all group", state.GroupFailures(1))
	if stats.Evaluations != 2 {
		t.Errorf("Evaluations = %d, want 2", stats.Evaluations)
	}
}

func TestRun_DuplicateRecordIDs(t *testing.T) {
	eng := newEngine(t, twoRuleGroups, nil, nil)

	state, _ := run(t, eng, []Record{
		rec(4, "a", -5, "b", 500),
		rec(4, "a", -5, "b", 500),
		// Passes both rules, but id 4 is already in both member sets.
		rec(4, "a", 0, "b", 0),
		rec(6, "a", 0, "b", 0),
	})

	assertIDs(t, "a failures", state.FieldFailures(0), 4, 4)
	assertIDs(t, "b failures", state.FieldFailures(1), 4, 4)
	assertIDs(t, "any group", state.GroupFailures(0), 4, 4, 4)
	assertIDs(t, "all group", state.GroupFailures(1), 4, 4, 4)
}

func TestRun_SuppressedBindingFeedsGroup(t *testing.T) {
	eng := newEngine(t, `
fields:
  - fieldName: code
    rules: [{ruleName: short, type: regex, pattern: '^.{0,2}$', output: false}]
ruleGroups:
  - {groupName: g, rules: [{fieldName: code, ruleName: short}]}
`, nil, nil)

	state, _ := run(t, eng, []Record{rec("a", "code", "x"), rec("b", "code", "long")})

	if eng.Plan().Bindings[0].IncludeInReport {
		t.Fatal("binding should be suppressed")
	}
	assertIDs(t, "hidden failures", state.FieldFailures(0), "a")
	assertIDs(t, "group", state.GroupFailures(0), "a")
}

func TestRun_TypeMismatchSkip(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	eng := newEngine(t, `
fields:
  - fieldName: age
    rules: [{ruleName: minor, type: range, fromValue: 0, toValue: 17}]
`, nil, logger)

	state, stats := run(t, eng, []Record{
		rec(1, "age", "unknown"),
		rec(2, "age", 12),
		rec(3, "age", nil),
		rec(4, "age", "15"),
	})

	assertIDs(t, "age failures", state.FieldFailures(0), 2, 4)
	if stats.TypeMismatches != 2 {
		t.Errorf("TypeMismatches = %d, want 2", stats.TypeMismatches)
	}

	out := buf.String()
	if n := strings.Count(out, "skipping non-numeric value"); n != 2 {
		t.Errorf("logged %d mismatches, want 2:\n%s", n, out)
	}
	if n := strings.Count(out, "level=WARN"); n != 1 {
		t.Errorf("logged %d warnings, want 1:\n%s", n, out)
	}
}

func TestRun_TypeMismatchFail(t *testing.T) {
	eng := newEngine(t, `
fields:
  - fieldName: age
    rules: [{ruleName: minor, type: range, fromValue: 0, toValue: 17}]
`, DefaultConfig().WithOnTypeMismatch(MismatchFail), nil)

	state, _, err := eng.Run(context.Background(), NewSliceIterator([]Record{
		rec(1, "age", 3),
		rec(2, "age", "n/a"),
	}))
	if state != nil {
		t.Error("failed run returned state")
	}
	var tm *rulesErrors.TypeMismatchError
	if !errors.As(err, &tm) {
		t.Fatalf("Run() error = %v, want TypeMismatchError", err)
	}
	if tm.Field != "age" || tm.Rule != "minor" || tm.Value != "n/a" {
		t.Errorf("mismatch = %+v", tm)
	}
}

func TestRun_FreshStatePerRun(t *testing.T) {
	eng := newEngine(t, twoRuleGroups, nil, nil)
	records := []Record{rec(3, "a", -5, "b", 0)}

	first, _ := run(t, eng, records)
	second, _ := run(t, eng, records)

	assertIDs(t, "first run", first.FieldFailures(0), 3)
	assertIDs(t, "second run", second.FieldFailures(0), 3)
}

func TestRun_Cancelled(t *testing.T) {
	eng := newEngine(t, twoRuleGroups, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := eng.Run(ctx, NewSliceIterator([]Record{rec(1, "a", 1)}))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

type failingIterator struct{ err error }

func (f *failingIterator) Next() bool     { return false }
func (f *failingIterator) Record() Record { return Record{} }
func (f *failingIterator) Err() error     { return f.err }

func TestRun_IteratorError(t *testing.T) {
	eng := newEngine(t, twoRuleGroups, nil, nil)
	cause := errors.New("cursor closed")

	_, _, err := eng.Run(context.Background(), &failingIterator{err: cause})
	if !rulesErrors.IsType(err, rulesErrors.ErrorTypeDataAccess) {
		t.Errorf("Run() error = %v, want data access error", err)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not wrapped")
	}
}

func TestEvaluate_InvalidID(t *testing.T) {
	eng := newEngine(t, twoRuleGroups, nil, nil)
	ev := eng.NewEvaluator()

	for _, id := range []any{nil, []int{1}, map[string]int{}} {
		if err := ev.Evaluate(Record{ID: id}); !rulesErrors.IsType(err, rulesErrors.ErrorTypeDataAccess) {
			t.Errorf("Evaluate(id=%v) error = %v, want data access error", id, err)
		}
	}
	if ev.Stats().Records != 0 {
		t.Errorf("Records = %d, want 0", ev.Stats().Records)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	eng := newEngine(t, twoRuleGroups, nil, nil)
	if _, err := New(eng.Plan(), &Config{OnTypeMismatch: "ignore"}, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New() error = %v, want ErrInvalidConfig", err)
	}
	if _, err := New(nil, nil, nil); err == nil {
		t.Error("New(nil plan) succeeded")
	}
}

func TestParseMismatchPolicy(t *testing.T) {
	for in, want := range map[string]MismatchPolicy{"": MismatchSkip, "SKIP": MismatchSkip, "fail": MismatchFail} {
		got, err := ParseMismatchPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseMismatchPolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMismatchPolicy("explode"); err == nil {
		t.Error("ParseMismatchPolicy(explode) succeeded")
	}
}
