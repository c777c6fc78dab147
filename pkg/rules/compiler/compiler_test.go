package compiler

import (
	"errors"
	"strings"
	"testing"

	"mercator-hq/tablint/pkg/rules/document"
	rulesErrors "mercator-hq/tablint/pkg/rules/errors"
	"mercator-hq/tablint/pkg/rules/predicate"
)

func parse(t *testing.T, src string) *document.Document {
	t.Helper()
	doc, err := document.NewParser().ParseBytes([]byte(src), "rules.yaml")
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}
	return doc
}

func compile(t *testing.T, src string) *Plan {
	t.Helper()
	plan, err := Compile(parse(t, src), DefaultOptions())
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	return plan
}

func compileErr(t *testing.T, src string) *rulesErrors.ErrorList {
	t.Helper()
	plan, err := Compile(parse(t, src), DefaultOptions())
	if err == nil {
		t.Fatal("Compile() succeeded, want error")
	}
	if plan != nil {
		t.Error("Compile() returned a partial plan")
	}
	var list *rulesErrors.ErrorList
	if !errors.As(err, &list) {
		t.Fatalf("error %T is not an ErrorList", err)
	}
	if !list.HasErrorType(rulesErrors.ErrorTypeConfiguration) {
		t.Errorf("no configuration error in %v", err)
	}
	return list
}

func TestCompile_GlobalReuse(t *testing.T) {
	plan := compile(t, `
globalRules:
  - {ruleName: digits, type: regex, pattern: '^\d+$'}
fields:
  - fieldName: code
    rules: [{ruleName: Digits}]
  - fieldName: ref
    rules: [{ruleName: DIGITS}]
`)

	if plan.Registry.Len() != 1 {
		t.Fatalf("Registry.Len() = %d, want 1", plan.Registry.Len())
	}
	if len(plan.Bindings) != 2 {
		t.Fatalf("len(Bindings) = %d, want 2", len(plan.Bindings))
	}
	if plan.Bindings[0].Rule != plan.Bindings[1].Rule {
		t.Error("both fields should share the global rule")
	}
	if !plan.Bindings[0].Rule.Global() || plan.Bindings[0].Rule.Name() != "DIGITS" {
		t.Errorf("bound rule = %s", plan.Bindings[0].Rule.Key)
	}
	if plan.Bindings[0].DisplayName != "Digits" {
		t.Errorf("DisplayName = %q, want Digits", plan.Bindings[0].DisplayName)
	}
	if got := plan.Fields(); len(got) != 2 || got[0] != "code" || got[1] != "ref" {
		t.Errorf("Fields() = %v", got)
	}
}

func TestCompile_TypedApplicationIsPrivate(t *testing.T) {
	plan := compile(t, `
globalRules:
  - {ruleName: limit, type: range, fromValue: 0, toValue: 10}
fields:
  - fieldName: a
    rules: [{ruleName: limit, type: range, fromValue: 100, toValue: 200}]
  - fieldName: b
    rules: [{ruleName: limit, type: range, fromValue: 300, toValue: 400}]
  - fieldName: c
    rules: [{ruleName: limit}]
`)

	if plan.Registry.Len() != 3 {
		t.Fatalf("Registry.Len() = %d, want 3", plan.Registry.Len())
	}
	a, b, c := plan.Bindings[0].Rule, plan.Bindings[1].Rule, plan.Bindings[2].Rule
	if a == b || a == c || b == c {
		t.Fatal("typed applications must compile independent rules")
	}
	if a.Key != (Key{Scope: "field:a", Name: "LIMIT"}) {
		t.Errorf("a key = %v", a.Key)
	}
	if !c.Global() {
		t.Error("untyped application should reuse the global rule")
	}

	if got, _ := a.Predicate.Evaluate(150); !got {
		t.Error("field a rule should use its own bounds")
	}
	if got, _ := b.Predicate.Evaluate(150); got {
		t.Error("field b rule must not share field a's bounds")
	}
	if _, ok := plan.Registry.Lookup(FieldScope("b"), "LIMIT"); !ok {
		t.Error("Lookup(field:b, LIMIT) failed")
	}
}

func TestCompile_DuplicateGlobalLastWins(t *testing.T) {
	plan := compile(t, `
globalRules:
  - {ruleName: r, type: range, fromValue: 0, toValue: 1}
  - {ruleName: R, type: range, fromValue: 5, toValue: 6}
fields:
  - {fieldName: x, rules: [{ruleName: r}]}
`)

	rule, ok := plan.Registry.Lookup(GlobalScope, "R")
	if !ok {
		t.Fatal("global R missing")
	}
	low, high := rule.Predicate.(*predicate.Range).Bounds()
	if low != 5 || high != 6 {
		t.Errorf("bounds = %v..%v, want 5..6", low, high)
	}
	if len(plan.Warnings) != 1 || !strings.Contains(plan.Warnings[0].Message, "duplicate global rule") {
		t.Errorf("Warnings = %v", plan.Warnings)
	}
}

func TestCompile_DuplicateFieldMerged(t *testing.T) {
	plan := compile(t, `
fields:
  - {fieldName: x, rules: [{ruleName: a, type: regex, pattern: a}]}
  - {fieldName: y, rules: [{ruleName: b, type: regex, pattern: b}]}
  - {fieldName: x, rules: [{ruleName: c, type: regex, pattern: c}]}
`)

	got := plan.BindingsFor("x")
	if len(got) != 2 || plan.Bindings[got[0]].DisplayName != "a" || plan.Bindings[got[1]].DisplayName != "c" {
		t.Errorf("BindingsFor(x) = %v", got)
	}
	if fields := plan.Fields(); len(fields) != 2 {
		t.Errorf("Fields() = %v, want [x y]", fields)
	}
	if len(plan.Warnings) != 1 {
		t.Errorf("Warnings = %v", plan.Warnings)
	}
}

func TestCompile_Groups(t *testing.T) {
	plan := compile(t, `
fields:
  - fieldName: code
    rules:
      - {ruleName: digits, type: regex, pattern: '^\d+$'}
      - {ruleName: digits, type: regex, pattern: '^\d{3}$', output: false}
  - fieldName: age
    rules:
      - {ruleName: minor, type: range, fromValue: 0, toValue: 17}
ruleGroups:
  - groupName: g1
    match: ANY
    description: either
    rules:
      - {fieldName: code, ruleName: DIGITS}
      - {fieldName: age, ruleName: minor}
  - groupName: g2
    rules:
      - {fieldName: age, ruleName: minor}
`)

	if len(plan.Groups) != 2 {
		t.Fatalf("len(Groups) = %d, want 2", len(plan.Groups))
	}
	g1 := plan.Groups[0]
	if g1.Combinator != CombinatorAny || g1.Description != "either" {
		t.Errorf("g1 = %+v", g1)
	}
	if len(g1.Members) != 3 || g1.Members[0] != 0 || g1.Members[1] != 1 || g1.Members[2] != 2 {
		t.Errorf("g1.Members = %v, want [0 1 2]", g1.Members)
	}
	if plan.Groups[1].Combinator != CombinatorAll {
		t.Errorf("empty match should default to ALL")
	}
	if plan.Bindings[1].IncludeInReport {
		t.Error("output: false not carried to the binding")
	}
}

func TestCompile_DuplicateGroupLastWins(t *testing.T) {
	plan := compile(t, `
fields:
  - {fieldName: f, rules: [{ruleName: a, type: regex, pattern: a}]}
ruleGroups:
  - {groupName: g, description: first, rules: [{fieldName: f, ruleName: a}]}
  - {groupName: other, rules: [{fieldName: f, ruleName: a}]}
  - {groupName: g, description: second, rules: [{fieldName: f, ruleName: a}]}
`)

	if len(plan.Groups) != 2 {
		t.Fatalf("len(Groups) = %d, want 2", len(plan.Groups))
	}
	if plan.Groups[0].Name != "g" || plan.Groups[0].Description != "second" || plan.Groups[0].Index != 0 {
		t.Errorf("Groups[0] = %+v", plan.Groups[0])
	}
}

func TestCompile_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{
			name:    "unknown kind",
			src:     "globalRules:\n  - {ruleName: x, type: lookup}\n",
			wantMsg: "invalid rule type",
		},
		{
			name:    "malformed pattern",
			src:     "globalRules:\n  - {ruleName: x, type: regex, pattern: '([a-z'}\n",
			wantMsg: "malformed pattern",
		},
		{
			name:    "missing pattern",
			src:     "globalRules:\n  - {ruleName: x, type: regex}\n",
			wantMsg: "missing pattern",
		},
		{
			name:    "missing bound",
			src:     "fields:\n  - {fieldName: f, rules: [{ruleName: x, type: range, fromValue: 1}]}\n",
			wantMsg: "fromValue and toValue",
		},
		{
			name:    "non numeric bound",
			src:     "globalRules:\n  - {ruleName: x, type: range, fromValue: low, toValue: 3}\n",
			wantMsg: "invalid range bounds",
		},
		{
			name:    "untyped without global",
			src:     "fields:\n  - {fieldName: f, rules: [{ruleName: nope}]}\n",
			wantMsg: "no global rule",
		},
		{
			name:    "missing rule name",
			src:     "globalRules:\n  - {type: regex, pattern: x}\n",
			wantMsg: "missing ruleName",
		},
		{
			name:    "missing field name",
			src:     "fields:\n  - {rules: []}\n",
			wantMsg: "missing fieldName",
		},
		{
			name:    "unresolved member",
			src:     "fields:\n  - {fieldName: f, rules: [{ruleName: a, type: regex, pattern: a}]}\nruleGroups:\n  - {groupName: g, rules: [{fieldName: f, ruleName: b}]}\n",
			wantMsg: "does not resolve",
		},
		{
			name:    "member on unknown field",
			src:     "fields:\n  - {fieldName: f, rules: [{ruleName: a, type: regex, pattern: a}]}\nruleGroups:\n  - {groupName: g, rules: [{fieldName: h, ruleName: a}]}\n",
			wantMsg: "does not resolve",
		},
		{
			name:    "bad match",
			src:     "fields:\n  - {fieldName: f, rules: [{ruleName: a, type: regex, pattern: a}]}\nruleGroups:\n  - {groupName: g, match: most, rules: [{fieldName: f, ruleName: a}]}\n",
			wantMsg: "invalid match",
		},
		{
			name:    "empty group",
			src:     "ruleGroups:\n  - {groupName: g, rules: []}\n",
			wantMsg: "no member rules",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := compileErr(t, tt.src)
			if !strings.Contains(list.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want it to contain %q", list, tt.wantMsg)
			}
		})
	}
}

func TestCompile_CollectsAllErrors(t *testing.T) {
	list := compileErr(t, `
globalRules:
  - {ruleName: a, type: regex}
  - {ruleName: b, type: range, fromValue: 1}
fields:
  - {fieldName: f, rules: [{ruleName: missing}]}
`)

	if list.Count() != 3 {
		t.Fatalf("Count() = %d, want 3: %v", list.Count(), list)
	}
	first := list.Errors[0]
	if first.Section != document.KeyGlobalRules || first.Index != 0 || first.Rule != "a" {
		t.Errorf("first error = section %q index %d rule %q", first.Section, first.Index, first.Rule)
	}
	if first.Location.Line != 3 {
		t.Errorf("first error line = %d, want 3", first.Location.Line)
	}
	if first.Context == "" {
		t.Error("error context not rendered")
	}
	third := list.Errors[2]
	if third.Field != "f" || third.Rule != "missing" {
		t.Errorf("third error = field %q rule %q", third.Field, third.Rule)
	}
}

func TestCompile_UnknownFlagWarns(t *testing.T) {
	plan := compile(t, `
globalRules:
  - {ruleName: a, type: regex, pattern: a, flags: [IGNORECASE, SHOUTING, null]}
`)
	if len(plan.Warnings) != 1 || !strings.Contains(plan.Warnings[0].String(), "SHOUTING") {
		t.Errorf("Warnings = %v", plan.Warnings)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	src := `
globalRules:
  - {ruleName: digits, type: regex, pattern: '^\d+$', flags: [MULTILINE]}
  - {ruleName: adult, type: range, fromValue: 18, toValue: 130}
  - {ruleName: nonempty, type: regex, pattern: '.', invert: true}
`
	p1 := compile(t, src)
	p2 := compile(t, src)

	r1, r2 := p1.Registry.Rules(), p2.Registry.Rules()
	if len(r1) != len(r2) {
		t.Fatalf("rule counts differ: %d vs %d", len(r1), len(r2))
	}
	probe := []any{"", "123", "12a", 17, 18, 130, 131, "40", nil}
	for i := range r1 {
		if r1[i].Key != r2[i].Key {
			t.Errorf("key %d: %v vs %v", i, r1[i].Key, r2[i].Key)
		}
		for _, v := range probe {
			got1, err1 := r1[i].Predicate.Evaluate(v)
			got2, err2 := r2[i].Predicate.Evaluate(v)
			if got1 != got2 || (err1 == nil) != (err2 == nil) {
				t.Errorf("%s(%v): %v/%v vs %v/%v", r1[i].Key, v, got1, err1, got2, err2)
			}
		}
	}
}

func TestPlan_NewStateIsFresh(t *testing.T) {
	plan := compile(t, `
fields:
  - {fieldName: f, rules: [{ruleName: a, type: regex, pattern: a}]}
ruleGroups:
  - {groupName: g, rules: [{fieldName: f, ruleName: a}]}
`)

	s1 := plan.NewState()
	s1.AddFieldFailure(0, int64(1))
	s1.AddGroupFailure(0, int64(1))

	s2 := plan.NewState()
	if len(s2.FieldFailures(0)) != 0 || len(s2.GroupFailures(0)) != 0 || s2.FieldFailed(0, int64(1)) {
		t.Error("new state shares accumulators with a previous run")
	}
	if !s1.FieldFailed(0, int64(1)) || s1.FieldViolations() != 1 || s1.GroupViolations() != 1 {
		t.Error("first state lost its failures")
	}
	if s2.FieldFailures(0) == nil {
		t.Error("empty failure set should be non-nil")
	}
}
