package document

import (
	"os"
	"path/filepath"
	"testing"

	rulesErrors "mercator-hq/tablint/pkg/rules/errors"
)

func TestParser_Parse_JSON(t *testing.T) {
	doc, err := NewParser().Parse("testdata/parcels.json")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if len(doc.GlobalRules) != 2 {
		t.Fatalf("len(GlobalRules) = %d, want 2", len(doc.GlobalRules))
	}

	digits := doc.GlobalRules[0]
	if digits.RuleName != "digits" || digits.Type != "regex" {
		t.Errorf("GlobalRules[0] = %q/%q, want digits/regex", digits.RuleName, digits.Type)
	}
	if digits.Pattern == nil || *digits.Pattern != `^\d+$` {
		t.Errorf("Pattern = %v, want ^\\d+$", digits.Pattern)
	}
	if len(digits.Flags) != 2 || digits.Flags[0] == nil || *digits.Flags[0] != "IGNORECASE" || digits.Flags[1] != nil {
		t.Errorf("Flags = %v, want [IGNORECASE <nil>]", digits.Flags)
	}
	if digits.Location.Line != 3 || digits.Location.Column != 5 {
		t.Errorf("Location = %s, want line 3 column 5", digits.Location)
	}

	plausible := doc.GlobalRules[1]
	if plausible.FromValue != 120 || plausible.ToValue != 0 || !plausible.Outside {
		t.Errorf("range = %v..%v outside=%v, want 120..0 outside=true", plausible.FromValue, plausible.ToValue, plausible.Outside)
	}

	if len(doc.Fields) != 2 {
		t.Fatalf("len(Fields) = %d, want 2", len(doc.Fields))
	}
	age := doc.Fields[1]
	if age.FieldName != "age" || len(age.Rules) != 2 {
		t.Fatalf("Fields[1] = %q with %d rules, want age with 2", age.FieldName, len(age.Rules))
	}
	if age.Rules[0].Type != "" {
		t.Errorf("age.Rules[0].Type = %q, want empty", age.Rules[0].Type)
	}
	if !age.Rules[0].IncludeInReport() {
		t.Error("output should default to true")
	}
	if age.Rules[1].IncludeInReport() {
		t.Error("output=false not honored")
	}
	if age.Rules[1].ToValue != 17.5 {
		t.Errorf("ToValue = %v, want 17.5", age.Rules[1].ToValue)
	}
	if age.Rules[1].Location.Line != 10 {
		t.Errorf("age.Rules[1] line = %d, want 10", age.Rules[1].Location.Line)
	}

	if len(doc.RuleGroups) != 1 {
		t.Fatalf("len(RuleGroups) = %d, want 1", len(doc.RuleGroups))
	}
	group := doc.RuleGroups[0]
	if group.GroupName != "suspect" || group.Match != "any" || group.Description != "bad code or age" {
		t.Errorf("group = %+v", group)
	}
	if len(group.Rules) != 2 || group.Rules[1].FieldName != "age" || group.Rules[1].RuleName != "minor" {
		t.Errorf("group members = %+v", group.Rules)
	}
	if group.Location.File != "testdata/parcels.json" {
		t.Errorf("Location.File = %q", group.Location.File)
	}

	if len(doc.Raw()) == 0 {
		t.Error("Raw() is empty")
	}
}

func TestParser_ParseBytes_YAML(t *testing.T) {
	data := []byte(`
globalRules:
  - ruleName: digits
    type: regex
    pattern: '^\d+$'
fields:
  - fieldName: code
    rules:
      - ruleName: digits
      - ruleName: short
        type: regex
        pattern: '^.{0,2}$'
        invert: true
`)

	doc, err := NewParser().ParseBytes(data, "")
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}

	if got := *doc.GlobalRules[0].Pattern; got != `^\d+$` {
		t.Errorf("Pattern = %q", got)
	}
	if doc.GlobalRules[0].Location.Line != 3 {
		t.Errorf("line = %d, want 3", doc.GlobalRules[0].Location.Line)
	}
	short := doc.Fields[0].Rules[1]
	if !short.Invert {
		t.Error("invert not decoded")
	}
	if short.Location.Line != 10 {
		t.Errorf("short line = %d, want 10", short.Location.Line)
	}
	if len(doc.RuleGroups) != 0 {
		t.Errorf("len(RuleGroups) = %d, want 0", len(doc.RuleGroups))
	}
}

func TestParser_ParseBytes_TabIndentedJSON(t *testing.T) {
	data := []byte("{\n\t\"fields\": [\n\t\t{\"fieldName\": \"age\", \"rules\": [{\"ruleName\": \"r\", \"type\": \"range\", \"fromValue\": 1, \"toValue\": 2}]}\n\t]\n}\n")

	doc, err := NewParser().ParseBytes(data, "tabs.json")
	if err != nil {
		t.Fatalf("ParseBytes() failed: %v", err)
	}
	if len(doc.Fields) != 1 || doc.Fields[0].FieldName != "age" {
		t.Fatalf("Fields = %+v", doc.Fields)
	}
	if r := doc.Fields[0].Rules[0]; r.FromValue == nil || r.ToValue == nil {
		t.Errorf("bounds not decoded: %v %v", r.FromValue, r.ToValue)
	}
}

func TestParser_ParseBytes_Empty(t *testing.T) {
	for _, input := range []string{"", "{}", "globalRules: null\n"} {
		doc, err := NewParser().ParseBytes([]byte(input), "")
		if err != nil {
			t.Errorf("ParseBytes(%q) failed: %v", input, err)
			continue
		}
		if len(doc.GlobalRules)+len(doc.Fields)+len(doc.RuleGroups) != 0 {
			t.Errorf("ParseBytes(%q) produced declarations", input)
		}
	}
}

func TestParser_ParseBytes_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated JSON", `{"globalRules": [`},
		{"section not a list", "globalRules: 5\n"},
		{"top level list", "- a\n- b\n"},
		{"wrong field type", "fields:\n  - fieldName: [1, 2]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().ParseBytes([]byte(tt.input), "bad.yaml")
			if err == nil {
				t.Fatal("ParseBytes() succeeded, want error")
			}
			if !rulesErrors.IsType(err, rulesErrors.ErrorTypeSyntax) {
				t.Errorf("error type mismatch: %v", err)
			}
		})
	}
}

func TestParser_Parse_SizeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.json")
	if err := os.WriteFile(path, []byte(`{"globalRules": []}`), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := NewParser().WithMaxFileSize(4).Parse(path)
	if !rulesErrors.IsType(err, rulesErrors.ErrorTypeIO) {
		t.Errorf("Parse() error = %v, want io error", err)
	}
}

func TestParser_Parse_MissingFile(t *testing.T) {
	_, err := NewParser().Parse("testdata/does-not-exist.json")
	if !rulesErrors.IsType(err, rulesErrors.ErrorTypeIO) {
		t.Errorf("Parse() error = %v, want io error", err)
	}
}

func TestDocument_FieldNames(t *testing.T) {
	doc := &Document{Fields: []*FieldDecl{
		{FieldName: "b"}, {FieldName: "a"}, {FieldName: "b"},
	}}
	got := doc.FieldNames()
	if len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Errorf("FieldNames() = %v, want [b a]", got)
	}
}
