package document

import (
	rulesErrors "mercator-hq/tablint/pkg/rules/errors"
)

// Document is a parsed rule configuration. It is a faithful model of what
// the file says; resolving names and building predicates is the compiler's job.
type Document struct {
	// SourceFile is the path the document was read from (may be empty).
	SourceFile string

	GlobalRules []*RuleDecl
	Fields      []*FieldDecl
	RuleGroups  []*GroupDecl

	// raw holds the document bytes for error context rendering.
	raw []byte
}

// Raw returns the bytes the document was parsed from.
func (d *Document) Raw() []byte {
	return d.raw
}

// RuleDecl declares a rule, either globally or as an application under a field.
type RuleDecl struct {
	RuleName string `yaml:"ruleName" json:"ruleName"`

	// Type is "regex" or "range". Empty on a field application means
	// "reuse the global rule with this name".
	Type string `yaml:"type" json:"type"`

	// Pattern rules.
	Pattern *string   `yaml:"pattern" json:"pattern"`
	Flags   []*string `yaml:"flags" json:"flags"`
	Invert  bool      `yaml:"invert" json:"invert"`

	// Range rules. Bounds are kept as decoded (int, float64, json.Number, ...)
	// and validated by the compiler.
	FromValue any  `yaml:"fromValue" json:"fromValue"`
	ToValue   any  `yaml:"toValue" json:"toValue"`
	Outside   bool `yaml:"outside" json:"outside"`

	// Output controls whether a field application appears in the fields
	// section of the report. Nil means true.
	Output *bool `yaml:"output" json:"output"`

	Location rulesErrors.Location `yaml:"-" json:"-"`
}

// IncludeInReport returns the effective output flag.
func (r *RuleDecl) IncludeInReport() bool {
	if r.Output == nil {
		return true
	}
	return *r.Output
}

// FieldDecl lists the rule applications for one field.
type FieldDecl struct {
	FieldName string      `yaml:"fieldName" json:"fieldName"`
	Rules     []*RuleDecl `yaml:"rules" json:"rules"`

	Location rulesErrors.Location `yaml:"-" json:"-"`
}

// GroupDecl combines field rule outcomes with "all" or "any".
type GroupDecl struct {
	GroupName   string       `yaml:"groupName" json:"groupName"`
	Match       string       `yaml:"match" json:"match"`
	Description string       `yaml:"description" json:"description"`
	Rules       []*MemberRef `yaml:"rules" json:"rules"`

	Location rulesErrors.Location `yaml:"-" json:"-"`
}

// MemberRef names a field rule application by field and rule name.
type MemberRef struct {
	FieldName string `yaml:"fieldName" json:"fieldName"`
	RuleName  string `yaml:"ruleName" json:"ruleName"`

	Location rulesErrors.Location `yaml:"-" json:"-"`
}

// FieldNames returns declared field names in declaration order, without duplicates.
func (d *Document) FieldNames() []string {
	seen := make(map[string]bool, len(d.Fields))
	names := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		if f == nil || seen[f.FieldName] {
			continue
		}
		seen[f.FieldName] = true
		names = append(names, f.FieldName)
	}
	return names
}
