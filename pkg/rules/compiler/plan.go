package compiler

import (
	"fmt"
	"strings"

	rulesErrors "mercator-hq/tablint/pkg/rules/errors"
	"mercator-hq/tablint/pkg/rules/predicate"
)

// GlobalScope is the registry scope of rules declared under globalRules.
const GlobalScope = "global"

// FieldScope returns the registry scope of rules private to field.
func FieldScope(field string) string {
	return "field:" + field
}

// Key identifies a rule in the registry. A global rule and a field-private
// rule may share a name because their scopes differ.
type Key struct {
	Scope string
	Name  string
}

func (k Key) String() string {
	return k.Scope + "/" + k.Name
}

// Rule is a named, compiled predicate. Rules are immutable once compiled.
type Rule struct {
	Key       Key
	Kind      predicate.Kind
	Predicate predicate.Predicate
	Location  rulesErrors.Location
}

// Name returns the normalized rule name.
func (r *Rule) Name() string { return r.Key.Name }

// Global reports whether the rule was declared under globalRules.
func (r *Rule) Global() bool { return r.Key.Scope == GlobalScope }

// Registry holds every compiled rule keyed by (scope, name).
type Registry struct {
	rules map[Key]*Rule
	order []Key
}

func newRegistry() *Registry {
	return &Registry{rules: make(map[Key]*Rule)}
}

// put stores rule, replacing any rule with the same key in place. It
// reports whether a rule was replaced.
func (r *Registry) put(rule *Rule) bool {
	_, exists := r.rules[rule.Key]
	if !exists {
		r.order = append(r.order, rule.Key)
	}
	r.rules[rule.Key] = rule
	return exists
}

// Lookup returns the rule registered under (scope, name).
func (r *Registry) Lookup(scope, name string) (*Rule, bool) {
	rule, ok := r.rules[Key{Scope: scope, Name: name}]
	return rule, ok
}

// Len returns the number of registered rules.
func (r *Registry) Len() int { return len(r.order) }

// Rules returns the registered rules in first-registration order.
func (r *Registry) Rules() []*Rule {
	out := make([]*Rule, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.rules[k])
	}
	return out
}

// FieldBinding applies one rule to one field.
type FieldBinding struct {
	// Index is the binding's position in Plan.Bindings.
	Index int

	Field string
	Rule  *Rule

	// DisplayName is the rule name as written in the document.
	DisplayName string

	// IncludeInReport is false for applications declared with output: false.
	// Such bindings are still evaluated and still feed groups.
	IncludeInReport bool

	Location rulesErrors.Location
}

// Combinator decides how a group combines member outcomes.
type Combinator int

const (
	CombinatorAll Combinator = iota
	CombinatorAny
)

// ParseCombinator parses a group "match" value. Empty means all.
func ParseCombinator(s string) (Combinator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return CombinatorAll, nil
	case "any":
		return CombinatorAny, nil
	default:
		return CombinatorAll, fmt.Errorf("unknown match %q (supported: all, any)", s)
	}
}

func (c Combinator) String() string {
	if c == CombinatorAny {
		return "ANY"
	}
	return "ALL"
}

// GroupBinding combines the outcomes of field bindings.
type GroupBinding struct {
	// Index is the group's position in Plan.Groups.
	Index int

	Name        string
	Combinator  Combinator
	Description string

	// Members are indices into Plan.Bindings, resolved at compile time.
	Members []int

	Location rulesErrors.Location
}

// Warning is a non-fatal compilation finding.
type Warning struct {
	Message  string
	Section  string
	Index    int
	Location rulesErrors.Location
}

func (w Warning) String() string {
	s := w.Message
	if w.Section != "" && w.Index >= 0 {
		s = fmt.Sprintf("%s[%d]: %s", w.Section, w.Index, s)
	}
	if w.Location.IsValid() {
		s += " (" + w.Location.String() + ")"
	}
	return s
}

// Plan is a compiled rule document. A Plan is immutable and may be shared
// by any number of runs; per-run accumulators come from NewState.
type Plan struct {
	SourceFile string
	Registry   *Registry
	Bindings   []*FieldBinding
	Groups     []*GroupBinding
	Warnings   []Warning

	fields  []string
	byField map[string][]int
}

// Fields returns the configured field names in first-declaration order.
func (p *Plan) Fields() []string {
	out := make([]string, len(p.fields))
	copy(out, p.fields)
	return out
}

// BindingsFor returns the indices of the bindings declared for field, in
// declaration order.
func (p *Plan) BindingsFor(field string) []int {
	return p.byField[field]
}
