package compiler

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mercator-hq/tablint/pkg/rules/document"
	rulesErrors "mercator-hq/tablint/pkg/rules/errors"
	"mercator-hq/tablint/pkg/rules/predicate"
)

// Options controls compilation.
type Options struct {
	// MatchTimeout bounds a single pattern match. Zero means no limit.
	MatchTimeout time.Duration

	// ContextLines is the number of document lines rendered around an
	// error location. Zero disables context rendering.
	ContextLines int
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		MatchTimeout: time.Second,
		ContextLines: 2,
	}
}

// compiler turns a document into a Plan, collecting every configuration
// error instead of stopping at the first.
type compiler struct {
	opts   Options
	doc    *document.Document
	upper  cases.Caser
	errors *rulesErrors.ErrorList
	plan   *Plan
}

// Compile builds an immutable Plan from doc. On any configuration error it
// returns a *errors.ErrorList holding all of them and no plan.
func Compile(doc *document.Document, opts Options) (*Plan, error) {
	c := &compiler{
		opts:   opts,
		doc:    doc,
		upper:  cases.Upper(language.Und),
		errors: rulesErrors.NewErrorList(),
		plan: &Plan{
			SourceFile: doc.SourceFile,
			Registry:   newRegistry(),
			byField:    make(map[string][]int),
		},
	}

	c.compileGlobals()
	c.compileFields()
	c.compileGroups()

	if c.errors.HasErrors() {
		return nil, c.errors
	}
	return c.plan, nil
}

// normalize returns the canonical form of a rule name.
func (c *compiler) normalize(name string) string {
	return c.upper.String(name)
}

func (c *compiler) fail(err *rulesErrors.Error) {
	if err.Type == "" {
		err.Type = rulesErrors.ErrorTypeConfiguration
	}
	if c.opts.ContextLines > 0 {
		rulesErrors.WithContext(err, c.doc.Raw(), c.opts.ContextLines)
	}
	c.errors.Add(err)
}

func (c *compiler) warn(section string, index int, loc rulesErrors.Location, format string, args ...any) {
	c.plan.Warnings = append(c.plan.Warnings, Warning{
		Message:  fmt.Sprintf(format, args...),
		Section:  section,
		Index:    index,
		Location: loc,
	})
}

func (c *compiler) compileGlobals() {
	for i, decl := range c.doc.GlobalRules {
		if decl == nil {
			c.fail(&rulesErrors.Error{Message: "empty rule declaration", Section: document.KeyGlobalRules, Index: i})
			continue
		}
		if decl.RuleName == "" {
			c.fail(&rulesErrors.Error{
				Message:  "missing ruleName",
				Section:  document.KeyGlobalRules,
				Index:    i,
				Location: decl.Location,
			})
			continue
		}

		key := Key{Scope: GlobalScope, Name: c.normalize(decl.RuleName)}
		rule, ok := c.compileRule(decl, key, document.KeyGlobalRules, i, "")
		if !ok {
			continue
		}
		if c.plan.Registry.put(rule) {
			c.warn(document.KeyGlobalRules, i, decl.Location,
				"duplicate global rule %q, the last declaration wins", key.Name)
		}
	}
}

func (c *compiler) compileFields() {
	for fi, field := range c.doc.Fields {
		if field == nil {
			c.fail(&rulesErrors.Error{Message: "empty field declaration", Section: document.KeyFields, Index: fi})
			continue
		}
		if field.FieldName == "" {
			c.fail(&rulesErrors.Error{
				Message:  "missing fieldName",
				Section:  document.KeyFields,
				Index:    fi,
				Location: field.Location,
			})
			continue
		}

		if _, seen := c.plan.byField[field.FieldName]; seen {
			c.warn(document.KeyFields, fi, field.Location,
				"field %q declared more than once, rules are merged in declaration order", field.FieldName)
		} else {
			c.plan.fields = append(c.plan.fields, field.FieldName)
			c.plan.byField[field.FieldName] = nil
		}

		for ri, decl := range field.Rules {
			c.compileApplication(field, fi, ri, decl)
		}
	}
}

// compileApplication binds one rule application to its field. Without a
// type it reuses the global rule of the same name; with one it compiles a
// rule private to the field.
func (c *compiler) compileApplication(field *document.FieldDecl, fi, ri int, decl *document.RuleDecl) {
	if decl == nil {
		c.fail(&rulesErrors.Error{
			Message:  fmt.Sprintf("empty rule application at rules[%d]", ri),
			Section:  document.KeyFields,
			Index:    fi,
			Field:    field.FieldName,
			Location: field.Location,
		})
		return
	}
	if decl.RuleName == "" {
		c.fail(&rulesErrors.Error{
			Message:  fmt.Sprintf("missing ruleName at rules[%d]", ri),
			Section:  document.KeyFields,
			Index:    fi,
			Field:    field.FieldName,
			Location: decl.Location,
		})
		return
	}

	name := c.normalize(decl.RuleName)

	var rule *Rule
	if decl.Type == "" {
		global, ok := c.plan.Registry.Lookup(GlobalScope, name)
		if !ok {
			c.fail(&rulesErrors.Error{
				Message:    "rule has no type and no global rule of that name exists",
				Section:    document.KeyFields,
				Index:      fi,
				Field:      field.FieldName,
				Rule:       decl.RuleName,
				Location:   decl.Location,
				Suggestion: `declare it under globalRules or give it a "type"`,
			})
			return
		}
		rule = global
	} else {
		key := Key{Scope: FieldScope(field.FieldName), Name: name}
		private, ok := c.compileRule(decl, key, document.KeyFields, fi, field.FieldName)
		if !ok {
			return
		}
		if c.plan.Registry.put(private) {
			c.warn(document.KeyFields, fi, decl.Location,
				"rule %q declared more than once for field %q", name, field.FieldName)
		}
		rule = private
	}

	binding := &FieldBinding{
		Index:           len(c.plan.Bindings),
		Field:           field.FieldName,
		Rule:            rule,
		DisplayName:     decl.RuleName,
		IncludeInReport: decl.IncludeInReport(),
		Location:        decl.Location,
	}
	c.plan.Bindings = append(c.plan.Bindings, binding)
	c.plan.byField[field.FieldName] = append(c.plan.byField[field.FieldName], binding.Index)
}

// compileRule builds the predicate of a declaration that carries a type.
func (c *compiler) compileRule(decl *document.RuleDecl, key Key, section string, index int, field string) (*Rule, bool) {
	ruleErr := func(message string, cause error) *rulesErrors.Error {
		return &rulesErrors.Error{
			Message:  message,
			Section:  section,
			Index:    index,
			Field:    field,
			Rule:     decl.RuleName,
			Location: decl.Location,
			Cause:    cause,
		}
	}

	kind, err := predicate.ParseKind(decl.Type)
	if err != nil {
		c.fail(ruleErr("invalid rule type", err))
		return nil, false
	}

	var pred predicate.Predicate
	switch kind {
	case predicate.KindPattern:
		if decl.Pattern == nil {
			e := ruleErr("regex rule is missing pattern", nil)
			e.Suggestion = `add a "pattern" string`
			c.fail(e)
			return nil, false
		}
		flags, unknown := predicate.ParseFlags(decl.Flags)
		for _, name := range unknown {
			c.warn(section, index, decl.Location, "rule %q: ignoring unknown flag %q", key.Name, name)
		}
		p, err := predicate.NewPattern(*decl.Pattern, flags, decl.Invert, c.opts.MatchTimeout)
		if err != nil {
			c.fail(ruleErr("malformed pattern", err))
			return nil, false
		}
		pred = p

	case predicate.KindRange:
		if decl.FromValue == nil || decl.ToValue == nil {
			e := ruleErr("range rule needs both fromValue and toValue", nil)
			e.Suggestion = `add numeric "fromValue" and "toValue"`
			c.fail(e)
			return nil, false
		}
		r, err := predicate.NewRange(decl.FromValue, decl.ToValue, decl.Outside)
		if err != nil {
			c.fail(ruleErr("invalid range bounds", err))
			return nil, false
		}
		pred = r

	default:
		c.fail(ruleErr(fmt.Sprintf("unsupported rule kind %q", kind), nil))
		return nil, false
	}

	return &Rule{
		Key:       key,
		Kind:      kind,
		Predicate: pred,
		Location:  decl.Location,
	}, true
}

func (c *compiler) compileGroups() {
	byName := make(map[string]int)

	for gi, group := range c.doc.RuleGroups {
		if group == nil {
			c.fail(&rulesErrors.Error{Message: "empty group declaration", Section: document.KeyRuleGroups, Index: gi})
			continue
		}
		groupErr := func(message string, cause error) *rulesErrors.Error {
			return &rulesErrors.Error{
				Message:  message,
				Section:  document.KeyRuleGroups,
				Index:    gi,
				Group:    group.GroupName,
				Location: group.Location,
				Cause:    cause,
			}
		}

		if group.GroupName == "" {
			c.fail(groupErr("missing groupName", nil))
			continue
		}
		combinator, err := ParseCombinator(group.Match)
		if err != nil {
			c.fail(groupErr("invalid match", err))
			continue
		}
		if len(group.Rules) == 0 {
			c.fail(groupErr("group has no member rules", nil))
			continue
		}

		members, ok := c.resolveMembers(group, gi)
		if !ok {
			continue
		}

		binding := &GroupBinding{
			Name:        group.GroupName,
			Combinator:  combinator,
			Description: group.Description,
			Members:     members,
			Location:    group.Location,
		}

		if prev, dup := byName[group.GroupName]; dup {
			c.warn(document.KeyRuleGroups, gi, group.Location,
				"duplicate group %q, the last declaration wins", group.GroupName)
			binding.Index = prev
			c.plan.Groups[prev] = binding
			continue
		}
		binding.Index = len(c.plan.Groups)
		byName[group.GroupName] = binding.Index
		c.plan.Groups = append(c.plan.Groups, binding)
	}
}

// resolveMembers maps (fieldName, ruleName) references onto binding
// indices. A reference matching several applications of the same rule to
// one field includes all of them.
func (c *compiler) resolveMembers(group *document.GroupDecl, gi int) ([]int, bool) {
	var members []int
	ok := true

	for mi, ref := range group.Rules {
		if ref == nil || ref.FieldName == "" || ref.RuleName == "" {
			loc := group.Location
			if ref != nil && ref.Location.IsValid() {
				loc = ref.Location
			}
			c.fail(&rulesErrors.Error{
				Message:  fmt.Sprintf("member rules[%d] needs fieldName and ruleName", mi),
				Section:  document.KeyRuleGroups,
				Index:    gi,
				Group:    group.GroupName,
				Location: loc,
			})
			ok = false
			continue
		}

		name := c.normalize(ref.RuleName)
		found := false
		for _, bi := range c.plan.byField[ref.FieldName] {
			if c.normalize(c.plan.Bindings[bi].DisplayName) == name {
				members = append(members, bi)
				found = true
			}
		}
		if !found {
			c.fail(&rulesErrors.Error{
				Message:    fmt.Sprintf("member rules[%d] does not resolve to a field rule", mi),
				Section:    document.KeyRuleGroups,
				Index:      gi,
				Field:      ref.FieldName,
				Rule:       ref.RuleName,
				Group:      group.GroupName,
				Location:   ref.Location,
				Suggestion: "the field must list this rule under fields[].rules",
			})
			ok = false
		}
	}

	return members, ok
}
