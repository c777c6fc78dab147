package report

import (
	"bytes"
	"encoding/json"
	"time"

	"mercator-hq/tablint/pkg/rules/compiler"
)

// TimestampLayout is the run_datetime format.
const TimestampLayout = "2006-01-02 15:04:05"

// Report is the externally visible result of a run.
type Report struct {
	RunDatetime string
	Fields      []FieldEntry
	Groups      []GroupEntry
}

// FieldEntry lists the reported rule results for one field.
type FieldEntry struct {
	Field string
	Rules []RuleResult
}

// RuleResult is one rule application's failure set.
type RuleResult struct {
	RuleName string `json:"ruleName"`
	ErrorIDs []any  `json:"errorIDs"`
}

// GroupEntry is one group's failure set.
type GroupEntry struct {
	Group       string `json:"-"`
	ErrorIDs    []any  `json:"errorIDs"`
	Description string `json:"description"`
}

// Format projects a finished run into a Report. started is the start of
// the run. Fields appear only when at least one of their bindings is
// reported; groups always appear.
func Format(state *compiler.State, started time.Time) *Report {
	plan := state.Plan()
	r := &Report{
		RunDatetime: started.Format(TimestampLayout),
		Fields:      make([]FieldEntry, 0, len(plan.Fields())),
		Groups:      make([]GroupEntry, 0, len(plan.Groups)),
	}

	for _, field := range plan.Fields() {
		var rules []RuleResult
		for _, bi := range plan.BindingsFor(field) {
			b := plan.Bindings[bi]
			if !b.IncludeInReport {
				continue
			}
			rules = append(rules, RuleResult{
				RuleName: b.DisplayName,
				ErrorIDs: nonNil(state.FieldFailures(bi)),
			})
		}
		if len(rules) > 0 {
			r.Fields = append(r.Fields, FieldEntry{Field: field, Rules: rules})
		}
	}

	for _, g := range plan.Groups {
		r.Groups = append(r.Groups, GroupEntry{
			Group:       g.Name,
			ErrorIDs:    nonNil(state.GroupFailures(g.Index)),
			Description: g.Description,
		})
	}

	return r
}

func nonNil(ids []any) []any {
	if ids == nil {
		return []any{}
	}
	return ids
}

// Counts returns the number of field and group failure entries in the report.
func (r *Report) Counts() (fieldViolations, groupViolations int) {
	for _, f := range r.Fields {
		for _, rule := range f.Rules {
			fieldViolations += len(rule.ErrorIDs)
		}
	}
	for _, g := range r.Groups {
		groupViolations += len(g.ErrorIDs)
	}
	return fieldViolations, groupViolations
}

// MarshalJSON encodes the report with fields and groups in declaration order.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(`{"run_datetime":`)
	if err := writeJSON(&buf, r.RunDatetime); err != nil {
		return nil, err
	}

	buf.WriteString(`,"fields":{`)
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, f.Field); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, f.Rules); err != nil {
			return nil, err
		}
	}

	buf.WriteString(`},"groups":{`)
	for i, g := range r.Groups {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, g.Group); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, g); err != nil {
			return nil, err
		}
	}
	buf.WriteString(`}}`)

	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// Encode returns the indented JSON document written to report sinks.
func (r *Report) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
