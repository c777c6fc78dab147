package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names, one per run stage.
const (
	SpanRun      = "tablint.run"
	SpanCompile  = "tablint.compile"
	SpanOpen     = "tablint.open_source"
	SpanEvaluate = "tablint.evaluate"
	SpanWrite    = "tablint.write_report"
)

// Attribute keys.
const (
	AttrRunID     = "tablint.run.id"
	AttrJob       = "tablint.job"
	AttrRulesPath = "tablint.rules.path"
	AttrSource    = "tablint.source"
	AttrIDField   = "tablint.id_field"

	AttrRules    = "tablint.rules.count"
	AttrBindings = "tablint.bindings.count"
	AttrGroups   = "tablint.groups.count"
	AttrWarnings = "tablint.warnings.count"

	AttrRecords         = "tablint.records"
	AttrFieldViolations = "tablint.violations.field"
	AttrGroupViolations = "tablint.violations.group"
	AttrTypeMismatches  = "tablint.type_mismatches"

	AttrReportLocation = "tablint.report.location"
)

// RunAttributes describes a run at its start.
func RunAttributes(runID, job, rulesPath, source string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRunID, runID),
		attribute.String(AttrRulesPath, rulesPath),
		attribute.String(AttrSource, source),
	}
	if job != "" {
		attrs = append(attrs, attribute.String(AttrJob, job))
	}
	return attrs
}

// SetPlanAttributes records the size of a compiled rule set.
func SetPlanAttributes(span trace.Span, rules, bindings, groups, warnings int) {
	span.SetAttributes(
		attribute.Int(AttrRules, rules),
		attribute.Int(AttrBindings, bindings),
		attribute.Int(AttrGroups, groups),
		attribute.Int(AttrWarnings, warnings),
	)
}

// SetStatsAttributes records evaluation totals.
func SetStatsAttributes(span trace.Span, records, fieldViolations, groupViolations, typeMismatches int) {
	span.SetAttributes(
		attribute.Int(AttrRecords, records),
		attribute.Int(AttrFieldViolations, fieldViolations),
		attribute.Int(AttrGroupViolations, groupViolations),
		attribute.Int(AttrTypeMismatches, typeMismatches),
	)
}

// RecordError marks span as failed. A nil err leaves it untouched.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
