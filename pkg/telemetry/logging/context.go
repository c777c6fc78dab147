package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for run identifiers.
	RunIDKey contextKey = "run_id"

	// RulesPathKey is the context key for the rule document path.
	RulesPathKey contextKey = "rules_path"

	// SourceKey is the context key for the record source reference.
	SourceKey contextKey = "source"
)

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// WithRulesPath adds the rule document path to the context.
func WithRulesPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, RulesPathKey, path)
}

// GetRulesPath retrieves the rule document path from the context.
func GetRulesPath(ctx context.Context) string {
	if path, ok := ctx.Value(RulesPathKey).(string); ok {
		return path
	}
	return ""
}

// WithSource adds the record source reference to the context.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, SourceKey, source)
}

// GetSource retrieves the record source reference from the context.
func GetSource(ctx context.Context) string {
	if source, ok := ctx.Value(SourceKey).(string); ok {
		return source
	}
	return ""
}

// extractContextFields extracts run fields from context for logging.
// Returns a slice of key-value pairs suitable for logger.With().
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if runID := GetRunID(ctx); runID != "" {
		fields = append(fields, string(RunIDKey), runID)
	}
	if path := GetRulesPath(ctx); path != "" {
		fields = append(fields, string(RulesPathKey), path)
	}
	if source := GetSource(ctx); source != "" {
		fields = append(fields, string(SourceKey), source)
	}

	return fields
}
