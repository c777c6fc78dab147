package config

import (
	"fmt"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "run.id_field").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. All validation errors are
// collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateRun(&cfg.Run)...)
	errs = append(errs, validateSource(&cfg.Source)...)
	errs = append(errs, validateSink(&cfg.Sink)...)
	errs = append(errs, validateHistory(&cfg.History)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if cfg.Watch.Debounce < 0 {
		errs = append(errs, FieldError{Field: "watch.debounce", Message: "must not be negative"})
	}
	if cfg.Schedule.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "schedule.shutdown_timeout", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateRun(cfg *RunConfig) []FieldError {
	var errs []FieldError

	if cfg.IDField != "" && strings.TrimSpace(cfg.IDField) == "" {
		errs = append(errs, FieldError{Field: "run.id_field", Message: "must not be blank"})
	}
	if strings.ContainsAny(cfg.OutputFile, `/\`) {
		errs = append(errs, FieldError{Field: "run.output_file", Message: "must be a file name, not a path"})
	}
	switch strings.ToLower(cfg.OnTypeMismatch) {
	case "skip", "fail":
	default:
		errs = append(errs, FieldError{
			Field:   "run.on_type_mismatch",
			Message: fmt.Sprintf("must be skip or fail, got %q", cfg.OnTypeMismatch),
		})
	}
	if cfg.MatchTimeout < 0 {
		errs = append(errs, FieldError{Field: "run.match_timeout", Message: "must not be negative"})
	}
	if cfg.MaxRulesSize <= 0 {
		errs = append(errs, FieldError{Field: "run.max_rules_size", Message: "must be positive"})
	}

	return errs
}

func validateSource(cfg *SourceConfig) []FieldError {
	if cfg.MaxConns <= 0 {
		return []FieldError{{Field: "source.max_conns", Message: "must be positive"}}
	}
	return nil
}

func validateSink(cfg *SinkConfig) []FieldError {
	var errs []FieldError

	switch cfg.Kind {
	case "file":
	case "s3":
		if cfg.S3.Bucket == "" {
			errs = append(errs, FieldError{Field: "sink.s3.bucket", Message: "required when sink.kind is s3"})
		}
		if (cfg.S3.AccessKeyID == "") != (cfg.S3.SecretAccessKey == "") {
			errs = append(errs, FieldError{
				Field:   "sink.s3.access_key_id",
				Message: "access_key_id and secret_access_key must be set together",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "sink.kind",
			Message: fmt.Sprintf("must be file or s3, got %q", cfg.Kind),
		})
	}

	return errs
}

func validateHistory(cfg *HistoryConfig) []FieldError {
	if cfg.Enabled && cfg.Path == "" {
		return []FieldError{{Field: "history.path", Message: "required when history is enabled"}}
	}
	return nil
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q", cfg.Logging.Level),
		})
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q", cfg.Logging.Format),
		})
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Namespace == "" {
		errs = append(errs, FieldError{Field: "telemetry.metrics.namespace", Message: "must not be empty"})
	}

	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("must be always, never or ratio, got %q", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be between 0 and 1"})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "required when tracing is enabled"})
	}

	return errs
}
