package config

import "time"

// Config is the root configuration structure for tablint. Every field can
// be set in the YAML file or overridden with a TABLINT_* environment
// variable (for example TABLINT_RUN_ID_FIELD or TABLINT_SINK_S3_BUCKET).
type Config struct {
	// Run contains the defaults for a single lint run.
	Run RunConfig `yaml:"run" envPrefix:"RUN_"`

	// Source contains record source settings.
	Source SourceConfig `yaml:"source" envPrefix:"SOURCE_"`

	// Sink contains report destination settings.
	Sink SinkConfig `yaml:"sink" envPrefix:"SINK_"`

	// History contains run history storage settings.
	History HistoryConfig `yaml:"history" envPrefix:"HISTORY_"`

	// Telemetry contains logging and metrics settings.
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`

	// Watch contains settings for the watch command.
	Watch WatchConfig `yaml:"watch" envPrefix:"WATCH_"`

	// Schedule contains settings for the schedule command.
	Schedule ScheduleConfig `yaml:"schedule" envPrefix:"SCHEDULE_"`
}

// RunConfig contains lint run defaults. Command-line flags take precedence.
type RunConfig struct {
	// RulesPath is the rule document (JSON or YAML).
	RulesPath string `yaml:"rules_path" env:"RULES_PATH"`

	// IDField is the record identifier column. When empty, the source's
	// natural identifier is used ("fid" for GeoPackage), then "OBJECTID".
	IDField string `yaml:"id_field" env:"ID_FIELD"`

	// OutputDir is the directory reports are written to.
	// Default: "."
	OutputDir string `yaml:"output_dir" env:"OUTPUT_DIR"`

	// OutputFile is the report file name; ".json" is appended when missing.
	// Default: "results.json"
	OutputFile string `yaml:"output_file" env:"OUTPUT_FILE"`

	// OnTypeMismatch is "skip" or "fail".
	// Default: "skip"
	OnTypeMismatch string `yaml:"on_type_mismatch" env:"ON_TYPE_MISMATCH"`

	// MatchTimeout bounds a single pattern match.
	// Default: 1s
	MatchTimeout time.Duration `yaml:"match_timeout" env:"MATCH_TIMEOUT"`

	// MaxRulesSize is the largest accepted rule document in bytes.
	// Default: 10485760 (10MB)
	MaxRulesSize int64 `yaml:"max_rules_size" env:"MAX_RULES_SIZE"`
}

// SourceConfig contains record source settings.
type SourceConfig struct {
	// URI selects the record source, e.g. "csv:parcels.csv",
	// "gpkg:city.gpkg?table=parcels" or "postgres://host/db?table=parcels".
	URI string `yaml:"uri" env:"URI"`

	// MaxConns caps PostgreSQL pool connections.
	// Default: 4
	MaxConns int32 `yaml:"max_conns" env:"MAX_CONNS"`
}

// SinkConfig contains report destination settings.
type SinkConfig struct {
	// Kind is "file" or "s3".
	// Default: "file"
	Kind string `yaml:"kind" env:"KIND"`

	// S3 is used when Kind is "s3".
	S3 S3Config `yaml:"s3" envPrefix:"S3_"`
}

// S3Config contains S3 upload settings.
type S3Config struct {
	Bucket string `yaml:"bucket" env:"BUCKET"`

	// Region is the AWS region.
	// Default: "us-east-1"
	Region string `yaml:"region" env:"REGION"`

	// Prefix is prepended to report object keys.
	Prefix string `yaml:"prefix" env:"PREFIX"`

	// Endpoint overrides the S3 endpoint (MinIO, LocalStack).
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`

	// PathStyle forces path-style addressing; most S3-compatible stores need it.
	PathStyle bool `yaml:"path_style" env:"PATH_STYLE"`

	// AccessKeyID and SecretAccessKey are static credentials. When empty the
	// default AWS credential chain is used.
	AccessKeyID     string `yaml:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"SECRET_ACCESS_KEY"`
}

// HistoryConfig contains run history storage settings.
type HistoryConfig struct {
	// Enabled records every run in the history database.
	// Default: false
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// Path is the SQLite database file.
	// Default: "tablint-history.db"
	Path string `yaml:"path" env:"PATH"`

	// BusyTimeout is how long SQLite waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout" env:"BUSY_TIMEOUT"`
}

// TelemetryConfig contains logging, metrics and tracing settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging" envPrefix:"LOGGING_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
	Tracing TracingConfig `yaml:"tracing" envPrefix:"TRACING_"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	// Default: "info"
	Level string `yaml:"level" env:"LEVEL"`

	// Format is "json", "text" or "console".
	// Default: "console"
	Format string `yaml:"format" env:"FORMAT"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source" env:"ADD_SOURCE"`

	// Redact masks credentials in log fields.
	// Default: true
	Redact bool `yaml:"redact" env:"REDACT"`
}

// MetricsConfig contains run metrics settings.
type MetricsConfig struct {
	// Enabled turns on run metrics.
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// Textfile is the path metrics are written to after every run, in the
	// node_exporter textfile collector format.
	Textfile string `yaml:"textfile" env:"TEXTFILE"`

	// Namespace prefixes every metric name.
	// Default: "tablint"
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// TracingConfig contains OpenTelemetry tracing settings. Each run is one
// trace with a span per stage.
type TracingConfig struct {
	// Enabled turns on tracing.
	// Default: false
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// Sampler is "always", "never" or "ratio".
	// Default: "always"
	Sampler string `yaml:"sampler" env:"SAMPLER"`

	// SampleRatio is the fraction of runs traced when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio" env:"SAMPLE_RATIO"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure" env:"INSECURE"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "tablint"
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// WatchConfig contains settings for the watch command.
type WatchConfig struct {
	// Debounce is the quiet period after a change before re-running.
	// Default: 500ms
	Debounce time.Duration `yaml:"debounce" env:"DEBOUNCE"`
}

// ScheduleConfig contains settings for the schedule command.
type ScheduleConfig struct {
	// Cron is a standard five-field cron expression or a descriptor such as
	// "@hourly".
	Cron string `yaml:"cron" env:"CRON"`

	// RunOnStart runs once immediately before waiting for the first tick.
	RunOnStart bool `yaml:"run_on_start" env:"RUN_ON_START"`

	// ListenAddress serves /metrics, /healthz and /readyz while the
	// schedule runs, e.g. ":9090". Empty disables the status server.
	ListenAddress string `yaml:"listen_address" env:"LISTEN_ADDRESS"`

	// ShutdownTimeout bounds the status server's graceful shutdown.
	// Default: 5s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}
