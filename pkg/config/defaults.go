package config

import "time"

// Default values for configuration fields.
const (
	// DefaultIDField is the identifier column used when neither the run,
	// the configuration nor the source names one. It is resolved at run
	// time, not by ApplyDefaults, so sources with a natural identifier
	// (GeoPackage "fid") can take precedence.
	DefaultIDField        = "OBJECTID"
	DefaultOutputDir      = "."
	DefaultOutputFile     = "results.json"
	DefaultOnTypeMismatch = "skip"
	DefaultMatchTimeout   = time.Second
	DefaultMaxRulesSize   = int64(10 * 1024 * 1024)

	DefaultSourceMaxConns = int32(4)

	DefaultSinkKind = "file"
	DefaultS3Region = "us-east-1"

	DefaultHistoryPath        = "tablint-history.db"
	DefaultHistoryBusyTimeout = 5 * time.Second

	DefaultLogLevel         = "info"
	DefaultLogFormat        = "console"
	DefaultMetricsNamespace = "tablint"

	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingTimeout     = 10 * time.Second
	DefaultTracingServiceName = "tablint"

	DefaultWatchDebounce = 500 * time.Millisecond

	DefaultShutdownTimeout = 5 * time.Second
)

// NewDefault returns a configuration with every default applied.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.Telemetry.Logging.Redact = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Run.OutputDir == "" {
		cfg.Run.OutputDir = DefaultOutputDir
	}
	if cfg.Run.OutputFile == "" {
		cfg.Run.OutputFile = DefaultOutputFile
	}
	if cfg.Run.OnTypeMismatch == "" {
		cfg.Run.OnTypeMismatch = DefaultOnTypeMismatch
	}
	if cfg.Run.MatchTimeout == 0 {
		cfg.Run.MatchTimeout = DefaultMatchTimeout
	}
	if cfg.Run.MaxRulesSize == 0 {
		cfg.Run.MaxRulesSize = DefaultMaxRulesSize
	}

	if cfg.Source.MaxConns == 0 {
		cfg.Source.MaxConns = DefaultSourceMaxConns
	}

	if cfg.Sink.Kind == "" {
		cfg.Sink.Kind = DefaultSinkKind
	}
	if cfg.Sink.S3.Region == "" {
		cfg.Sink.S3.Region = DefaultS3Region
	}

	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.History.BusyTimeout == 0 {
		cfg.History.BusyTimeout = DefaultHistoryBusyTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}

	tc := &cfg.Telemetry.Tracing
	if tc.Sampler == "" {
		tc.Sampler = DefaultTracingSampler
	}
	if tc.SampleRatio == 0 && tc.Sampler != "ratio" {
		tc.SampleRatio = DefaultTracingSampleRatio
	}
	if tc.Endpoint == "" {
		tc.Endpoint = DefaultTracingEndpoint
	}
	if tc.Timeout == 0 {
		tc.Timeout = DefaultTracingTimeout
	}
	if tc.ServiceName == "" {
		tc.ServiceName = DefaultTracingServiceName
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}
	if cfg.Schedule.ShutdownTimeout == 0 {
		cfg.Schedule.ShutdownTimeout = DefaultShutdownTimeout
	}
}
