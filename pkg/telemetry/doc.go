// Package telemetry groups the observability of lint runs.
//
// # Components
//
//   - logging: structured slog logging with credential redaction
//   - metrics: Prometheus run metrics, optionally written to a textfile
//   - tracing: OpenTelemetry spans for each run stage
//   - health: preflight checks behind "tablint doctor"
//
// # Usage
//
//	logger, _ := logging.New(logging.Config{Level: "info", Format: "json", Redact: true})
//	tracer, _ := tracing.New(&cfg.Telemetry.Tracing)
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	r := runner.New(cfg, logger,
//	    runner.WithTracer(tracer),
//	    runner.WithMetrics(collector),
//	)
//
// Every component is optional. A disabled tracer is a no-op and a runner
// without a collector records no metrics.
package telemetry
