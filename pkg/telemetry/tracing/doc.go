// Package tracing traces lint runs with OpenTelemetry.
//
// Every run is one trace. The root span (tablint.run) carries the run id,
// the rule document and the source; child spans cover compiling the rules,
// opening the source, evaluating records and writing the report, so a slow
// stage is visible at a glance.
//
// # Exporting
//
// Spans are exported over OTLP gRPC to telemetry.tracing.endpoint. With
// tracing disabled, New returns a no-op tracer:
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
// # Parent Traces
//
// A run started with TRACEPARENT in its environment joins that trace:
//
//	ctx = tracing.ExtractEnv(ctx, os.Getenv)
//
// # Sampling
//
// Samplers are parent-based: "always", "never" or "ratio" decide only for
// runs without a sampled parent.
package tracing
