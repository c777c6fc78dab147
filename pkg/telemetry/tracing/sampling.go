package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Sampling strategies.
const (
	// SamplerAlways traces every run.
	SamplerAlways = "always"

	// SamplerNever traces no run unless the parent trace is sampled.
	SamplerNever = "never"

	// SamplerRatio traces a fraction of runs, chosen by trace ID.
	SamplerRatio = "ratio"
)

// createSampler returns a parent-based sampler: a run started under a
// sampled TRACEPARENT is always traced.
func createSampler(strategy string, ratio float64) (sdktrace.Sampler, error) {
	var root sdktrace.Sampler

	switch strategy {
	case "", SamplerAlways:
		root = sdktrace.AlwaysSample()
	case SamplerNever:
		root = sdktrace.NeverSample()
	case SamplerRatio:
		if ratio < 0.0 || ratio > 1.0 {
			return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
		}
		root = sdktrace.TraceIDRatioBased(ratio)
	default:
		return nil, fmt.Errorf("unknown sampler strategy: %s (valid: always, never, ratio)", strategy)
	}

	return sdktrace.ParentBased(root), nil
}
