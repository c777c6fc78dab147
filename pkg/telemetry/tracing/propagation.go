package tracing

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/propagation"
)

// Environment variables carrying W3C trace context into a run, so a CI job
// or workflow engine can make tablint runs children of its own trace.
const (
	EnvTraceParent = "TRACEPARENT"
	EnvTraceState  = "TRACESTATE"
	EnvBaggage     = "BAGGAGE"
)

var envPropagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// ExtractEnv returns ctx carrying the trace context found in the
// environment, read through getenv (normally os.Getenv). Without a
// TRACEPARENT, ctx is returned unchanged.
func ExtractEnv(ctx context.Context, getenv func(string) string) context.Context {
	carrier := propagation.MapCarrier{}
	for _, name := range []string{EnvTraceParent, EnvTraceState, EnvBaggage} {
		if v := getenv(name); v != "" {
			carrier.Set(strings.ToLower(name), v)
		}
	}
	if carrier.Get("traceparent") == "" {
		return ctx
	}
	return envPropagator.Extract(ctx, carrier)
}
