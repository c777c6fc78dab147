package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

const testTraceParent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

func envOf(vars map[string]string) func(string) string {
	return func(name string) string { return vars[name] }
}

func TestExtractEnv(t *testing.T) {
	ctx := ExtractEnv(context.Background(), envOf(map[string]string{
		EnvTraceParent: testTraceParent,
	}))

	sc := trace.SpanContextFromContext(ctx)
	assert.True(t, sc.IsValid())
	assert.True(t, sc.IsRemote())
	assert.True(t, sc.IsSampled())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", sc.TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", sc.SpanID().String())
}

func TestExtractEnv_Missing(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, ExtractEnv(ctx, envOf(nil)))

	ctx = ExtractEnv(ctx, envOf(map[string]string{EnvTraceParent: "garbage"}))
	assert.False(t, trace.SpanContextFromContext(ctx).IsValid())
}
