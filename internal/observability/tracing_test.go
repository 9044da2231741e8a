package observability

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

func TestNewTracer_Disabled(t *testing.T) {
	t.Parallel()

	tracer, err := NewTracer(context.Background(), TracerConfig{ServiceName: "edgegw"})
	require.NoError(t, err)

	ctx, span := tracer.StartSpan(context.Background(), "noop")
	defer span.End()

	assert.NotNil(t, ctx)
	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestNewTracer_EnabledWithoutExporter(t *testing.T) {
	tracer, err := NewTracer(context.Background(), TracerConfig{
		Enabled:      true,
		ServiceName:  "edgegw",
		SamplingRate: 1,
	})
	require.NoError(t, err)
	defer func() { _ = tracer.Shutdown(context.Background()) }()

	ctx, span := tracer.StartSpan(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())

	header := http.Header{}
	InjectTraceContext(ctx, header)
	assert.NotEmpty(t, header.Get("traceparent"))

	extracted := ExtractTraceContext(context.Background(), header)
	_, child := tracer.StartSpan(extracted, "child")
	assert.Equal(t, span.SpanContext().TraceID(), child.SpanContext().TraceID())

	child.End()
	span.End()
}

func TestNewResource(t *testing.T) {
	t.Parallel()

	res, err := newResource("edgegw")
	require.NoError(t, err)

	value, ok := res.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "edgegw", value.AsString())
	assert.Equal(t, resource.Default().SchemaURL(), res.SchemaURL())
}

func TestCreateSampler(t *testing.T) {
	t.Parallel()

	assert.Equal(t, sdktrace.AlwaysSample().Description(), createSampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), createSampler(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.5).Description(), createSampler(0.5).Description())
}
