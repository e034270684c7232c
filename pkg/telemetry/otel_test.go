package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

func TestInit_DisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), DefaultConfig("registryflow"), nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewTracerProvider_ExportsSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	cfg := DefaultConfig("registryflow")
	cfg.ServiceVersion = "1.2.3"

	tp, err := NewTracerProvider(cfg, exp)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "pipeline.pass")
	span.End()
	ctx := context.Background()
	require.NoError(t, tp.ForceFlush(ctx))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "pipeline.pass", spans[0].Name)

	attrs := spans[0].Resource.Attributes()
	assert.Contains(t, attrs, semconv.ServiceName("registryflow"))
	assert.Contains(t, attrs, semconv.ServiceVersion("1.2.3"))
	require.NoError(t, tp.Shutdown(ctx))
}

func TestNewTracerProvider_ZeroRatioDropsSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	cfg := DefaultConfig("registryflow")
	cfg.SamplingRatio = 0

	tp, err := NewTracerProvider(cfg, exp)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "pipeline.pass")
	span.End()
	ctx := context.Background()
	require.NoError(t, tp.ForceFlush(ctx))

	assert.Empty(t, exp.GetSpans())
	require.NoError(t, tp.Shutdown(ctx))
}
