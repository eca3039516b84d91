package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zapcore"

	"github.com/vedangtiwari01-dev/vs-demo/internal/infrastructure/telemetry"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, telemetry.ParseLevel(tt.in), tt.in)
	}
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		logger, err := telemetry.NewLogger("warn", env)
		require.NoError(t, err, env)
		assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	}
}

func TestTraceFields(t *testing.T) {
	assert.Empty(t, telemetry.TraceFields(context.Background()))

	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	fields := telemetry.TraceFields(ctx)
	require.Len(t, fields, 3)
	assert.Equal(t, "trace_id", fields[0].Key)
	assert.Equal(t, span.SpanContext().TraceID().String(), fields[0].String)
	assert.Equal(t, "sampled", fields[2].Key)
}

func TestStartStageSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	provider, err := telemetry.InitializeOpenTelemetry(context.Background(), telemetry.Config{})
	require.NoError(t, err)
	require.NotNil(t, provider.MeterProvider)

	// install the recording provider over the no-op one
	otel.SetTracerProvider(tp)

	_, span := telemetry.StartStageSpan(context.Background(), "pipeline", "cluster")
	telemetry.AddEvent(span, "ml.bypassed", attribute.Int("cleaned", 12))
	telemetry.RecordError(span, errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "pipeline.cluster", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)

	events := ended[0].Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "ml.bypassed", events[0].Name)
	assert.Contains(t, events[0].Attributes, attribute.Int("cleaned", 12))
	assert.NoError(t, provider.Shutdown(context.Background()))
}
