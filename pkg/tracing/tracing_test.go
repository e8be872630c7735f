package tracing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/tracing"
)

var errExpected = errors.New("already exists")

// TestEnd 测试 span 状态按错误类别设置.
func TestEnd(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, ok := tracing.StartSpan(context.Background(), "storage.ok")
	tracing.End(ok, nil)

	_, exists := tracing.StartSpan(context.Background(), "storage.exists")
	tracing.End(exists, errExpected, errExpected)

	_, failed := tracing.StartSpan(context.Background(), "storage.failed")
	tracing.End(failed, errors.New("disk full"), errExpected)

	spans := rec.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
	assert.Equal(t, codes.Error, spans[2].Status().Code)
	assert.Len(t, spans[2].Events(), 1)
}

// TestInitDisabled 测试未启用时不做任何事.
func TestInitDisabled(t *testing.T) {
	cfg := configs.Default().Tracing
	require.False(t, cfg.Enabled)
	require.NoError(t, tracing.InitTracer(context.Background(), cfg))
	require.NoError(t, tracing.ShutdownTracer(context.Background()))

	cfg.Enabled = true
	cfg.ExporterType = "jaeger"
	require.Error(t, tracing.InitTracer(context.Background(), cfg))
}
