package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func TestWithContext_RoundTrip(t *testing.T) {
	log := zap.NewNop()
	ctx := WithContext(context.Background(), log)

	assert.Same(t, log, FromContext(ctx))
}

func TestFromContext_MissingLoggerIsNoop(t *testing.T) {
	log := FromContext(context.Background())

	require.NotNil(t, log)
	assert.NotPanics(t, func() { log.Info("no logger attached") })
}

func TestWithRequestID(t *testing.T) {
	log, logs := newObservedLogger()

	ctx, stamped := WithRequestID(context.Background(), log, "req-42")
	stamped.Info("processing sale event")

	assert.Equal(t, "req-42", GetRequestID(ctx))
	assert.Same(t, stamped, FromContext(ctx))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
}

func TestGetRequestID_Empty(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestWithTraceContext_NoSpan(t *testing.T) {
	log := zap.NewNop()

	assert.Same(t, log, WithTraceContext(context.Background(), log))
}

func TestWithTraceContext_StampsTraceAndSpan(t *testing.T) {
	log, logs := newObservedLogger()

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	WithTraceContext(ctx, log).Info("adapter call")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, spanID.String(), fields["span_id"])
}
