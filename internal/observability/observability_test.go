package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestCtxHandler_AddsCorrelationAndUser(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&ctxHandler{slog.NewJSONHandler(&buf, nil)})

	ctx := WithCorrelationID(context.Background(), "corr-1")
	ctx = WithUserID(ctx, 7)
	logger.InfoContext(ctx, "hello")

	out := buf.String()
	assert.Contains(t, out, `"correlation_id":"corr-1"`)
	assert.Contains(t, out, `"user_id":7`)
}

func TestGenerateCorrelationID_Unique(t *testing.T) {
	a, b := GenerateCorrelationID(), GenerateCorrelationID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "", ExtractCorrelationID(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestTrackQuery_RecordsLatency(t *testing.T) {
	before := testutil.CollectAndCount(DatabaseQueryLatency)
	TrackQuery("select", "observability_test")()
	assert.Equal(t, before+1, testutil.CollectAndCount(DatabaseQueryLatency))
}

func TestEndSpan_RecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := Tracer
	Tracer = tp.Tracer("test")
	defer func() { Tracer = prev }()

	_, span := StartSpan(context.Background(), "op")
	EndSpan(span, errors.New("boom"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "op", spans[0].Name())
	assert.Equal(t, "boom", spans[0].Status().Description)
}
