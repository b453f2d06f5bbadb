package internal

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTelemetry(t *testing.T) (*Telemetry, *bytes.Buffer, *sdkmetric.ManualReader, *tracetest.SpanRecorder) {
	t.Helper()

	logBuf := &bytes.Buffer{}
	handler := slog.NewJSONHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	recorder := tracetest.NewSpanRecorder()
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	t.Cleanup(func() {
		_ = meterProvider.Shutdown(t.Context())
		_ = tracerProvider.Shutdown(t.Context())
	})

	return newTelemetry("test", "telemetry", handler, meterProvider, tracerProvider), logBuf, reader, recorder
}

func Test_Telemetry_Logs(t *testing.T) {
	assert := assert.New(t)

	tel, logBuf, _, _ := newTestTelemetry(t)

	tel.LogInfo("hello", "answer", 42)
	tel.LogError("failed", errors.New("boom"))

	out := logBuf.String()
	assert.Contains(out, `"msg":"hello"`)
	assert.Contains(out, `"answer":42`)
	assert.Contains(out, `"component_kind":"test"`)
	assert.Contains(out, `"component_name":"telemetry"`)
	assert.Contains(out, `"error":"boom"`)
}

func Test_Telemetry_Metrics(t *testing.T) {
	assert := assert.New(t)

	tel, _, reader, _ := newTestTelemetry(t)

	counterVal := int64(7)
	gaugeVal := int64(3)

	tel.NewCounter("frames", func() int64 { return counterVal })
	tel.NewGauge("depth", func() int64 { return gaugeVal })
	tel.RegisterMetrics()

	rm := metricdata.ResourceMetrics{}
	require.NoError(t, reader.Collect(t.Context(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	found := 0
	for _, m := range rm.ScopeMetrics[0].Metrics {
		switch m.Name {
		case "frames":
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			require.Len(t, sum.DataPoints, 1)
			assert.Equal(counterVal, sum.DataPoints[0].Value)
			found++

		case "depth":
			gauge, ok := m.Data.(metricdata.Gauge[int64])
			require.True(t, ok)
			require.Len(t, gauge.DataPoints, 1)
			assert.Equal(gaugeVal, gauge.DataPoints[0].Value)
			found++
		}
	}

	assert.Equal(2, found)
}

func Test_Telemetry_UnregisterMetrics(t *testing.T) {
	assert := assert.New(t)

	tel, _, reader, _ := newTestTelemetry(t)

	calls := 0
	tel.NewCounter("frames", func() int64 {
		calls++
		return 1
	})

	// Nothing is observed before the registration
	rm := metricdata.ResourceMetrics{}
	require.NoError(t, reader.Collect(t.Context(), &rm))
	assert.Zero(calls)

	tel.RegisterMetrics()
	require.NoError(t, reader.Collect(t.Context(), &rm))
	assert.Equal(1, calls)

	tel.UnregisterMetrics()
	tel.UnregisterMetrics()

	require.NoError(t, reader.Collect(t.Context(), &rm))
	assert.Equal(1, calls)
}

func Test_Telemetry_Trace(t *testing.T) {
	assert := assert.New(t)

	tel, _, _, recorder := newTestTelemetry(t)

	_, span := tel.NewTrace(t.Context(), "test span")
	span.End()

	ended := recorder.Ended()
	if assert.Len(ended, 1) {
		assert.Equal("test span", ended[0].Name())
	}
}
