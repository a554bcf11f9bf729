package graph

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestCall_RecordsSpanOutcome(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	// The package tracer delegates to the first provider installed globally.
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	c := newTestCaller(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	var res Result
	c.Call(context.Background(), &res)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /graph/me", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("spaauth.outcome", "unauthenticated"))
	assert.Contains(t, spans[0].Attributes(), attribute.Int("http.status_code", http.StatusUnauthorized))
}

func TestCall_CountsCallsByOutcome(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	// The package counter delegates to the first provider installed globally.
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	var status atomic.Int32
	status.Store(http.StatusUnauthorized)
	c := newTestCaller(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		w.Write([]byte(`{}`))
	})

	var res Result
	c.Call(context.Background(), &res)
	status.Store(http.StatusOK)
	c.Call(context.Background(), &res)
	c.Call(context.Background(), &res)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "spaauth.api.calls" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
				counts[outcome.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"unauthenticated": 1, "ok": 2}, counts)
}
