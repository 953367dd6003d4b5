package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	id "quartermaster/internal/utils/id"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.True(t, config.Metrics.Enabled)
	assert.Equal(t, 9090, config.Metrics.PrometheusPort)
	assert.False(t, config.Tracing.Enabled)
	assert.Equal(t, "otlp", config.Tracing.Exporter)
	assert.Equal(t, 1.0, config.Tracing.SampleRate)
	assert.Equal(t, "quartermaster", config.Tracing.ServiceName)
}

func TestLoggerContextEnrichment(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "debug", Format: "json"}, &buf)

	ctx := id.WithRequestID(context.Background(), "req-123")
	ctx = id.WithSessionID(ctx, "session-456")
	logger.InfoContext(ctx, "planning started", "component", "solar_panel")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "planning started", entry["msg"])
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "session-456", entry["session_id"])
	assert.Equal(t, "solar_panel", entry["component"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestSanitizeAPIKey(t *testing.T) {
	assert.Equal(t, "***", SanitizeAPIKey("short"))
	assert.Equal(t, "sk-12345...wxyz", SanitizeAPIKey("sk-1234567890abcdwxyz"))
}

func TestDisabledMetricsCollectorIsInert(t *testing.T) {
	collector, err := NewMetricsCollector(MetricsConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	collector.RecordPlan(ctx, "success", time.Second)
	collector.RecordStep(ctx, "score_candidates", 0.01)
	collector.RecordToolExecution(ctx, "price_history", "success", time.Millisecond)
	collector.RecordToolCacheEvent(ctx, true)
	collector.RecordLLMRequest(ctx, "mock", "success", 10, 5, time.Millisecond)
	collector.RecordNegotiation(ctx, "APPROVED")
	collector.RecordHTTPRequest(ctx, "GET", "/api/health", 200, time.Millisecond)
	require.NoError(t, collector.Shutdown(ctx))
}

// counterValue sums the datapoints of an Int64 counter that carry the given
// attribute value.
func counterValue(t *testing.T, rm metricdata.ResourceMetrics, name, attrKey, attrValue string) int64 {
	t.Helper()
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s is %T, want Sum[int64]", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value(attribute.Key(attrKey)); ok && v.AsString() == attrValue {
					total += dp.Value
				}
			}
			return total
		}
	}
	t.Fatalf("metric %s not recorded", name)
	return 0
}

func TestMetricsCollectorDefersListenerStart(t *testing.T) {
	collector, err := NewMetricsCollector(MetricsConfig{Enabled: true, PrometheusPort: 9090})
	require.NoError(t, err)
	require.Nil(t, collector.prometheusServer, "constructor must not start the scrape listener")

	require.NoError(t, collector.StartPrometheusServer(0))
	require.NotNil(t, collector.prometheusServer)
	require.NoError(t, collector.Shutdown(context.Background()))
}

func TestRecordLLMTokens(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	collector, err := NewMetricsCollectorWith(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	ctx := context.Background()
	collector.RecordLLMTokens(ctx, 12, 7)
	collector.RecordLLMTokens(ctx, 0, 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(12), counterValue(t, rm, "quartermaster.llm.tokens.total", "direction", "input"))
	assert.Equal(t, int64(10), counterValue(t, rm, "quartermaster.llm.tokens.total", "direction", "output"))
}

func TestNilMetricsCollectorIsSafe(t *testing.T) {
	var collector *MetricsCollector
	collector.RecordPlan(context.Background(), "error", time.Second)
	collector.RecordNegotiation(context.Background(), "ESCALATED")
}

func TestDisabledTracerIsNoop(t *testing.T) {
	tp, err := NewTracerProvider(TracingConfig{Enabled: false})
	require.NoError(t, err)

	ctx := id.WithRequestID(context.Background(), "req-789")
	spanCtx, span := tp.StartSpan(ctx, SpanPlan, ComponentAttrs("battery")...)
	assert.NotNil(t, spanCtx)
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestNilTracerProviderIsSafe(t *testing.T) {
	var tp *TracerProvider

	ctx, span := tp.StartSpan(context.Background(), SpanToolExecute, ToolAttrs("price_history")...)
	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestTracerRejectsUnknownExporter(t *testing.T) {
	_, err := NewTracerProvider(TracingConfig{Enabled: true, Exporter: "carrier-pigeon"})
	assert.Error(t, err)
}
