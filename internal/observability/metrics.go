package observability

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsCollector manages all metrics for quartermaster. A zero or disabled
// collector is safe to call; every Record method no-ops when the instruments
// were never created.
type MetricsCollector struct {
	meter metric.Meter

	// Planning metrics
	plans        metric.Int64Counter
	planDuration metric.Float64Histogram
	stepDuration metric.Float64Histogram

	// Tool metrics
	toolExecutions  metric.Int64Counter
	toolDuration    metric.Float64Histogram
	toolCacheEvents metric.Int64Counter

	// LLM metrics
	llmRequests metric.Int64Counter
	llmTokens   metric.Int64Counter
	llmLatency  metric.Float64Histogram

	// Negotiation metrics
	negotiations metric.Int64Counter

	// HTTP metrics
	httpRequests metric.Int64Counter
	httpDuration metric.Float64Histogram

	// Server for Prometheus scraping
	prometheusServer *http.Server
}

// NewMetricsCollector creates a new metrics collector backed by a Prometheus
// exporter. When disabled it returns an inert collector whose methods do
// nothing. The scrape listener is not started here; the owning process calls
// StartPrometheusServer once it is ready to serve.
func NewMetricsCollector(config MetricsConfig) (*MetricsCollector, error) {
	if !config.Enabled {
		return &MetricsCollector{}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	return NewMetricsCollectorWith(provider)
}

// NewMetricsCollectorWith creates the instruments on a caller-supplied meter
// provider, for embedders and tests that bring their own reader.
func NewMetricsCollectorWith(provider metric.MeterProvider) (*MetricsCollector, error) {
	meter := provider.Meter("quartermaster")

	plans, err := meter.Int64Counter(
		"quartermaster.plans.total",
		metric.WithDescription("Total number of procurement plans"),
		metric.WithUnit("{plan}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create plans counter: %w", err)
	}

	planDuration, err := meter.Float64Histogram(
		"quartermaster.plan.duration",
		metric.WithDescription("End-to-end plan duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan_duration histogram: %w", err)
	}

	stepDuration, err := meter.Float64Histogram(
		"quartermaster.step.duration",
		metric.WithDescription("Per-step plan latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create step_duration histogram: %w", err)
	}

	toolExecutions, err := meter.Int64Counter(
		"quartermaster.tool.executions.total",
		metric.WithDescription("Total number of tool executions"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_executions counter: %w", err)
	}

	toolDuration, err := meter.Float64Histogram(
		"quartermaster.tool.duration",
		metric.WithDescription("Tool execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_duration histogram: %w", err)
	}

	toolCacheEvents, err := meter.Int64Counter(
		"quartermaster.tool.cache.events.total",
		metric.WithDescription("Tool result cache hits and misses"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_cache_events counter: %w", err)
	}

	llmRequests, err := meter.Int64Counter(
		"quartermaster.llm.requests.total",
		metric.WithDescription("Total number of LLM requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_requests counter: %w", err)
	}

	llmTokens, err := meter.Int64Counter(
		"quartermaster.llm.tokens.total",
		metric.WithDescription("Total tokens exchanged with the LLM"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_tokens counter: %w", err)
	}

	llmLatency, err := meter.Float64Histogram(
		"quartermaster.llm.latency",
		metric.WithDescription("LLM request latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_latency histogram: %w", err)
	}

	negotiations, err := meter.Int64Counter(
		"quartermaster.negotiations.total",
		metric.WithDescription("Total number of negotiation reviews"),
		metric.WithUnit("{review}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create negotiations counter: %w", err)
	}

	httpRequests, err := meter.Int64Counter(
		"quartermaster.http.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests counter: %w", err)
	}

	httpDuration, err := meter.Float64Histogram(
		"quartermaster.http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_duration histogram: %w", err)
	}

	return &MetricsCollector{
		meter:           meter,
		plans:           plans,
		planDuration:    planDuration,
		stepDuration:    stepDuration,
		toolExecutions:  toolExecutions,
		toolDuration:    toolDuration,
		toolCacheEvents: toolCacheEvents,
		llmRequests:     llmRequests,
		llmTokens:       llmTokens,
		llmLatency:      llmLatency,
		negotiations:    negotiations,
		httpRequests:    httpRequests,
		httpDuration:    httpDuration,
	}, nil
}

// StartPrometheusServer starts the Prometheus metrics server on its own port.
func (m *MetricsCollector) StartPrometheusServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promclient.Handler())

	m.prometheusServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		log.Printf("Prometheus metrics server listening on :%d", port)
		if err := m.prometheusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Prometheus server error: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the metrics collector.
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	if m.prometheusServer != nil {
		return m.prometheusServer.Shutdown(ctx)
	}
	return nil
}

// RecordPlan records a completed (or failed) planning run.
func (m *MetricsCollector) RecordPlan(ctx context.Context, status string, duration time.Duration) {
	if m == nil || m.plans == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.plans.Add(ctx, 1, attrs)
	m.planDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordStep records one named step of a planning run.
func (m *MetricsCollector) RecordStep(ctx context.Context, step string, seconds float64) {
	if m == nil || m.stepDuration == nil {
		return
	}
	m.stepDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("step", step)))
}

// RecordToolExecution records a tool execution.
func (m *MetricsCollector) RecordToolExecution(ctx context.Context, toolName string, status string, duration time.Duration) {
	if m == nil || m.toolExecutions == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("tool_name", toolName),
		attribute.String("status", status),
	}
	m.toolExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("tool_name", toolName)))
}

// RecordToolCacheEvent records a tool cache hit or miss.
func (m *MetricsCollector) RecordToolCacheEvent(ctx context.Context, hit bool) {
	if m == nil || m.toolCacheEvents == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.toolCacheEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordLLMRequest records an LLM request with token usage.
func (m *MetricsCollector) RecordLLMRequest(ctx context.Context, provider string, status string, inputTokens, outputTokens int, duration time.Duration) {
	if m == nil || m.llmRequests == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("status", status),
	}
	m.llmRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.llmLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if inputTokens > 0 {
		m.llmTokens.Add(ctx, int64(inputTokens), metric.WithAttributes(attribute.String("direction", "input")))
	}
	if outputTokens > 0 {
		m.llmTokens.Add(ctx, int64(outputTokens), metric.WithAttributes(attribute.String("direction", "output")))
	}
}

// RecordLLMTokens records token usage reported out of band, such as the LLM
// client factory's usage callback.
func (m *MetricsCollector) RecordLLMTokens(ctx context.Context, inputTokens, outputTokens int) {
	if m == nil || m.llmTokens == nil {
		return
	}
	if inputTokens > 0 {
		m.llmTokens.Add(ctx, int64(inputTokens), metric.WithAttributes(attribute.String("direction", "input")))
	}
	if outputTokens > 0 {
		m.llmTokens.Add(ctx, int64(outputTokens), metric.WithAttributes(attribute.String("direction", "output")))
	}
}

// RecordNegotiation records a negotiation review by verdict.
func (m *MetricsCollector) RecordNegotiation(ctx context.Context, verdict string) {
	if m == nil || m.negotiations == nil {
		return
	}
	m.negotiations.Add(ctx, 1, metric.WithAttributes(attribute.String("verdict", verdict)))
}

// RecordHTTPRequest records an HTTP request handled by the API server.
func (m *MetricsCollector) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	}
	m.httpRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
