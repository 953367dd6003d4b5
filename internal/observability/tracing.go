package observability

import (
	"context"
	"fmt"

	id "quartermaster/internal/utils/id"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerProvider wraps the OpenTelemetry tracer. When tracing is disabled it
// hands out a noop tracer so call sites never branch.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracerProvider creates a new tracer provider.
func NewTracerProvider(config TracingConfig) (*TracerProvider, error) {
	if !config.Enabled {
		return &TracerProvider{
			tracer: noop.NewTracerProvider().Tracer("quartermaster"),
		}, nil
	}

	if config.ServiceName == "" {
		config.ServiceName = "quartermaster"
	}
	if config.SampleRate <= 0 || config.SampleRate > 1.0 {
		config.SampleRate = 1.0
	}

	var exporter sdktrace.SpanExporter
	var err error

	switch config.Exporter {
	case "otlp":
		endpoint := config.OTLPEndpoint
		if endpoint == "" {
			endpoint = "localhost:4318"
		}
		exporter, err = otlptracehttp.New(
			context.Background(),
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
	case "zipkin":
		endpoint := config.ZipkinEndpoint
		if endpoint == "" {
			endpoint = "http://localhost:9411/api/v2/spans"
		}
		exporter, err = zipkin.New(endpoint)
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", config.Exporter)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(config.SampleRate)),
	)

	otel.SetTracerProvider(provider)

	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer("quartermaster"),
	}, nil
}

// NewTracerProviderWith wraps a caller-supplied SDK provider, for embedders
// and tests that bring their own span processor.
func NewTracerProviderWith(provider *sdktrace.TracerProvider) *TracerProvider {
	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer("quartermaster"),
	}
}

// Shutdown gracefully shuts down the tracer provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp != nil && tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// StartSpan starts a span, enriching it with any request and session IDs
// found on the context. A nil provider yields a noop span so call sites
// never branch on whether tracing is wired.
func (tp *TracerProvider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tp == nil || tp.tracer == nil {
		return noop.NewTracerProvider().Tracer("quartermaster").Start(ctx, name)
	}

	ids := id.IDsFromContext(ctx)
	if ids.RequestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, ids.RequestID))
	}
	if ids.SessionID != "" {
		attrs = append(attrs, attribute.String(AttrSessionID, ids.SessionID))
	}

	return tp.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Common span names
const (
	SpanPlan          = "quartermaster.plan"
	SpanCatalogSearch = "quartermaster.catalog.search"
	SpanToolExecute   = "quartermaster.tool.execute"
	SpanLLMGenerate   = "quartermaster.llm.generate"
	SpanNegotiation   = "quartermaster.negotiation.review"
	SpanHTTPServer    = "quartermaster.http.request"
)

// Common attribute keys
const (
	AttrRequestID    = "quartermaster.request_id"
	AttrSessionID    = "quartermaster.session_id"
	AttrComponent    = "quartermaster.component"
	AttrItemID       = "quartermaster.item_id"
	AttrVendor       = "quartermaster.vendor"
	AttrToolName     = "quartermaster.tool_name"
	AttrProvider     = "quartermaster.llm.provider"
	AttrInputTokens  = "quartermaster.llm.input_tokens"
	AttrOutputTokens = "quartermaster.llm.output_tokens"
	AttrVerdict      = "quartermaster.verdict"
	AttrStatus       = "quartermaster.status"
	AttrError        = "quartermaster.error"
)

// ComponentAttrs creates component attributes for planning spans.
func ComponentAttrs(component string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrComponent, component),
	}
}

// ToolAttrs creates tool attributes.
func ToolAttrs(toolName string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrToolName, toolName),
	}
}

// LLMAttrs creates LLM attributes.
func LLMAttrs(provider string, inputTokens, outputTokens int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrProvider, provider),
		attribute.Int(AttrInputTokens, inputTokens),
		attribute.Int(AttrOutputTokens, outputTokens),
	}
}

// StatusAttrs creates status attributes.
func StatusAttrs(status string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrStatus, status),
	}
}

// ErrorAttrs creates error attributes.
func ErrorAttrs(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.Bool(AttrError, true),
		attribute.String("error.message", err.Error()),
	}
}
