package planner

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"quartermaster/internal/catalog"
	"quartermaster/internal/errors"
	"quartermaster/internal/observability"
	"quartermaster/internal/tools"
	"quartermaster/internal/tools/builtin"
	"quartermaster/pkg/types"
)

func sampleItems() []types.Item {
	return []types.Item{
		{ID: "SP-100", Component: "solar_panel", Vendor: "Helios Dynamics", Price: 4800, LeadTimeDays: 21, Reliability: 0.985,
			Specs: map[string]float64{"power_w": 150, "mass_kg": 8.5, "voltage_v": 28}},
		{ID: "SP-200", Component: "solar_panel", Vendor: "Astra Components", Price: 5200, LeadTimeDays: 14, Reliability: 0.975,
			Specs: map[string]float64{"power_w": 180, "mass_kg": 9.2, "voltage_v": 28}},
		{ID: "BAT-50", Component: "battery", Vendor: "Helios Dynamics", Price: 2200, LeadTimeDays: 10, Reliability: 0.990,
			Specs: map[string]float64{"capacity_wh": 500, "mass_kg": 4.1}},
		{ID: "ANT-10", Component: "antenna", Vendor: "Astra Components", Price: 1900, LeadTimeDays: 7, Reliability: 0.992,
			Specs: map[string]float64{"gain_db": 12, "mass_kg": 1.8}},
	}
}

func newTestPlanner(t *testing.T, opts ...Option) *Planner {
	t.Helper()
	registry := tools.NewRegistry()
	if err := registry.Register(builtin.NewPriceHistoryWithClock(func() time.Time {
		return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	})); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(builtin.NewAvailability()); err != nil {
		t.Fatal(err)
	}
	return New(catalog.New(sampleItems()), registry, opts...)
}

// testMetrics wires a collector onto an in-memory reader so tests can
// inspect the recorded counters.
func testMetrics(t *testing.T) (*observability.MetricsCollector, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	metrics, err := observability.NewMetricsCollectorWith(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	if err != nil {
		t.Fatal(err)
	}
	return metrics, reader
}

// counterValue sums the datapoints of an Int64 counter that carry the given
// attribute value.
func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name, attrKey, attrValue string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
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
	return 0
}

func stepNames(trace []types.TraceStep) []string {
	names := make([]string, len(trace))
	for i, step := range trace {
		names[i] = step.Step
	}
	return names
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestPlanSelectsBestCandidate(t *testing.T) {
	p := newTestPlanner(t)

	request := types.Request{
		Component:          "solar_panel",
		MaxCost:            floatPtr(6000),
		LatestDeliveryDays: intPtr(30),
	}
	result, err := p.Plan(context.Background(), request, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if result.Selected == nil || result.Selected.ID != "SP-100" {
		t.Fatalf("selected = %+v, want SP-100", result.Selected)
	}
	if len(result.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(result.Candidates))
	}
	if result.Selected != &result.Candidates[0] {
		t.Error("selected must alias the first candidate")
	}
	if result.Candidates[0].Score <= result.Candidates[1].Score {
		t.Errorf("candidates not ordered best-first: %v vs %v",
			result.Candidates[0].Score, result.Candidates[1].Score)
	}

	want := "Selected SP-100 from Helios Dynamics. It balances cost (4800) and delivery (30 days) and strong reliability (0.985), making it the best fit for the request."
	if result.Justification != want {
		t.Errorf("justification = %q\nwant %q", result.Justification, want)
	}

	wantSteps := []string{"catalog_load", "catalog_search", "compute_bounds", "scoring", "ranking", "llm_justification"}
	got := stepNames(result.Trace)
	if len(got) != len(wantSteps) {
		t.Fatalf("trace steps = %v, want %v", got, wantSteps)
	}
	for i, name := range wantSteps {
		if got[i] != name {
			t.Errorf("trace[%d] = %q, want %q", i, got[i], name)
		}
	}

	m := result.Metrics
	if m.TotalCandidates != 2 || m.CandidatesAfterFiltering != 2 || m.TopKSelected != 2 || m.ToolsCalled != 0 {
		t.Errorf("metrics = %+v", m)
	}
	for _, key := range []string{"catalog_load", "catalog_search", "scoring", "llm_justification"} {
		if _, ok := m.StepLatencies[key]; !ok {
			t.Errorf("missing step latency %q", key)
		}
	}
}

func TestPlanMissingComponent(t *testing.T) {
	p := newTestPlanner(t)

	_, err := p.Plan(context.Background(), types.Request{}, Options{})
	if !errors.IsBadRequest(err) {
		t.Fatalf("err = %v, want bad request", err)
	}
	if err.Error() != "no component specified" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestPlanNoCandidates(t *testing.T) {
	p := newTestPlanner(t)

	_, err := p.Plan(context.Background(), types.Request{Component: "warp_drive"}, Options{})
	if !errors.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
	if err.Error() != "no candidates match constraints" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestPlanConstraintsFilterEverything(t *testing.T) {
	p := newTestPlanner(t)

	request := types.Request{Component: "solar_panel", MaxCost: floatPtr(100)}
	_, err := p.Plan(context.Background(), request, Options{})
	if !errors.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestPlanConstraintFilteringTraced(t *testing.T) {
	p := newTestPlanner(t)

	// 5000 drops SP-200 only.
	request := types.Request{Component: "solar_panel", MaxCost: floatPtr(5000)}
	result, err := p.Plan(context.Background(), request, Options{})
	if err != nil {
		t.Fatal(err)
	}

	var found bool
	for _, step := range result.Trace {
		if step.Step == "constraint_filtering" {
			found = true
			if step.Result != "filtered from 2 to 1 candidates" {
				t.Errorf("result = %q", step.Result)
			}
		}
	}
	if !found {
		t.Error("expected a constraint_filtering trace step")
	}
	if result.Metrics.TotalCandidates != 2 || result.Metrics.CandidatesAfterFiltering != 1 {
		t.Errorf("metrics = %+v", result.Metrics)
	}
}

func TestPlanNoFilterStepWhenNothingDropped(t *testing.T) {
	p := newTestPlanner(t)

	request := types.Request{Component: "solar_panel", MaxCost: floatPtr(10000)}
	result, err := p.Plan(context.Background(), request, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, step := range result.Trace {
		if step.Step == "constraint_filtering" {
			t.Error("constraint_filtering traced although nothing was dropped")
		}
	}
}

func TestPlanInvalidWeights(t *testing.T) {
	p := newTestPlanner(t)

	request := types.Request{Component: "solar_panel", Weights: map[string]float64{"price": 1.5}}
	_, err := p.Plan(context.Background(), request, Options{})
	if !errors.IsBadRequest(err) {
		t.Fatalf("err = %v, want bad request", err)
	}
}

func TestPlanTopK(t *testing.T) {
	p := newTestPlanner(t)

	result, err := p.Plan(context.Background(), types.Request{Component: "solar_panel"}, Options{TopK: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Candidates) != 1 || result.Metrics.TopKSelected != 1 {
		t.Errorf("candidates = %d, metrics = %+v", len(result.Candidates), result.Metrics)
	}
}

func TestPlanInvestigate(t *testing.T) {
	p := newTestPlanner(t)

	result, err := p.Plan(context.Background(), types.Request{Component: "solar_panel"}, Options{Investigate: true})
	if err != nil {
		t.Fatal(err)
	}

	if result.Metrics.ToolsCalled != 2*len(result.Candidates) {
		t.Errorf("tools_called = %d, want %d", result.Metrics.ToolsCalled, 2*len(result.Candidates))
	}
	for _, candidate := range result.Candidates {
		if candidate.Tools == nil || candidate.Tools.PriceHistory == nil || candidate.Tools.Availability == nil {
			t.Fatalf("candidate %s missing tool payloads: %+v", candidate.ID, candidate.Tools)
		}
		if len(candidate.Tools.PriceHistory.History) != 4 {
			t.Errorf("price history for %s has %d points", candidate.ID, len(candidate.Tools.PriceHistory.History))
		}
		if candidate.Tools.Availability.Vendor != candidate.Vendor {
			t.Errorf("availability vendor = %q, want %q", candidate.Tools.Availability.Vendor, candidate.Vendor)
		}
	}

	var toolCalls, investigations int
	for _, step := range result.Trace {
		switch step.Step {
		case "tool_call":
			toolCalls++
			if step.Summary == "" || step.Tool == "" {
				t.Errorf("tool_call step missing summary or tool: %+v", step)
			}
			if step.Tool == "price_history" && !strings.Contains(step.Summary, "trend=stable") {
				t.Errorf("price_history summary = %q", step.Summary)
			}
			if step.Tool == "availability" && !strings.Contains(step.Summary, "in_stock=") {
				t.Errorf("availability summary = %q", step.Summary)
			}
		case "investigation":
			investigations++
		}
	}
	if toolCalls != 2*len(result.Candidates) || investigations != 1 {
		t.Errorf("trace had %d tool_call and %d investigation steps", toolCalls, investigations)
	}
	if _, ok := result.Metrics.StepLatencies["investigation"]; !ok {
		t.Error("missing investigation latency")
	}
}

func TestPlanOpenAIWithoutKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	p := newTestPlanner(t)

	_, err := p.Plan(context.Background(), types.Request{Component: "solar_panel"}, Options{Provider: "openai"})
	if !errors.IsBadRequest(err) {
		t.Fatalf("err = %v, want bad request", err)
	}
	want := "API key required for openai. Please provide an API key."
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestPlanEmitsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := observability.NewTracerProviderWith(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	p := newTestPlanner(t, WithTracer(tracer))

	result, err := p.Plan(context.Background(), types.Request{Component: "solar_panel"}, Options{Investigate: true})
	if err != nil {
		t.Fatal(err)
	}

	counts := map[string]int{}
	for _, span := range recorder.Ended() {
		counts[span.Name()]++
	}
	if counts[observability.SpanPlan] != 1 {
		t.Errorf("plan spans = %d, want 1", counts[observability.SpanPlan])
	}
	if counts[observability.SpanCatalogSearch] != 1 {
		t.Errorf("catalog search spans = %d, want 1", counts[observability.SpanCatalogSearch])
	}
	if counts[observability.SpanLLMGenerate] != 1 {
		t.Errorf("llm spans = %d, want 1", counts[observability.SpanLLMGenerate])
	}
	if want := 2 * len(result.Candidates); counts[observability.SpanToolExecute] != want {
		t.Errorf("tool spans = %d, want %d", counts[observability.SpanToolExecute], want)
	}
}

func TestPlanRecordsBadRequestMetric(t *testing.T) {
	metrics, reader := testMetrics(t)
	p := newTestPlanner(t, WithMetrics(metrics))

	if _, err := p.Plan(context.Background(), types.Request{}, Options{}); !errors.IsBadRequest(err) {
		t.Fatalf("err = %v, want bad request", err)
	}
	if got := counterValue(t, reader, "quartermaster.plans.total", "status", "bad_request"); got != 1 {
		t.Errorf("bad_request plans = %d, want 1", got)
	}

	t.Setenv("OPENAI_API_KEY", "")
	request := types.Request{Component: "solar_panel"}
	if _, err := p.Plan(context.Background(), request, Options{Provider: "openai"}); !errors.IsBadRequest(err) {
		t.Fatalf("err = %v, want bad request", err)
	}
	if got := counterValue(t, reader, "quartermaster.plans.total", "status", "bad_request"); got != 2 {
		t.Errorf("bad_request plans = %d, want 2", got)
	}
}

func TestPlanRecordsToolAndLLMMetrics(t *testing.T) {
	metrics, reader := testMetrics(t)
	p := newTestPlanner(t, WithMetrics(metrics))

	result, err := p.Plan(context.Background(), types.Request{Component: "solar_panel"}, Options{Investigate: true})
	if err != nil {
		t.Fatal(err)
	}

	want := int64(2 * len(result.Candidates))
	if got := counterValue(t, reader, "quartermaster.tool.executions.total", "status", "success"); got != want {
		t.Errorf("tool executions = %d, want %d", got, want)
	}
	if got := counterValue(t, reader, "quartermaster.llm.requests.total", "status", "success"); got != 1 {
		t.Errorf("llm requests = %d, want 1", got)
	}
	if got := counterValue(t, reader, "quartermaster.plans.total", "status", "success"); got != 1 {
		t.Errorf("successful plans = %d, want 1", got)
	}
}

func TestJustify(t *testing.T) {
	p := newTestPlanner(t)

	item := sampleItems()[1] // SP-200
	request := types.Request{LatestDeliveryDays: intPtr(30)}
	got, err := p.Justify(context.Background(), item, request, Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := "Selected SP-200 from Astra Components. It balances cost (5200) and delivery (30 days) and strong reliability (0.975), making it the best fit for the request."
	if got != want {
		t.Errorf("justification = %q\nwant %q", got, want)
	}

	t.Setenv("OPENAI_API_KEY", "")
	if _, err := p.Justify(context.Background(), item, request, Options{Provider: "openai"}); !errors.IsBadRequest(err) {
		t.Fatalf("err = %v, want bad request", err)
	}
}

func TestJustificationPrompt(t *testing.T) {
	item := types.Item{ID: "SP-100", Vendor: "Helios Dynamics", Price: 4800, LeadTimeDays: 21, Reliability: 0.985}
	request := types.Request{MaxCost: floatPtr(6000), LatestDeliveryDays: intPtr(30)}

	got := justificationPrompt(item, request)
	want := `Selected item details:
ID: SP-100
Vendor: Helios Dynamics
Price: 4800
Lead Time: 21 days
Reliability: 0.985

Request constraints:
Max Cost: 6000
Latest Delivery: 30 days

Please provide a brief justification (2-3 sentences) for why this item is the best choice.
`
	if got != want {
		t.Errorf("prompt = %q\nwant %q", got, want)
	}

	noConstraints := justificationPrompt(item, types.Request{})
	if !strings.Contains(noConstraints, "Max Cost: N/A") || !strings.Contains(noConstraints, "Latest Delivery: N/A days") {
		t.Errorf("missing N/A placeholders: %q", noConstraints)
	}
}
