// Package planner orchestrates a procurement run: catalog search, constraint
// filtering, normalized scoring, ranking, optional tool investigation, and
// LLM justification. Every step lands in the result's trace and metrics so a
// run can be audited after the fact.
package planner

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"quartermaster/internal/catalog"
	"quartermaster/internal/errors"
	"quartermaster/internal/llm"
	"quartermaster/internal/logging"
	"quartermaster/internal/observability"
	"quartermaster/internal/scoring"
	"quartermaster/internal/tools"
	"quartermaster/internal/tools/builtin"
	"quartermaster/pkg/types"

	stderrors "errors"
)

const justificationMaxTokens = 150

// ClientFactory resolves an LLM client for a provider name. It defaults to
// llm.Select and is swappable in tests.
type ClientFactory func(provider, apiKey string) (llm.Client, error)

// Planner runs the procurement pipeline over a loaded catalog.
type Planner struct {
	catalog  *catalog.Catalog
	registry *tools.Registry
	logger   logging.Logger
	metrics  *observability.MetricsCollector
	tracer   *observability.TracerProvider
	clients  ClientFactory
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the component logger.
func WithLogger(logger logging.Logger) Option {
	return func(p *Planner) { p.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics *observability.MetricsCollector) Option {
	return func(p *Planner) { p.metrics = metrics }
}

// WithTracer sets the tracer provider.
func WithTracer(tracer *observability.TracerProvider) Option {
	return func(p *Planner) { p.tracer = tracer }
}

// WithClientFactory overrides how LLM clients are resolved.
func WithClientFactory(factory ClientFactory) Option {
	return func(p *Planner) { p.clients = factory }
}

// New creates a planner over a catalog and tool registry.
func New(cat *catalog.Catalog, registry *tools.Registry, opts ...Option) *Planner {
	p := &Planner{
		catalog:  cat,
		registry: registry,
		clients: func(provider, apiKey string) (llm.Client, error) {
			return llm.Select(provider, apiKey)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrNop(p.logger)
	return p
}

// Options controls a single planning run.
type Options struct {
	TopK        int
	Investigate bool
	Provider    string
	APIKey      string
}

func (o Options) normalized() Options {
	if o.TopK < 1 {
		o.TopK = 3
	}
	if o.Provider == "" {
		o.Provider = llm.ProviderMock
	}
	return o
}

// Plan runs the full pipeline for one request. Failures come back as typed
// errors carrying an HTTP-style status.
func (p *Planner) Plan(ctx context.Context, request types.Request, opts Options) (*types.Result, error) {
	opts = opts.normalized()
	start := time.Now()

	ctx, span := p.tracer.StartSpan(ctx, observability.SpanPlan, observability.ComponentAttrs(request.Component)...)
	defer span.End()

	result := &types.Result{
		Request: request,
		Metrics: types.RunMetrics{StepLatencies: map[string]float64{}},
	}
	trace := func(step types.TraceStep) {
		result.Trace = append(result.Trace, step)
	}
	recordStep := func(name string, since time.Time) {
		elapsed := time.Since(since).Seconds()
		result.Metrics.StepLatencies[name] = elapsed
		p.metrics.RecordStep(ctx, name, elapsed)
	}

	// The catalog was loaded at construction; keep the step for trace parity
	// with stored runs.
	stepStart := time.Now()
	recordStep("catalog_load", stepStart)
	trace(types.TraceStep{Step: "catalog_load", Status: "success"})

	if request.Component == "" {
		p.metrics.RecordPlan(ctx, "bad_request", time.Since(start))
		return nil, errors.BadRequest("no component specified")
	}
	if err := scoring.Validate(request.Weights); err != nil {
		p.metrics.RecordPlan(ctx, "bad_request", time.Since(start))
		return nil, err
	}

	stepStart = time.Now()
	_, searchSpan := p.tracer.StartSpan(ctx, observability.SpanCatalogSearch, observability.ComponentAttrs(request.Component)...)
	items := p.catalog.Search(request.Component, request.SpecFilters)
	searchSpan.SetAttributes(attribute.Int("quartermaster.candidates", len(items)))
	searchSpan.End()
	recordStep("catalog_search", stepStart)
	result.Metrics.TotalCandidates = len(items)
	trace(types.TraceStep{
		Step:   "catalog_search",
		Input:  map[string]any{"component": request.Component, "spec_filters": request.SpecFilters},
		Result: fmt.Sprintf("found %d candidates", len(items)),
	})
	p.logger.Debug("catalog search for %q matched %d items", request.Component, len(items))

	initial := len(items)
	items = applyHardConstraints(items, request)
	if initial > len(items) {
		trace(types.TraceStep{
			Step:   "constraint_filtering",
			Input:  constraintInput(request),
			Result: fmt.Sprintf("filtered from %d to %d candidates", initial, len(items)),
		})
	}

	if len(items) == 0 {
		result.Metrics.TotalLatency = time.Since(start).Seconds()
		p.metrics.RecordPlan(ctx, "not_found", time.Since(start))
		return nil, errors.NotFound("no candidates match constraints")
	}

	stepStart = time.Now()
	bounds := scoring.ComputeBounds(items)
	trace(types.TraceStep{
		Step: "compute_bounds",
		Result: fmt.Sprintf("price: [%s, %s], lead_time: [%d, %d]",
			formatNumber(bounds.PriceMin), formatNumber(bounds.PriceMax), bounds.LeadMin, bounds.LeadMax),
	})

	weights := scoring.Resolve(request.Weights)
	candidates := make([]types.Candidate, len(items))
	for i, item := range items {
		candidates[i] = types.Candidate{
			Item:  item,
			Score: scoring.Score(item, weights, bounds),
		}
	}
	recordStep("scoring", stepStart)
	result.Metrics.CandidatesAfterFiltering = len(candidates)
	trace(types.TraceStep{Step: "scoring", Result: fmt.Sprintf("scored %d candidates", len(candidates))})

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > opts.TopK {
		candidates = candidates[:opts.TopK]
	}
	result.Candidates = candidates
	result.Metrics.TopKSelected = len(candidates)
	trace(types.TraceStep{Step: "ranking", Result: fmt.Sprintf("selected top %d candidates", len(candidates))})

	if opts.Investigate {
		stepStart = time.Now()
		if err := p.investigate(ctx, result, trace); err != nil {
			p.metrics.RecordPlan(ctx, "error", time.Since(start))
			return nil, err
		}
		recordStep("investigation", stepStart)
		trace(types.TraceStep{
			Step:   "investigation",
			Result: fmt.Sprintf("called tools for %d candidates", len(result.Candidates)),
		})
	}

	result.Selected = &result.Candidates[0]

	stepStart = time.Now()
	client, err := p.selectClient(opts)
	if err != nil {
		status := "error"
		if errors.StatusOf(err) == http.StatusBadRequest {
			status = "bad_request"
		}
		p.metrics.RecordPlan(ctx, status, time.Since(start))
		return nil, err
	}

	justification, err := p.generate(ctx, client, justificationPrompt(result.Selected.Item, request))
	if err != nil {
		p.metrics.RecordPlan(ctx, "error", time.Since(start))
		return nil, err
	}
	recordStep("llm_justification", stepStart)
	result.Justification = justification
	trace(types.TraceStep{Step: "llm_justification", Result: "generated justification"})

	result.Metrics.TotalLatency = time.Since(start).Seconds()
	p.metrics.RecordPlan(ctx, "success", time.Since(start))
	p.logger.Info("plan for %q selected %s (score %.4f) in %.3fs",
		request.Component, result.Selected.ID, result.Selected.Score, result.Metrics.TotalLatency)
	return result, nil
}

// Justify generates a selection justification for one item outside a full
// planning run, for callers that re-derive the selection after vendor
// filtering.
func (p *Planner) Justify(ctx context.Context, item types.Item, request types.Request, opts Options) (string, error) {
	opts = opts.normalized()
	client, err := p.selectClient(opts)
	if err != nil {
		return "", err
	}
	return p.generate(ctx, client, justificationPrompt(item, request))
}

// selectClient resolves the LLM client for the run. A missing API key is the
// caller's mistake and maps to a bad request.
func (p *Planner) selectClient(opts Options) (llm.Client, error) {
	client, err := p.clients(opts.Provider, opts.APIKey)
	if err != nil {
		var keyErr *llm.ErrAPIKeyRequired
		if stderrors.As(err, &keyErr) {
			return nil, errors.BadRequest("%s", keyErr.Error())
		}
		return nil, errors.Internal(err, "failed to select LLM provider %q", opts.Provider)
	}
	return client, nil
}

// generate runs one LLM call under its own span and records the request
// metric. Token counts flow through the client's usage callback.
func (p *Planner) generate(ctx context.Context, client llm.Client, prompt string) (string, error) {
	start := time.Now()
	llmCtx, span := p.tracer.StartSpan(ctx, observability.SpanLLMGenerate,
		attribute.String(observability.AttrProvider, client.Provider()))
	defer span.End()

	text, err := client.Generate(llmCtx, prompt, justificationMaxTokens)
	elapsed := time.Since(start)
	if err != nil {
		span.SetAttributes(observability.ErrorAttrs(err)...)
		p.metrics.RecordLLMRequest(ctx, client.Provider(), "error", 0, 0, elapsed)
		return "", errors.Internal(err, "justification generation failed")
	}
	span.SetAttributes(observability.StatusAttrs("success")...)
	p.metrics.RecordLLMRequest(ctx, client.Provider(), "success", 0, 0, elapsed)
	return text, nil
}

// executeTool dispatches one registry call under its own span and records
// the execution metric.
func (p *Planner) executeTool(ctx context.Context, call tools.ToolCall) (*tools.ToolResult, error) {
	start := time.Now()
	_, span := p.tracer.StartSpan(ctx, observability.SpanToolExecute, observability.ToolAttrs(call.Name)...)
	defer span.End()

	res, err := p.registry.Execute(ctx, call)
	status := "success"
	if err != nil {
		status = "error"
		span.SetAttributes(observability.ErrorAttrs(err)...)
	}
	span.SetAttributes(observability.StatusAttrs(status)...)
	p.metrics.RecordToolExecution(ctx, call.Name, status, time.Since(start))
	return res, err
}

// investigate runs both research tools for every top candidate and attaches
// the typed payloads.
func (p *Planner) investigate(ctx context.Context, result *types.Result, trace func(types.TraceStep)) error {
	for i := range result.Candidates {
		candidate := &result.Candidates[i]
		payload := &types.ToolPayload{}

		res, err := p.executeTool(ctx, tools.ToolCall{
			Name: builtin.PriceHistoryName,
			Args: map[string]any{"item_id": candidate.ID},
		})
		if err != nil {
			return errors.Internal(err, "price_history tool failed for %s", candidate.ID)
		}
		result.Metrics.ToolsCalled++
		if history, ok := res.Data["price_history"].(types.PriceHistory); ok {
			payload.PriceHistory = &history
		}
		trace(types.TraceStep{
			Step:    "tool_call",
			Tool:    builtin.PriceHistoryName,
			Input:   candidate.ID,
			Summary: res.Content,
		})

		res, err = p.executeTool(ctx, tools.ToolCall{
			Name: builtin.AvailabilityName,
			Args: map[string]any{"vendor": candidate.Vendor},
		})
		if err != nil {
			return errors.Internal(err, "availability tool failed for %s", candidate.Vendor)
		}
		result.Metrics.ToolsCalled++
		if availability, ok := res.Data["availability"].(types.Availability); ok {
			payload.Availability = &availability
		}
		trace(types.TraceStep{
			Step:    "tool_call",
			Tool:    builtin.AvailabilityName,
			Input:   candidate.Vendor,
			Summary: res.Content,
		})

		candidate.Tools = payload
	}
	return nil
}

func applyHardConstraints(items []types.Item, request types.Request) []types.Item {
	if request.MaxCost == nil && request.LatestDeliveryDays == nil {
		return items
	}
	kept := items[:0:0]
	for _, item := range items {
		if request.MaxCost != nil && item.Price > *request.MaxCost {
			continue
		}
		if request.LatestDeliveryDays != nil && item.LeadTimeDays > *request.LatestDeliveryDays {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

func constraintInput(request types.Request) map[string]any {
	input := map[string]any{}
	if request.MaxCost != nil {
		input["max_cost"] = *request.MaxCost
	} else {
		input["max_cost"] = nil
	}
	if request.LatestDeliveryDays != nil {
		input["latest_delivery_days"] = *request.LatestDeliveryDays
	} else {
		input["latest_delivery_days"] = nil
	}
	return input
}

// justificationPrompt renders the fixed prompt layout the LLM clients expect.
// Absent constraints render as N/A.
func justificationPrompt(item types.Item, request types.Request) string {
	maxCost := "N/A"
	if request.MaxCost != nil {
		maxCost = formatNumber(*request.MaxCost)
	}
	latestDelivery := "N/A"
	if request.LatestDeliveryDays != nil {
		latestDelivery = strconv.Itoa(*request.LatestDeliveryDays)
	}

	return fmt.Sprintf(`Selected item details:
ID: %s
Vendor: %s
Price: %s
Lead Time: %d days
Reliability: %s

Request constraints:
Max Cost: %s
Latest Delivery: %s days

Please provide a brief justification (2-3 sentences) for why this item is the best choice.
`,
		item.ID, item.Vendor, formatNumber(item.Price), item.LeadTimeDays,
		formatNumber(item.Reliability), maxCost, latestDelivery)
}

// formatNumber renders a float without a trailing ".0" so whole-number
// prices read like the catalog file.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
