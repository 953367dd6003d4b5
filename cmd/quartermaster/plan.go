package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"quartermaster/internal/catalog"
	"quartermaster/internal/constraints"
	"quartermaster/internal/errors"
	"quartermaster/internal/negotiation"
	"quartermaster/internal/planner"
	"quartermaster/internal/tools"
	"quartermaster/internal/tools/builtin"
	"quartermaster/pkg/types"
)

func newPlanCommand(a *app) *cobra.Command {
	var (
		topK            int
		investigate     bool
		runReview       bool
		showMetrics     bool
		constraintsFile string
		provider        string
		apiKey          string
	)

	cmd := &cobra.Command{
		Use:   "plan <request.json>",
		Short: "Rank catalog candidates for a procurement request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request, err := loadRequest(args[0])
			if err != nil {
				return err
			}

			cat, err := a.loadCatalog()
			if err != nil {
				return err
			}
			opts := planner.Options{
				TopK:        topK,
				Investigate: investigate,
				Provider:    provider,
				APIKey:      apiKey,
			}
			p := a.newPlanner(cat)
			result, err := p.Plan(cmd.Context(), request, opts)
			if err != nil {
				return err
			}

			if constraintsFile != "" {
				policy, err := loadPolicy(constraintsFile)
				if err != nil {
					return err
				}
				if err := reconcileConstraints(cmd.Context(), p, result, policy, opts); err != nil {
					return err
				}
			}

			var review *types.ReviewOutcome
			if runReview && result.Selected != nil {
				outcome := negotiation.Review(result.Selected.Item, result.Request)
				review = &outcome
			}

			if a.jsonOutput {
				if review != nil {
					return printJSON(map[string]any{"result": result, "review": review})
				}
				return printJSON(result)
			}

			var doc strings.Builder
			writeResultMarkdown(&doc, result)
			if review != nil {
				writeReviewMarkdown(&doc, review)
			}
			if showMetrics {
				writeMetricsMarkdown(&doc, result.Metrics)
			}
			printMarkdown(doc.String())
			return nil
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 3, "number of candidates to keep")
	cmd.Flags().BoolVar(&investigate, "investigate", false, "run price history and availability tools on each candidate")
	cmd.Flags().BoolVar(&runReview, "negotiate", false, "append the procurement review transcript")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print run metrics")
	cmd.Flags().StringVar(&constraintsFile, "constraints-file", "", "vendor constraints JSON applied to the candidate list")
	cmd.Flags().StringVar(&provider, "llm-provider", "mock", "justification provider (mock or openai)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for the openai provider")
	return cmd
}

// runPlan builds the tool registry and planner from the app config and
// executes one planning run.
func (a *app) runPlan(ctx context.Context, cat *catalog.Catalog, request types.Request, opts planner.Options) (*types.Result, error) {
	return a.newPlanner(cat).Plan(ctx, request, opts)
}

func (a *app) newPlanner(cat *catalog.Catalog) *planner.Planner {
	return planner.New(cat, a.newRegistry(),
		planner.WithLogger(a.logger),
		planner.WithClientFactory(planner.ClientFactory(a.clients)),
	)
}

func (a *app) newRegistry() *tools.Registry {
	cacheConfig := tools.CacheConfig{
		MaxSize: a.config.Tools.CacheSize,
		TTL:     time.Duration(a.config.Tools.CacheTTLSeconds) * time.Second,
	}
	registry := tools.NewRegistry()
	_ = registry.Register(tools.NewCached(builtin.NewPriceHistory(), cacheConfig))
	_ = registry.Register(tools.NewCached(builtin.NewAvailability(), cacheConfig))
	return registry
}

func loadRequest(path string) (types.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Request{}, fmt.Errorf("read request file: %w", err)
	}
	var request types.Request
	if err := json.Unmarshal(data, &request); err != nil {
		return types.Request{}, fmt.Errorf("parse request file %s: %w", path, err)
	}
	return request, nil
}

func loadPolicy(path string) (*constraints.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read constraints file: %w", err)
	}
	var policy constraints.Policy
	if err := json.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("parse constraints file %s: %w", path, err)
	}
	return &policy, nil
}

// applyPolicy filters the candidate list in place and re-derives the
// selection from whatever survives.
func applyPolicy(result *types.Result, policy *constraints.Policy) error {
	filtered := constraints.Apply(result.Candidates, policy)
	if len(filtered) == 0 {
		return errors.NotFound("no candidates satisfy the vendor constraints")
	}
	result.Candidates = filtered
	result.Selected = &result.Candidates[0]
	result.Metrics.CandidatesAfterFiltering = len(filtered)
	return nil
}

// reconcileConstraints applies the vendor policy and, when it displaces the
// selection, regenerates the justification for the new winner.
func reconcileConstraints(ctx context.Context, p *planner.Planner, result *types.Result, policy *constraints.Policy, opts planner.Options) error {
	previous := ""
	if result.Selected != nil {
		previous = result.Selected.ID
	}
	if err := applyPolicy(result, policy); err != nil {
		return err
	}
	if result.Selected.ID == previous {
		return nil
	}

	justification, err := p.Justify(ctx, result.Selected.Item, result.Request, opts)
	if err != nil {
		return err
	}
	result.Justification = justification
	return nil
}

func writeResultMarkdown(doc *strings.Builder, result *types.Result) {
	doc.WriteString("# Procurement Plan\n\n")

	doc.WriteString(fmt.Sprintf("**Component:** %s\n\n", result.Request.Component))
	if result.Request.MaxCost != nil {
		doc.WriteString(fmt.Sprintf("**Max cost:** $%s\n\n", formatPrice(*result.Request.MaxCost)))
	}
	if result.Request.LatestDeliveryDays != nil {
		doc.WriteString(fmt.Sprintf("**Latest delivery:** %d days\n\n", *result.Request.LatestDeliveryDays))
	}
	if len(result.Request.SpecFilters) > 0 {
		doc.WriteString(fmt.Sprintf("**Spec filters:** %s\n\n", formatFloatMap(result.Request.SpecFilters)))
	}
	if len(result.Request.Weights) > 0 {
		doc.WriteString(fmt.Sprintf("**Weights:** %s\n\n", formatFloatMap(result.Request.Weights)))
	}

	doc.WriteString("## Candidates\n\n")
	doc.WriteString("| # | ID | Vendor | Price | Lead (days) | Reliability | Score |\n")
	doc.WriteString("|---|----|--------|-------|-------------|-------------|-------|\n")
	for i, candidate := range result.Candidates {
		doc.WriteString(fmt.Sprintf("| %d | %s | %s | $%s | %d | %.3f | %.4f |\n",
			i+1, candidate.ID, candidate.Vendor, formatPrice(candidate.Price),
			candidate.LeadTimeDays, candidate.Reliability, candidate.Score))
	}
	doc.WriteString("\n")

	if selected := result.Selected; selected != nil {
		doc.WriteString("## Selected\n\n")
		doc.WriteString(formatSelectedLine(selected))
		if selected.Tools != nil {
			writeToolsMarkdown(doc, selected.Tools)
		}
	}

	if result.Justification != "" {
		doc.WriteString("## Justification\n\n")
		doc.WriteString(result.Justification)
		doc.WriteString("\n\n")
	}

	doc.WriteString("## Trace\n\n")
	for _, step := range result.Trace {
		line := step.Result
		if line == "" {
			line = step.Summary
		}
		doc.WriteString(fmt.Sprintf("- `%s`: %s\n", step.Step, line))
	}
	doc.WriteString("\n")
}

func writeToolsMarkdown(doc *strings.Builder, payload *types.ToolPayload) {
	if payload.PriceHistory != nil && len(payload.PriceHistory.History) > 0 {
		points := make([]string, 0, len(payload.PriceHistory.History))
		for _, point := range payload.PriceHistory.History {
			points = append(points, fmt.Sprintf("%s $%d", point.Date, point.Price))
		}
		doc.WriteString(fmt.Sprintf("**Price history:** %s\n\n", strings.Join(points, ", ")))
	}
	if payload.Availability != nil {
		stock := "out of stock"
		if payload.Availability.InStock {
			stock = "in stock"
		}
		doc.WriteString(fmt.Sprintf("**Availability:** %s, avg lead %.1f days\n\n",
			stock, payload.Availability.AvgLeadTimeDays))
	}
}

func writeReviewMarkdown(doc *strings.Builder, review *types.ReviewOutcome) {
	doc.WriteString("## Negotiation Review\n\n")
	for _, line := range review.Transcript {
		doc.WriteString(fmt.Sprintf("> %s\n\n", line))
	}
	doc.WriteString(fmt.Sprintf("**Verdict:** %s\n\n", review.Verdict))
}

func writeMetricsMarkdown(doc *strings.Builder, metrics types.RunMetrics) {
	doc.WriteString("## Metrics\n\n")
	doc.WriteString(fmt.Sprintf("- total latency: %.3fs\n", metrics.TotalLatency))
	doc.WriteString(fmt.Sprintf("- candidates: %d found, %d after filtering, %d kept\n",
		metrics.TotalCandidates, metrics.CandidatesAfterFiltering, metrics.TopKSelected))
	if metrics.ToolsCalled > 0 {
		doc.WriteString(fmt.Sprintf("- tools called: %d\n", metrics.ToolsCalled))
	}
	steps := make([]string, 0, len(metrics.StepLatencies))
	for step := range metrics.StepLatencies {
		steps = append(steps, step)
	}
	sort.Strings(steps)
	for _, step := range steps {
		doc.WriteString(fmt.Sprintf("- %s: %.3fs\n", step, metrics.StepLatencies[step]))
	}
	doc.WriteString("\n")
}

func formatSelectedLine(selected *types.Candidate) string {
	return fmt.Sprintf("**%s** from %s at $%s (%d days lead, reliability %.3f)\n\n",
		selected.ID, selected.Vendor, formatPrice(selected.Price),
		selected.LeadTimeDays, selected.Reliability)
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatMap(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", k, formatPrice(m[k])))
	}
	return strings.Join(parts, ", ")
}
