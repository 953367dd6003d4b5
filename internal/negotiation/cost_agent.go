package negotiation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"quartermaster/internal/catalog"
	"quartermaster/internal/errors"
	"quartermaster/internal/llm"
	"quartermaster/internal/logging"
	"quartermaster/pkg/types"
)

const (
	analysisMaxTokens = 300
	chatMaxTokens     = 250
)

// Fixed savings percentages applied by EstimateSavings.
const (
	vendorNegotiationRate = 0.20
	specRelaxationRate    = 0.25
	logisticsRate         = 0.10
	totalSavingsRate      = 0.55
	optimizedCostRate     = 0.45
)

// CostAnalysis is the result of an initial cost optimization pass.
type CostAnalysis struct {
	Item             types.Item          `json:"selected_item"`
	Analysis         string              `json:"analysis"`
	EstimatedSavings types.Savings       `json:"estimated_savings"`
	Conversation     []types.ChatMessage `json:"conversation"`
}

// CostAgent generates cost optimization advice for a selected item.
type CostAgent struct {
	client  llm.Client
	catalog *catalog.Catalog
	logger  logging.Logger
	now     func() time.Time
}

// NewCostAgent creates a cost optimization agent.
func NewCostAgent(client llm.Client, cat *catalog.Catalog, logger logging.Logger) *CostAgent {
	return &CostAgent{
		client:  client,
		catalog: cat,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
}

// Analyze produces the opening cost analysis plus the fixed savings estimate.
func (a *CostAgent) Analyze(ctx context.Context, item types.Item, request types.Request) (*CostAnalysis, error) {
	prompt := fmt.Sprintf(`You are a cost optimization analyst. Provide CONCISE cost reduction strategies for this procurement.

Item: %s (%s) from %s
Price: $%s, Lead: %d days, Reliability: %s

Provide a SHORT list (3-5 actionable strategies) with realistic numbers:
- Be practical: suggest discounts for typical quantities (5, 10, 25, 50 units)
- Don't require unrealistic minimums
- Focus on what's achievable for a buyer
- Use realistic discount ranges: 2-5%% small orders, 5-15%% large orders
No lengthy explanations.`,
		item.Component, item.ID, item.Vendor,
		formatNumber(item.Price), item.LeadTimeDays, formatNumber(item.Reliability))

	analysis, err := a.client.Generate(ctx, prompt, analysisMaxTokens)
	if err != nil {
		return nil, errors.Internal(err, "cost analysis failed for %s", item.ID)
	}

	opening := types.ChatMessage{Role: RoleAgent, Message: analysis, Timestamp: a.now()}
	return &CostAnalysis{
		Item:             item,
		Analysis:         analysis,
		EstimatedSavings: EstimateSavings(item),
		Conversation:     []types.ChatMessage{opening},
	}, nil
}

// Chat answers a follow-up question with the selected item and the prior
// discussion as context.
func (a *CostAgent) Chat(ctx context.Context, userMessage string, conversation []types.ChatMessage, item types.Item, request types.Request) (types.ChatMessage, error) {
	var b strings.Builder
	b.WriteString("You are a cost optimization analyst. Answer the user's question CONCISELY in 2-3 sentences.\n")

	fmt.Fprintf(&b, `
Selected Item Context:
- ID: %s
- Vendor: %s
- Current Price: $%s
- Lead Time: %d days
- Reliability: %s
`, item.ID, item.Vendor, formatNumber(item.Price), item.LeadTimeDays, formatNumber(item.Reliability))

	fmt.Fprintf(&b, "\nPrevious Discussion:\n%s\n", chatContext(conversation))

	fmt.Fprintf(&b, `
User's Question: %s

Rules:
- Be flexible and practical, not rigid
- Adjust recommendations based on actual quantity mentioned by buyer
- Provide realistic discount estimates (typical ranges: 2-5%% for small orders, 5-10%% for larger)
- If they ask about a specific quantity, calculate discount for THAT quantity, don't contradict earlier advice
- Be helpful and give actionable answers, not "you need 100 units"
- Short, direct answer with specific numbers.`, userMessage)

	response, err := a.client.Generate(ctx, b.String(), chatMaxTokens)
	if err != nil {
		return types.ChatMessage{}, errors.Internal(err, "cost chat failed for %s", item.ID)
	}
	return types.ChatMessage{Role: RoleAgent, Message: response, Timestamp: a.now()}, nil
}

// CheaperAlternatives lists same-component items priced below the selection,
// cheapest first.
func (a *CostAgent) CheaperAlternatives(item types.Item) []types.Item {
	var alternatives []types.Item
	for _, other := range a.catalog.Items() {
		if other.ID == item.ID || other.Component != item.Component {
			continue
		}
		if other.Price < item.Price {
			alternatives = append(alternatives, other)
		}
	}
	sort.SliceStable(alternatives, func(i, j int) bool {
		return alternatives[i].Price < alternatives[j].Price
	})
	return alternatives
}

// EstimateSavings applies the fixed optimization percentages to an item's
// price, rounded to cents.
func EstimateSavings(item types.Item) types.Savings {
	price := item.Price
	return types.Savings{
		CurrentCost:              price,
		VendorNegotiationSavings: round2(price * vendorNegotiationRate),
		SpecRelaxationSavings:    round2(price * specRelaxationRate),
		LogisticsSavings:         round2(price * logisticsRate),
		TotalPotentialSavings:    round2(price * totalSavingsRate),
		CostAfterOptimization:    round2(price * optimizedCostRate),
	}
}

// chatContext renders a User:/Agent: transcript.
func chatContext(conversation []types.ChatMessage) string {
	lines := make([]string, 0, len(conversation))
	for _, msg := range conversation {
		role := "Agent"
		if msg.Role == RoleUser || msg.Role == RoleBuyer {
			role = "User"
		}
		lines = append(lines, role+": "+msg.Message)
	}
	return strings.Join(lines, "\n")
}
