package negotiation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"quartermaster/internal/catalog"
	"quartermaster/internal/errors"
	"quartermaster/internal/llm"
	"quartermaster/internal/logging"
	"quartermaster/pkg/types"
)

const (
	openingMaxTokens  = 200
	responseMaxTokens = 200
)

// Chat roles used by the agents.
const (
	RoleVendor = "vendor"
	RoleBuyer  = "buyer"
	RoleAgent  = "agent"
	RoleUser   = "user"
)

// VendorAgent plays the vendor's side of a price negotiation. Responses come
// from the configured LLM client; the catalog and semantic index supply
// competitive context.
type VendorAgent struct {
	client  llm.Client
	catalog *catalog.Catalog
	index   *catalog.Index
	logger  logging.Logger
	now     func() time.Time
}

// NewVendorAgent creates a vendor agent. The index may be nil; Competitors
// then falls back to a plain catalog scan.
func NewVendorAgent(client llm.Client, cat *catalog.Catalog, index *catalog.Index, logger logging.Logger) *VendorAgent {
	return &VendorAgent{
		client:  client,
		catalog: cat,
		index:   index,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
}

// Open generates the vendor's opening position for a negotiation session.
func (a *VendorAgent) Open(ctx context.Context, item types.Item, request types.Request) (types.ChatMessage, error) {
	prompt := fmt.Sprintf(`You are a vendor rep from %s opening negotiations for %s.
Current price: $%s/unit, %d day lead time, %s reliability.

State your opening position directly (2-3 sentences). DO NOT use "thank you" or excessive politeness.
Simply state the price, what makes this a good product, and ONE condition for better pricing (volume, long-term contract, etc.)`,
		item.Vendor, item.ID, formatNumber(item.Price), item.LeadTimeDays, formatNumber(item.Reliability))

	message, err := a.client.Generate(ctx, prompt, openingMaxTokens)
	if err != nil {
		return types.ChatMessage{}, errors.Internal(err, "vendor opening failed for %s", item.ID)
	}
	a.logger.Debug("vendor %s opened negotiation for %s", item.Vendor, item.ID)
	return types.ChatMessage{Role: RoleVendor, Message: message, Timestamp: a.now()}, nil
}

// Respond generates the vendor's reply to the buyer's latest message, with
// the full conversation replayed for consistency.
func (a *VendorAgent) Respond(ctx context.Context, userMessage string, conversation []types.ChatMessage, item types.Item, request types.Request) (types.ChatMessage, error) {
	var b strings.Builder
	fmt.Fprintf(&b, `
You are a sales representative from %s.
Product: %s
Standard Price: $%s/unit
Lead Time: %d days
Reliability: %s

Your negotiation goals:
1. Protect pricing for small orders
2. Offer meaningful discounts only for volume commitments (50+ units)
3. Be flexible on delivery timelines but charge for expedited shipping
4. Maintain professional but firm tone
5. Remember all previous offers made in this conversation`,
		item.Vendor, item.ID, formatNumber(item.Price), item.LeadTimeDays, formatNumber(item.Reliability))

	if history := conversationContext(conversation); history != "" {
		fmt.Fprintf(&b, "\n\nNegotiation History:\n%s", history)
	}

	fmt.Fprintf(&b, `

Buyer's Latest Message: %s

Respond as the vendor. Be dynamic and natural. Consider the buyer's request carefully:
- If asking about price, reference specific quantities and offer tiered discounts
- If asking about delivery, discuss timelines and potential expediting fees
- If negotiating on previous offers, acknowledge their position but stay firm on your business model
- Keep response to 2-3 sentences, direct and professional`, userMessage)

	message, err := a.client.Generate(ctx, b.String(), responseMaxTokens)
	if err != nil {
		return types.ChatMessage{}, errors.Internal(err, "vendor response failed for %s", item.ID)
	}
	return types.ChatMessage{Role: RoleVendor, Message: message, Timestamp: a.now()}, nil
}

// Competitors returns up to topK same-component alternatives from other
// vendors, semantically closest first when the index is available.
func (a *VendorAgent) Competitors(ctx context.Context, item types.Item, topK int) []types.Item {
	if topK < 1 {
		topK = 3
	}

	var pool []types.Item
	if a.index != nil {
		found, err := a.index.Search(ctx, item.Component+" "+item.Vendor, a.catalog.Len())
		if err != nil {
			a.logger.Warn("semantic competitor search failed, falling back to scan: %v", err)
		} else {
			pool = found
		}
	}
	if pool == nil {
		pool = a.catalog.Items()
	}

	var competitors []types.Item
	for _, other := range pool {
		if other.Component != item.Component || other.Vendor == item.Vendor {
			continue
		}
		competitors = append(competitors, other)
		if len(competitors) == topK {
			break
		}
	}
	return competitors
}

// conversationContext renders a Buyer:/Vendor: transcript of the full
// conversation so earlier offers stay binding.
func conversationContext(conversation []types.ChatMessage) string {
	lines := make([]string, 0, len(conversation))
	for _, msg := range conversation {
		role := "Vendor"
		if msg.Role == RoleBuyer || msg.Role == RoleUser {
			role = "Buyer"
		}
		lines = append(lines, role+": "+msg.Message)
	}
	return strings.Join(lines, "\n")
}
