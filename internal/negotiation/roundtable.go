package negotiation

import (
	"encoding/json"
	"fmt"
	"time"

	"quartermaster/pkg/types"
)

// Roundtable persona names and role descriptions, in speaking order.
var personas = []struct {
	Agent string
	Role  string
}{
	{"Cost Analyst", "Cost Analyst - Finds cheaper alternatives and identifies price opportunities"},
	{"Supply Chain Manager", "Supply Chain Manager - Proposes bulk deals, long-term contracts, vendor negotiations"},
	{"Requirements Engineer", "Requirements Engineer - Questions if specs can be relaxed to save costs"},
	{"Logistics Officer", "Logistics Officer - Optimizes delivery strategy to reduce expediting costs"},
}

// Turn is one contribution to the roundtable discussion.
type Turn struct {
	Agent     string    `json:"agent"`
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RoundtableOutcome is the full multi-persona discussion plus the savings
// estimate.
type RoundtableOutcome struct {
	Item             types.Item    `json:"selected_item"`
	Discussion       []Turn        `json:"discussion"`
	EstimatedSavings types.Savings `json:"estimated_savings"`
}

// Roundtable runs a fixed-template multi-persona cost discussion. No LLM is
// involved; the same item and request always produce the same transcript.
type Roundtable struct {
	now func() time.Time
}

// NewRoundtable creates a roundtable.
func NewRoundtable() *Roundtable {
	return &Roundtable{now: time.Now}
}

// Run produces the four persona strategies, a consensus summary, and the
// savings block.
func (r *Roundtable) Run(item types.Item, request types.Request) *RoundtableOutcome {
	strategies := []string{
		costAnalystStrategy(item),
		supplyChainStrategy(item),
		requirementsStrategy(item),
		logisticsStrategy(item, request),
	}

	discussion := make([]Turn, 0, len(personas)+1)
	for i, persona := range personas {
		discussion = append(discussion, Turn{
			Agent:     persona.Agent,
			Role:      persona.Role,
			Message:   strategies[i],
			Timestamp: r.now(),
		})
	}
	discussion = append(discussion, Turn{
		Agent:     "Optimization Summary",
		Role:      "Multi-Agent Consensus",
		Message:   consensusSummary(item),
		Timestamp: r.now(),
	})

	return &RoundtableOutcome{
		Item:             item,
		Discussion:       discussion,
		EstimatedSavings: EstimateSavings(item),
	}
}

func costAnalystStrategy(item types.Item) string {
	potential := item.Price * 0.15
	return fmt.Sprintf("I've analyzed the pricing. The current selection at $%s shows potential for %.0f$ in savings. "+
		"I recommend comparing with at least 2-3 other vendors to leverage competitive pricing. "+
		"If we negotiate volume discounts (10+ units), we could reduce the unit cost by 10-20%%.",
		formatNumber(item.Price), potential)
}

func supplyChainStrategy(item types.Item) string {
	return fmt.Sprintf("From a supply chain perspective, %s is a reliable partner for %s. "+
		"I propose a long-term supply agreement for 50+ units over 12 months, "+
		"which typically yields 15-25%% volume discounts. Additionally, we should consolidate "+
		"our orders with this vendor to get preferred pricing on complementary components.",
		item.Vendor, item.Component)
}

func requirementsStrategy(item types.Item) string {
	specs, _ := json.Marshal(item.Specs)
	return fmt.Sprintf("Let me challenge the specifications. For %s, do we really need all the specs we defined? "+
		"Current specs: %s. "+
		"I suggest revisiting the 'nice-to-have' requirements. Relaxing any non-critical spec by 10-15%% "+
		"could open up cheaper alternatives from tier-2 vendors at 20-30%% lower cost.",
		item.Component, specs)
}

func logisticsStrategy(item types.Item, request types.Request) string {
	maxDelivery := 999
	if request.LatestDeliveryDays != nil {
		maxDelivery = *request.LatestDeliveryDays
	}
	return fmt.Sprintf("On the logistics side, the current %d-day lead time is within our %d-day requirement. "+
		"However, if we relax the deadline to %d days, we can shift to economy shipping and "+
		"consolidate shipments, saving approximately 8-12%% on logistics costs. "+
		"Alternatively, we could negotiate free expedited shipping with volume commitments.",
		item.LeadTimeDays, maxDelivery, item.LeadTimeDays+10)
}

func consensusSummary(item types.Item) string {
	return fmt.Sprintf("Based on our multi-agent analysis for %s ($%s), "+
		"we've identified the following cost optimization opportunities:\n\n"+
		"1. Vendor negotiation & volume discounts: 15-25%% savings potential\n"+
		"2. Specification relaxation: 20-30%% cost reduction via alternative vendors\n"+
		"3. Logistics optimization: 8-12%% savings on delivery costs\n"+
		"4. Long-term supply agreements: 15-25%% annual savings\n\n"+
		"Recommended action: Negotiate with current vendor for volume discounts while evaluating "+
		"alternative vendors that meet relaxed specifications.",
		item.ID, formatNumber(item.Price))
}
