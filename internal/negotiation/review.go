// Package negotiation covers the post-selection workflows: the deterministic
// procurement review, the LLM-backed vendor and cost agents, and the
// multi-persona roundtable. Everything here consumes a planning result; none
// of it feeds back into scoring.
package negotiation

import (
	"fmt"
	"math"
	"strconv"

	"quartermaster/pkg/types"
)

// Review simulates the procurement officer's sign-off on a selection. The
// transcript is fully determined by the item and the budget; an absent
// max_cost is treated as unbounded.
func Review(selected types.Item, request types.Request) types.ReviewOutcome {
	maxCost := math.Inf(1)
	budget := "unlimited"
	if request.MaxCost != nil {
		maxCost = *request.MaxCost
		budget = formatNumber(maxCost)
	}
	price := selected.Price

	transcript := []string{
		fmt.Sprintf("Agent: I recommend %s from %s at $%s. It has the best overall score considering price, lead time, and reliability.",
			selected.ID, selected.Vendor, formatNumber(price)),
	}

	var verdict string
	switch {
	case price <= maxCost*0.8:
		verdict = types.VerdictApproved
		transcript = append(transcript,
			fmt.Sprintf("Officer: Excellent choice. Price of $%s is well within budget (max: $%s). This gives us good cost flexibility.",
				formatNumber(price), budget))
	case price <= maxCost:
		verdict = types.VerdictApprovedConditions
		transcript = append(transcript,
			fmt.Sprintf("Officer: The price of $%s is at the edge of our budget (max: $%s). Can you verify reliability meets mission-critical needs?",
				formatNumber(price), budget),
			fmt.Sprintf("Agent: Reliability of %s is among the best available for this component. Lead time of %d days also allows buffer.",
				formatNumber(selected.Reliability), selected.LeadTimeDays))
	default:
		verdict = types.VerdictEscalated
		transcript = append(transcript,
			fmt.Sprintf("Officer: Price of $%s exceeds budget (max: $%s). This requires executive approval or we need to reconsider alternatives.",
				formatNumber(price), budget))
	}

	transcript = append(transcript,
		fmt.Sprintf("Officer: Procurement decision for %s is %s.", selected.ID, verdict))

	return types.ReviewOutcome{
		Transcript: transcript,
		Verdict:    verdict,
		ItemID:     selected.ID,
		Vendor:     selected.Vendor,
		Price:      price,
	}
}

// formatNumber renders a float without a trailing ".0" so whole-number
// prices read naturally in transcripts and prompts.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// round2 rounds to two decimals for money amounts.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
