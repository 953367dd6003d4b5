// Package types holds the wire-level types shared by the planning core, the
// REST server, and the CLI. JSON field names are part of the external
// contract; the web client and stored request files depend on them.
package types

import "time"

// Item is one catalog entry. Items are immutable once loaded.
type Item struct {
	ID           string             `json:"id"`
	Component    string             `json:"component"`
	Vendor       string             `json:"vendor"`
	Price        float64            `json:"price"`
	LeadTimeDays int                `json:"lead_time_days"`
	Reliability  float64            `json:"reliability"`
	Specs        map[string]float64 `json:"specs,omitempty"`
}

// Request describes what to procure and how to weigh the candidates.
// SpecFilters are inclusive lower bounds; MaxCost and LatestDeliveryDays are
// hard post-search filters.
type Request struct {
	Component          string             `json:"component"`
	SpecFilters        map[string]float64 `json:"spec_filters,omitempty"`
	MaxCost            *float64           `json:"max_cost,omitempty"`
	LatestDeliveryDays *int               `json:"latest_delivery_days,omitempty"`
	Weights            map[string]float64 `json:"weights,omitempty"`
	VendorConstraints  *VendorConstraints `json:"vendor_constraints,omitempty"`
}

// VendorConstraints narrows a candidate list by vendor policy.
type VendorConstraints struct {
	ExcludedVendors  []string `json:"excluded_vendors,omitempty"`
	PreferredVendors []string `json:"preferred_vendors,omitempty"`
	MinReliability   *float64 `json:"min_reliability,omitempty"`
	MaxLeadTime      *int     `json:"max_lead_time,omitempty"`
}

// Empty reports whether the policy constrains nothing.
func (vc *VendorConstraints) Empty() bool {
	if vc == nil {
		return true
	}
	return len(vc.ExcludedVendors) == 0 && len(vc.PreferredVendors) == 0 &&
		vc.MinReliability == nil && vc.MaxLeadTime == nil
}

// Candidate is a catalog item that survived search and filtering, with its
// computed score and any attached tool payloads.
type Candidate struct {
	Item
	Score float64      `json:"score"`
	Tools *ToolPayload `json:"tools,omitempty"`
}

// ToolPayload groups the investigation tool results for one candidate.
type ToolPayload struct {
	PriceHistory *PriceHistory `json:"price_history,omitempty"`
	Availability *Availability `json:"availability,omitempty"`
}

// PricePoint is one dated price observation.
type PricePoint struct {
	Date  string `json:"date"`
	Price int    `json:"price"`
}

// PriceHistory is the deterministic price history payload for an item.
type PriceHistory struct {
	ItemID  string       `json:"item_id"`
	History []PricePoint `json:"history"`
}

// Availability is the deterministic vendor availability payload.
type Availability struct {
	Vendor          string  `json:"vendor"`
	AvgLeadTimeDays float64 `json:"avg_lead_time_days"`
	InStock         bool    `json:"in_stock"`
	LeadTimeSamples []int   `json:"lead_time_samples"`
}

// TraceStep is one entry in a planning run's audit trail.
type TraceStep struct {
	Step    string `json:"step"`
	Status  string `json:"status,omitempty"`
	Input   any    `json:"input,omitempty"`
	Result  string `json:"result,omitempty"`
	Tool    string `json:"tool,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// RunMetrics aggregates per-step latencies and counters for one planning
// run. Latencies are in seconds.
type RunMetrics struct {
	StepLatencies            map[string]float64 `json:"step_latencies"`
	TotalCandidates          int                `json:"total_candidates"`
	CandidatesAfterFiltering int                `json:"candidates_after_filtering"`
	TopKSelected             int                `json:"top_k_selected"`
	ToolsCalled              int                `json:"tools_called"`
	TotalLatency             float64            `json:"total_latency"`
}

// Result is the full outcome of one planning run. Candidates are ordered
// best-first and Selected always aliases the first candidate.
type Result struct {
	Request       Request     `json:"request"`
	Candidates    []Candidate `json:"candidates"`
	Selected      *Candidate  `json:"selected"`
	Justification string      `json:"justification"`
	Trace         []TraceStep `json:"trace"`
	Metrics       RunMetrics  `json:"metrics"`
}

// ReviewOutcome is the deterministic procurement review of a selection.
type ReviewOutcome struct {
	Transcript []string `json:"transcript"`
	Verdict    string   `json:"verdict"`
	ItemID     string   `json:"item_id"`
	Vendor     string   `json:"vendor"`
	Price      float64  `json:"price"`
}

// Review verdicts.
const (
	VerdictApproved           = "APPROVED"
	VerdictApprovedConditions = "APPROVED_WITH_CONDITIONS"
	VerdictEscalated          = "ESCALATED"
)

// Savings is the fixed-percentage cost optimization estimate for an item.
type Savings struct {
	CurrentCost              float64 `json:"current_cost"`
	VendorNegotiationSavings float64 `json:"vendor_negotiation_savings"`
	SpecRelaxationSavings    float64 `json:"spec_relaxation_savings"`
	LogisticsSavings         float64 `json:"logistics_savings"`
	TotalPotentialSavings    float64 `json:"total_potential_savings"`
	CostAfterOptimization    float64 `json:"cost_after_optimization"`
}

// ChatMessage is one turn in an agent chat session.
type ChatMessage struct {
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
