package builtin

import (
	"context"
	"fmt"

	"quartermaster/internal/tools"
	"quartermaster/pkg/types"
)

// AvailabilityName is the registry name of the availability tool.
const AvailabilityName = "availability"

const availabilitySamples = 3

// AvailabilityTool reports stable pseudo availability for a vendor.
type AvailabilityTool struct{}

// NewAvailability returns the availability tool.
func NewAvailability() *AvailabilityTool {
	return &AvailabilityTool{}
}

func (t *AvailabilityTool) Definition() tools.Definition {
	return tools.Definition{
		Name:        AvailabilityName,
		Description: "Check stock status and typical lead times for a vendor",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"vendor": map[string]any{
					"type":        "string",
					"description": "Vendor name",
				},
			},
			"required": []string{"vendor"},
		},
	}
}

func (t *AvailabilityTool) Execute(_ context.Context, call tools.ToolCall) (*tools.ToolResult, error) {
	vendor, ok := call.Args["vendor"].(string)
	if !ok || vendor == "" {
		return &tools.ToolResult{
			CallID:  call.ID,
			Success: false,
			Error:   "availability requires a vendor argument",
		}, nil
	}

	availability := AvailabilityFor(vendor)
	return &tools.ToolResult{
		CallID:  call.ID,
		Content: fmt.Sprintf("avg_lead=%g days; in_stock=%t", availability.AvgLeadTimeDays, availability.InStock),
		Data:    map[string]any{"availability": availability},
		Success: true,
	}, nil
}

// AvailabilityFor derives the availability payload for vendor: an average
// lead time in [10, 40) days, a stock flag, and three lead-time samples
// around the average, each at least one day.
func AvailabilityFor(vendor string) types.Availability {
	digest := seed(vendor)
	avg := 10 + mod(digest[:], 30)

	samples := make([]int, availabilitySamples)
	for i := 0; i < availabilitySamples; i++ {
		sample := avg + mod(digest[4*i:4*i+4], 11) - 5
		if sample < 1 {
			sample = 1
		}
		samples[i] = sample
	}
	return types.Availability{
		Vendor:          vendor,
		AvgLeadTimeDays: float64(avg),
		InStock:         mod(digest[:], 2) == 0,
		LeadTimeSamples: samples,
	}
}

var _ tools.Executor = (*AvailabilityTool)(nil)
