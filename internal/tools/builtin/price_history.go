package builtin

import (
	"context"
	"fmt"
	"time"

	"quartermaster/internal/tools"
	"quartermaster/pkg/types"
)

// PriceHistoryName is the registry name of the price history tool.
const PriceHistoryName = "price_history"

const (
	historyPoints   = 4
	historyInterval = 30 // days between points
)

// PriceHistoryTool reports a stable pseudo price history for an item. The
// clock is injected so tests can pin the dates.
type PriceHistoryTool struct {
	now func() time.Time
}

// NewPriceHistory returns the tool using the wall clock.
func NewPriceHistory() *PriceHistoryTool {
	return NewPriceHistoryWithClock(time.Now)
}

// NewPriceHistoryWithClock returns the tool with an explicit clock.
func NewPriceHistoryWithClock(now func() time.Time) *PriceHistoryTool {
	return &PriceHistoryTool{now: now}
}

func (t *PriceHistoryTool) Definition() tools.Definition {
	return tools.Definition{
		Name:        PriceHistoryName,
		Description: "Look up recent price history for a catalog item",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"item_id": map[string]any{
					"type":        "string",
					"description": "Catalog item identifier",
				},
			},
			"required": []string{"item_id"},
		},
	}
}

func (t *PriceHistoryTool) Execute(_ context.Context, call tools.ToolCall) (*tools.ToolResult, error) {
	itemID, ok := call.Args["item_id"].(string)
	if !ok || itemID == "" {
		return &tools.ToolResult{
			CallID:  call.ID,
			Success: false,
			Error:   "price_history requires an item_id argument",
		}, nil
	}

	history := PriceHistoryFor(itemID, t.now())
	last := history.History[len(history.History)-1].Price
	return &tools.ToolResult{
		CallID:  call.ID,
		Content: fmt.Sprintf("last price=%d; trend=stable", last),
		Data:    map[string]any{"price_history": history},
		Success: true,
	}, nil
}

// PriceHistoryFor derives the price history for itemID. Four monthly points
// ending 30 days before now, each the hash-derived base price plus a small
// per-point variation in [-200, 200].
func PriceHistoryFor(itemID string, now time.Time) types.PriceHistory {
	digest := seed(itemID)
	base := 1000 + mod(digest[:], 10000)

	points := make([]types.PricePoint, historyPoints)
	for i := 0; i < historyPoints; i++ {
		date := now.AddDate(0, 0, -historyInterval*(historyPoints-i))
		variation := mod(digest[4*i:4*i+4], 401) - 200
		points[i] = types.PricePoint{
			Date:  date.Format("2006-01-02"),
			Price: base + variation,
		}
	}
	return types.PriceHistory{ItemID: itemID, History: points}
}

var _ tools.Executor = (*PriceHistoryTool)(nil)
