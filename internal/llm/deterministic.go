package llm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Fixed weights and absolute scales the deterministic client scores item
// blocks with. Unlike the planner's scorer these are not population-relative;
// the client sees only whatever blocks appear in the prompt.
const (
	detPriceScale = 10000
	detLeadScale  = 100

	detPriceWeight       = 0.4
	detLeadWeight        = 0.3
	detReliabilityWeight = 0.3
)

const fallbackAnswer = "Based on the analysis, this item provides the best value considering price, lead time, and reliability metrics."

// Deterministic is the default client. It parses item fields out of the
// prompt, scores each block on absolute scales, and fills a fixed sentence
// template for the best one. Same prompt, same output, no randomness, no
// network.
type Deterministic struct{}

// NewDeterministic returns the deterministic client.
func NewDeterministic() *Deterministic {
	return &Deterministic{}
}

func (d *Deterministic) Provider() string {
	return ProviderMock
}

func (d *Deterministic) Generate(_ context.Context, prompt string, _ int) (string, error) {
	lower := strings.ToLower(prompt)
	if !strings.Contains(lower, "selected") && !strings.Contains(lower, "choose between") {
		return fallbackAnswer, nil
	}

	blocks := parseItemBlocks(prompt)
	if len(blocks) == 0 {
		return "Unable to parse items from prompt.", nil
	}

	best := blocks[0]
	bestScore := best.score()
	for _, block := range blocks[1:] {
		if s := block.score(); s > bestScore {
			best = block
			bestScore = s
		}
	}
	return best.render(), nil
}

// itemBlock holds the fields parsed for one item mentioned in a prompt.
// Zero values stand in for absent fields, which biases the score toward
// items with unstated price or lead time; that bias is part of the fixed
// contract, so callers always state both.
type itemBlock struct {
	id          string
	vendor      string
	price       float64
	lead        float64
	reliability float64
}

// parseItemBlocks scans prompt lines for item fields. A new block starts at
// every line mentioning "id:". Field triggers are substring matches; the
// lead-time trigger is the literal token "lead_time" or "delivery", so a
// "Lead Time:" label does not match and only explicit delivery figures are
// picked up.
func parseItemBlocks(prompt string) []itemBlock {
	var blocks []itemBlock
	current := -1

	ensure := func() int {
		if current < 0 {
			blocks = append(blocks, itemBlock{})
			current = len(blocks) - 1
		}
		return current
	}

	for _, line := range strings.Split(prompt, "\n") {
		lower := strings.ToLower(line)

		if strings.Contains(lower, "id:") {
			blocks = append(blocks, itemBlock{id: afterColon(line)})
			current = len(blocks) - 1
		}
		if strings.Contains(lower, "vendor:") {
			blocks[ensure()].vendor = afterColon(line)
		}
		if strings.Contains(lower, "price:") {
			if v, ok := firstInteger(afterColon(line)); ok {
				blocks[ensure()].price = v
			}
		}
		if strings.Contains(lower, "lead_time") || strings.Contains(lower, "delivery") {
			if v, ok := firstInteger(line); ok {
				blocks[ensure()].lead = v
			}
		}
		if strings.Contains(lower, "reliability:") {
			if v, err := strconv.ParseFloat(afterColon(line), 64); err == nil {
				blocks[ensure()].reliability = v
			}
		}
	}
	return blocks
}

// afterColon returns the trimmed text after the first colon, or "".
func afterColon(line string) string {
	_, rest, found := strings.Cut(line, ":")
	if !found {
		return ""
	}
	return strings.TrimSpace(rest)
}

// firstInteger extracts the first run of digits in a line.
func firstInteger(line string) (float64, bool) {
	start := -1
	for i := 0; i <= len(line); i++ {
		isDigit := i < len(line) && line[i] >= '0' && line[i] <= '9'
		if isDigit && start < 0 {
			start = i
		}
		if !isDigit && start >= 0 {
			v, err := strconv.ParseFloat(line[start:i], 64)
			if err != nil {
				return 0, false
			}
			return v, true
		}
	}
	return 0, false
}

func (b itemBlock) score() float64 {
	priceScore := 1 - b.price/detPriceScale
	if priceScore < 0 {
		priceScore = 0
	}
	leadScore := 1 - b.lead/detLeadScale
	if leadScore < 0 {
		leadScore = 0
	}
	return detPriceWeight*priceScore + detLeadWeight*leadScore + detReliabilityWeight*b.reliability
}

func (b itemBlock) render() string {
	id := b.id
	if id == "" {
		id = "Unknown"
	}
	vendor := b.vendor
	if vendor == "" {
		vendor = "Unknown"
	}
	response := fmt.Sprintf("Selected %s from %s.", id, vendor)

	var factors []string
	if b.price != 0 {
		factors = append(factors, fmt.Sprintf("cost (%d)", int(b.price)))
	}
	if b.lead != 0 {
		factors = append(factors, fmt.Sprintf("delivery (%d days)", int(b.lead)))
	}
	if b.reliability != 0 {
		factors = append(factors, fmt.Sprintf("strong reliability (%g)", b.reliability))
	}

	if len(factors) == 0 {
		return response + " It provides the best balance of price, delivery time, and reliability for the requirements."
	}
	return response + " It balances " + strings.Join(factors, " and ") + ", making it the best fit for the request."
}

var _ Client = (*Deterministic)(nil)
