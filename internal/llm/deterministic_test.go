package llm

import (
	"context"
	"strings"
	"testing"
)

const twoPanelPrompt = `Please choose between these two items:
ID: SP-100
Vendor: Helios Dynamics
Price: 4800
Lead Time: 21 days
Reliability: 0.985

ID: SP-200
Vendor: Astra Components
Price: 5200
Lead Time: 14 days
Reliability: 0.975
`

func TestDeterministicPicksBetterItem(t *testing.T) {
	client := NewDeterministic()

	got, err := client.Generate(context.Background(), twoPanelPrompt, 150)
	if err != nil {
		t.Fatal(err)
	}
	// SP-100 wins on price and reliability. "Lead Time:" labels do not
	// match the lead-time trigger, so neither block carries a delivery
	// figure here.
	if !strings.Contains(got, "Selected SP-100 from Helios Dynamics") {
		t.Errorf("unexpected selection: %q", got)
	}
	if strings.Contains(got, "SP-200") {
		t.Errorf("losing item leaked into output: %q", got)
	}
	if !strings.Contains(got, "cost (4800)") {
		t.Errorf("missing cost factor: %q", got)
	}
	if !strings.Contains(got, "strong reliability (0.985)") {
		t.Errorf("missing reliability factor: %q", got)
	}
}

func TestDeterministicStable(t *testing.T) {
	client := NewDeterministic()
	ctx := context.Background()

	first, _ := client.Generate(ctx, twoPanelPrompt, 150)
	second, _ := client.Generate(ctx, twoPanelPrompt, 150)
	if first != second {
		t.Errorf("output changed between identical prompts:\n%q\n%q", first, second)
	}
}

func TestDeterministicFallbackWithoutTrigger(t *testing.T) {
	client := NewDeterministic()

	got, err := client.Generate(context.Background(), "Summarize the procurement market.", 150)
	if err != nil {
		t.Fatal(err)
	}
	if got != fallbackAnswer {
		t.Errorf("non-trigger prompt produced %q", got)
	}
}

func TestDeterministicJustificationPrompt(t *testing.T) {
	// The planner's justification prompt shape: one item block followed by
	// request constraints. The "Latest Delivery" constraint is the only
	// line matching the delivery trigger, so its figure becomes the cited
	// delivery factor.
	prompt := `Selected item details:
ID: SP-100
Vendor: Helios Dynamics
Price: 4800
Lead Time: 21 days
Reliability: 0.985

Request constraints:
Max Cost: 6000
Latest Delivery: 30 days

Please provide a brief justification (2-3 sentences) for why this item is the best choice.`

	got, err := NewDeterministic().Generate(context.Background(), prompt, 150)
	if err != nil {
		t.Fatal(err)
	}
	want := "Selected SP-100 from Helios Dynamics. It balances cost (4800) and delivery (30 days) and strong reliability (0.985), making it the best fit for the request."
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestDeterministicNoConstraints(t *testing.T) {
	// "Latest Delivery: N/A days" carries no digits, so no delivery factor.
	prompt := `Selected item details:
ID: ANT-10
Vendor: Astra Components
Price: 1900
Lead Time: 7 days
Reliability: 0.992

Request constraints:
Max Cost: N/A
Latest Delivery: N/A days
`
	got, err := NewDeterministic().Generate(context.Background(), prompt, 150)
	if err != nil {
		t.Fatal(err)
	}
	want := "Selected ANT-10 from Astra Components. It balances cost (1900) and strong reliability (0.992), making it the best fit for the request."
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestDeterministicNoFactors(t *testing.T) {
	prompt := "The selected option:\nID: X-1\nVendor: Acme\n"
	got, err := NewDeterministic().Generate(context.Background(), prompt, 150)
	if err != nil {
		t.Fatal(err)
	}
	want := "Selected X-1 from Acme. It provides the best balance of price, delivery time, and reliability for the requirements."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDeterministicUnparseablePrompt(t *testing.T) {
	got, err := NewDeterministic().Generate(context.Background(), "Please choose between the options above.", 150)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Unable to parse items from prompt." {
		t.Errorf("got %q", got)
	}
}

func TestFirstInteger(t *testing.T) {
	cases := []struct {
		line string
		want float64
		ok   bool
	}{
		{"4800", 4800, true},
		{"Latest Delivery: 30 days", 30, true},
		{"Latest Delivery: N/A days", 0, false},
		{"no digits here", 0, false},
	}
	for _, tc := range cases {
		got, ok := firstInteger(tc.line)
		if ok != tc.ok || got != tc.want {
			t.Errorf("firstInteger(%q) = %v, %v; want %v, %v", tc.line, got, ok, tc.want, tc.ok)
		}
	}
}
