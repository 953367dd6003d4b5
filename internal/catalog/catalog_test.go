package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"quartermaster/pkg/types"
)

func sampleItems() []types.Item {
	return []types.Item{
		{ID: "SP-100", Component: "solar_panel", Vendor: "Helios Dynamics", Price: 4800, LeadTimeDays: 21, Reliability: 0.985,
			Specs: map[string]float64{"power_w": 150, "mass_kg": 8.5, "voltage_v": 28}},
		{ID: "SP-200", Component: "solar_panel", Vendor: "Astra Components", Price: 5200, LeadTimeDays: 14, Reliability: 0.975,
			Specs: map[string]float64{"power_w": 180, "mass_kg": 9.2, "voltage_v": 28}},
		{ID: "BAT-50", Component: "battery", Vendor: "Helios Dynamics", Price: 2200, LeadTimeDays: 10, Reliability: 0.990,
			Specs: map[string]float64{"capacity_wh": 500, "mass_kg": 4.1}},
		{ID: "BAT-80", Component: "battery", Vendor: "LunaTech Supplies", Price: 3100, LeadTimeDays: 18, Reliability: 0.960,
			Specs: map[string]float64{"capacity_wh": 800, "mass_kg": 6.3}},
		{ID: "ANT-10", Component: "antenna", Vendor: "Astra Components", Price: 1900, LeadTimeDays: 7, Reliability: 0.992,
			Specs: map[string]float64{"gain_db": 12, "mass_kg": 1.8}},
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	data := `[{"id":"X-1","component":"widget","vendor":"Acme","price":10,"lead_time_days":3,"reliability":0.9,"specs":{"size":2}}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
	item, ok := c.Get("X-1")
	if !ok || item.Vendor != "Acme" || item.Specs["size"] != 2 {
		t.Errorf("Get(X-1) = %+v, %v", item, ok)
	}
}

func TestLoadFailures(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(path, []byte(`{"not":"an array"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("corrupt file should fail")
	}
}

func TestSearchExactComponent(t *testing.T) {
	c := New(sampleItems())

	panels := c.Search("solar_panel", nil)
	if len(panels) != 2 || panels[0].ID != "SP-100" || panels[1].ID != "SP-200" {
		t.Errorf("Search(solar_panel) = %v", ids(panels))
	}

	// Case-sensitive, exact match only.
	if got := c.Search("Solar_Panel", nil); len(got) != 0 {
		t.Errorf("case-insensitive match leaked: %v", ids(got))
	}
	if got := c.Search("reactor", nil); len(got) != 0 {
		t.Errorf("unknown component returned %v", ids(got))
	}
}

func TestSearchSpecFilters(t *testing.T) {
	c := New(sampleItems())

	// Both panels clear 140 W.
	got := c.Search("solar_panel", map[string]float64{"power_w": 140})
	if len(got) != 2 {
		t.Fatalf("power_w>=140 returned %v", ids(got))
	}

	// Only SP-200 reaches 180 W.
	got = c.Search("solar_panel", map[string]float64{"power_w": 180})
	if len(got) != 1 || got[0].ID != "SP-200" {
		t.Errorf("power_w>=180 returned %v", ids(got))
	}

	// A spec key the items lack excludes them all, without error.
	got = c.Search("solar_panel", map[string]float64{"thrust_n": 1})
	if len(got) != 0 {
		t.Errorf("missing spec key matched %v", ids(got))
	}

	// Every filter must pass.
	got = c.Search("solar_panel", map[string]float64{"power_w": 140, "mass_kg": 9})
	if len(got) != 1 || got[0].ID != "SP-200" {
		t.Errorf("combined filters returned %v", ids(got))
	}
}

func TestGet(t *testing.T) {
	c := New(sampleItems())
	if _, ok := c.Get("BAT-50"); !ok {
		t.Error("BAT-50 not found")
	}
	if _, ok := c.Get("nope"); ok {
		t.Error("unknown ID found")
	}
}

func TestVendorsAndComponents(t *testing.T) {
	c := New(sampleItems())

	wantVendors := []string{"Astra Components", "Helios Dynamics", "LunaTech Supplies"}
	if got := c.Vendors(); !equalStrings(got, wantVendors) {
		t.Errorf("Vendors = %v", got)
	}

	wantComponents := []string{"antenna", "battery", "solar_panel"}
	if got := c.Components(); !equalStrings(got, wantComponents) {
		t.Errorf("Components = %v", got)
	}
}

func TestComponentDetails(t *testing.T) {
	c := New(sampleItems())
	details := c.ComponentDetails()

	panel := details["solar_panel"]
	if panel.Count != 2 {
		t.Errorf("solar_panel count = %d", panel.Count)
	}
	if len(panel.PriceRange) != 2 || panel.PriceRange[0] != 4800 || panel.PriceRange[1] != 5200 {
		t.Errorf("solar_panel price_range = %v", panel.PriceRange)
	}
	if !equalStrings(panel.Vendors, []string{"Astra Components", "Helios Dynamics"}) {
		t.Errorf("solar_panel vendors = %v", panel.Vendors)
	}
}

func TestVendorDetails(t *testing.T) {
	c := New(sampleItems())
	details := c.VendorDetails()

	helios := details["Helios Dynamics"]
	if helios.ItemCount != 2 {
		t.Errorf("helios item_count = %d", helios.ItemCount)
	}
	if !equalStrings(helios.Components, []string{"battery", "solar_panel"}) {
		t.Errorf("helios components = %v", helios.Components)
	}
}

func TestItemsIsACopy(t *testing.T) {
	c := New(sampleItems())
	items := c.Items()
	items[0].ID = "mutated"
	if got, _ := c.Get("SP-100"); got.ID != "SP-100" {
		t.Error("Items() exposed internal state")
	}
}

func ids(items []types.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
