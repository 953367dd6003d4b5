// Package catalog loads the component catalog once at startup and answers
// exact and semantic lookups over it. The catalog is immutable after Load;
// every accessor returns copies so callers cannot mutate shared state.
package catalog

import (
	"encoding/json"
	"os"
	"sort"

	"quartermaster/internal/errors"
	"quartermaster/pkg/types"
)

// Catalog is the in-memory component catalog. Safe for concurrent reads.
type Catalog struct {
	items []types.Item
	byID  map[string]int
}

// New builds a catalog from an already-decoded item list. The slice is
// copied.
func New(items []types.Item) *Catalog {
	c := &Catalog{
		items: make([]types.Item, len(items)),
		byID:  make(map[string]int, len(items)),
	}
	copy(c.items, items)
	for i, item := range c.items {
		c.byID[item.ID] = i
	}
	return c
}

// Load reads a JSON array of items from path. A missing or corrupt file is
// an internal failure; there is no partial load.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Internal(err, "failed to load catalog: %v", err)
	}
	var items []types.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.Internal(err, "failed to load catalog: %v", err)
	}
	return New(items), nil
}

// Search returns the items whose component matches exactly, in catalog
// order. With specFilters an item passes only if, for every filter key, its
// specs contain the key and the value meets the threshold; a missing spec
// key excludes the item rather than erroring.
func (c *Catalog) Search(component string, specFilters map[string]float64) []types.Item {
	var matches []types.Item
	for _, item := range c.items {
		if item.Component != component {
			continue
		}
		if !meetsFilters(item, specFilters) {
			continue
		}
		matches = append(matches, item)
	}
	return matches
}

func meetsFilters(item types.Item, specFilters map[string]float64) bool {
	for key, min := range specFilters {
		value, ok := item.Specs[key]
		if !ok || value < min {
			return false
		}
	}
	return true
}

// Get looks up one item by ID.
func (c *Catalog) Get(id string) (types.Item, bool) {
	i, ok := c.byID[id]
	if !ok {
		return types.Item{}, false
	}
	return c.items[i], true
}

// Items returns the full catalog in load order.
func (c *Catalog) Items() []types.Item {
	out := make([]types.Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.items)
}

// Components returns the unique component types, sorted.
func (c *Catalog) Components() []string {
	seen := make(map[string]bool)
	var out []string
	for _, item := range c.items {
		if !seen[item.Component] {
			seen[item.Component] = true
			out = append(out, item.Component)
		}
	}
	sort.Strings(out)
	return out
}

// Vendors returns the unique vendor names, sorted.
func (c *Catalog) Vendors() []string {
	seen := make(map[string]bool)
	var out []string
	for _, item := range c.items {
		if !seen[item.Vendor] {
			seen[item.Vendor] = true
			out = append(out, item.Vendor)
		}
	}
	sort.Strings(out)
	return out
}

// ComponentDetail summarizes one component type for the catalog API.
type ComponentDetail struct {
	Count      int       `json:"count"`
	Vendors    []string  `json:"vendors"`
	PriceRange []float64 `json:"price_range"`
}

// ComponentDetails aggregates count, vendors, and price range per component
// type.
func (c *Catalog) ComponentDetails() map[string]ComponentDetail {
	out := make(map[string]ComponentDetail)
	for _, component := range c.Components() {
		items := c.Search(component, nil)
		vendors := make(map[string]bool)
		min, max := items[0].Price, items[0].Price
		for _, item := range items {
			vendors[item.Vendor] = true
			if item.Price < min {
				min = item.Price
			}
			if item.Price > max {
				max = item.Price
			}
		}
		names := make([]string, 0, len(vendors))
		for v := range vendors {
			names = append(names, v)
		}
		sort.Strings(names)
		out[component] = ComponentDetail{
			Count:      len(items),
			Vendors:    names,
			PriceRange: []float64{min, max},
		}
	}
	return out
}

// VendorDetail summarizes one vendor for the catalog API.
type VendorDetail struct {
	ItemCount  int      `json:"item_count"`
	Components []string `json:"components"`
}

// VendorDetails aggregates item count and component coverage per vendor.
func (c *Catalog) VendorDetails() map[string]VendorDetail {
	components := make(map[string]map[string]bool)
	counts := make(map[string]int)
	for _, item := range c.items {
		counts[item.Vendor]++
		if components[item.Vendor] == nil {
			components[item.Vendor] = make(map[string]bool)
		}
		components[item.Vendor][item.Component] = true
	}
	out := make(map[string]VendorDetail, len(counts))
	for vendor, count := range counts {
		names := make([]string, 0, len(components[vendor]))
		for c := range components[vendor] {
			names = append(names, c)
		}
		sort.Strings(names)
		out[vendor] = VendorDetail{ItemCount: count, Components: names}
	}
	return out
}
