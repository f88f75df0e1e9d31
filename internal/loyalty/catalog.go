package loyalty

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CatalogItem is one redeemable reward. Tier is presentation-only grouping —
// it never gates who may redeem; only the point cost does.
type CatalogItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PointsCost int64  `json:"points_cost"`
	Tier       int    `json:"tier"`
}

// Catalog is the static, read-only set of redeemable rewards. Built once at
// startup; safe for concurrent reads.
type Catalog struct {
	items []CatalogItem
	byID  map[string]CatalogItem
}

// NewCatalog indexes the given items by ID. Duplicate IDs are an error.
func NewCatalog(items []CatalogItem) (Catalog, error) {
	byID := make(map[string]CatalogItem, len(items))
	ordered := make([]CatalogItem, len(items))
	copy(ordered, items)
	for _, it := range ordered {
		if it.ID == "" {
			return Catalog{}, fmt.Errorf("catalog item %q has empty id", it.Name)
		}
		if it.PointsCost <= 0 {
			return Catalog{}, fmt.Errorf("catalog item %q must cost > 0 points", it.ID)
		}
		if _, dup := byID[it.ID]; dup {
			return Catalog{}, fmt.Errorf("duplicate catalog item id %q", it.ID)
		}
		byID[it.ID] = it
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Tier != ordered[j].Tier {
			return ordered[i].Tier < ordered[j].Tier
		}
		return ordered[i].PointsCost < ordered[j].PointsCost
	})
	return Catalog{items: ordered, byID: byID}, nil
}

// MustCatalog builds a Catalog and panics on invalid input.
func MustCatalog(items []CatalogItem) Catalog {
	c, err := NewCatalog(items)
	if err != nil {
		panic(err)
	}
	return c
}

// Item looks up a reward by ID.
func (c Catalog) Item(id string) (CatalogItem, bool) {
	it, ok := c.byID[id]
	return it, ok
}

// Items returns all rewards ordered by tier, then cost.
func (c Catalog) Items() []CatalogItem {
	out := make([]CatalogItem, len(c.items))
	copy(out, c.items)
	return out
}

// ByTier groups the rewards for display, preserving the tier ordering.
func (c Catalog) ByTier() map[int][]CatalogItem {
	out := make(map[int][]CatalogItem)
	for _, it := range c.items {
		out[it.Tier] = append(out[it.Tier], it)
	}
	return out
}

// DefaultCatalog is the stock meal-subscription reward list.
func DefaultCatalog() []CatalogItem {
	return []CatalogItem{
		{ID: "free-delivery", Name: "Free delivery on your next box", PointsCost: 500, Tier: 1},
		{ID: "bonus-side", Name: "Complimentary side dish", PointsCost: 750, Tier: 1},
		{ID: "premium-recipe", Name: "Premium recipe unlock", PointsCost: 1200, Tier: 2},
		{ID: "free-meal", Name: "One free meal kit", PointsCost: 2500, Tier: 2},
		{ID: "chefs-box", Name: "Chef's choice surprise box", PointsCost: 5000, Tier: 3},
	}
}

// ParseCatalog parses an "id:name:cost:tier" CSV (name uses '_' for spaces)
// used to override the catalog from configuration. Empty input yields nil.
func ParseCatalog(s string) ([]CatalogItem, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []CatalogItem
	for _, part := range strings.Split(s, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 4 {
			return nil, fmt.Errorf("catalog item %q: want id:name:cost:tier", part)
		}
		cost, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("catalog item %q: bad cost: %w", part, err)
		}
		tier, err := strconv.Atoi(strings.TrimSpace(fields[3]))
		if err != nil {
			return nil, fmt.Errorf("catalog item %q: bad tier: %w", part, err)
		}
		out = append(out, CatalogItem{
			ID:         strings.TrimSpace(fields[0]),
			Name:       strings.ReplaceAll(strings.TrimSpace(fields[1]), "_", " "),
			PointsCost: cost,
			Tier:       tier,
		})
	}
	return out, nil
}
