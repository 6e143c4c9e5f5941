package shopping

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// StoreGroup is the items attributed to one store, in response order.
type StoreGroup struct {
	Store string
	Items []ShoppingItem
}

// Subtotal sums the group's item prices.
func (g StoreGroup) Subtotal() float64 { return StoreSubtotal(g.Items) }

// SubtotalPrice is Subtotal as a price, for display.
func (g StoreGroup) SubtotalPrice() Price { return Price{amount: sumPrices(g.Items), valid: true} }

// StoreGroups is ordered by the first appearance of each store.
type StoreGroups []StoreGroup

// GroupByStore groups items by their literal Store field. Store names are not
// normalized: "Lidl" and "lidl " are different groups. The source slice is
// not modified and the groups do not share its backing array.
func GroupByStore(items []ShoppingItem) StoreGroups {
	var groups StoreGroups
	index := make(map[string]int)
	for _, item := range items {
		i, ok := index[item.Store]
		if !ok {
			i = len(groups)
			index[item.Store] = i
			groups = append(groups, StoreGroup{Store: item.Store})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

// Stores returns the group keys in order.
func (g StoreGroups) Stores() []string {
	stores := make([]string, len(g))
	for i, group := range g {
		stores[i] = group.Store
	}
	return stores
}

// Get returns the items of store.
func (g StoreGroups) Get(store string) ([]ShoppingItem, bool) {
	for _, group := range g {
		if group.Store == store {
			return group.Items, true
		}
	}
	return nil, false
}

// Map returns the groups keyed by store name.
func (g StoreGroups) Map() map[string][]ShoppingItem {
	m := make(map[string][]ShoppingItem, len(g))
	for _, group := range g {
		m[group.Store] = group.Items
	}
	return m
}

// StoreSubtotal sums ApproxPrice over items. Invalid prices count as zero.
func StoreSubtotal(items []ShoppingItem) float64 {
	f, _ := sumPrices(items).Float64()
	return f
}

func sumPrices(items []ShoppingItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.ApproxPrice.Decimal())
	}
	return sum
}

// Progress returns checked/total as a percentage in [0,100]. A zero total
// yields 0.
func Progress(checked, total int) float64 {
	if total <= 0 || checked <= 0 {
		return 0
	}
	if checked >= total {
		return 100
	}
	return float64(checked) / float64(total) * 100
}

// BudgetUsed returns total as a whole percentage of budget, 0 when budget is
// not positive.
func BudgetUsed(total, budget float64) int {
	if budget <= 0 {
		return 0
	}
	pct := decimal.NewFromFloat(total).Div(decimal.NewFromFloat(budget)).Mul(decimal.NewFromInt(100))
	return int(pct.Round(0).IntPart())
}

// ComputeNutrition sums the nutrition fields present on items.
func ComputeNutrition(items []ShoppingItem) Nutrition {
	var n Nutrition
	for _, item := range items {
		n.Calories += deref(item.Calories)
		n.Protein += deref(item.Protein)
		n.Fat += deref(item.Fat)
		n.Carbs += deref(item.Carbs)
	}
	return n
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// SortBy names an item ordering.
type SortBy string

const (
	SortByStore    SortBy = "store"
	SortByCategory SortBy = "category"
	SortByPrice    SortBy = "price"
)

// SortItems returns a sorted copy of items; equal keys keep response order.
// Prices sort from most to least expensive.
func SortItems(items []ShoppingItem, by SortBy) []ShoppingItem {
	sorted := append([]ShoppingItem(nil), items...)
	var less func(a, b ShoppingItem) bool
	switch by {
	case SortByCategory:
		less = func(a, b ShoppingItem) bool { return a.Category < b.Category }
	case SortByPrice:
		less = func(a, b ShoppingItem) bool { return a.ApproxPrice.Decimal().GreaterThan(b.ApproxPrice.Decimal()) }
	default:
		less = func(a, b ShoppingItem) bool { return a.Store < b.Store }
	}
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	return sorted
}

// FormatText renders groups as plain text suitable for pasting elsewhere.
func FormatText(groups StoreGroups) string {
	var sb strings.Builder
	for i, group := range groups {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "📍 %s:", group.Store)
		for _, item := range group.Items {
			fmt.Fprintf(&sb, "\n  • %s (%s) - €%s", item.Product, item.Quantity, item.ApproxPrice)
		}
	}
	return sb.String()
}

// Checklist tracks which items of a list have been picked up, by position.
type Checklist struct {
	checked map[int]bool
}

// NewChecklist returns an empty checklist.
func NewChecklist() *Checklist {
	return &Checklist{checked: make(map[int]bool)}
}

// Toggle flips item i and returns its new state.
func (c *Checklist) Toggle(i int) bool {
	c.checked[i] = !c.checked[i]
	if !c.checked[i] {
		delete(c.checked, i)
	}
	return c.checked[i]
}

// IsChecked reports whether item i is checked.
func (c *Checklist) IsChecked(i int) bool { return c.checked[i] }

// Count returns the number of checked items.
func (c *Checklist) Count() int { return len(c.checked) }

// Progress returns the checked share of total as a percentage.
func (c *Checklist) Progress(total int) float64 { return Progress(c.Count(), total) }
