package shopping

import "strings"

// Category vocabulary used by the generation service.
const (
	CategoryVegetables = "vegetables"
	CategoryFruits     = "fruits"
	CategoryMeat       = "meat"
	CategoryFish       = "fish"
	CategoryDairy      = "dairy"
	CategoryBread      = "bread"
	CategoryBeverages  = "beverages"
	CategorySnacks     = "snacks"
	CategoryFrozen     = "frozen"
	CategoryPantry     = "pantry"
	CategoryCleaning   = "cleaning"
	CategoryHygiene    = "hygiene"
	CategoryOther      = "other"
)

const (
	DefaultCategoryIcon  = "🛒"
	DefaultCategoryLabel = "Other"
	DefaultStoreColor    = "gray"
)

// CategoryInfo describes how a category is displayed.
type CategoryInfo struct {
	ID    string
	Label string
	Icon  string
}

var categories = []CategoryInfo{
	{ID: CategoryVegetables, Label: "Vegetables", Icon: "🥬"},
	{ID: CategoryFruits, Label: "Fruits", Icon: "🍎"},
	{ID: CategoryMeat, Label: "Meat", Icon: "🥩"},
	{ID: CategoryFish, Label: "Fish", Icon: "🐟"},
	{ID: CategoryDairy, Label: "Dairy", Icon: "🥛"},
	{ID: CategoryBread, Label: "Bread & Bakery", Icon: "🍞"},
	{ID: CategoryBeverages, Label: "Beverages", Icon: "🥤"},
	{ID: CategorySnacks, Label: "Snacks", Icon: "🍪"},
	{ID: CategoryFrozen, Label: "Frozen Foods", Icon: "🧊"},
	{ID: CategoryPantry, Label: "Pantry", Icon: "🥫"},
	{ID: CategoryCleaning, Label: "Cleaning", Icon: "🧹"},
	{ID: CategoryHygiene, Label: "Hygiene", Icon: "🧴"},
	{ID: CategoryOther, Label: DefaultCategoryLabel, Icon: DefaultCategoryIcon},
}

var categoryIndex = func() map[string]CategoryInfo {
	m := make(map[string]CategoryInfo, len(categories))
	for _, c := range categories {
		m[c.ID] = c
	}
	return m
}()

// Categories returns the fixed category vocabulary in display order.
func Categories() []CategoryInfo {
	return append([]CategoryInfo(nil), categories...)
}

// lookupCategory matches case-insensitively; the service is not strict about
// casing of category tags.
func lookupCategory(category string) (CategoryInfo, bool) {
	c, ok := categoryIndex[strings.ToLower(category)]
	return c, ok
}

// CategoryIcon returns the display symbol for category. Unknown or empty
// values get DefaultCategoryIcon.
func CategoryIcon(category string) string {
	if c, ok := lookupCategory(category); ok {
		return c.Icon
	}
	return DefaultCategoryIcon
}

// CategoryLabel returns the display name for category, DefaultCategoryLabel
// for unknown values.
func CategoryLabel(category string) string {
	if c, ok := lookupCategory(category); ok {
		return c.Label
	}
	return DefaultCategoryLabel
}

// Supermarket is one of the stores offered to the user.
type Supermarket struct {
	ID    string
	Name  string
	Tier  string
	Color string
}

var supermarkets = []Supermarket{
	{ID: "lidl", Name: "Lidl", Tier: "discount", Color: "blue"},
	{ID: "aldi", Name: "Aldi", Tier: "discount", Color: "orange"},
	{ID: "edeka", Name: "Edeka", Tier: "premium", Color: "yellow"},
	{ID: "rewe", Name: "Rewe", Tier: "standard", Color: "red"},
	{ID: "kaufland", Name: "Kaufland", Tier: "hypermarket", Color: "darkred"},
}

// Supermarkets returns the stores known to the client.
func Supermarkets() []Supermarket {
	return append([]Supermarket(nil), supermarkets...)
}

// StoreColor returns the color tag for a store name, matched exactly.
func StoreColor(store string) string {
	for _, s := range supermarkets {
		if s.Name == store {
			return s.Color
		}
	}
	return DefaultStoreColor
}

// Preset is a canned dietary preference.
type Preset struct {
	ID    string
	Label string
	Value string
}

var presets = []Preset{
	{ID: "vegetarian", Label: "Vegetarian", Value: "vegetarian diet, no meat"},
	{ID: "vegan", Label: "Vegan", Value: "vegan diet, no animal products"},
	{ID: "gluten-free", Label: "Gluten-Free", Value: "gluten-free products only"},
	{ID: "high-protein", Label: "High Protein", Value: "high protein foods, fitness diet"},
	{ID: "low-carb", Label: "Low Carb", Value: "low carbohydrate diet, keto friendly"},
	{ID: "family", Label: "Family Friendly", Value: "family friendly meals, kid-friendly options"},
	{ID: "organic", Label: "Organic", Value: "prefer organic and bio products"},
	{ID: "budget", Label: "Budget Saver", Value: "focus on cheapest options, maximize quantity"},
}

// Presets returns the canned preferences.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

func presetByID(id string) (Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// MealIcon returns the symbol shown next to a meal slot.
func MealIcon(slot string) string {
	switch slot {
	case SlotBreakfast:
		return "🌅"
	case SlotLunch:
		return "☀️"
	case SlotDinner:
		return "🌙"
	case SlotSnack:
		return "🍎"
	default:
		return "🍽️"
	}
}
