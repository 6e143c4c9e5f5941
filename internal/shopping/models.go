package shopping

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Mode selects what the generation service produces.
type Mode string

const (
	ModeShopping Mode = "shopping"
	ModeMenu     Mode = "menu"
)

// Form defaults.
const (
	DefaultFamilySize = 2
	DefaultMenuDays   = 7
	MaxMenuDays       = 7
)

// UserInput holds the constraints for one generation request.
type UserInput struct {
	Supermarkets []string `json:"supermarkets"`
	Budget       float64  `json:"budget"`
	Preferences  string   `json:"preferences"`
	FamilySize   int      `json:"family_size"`
	Language     string   `json:"language"`
	Mode         Mode     `json:"mode"`
	Days         int      `json:"days,omitempty"`
}

// Validate checks the constraints a request must satisfy before it is sent.
func (in UserInput) Validate() error {
	if len(in.Supermarkets) == 0 {
		return fmt.Errorf("at least one supermarket is required")
	}
	if math.IsNaN(in.Budget) || math.IsInf(in.Budget, 0) {
		return fmt.Errorf("budget must be a finite number, got %v", in.Budget)
	}
	if in.Budget <= 0 {
		return fmt.Errorf("budget must be positive, got %v", in.Budget)
	}
	if in.FamilySize < 1 {
		return fmt.Errorf("family size must be at least 1, got %d", in.FamilySize)
	}
	switch in.Mode {
	case ModeShopping:
	case ModeMenu:
		if in.Days < 1 || in.Days > MaxMenuDays {
			return fmt.Errorf("menu mode needs 1 to %d days, got %d", MaxMenuDays, in.Days)
		}
	default:
		return fmt.Errorf("unknown mode %q", in.Mode)
	}
	return nil
}

// WithPresets returns a copy of in with the texts of the given preference
// presets appended to Preferences. Unknown ids and presets already present
// are skipped.
func (in UserInput) WithPresets(ids ...string) UserInput {
	parts := []string{}
	if p := strings.TrimSpace(in.Preferences); p != "" {
		parts = append(parts, p)
	}
	for _, id := range ids {
		preset, ok := presetByID(id)
		if !ok || strings.Contains(strings.Join(parts, ", "), preset.Value) {
			continue
		}
		parts = append(parts, preset.Value)
	}
	in.Preferences = strings.Join(parts, ", ")
	in.Supermarkets = append([]string(nil), in.Supermarkets...)
	return in
}

// Nutrition holds nutrition values, either per item or aggregated.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// ShoppingItem is one purchasable line of a generated list.
type ShoppingItem struct {
	Product     string   `json:"product"`
	Quantity    string   `json:"quantity"`
	Store       string   `json:"store"`
	ApproxPrice Price    `json:"approx_price"`
	Category    string   `json:"category"`
	Calories    *float64 `json:"calories,omitempty"`
	Protein     *float64 `json:"protein,omitempty"`
	Fat         *float64 `json:"fat,omitempty"`
	Carbs       *float64 `json:"carbs,omitempty"`
}

// Meal is a single dish in a day menu.
type Meal struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Calories    *int   `json:"calories,omitempty"`
}

// Meal slots in the order they are served.
const (
	SlotBreakfast = "breakfast"
	SlotLunch     = "lunch"
	SlotDinner    = "dinner"
	SlotSnack     = "snack"
)

// MealSlot pairs a slot name with its meal.
type MealSlot struct {
	Slot string
	Meal Meal
}

// DayMenu is the plan for a single day.
type DayMenu struct {
	Day       string `json:"day"`
	Breakfast Meal   `json:"breakfast"`
	Lunch     Meal   `json:"lunch"`
	Dinner    Meal   `json:"dinner"`
	Snack     *Meal  `json:"snack,omitempty"`
}

// Meals lists the day's meals in serving order, leaving out a missing snack.
func (d DayMenu) Meals() []MealSlot {
	slots := []MealSlot{
		{Slot: SlotBreakfast, Meal: d.Breakfast},
		{Slot: SlotLunch, Meal: d.Lunch},
		{Slot: SlotDinner, Meal: d.Dinner},
	}
	if d.Snack != nil {
		slots = append(slots, MealSlot{Slot: SlotSnack, Meal: *d.Snack})
	}
	return slots
}

// Calories sums the calories of the meals that declare them.
func (d DayMenu) Calories() int {
	total := 0
	for _, s := range d.Meals() {
		if s.Meal.Calories != nil {
			total += *s.Meal.Calories
		}
	}
	return total
}

// GenerationResult is the full response of the generation service.
// TotalCost is reported by the service and is never recomputed here.
type GenerationResult struct {
	Items          []ShoppingItem `json:"items"`
	TotalCost      float64        `json:"total_cost"`
	Notes          string         `json:"notes"`
	GeneratedAt    string         `json:"generated_at"`
	TotalNutrition *Nutrition     `json:"total_nutrition,omitempty"`
	Menu           []DayMenu      `json:"menu,omitempty"`
}

var generatedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// GeneratedTime parses GeneratedAt. The service may omit the zone offset.
func (r GenerationResult) GeneratedTime() (time.Time, bool) {
	for _, layout := range generatedAtLayouts {
		if t, err := time.Parse(layout, r.GeneratedAt); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Nutrition returns the reported totals, or the sum over items if the service
// did not send any.
func (r GenerationResult) Nutrition() Nutrition {
	if r.TotalNutrition != nil {
		return *r.TotalNutrition
	}
	return ComputeNutrition(r.Items)
}

// HasMenu reports whether the result carries a day-by-day plan.
func (r GenerationResult) HasMenu() bool { return len(r.Menu) > 0 }
