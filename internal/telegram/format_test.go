package telegram

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"shopsmart/internal/app"
	"shopsmart/internal/history"
	"shopsmart/internal/metrics"
	"shopsmart/internal/shopping"
)

func TestFormatView(t *testing.T) {
	kcal := 450
	items := []shopping.ShoppingItem{
		{Product: "Oat_milk", Quantity: "1 l", Store: "Rewe", ApproxPrice: shopping.NewPrice(1.5), Category: "dairy"},
		{Product: "Mystery", Quantity: "1", Store: "Corner Shop", Category: "unknown"},
	}
	view := app.View{
		Groups:     shopping.GroupByStore(items),
		ItemCount:  2,
		TotalCost:  1.5,
		Budget:     10,
		BudgetUsed: 15,
		Nutrition:  shopping.Nutrition{Calories: 1200, Protein: 40},
		Notes:      "Buy *fresh*",
		Menu: []shopping.DayMenu{{
			Day:       "Monday",
			Breakfast: shopping.Meal{Name: "Porridge", Calories: &kcal},
			Lunch:     shopping.Meal{Name: "Soup"},
			Dinner:    shopping.Meal{Name: "Pasta", Description: "with tomato"},
		}},
	}

	checks := shopping.NewChecklist()
	checks.Toggle(1)
	out := formatView(view, checks)

	for _, want := range []string{
		"🛒 *Shopping List* (2 items)",
		"€1.50 of €10.00 (15%)",
		"1/2 checked (50%)",
		"🔴 *Rewe* · €1.50",
		"Oat\\_milk",
		"⚪ *Corner Shop* · €0.00",
		"✅ 2. 🛒 Mystery (1)\n",
		"*Monday* · 450 kcal",
		"🌅 Porridge",
		"🌙 Pasta: _with tomato_",
		"🔥 1200 kcal · protein 40g",
		"Buy \\*fresh\\*",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestFormatViewOutOfRangePrice(t *testing.T) {
	var res shopping.GenerationResult
	body := `{"items": [
		{"product": "Gold", "quantity": "1", "store": "Lidl", "approx_price": 1e400, "category": "other"},
		{"product": "Tiny", "quantity": "1", "store": "Lidl", "approx_price": "1e-300000000", "category": "other"},
		{"product": "Milk", "quantity": "1 l", "store": "Lidl", "approx_price": 0.99, "category": "dairy"}
	], "total_cost": 0.99}`
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		t.Fatalf("Expected decode to succeed, got %v", err)
	}

	view := app.View{Groups: shopping.GroupByStore(res.Items), ItemCount: 3, TotalCost: res.TotalCost}
	out := formatView(view, shopping.NewChecklist())

	if !strings.Contains(out, "*Lidl* · €0.99") {
		t.Errorf("Expected subtotal over the valid price only:\n%s", out)
	}
	if !strings.Contains(out, "1. 🛒 Gold (1)\n") {
		t.Errorf("Expected the out of range price to be omitted:\n%s", out)
	}
}

func TestFormatHistory(t *testing.T) {
	if out := formatHistory(nil); !strings.Contains(out, "No saved lists") {
		t.Errorf("Expected empty notice, got %q", out)
	}

	out := formatHistory([]history.Entry{
		{ID: "a", Date: time.Now().Add(-2 * time.Hour), ItemCount: 4, TotalCost: 12.3, Budget: 20},
		{ID: "b", Date: time.Now().Add(-48 * time.Hour), ItemCount: 1, TotalCost: 2},
	})
	if !strings.Contains(out, "1. 2 hours ago · 4 items · €12.30 of €20.00") {
		t.Errorf("Unexpected first line:\n%s", out)
	}
	if !strings.Contains(out, "2. 2 days ago · 1 items · €2.00\n") {
		t.Errorf("Unexpected second line:\n%s", out)
	}
}

func TestFormatMetrics(t *testing.T) {
	out := formatMetrics(
		[]metrics.DailyUsage{{Date: "2025-01-20", Total: 5, Succeeded: 4, AvgLatencyMS: 1500}},
		metrics.SysHealth{AllocMB: 3, SysMB: 10, Goroutines: 7, DataDiskSize: "12 kB"},
	)
	for _, want := range []string{"*2025-01-20*: 4 ok, 1 failed (avg 1500 ms)", "Goroutines: 7", "Disk Data: 12 kB"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
	if out := formatMetrics(nil, metrics.SysHealth{}); !strings.Contains(out, "_No data yet_") {
		t.Errorf("Expected empty usage notice, got:\n%s", out)
	}
}
