package shopping

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestPriceJSON(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
		want  string
	}{
		{`1.29`, true, "1.29"},
		{`"2.5"`, true, "2.50"},
		{`"about 3"`, false, "0.00"},
		{`null`, false, "0.00"},
		{`{}`, false, "0.00"},
		{`-0.5`, true, "-0.50"},
		{`1e400`, false, "0.00"},
		{`"1e400"`, false, "0.00"},
		{`2e9`, false, "0.00"},
		{`1e-300000000`, false, "0.00"},
		{`1.0000000000001`, false, "0.00"},
	}
	for _, tt := range tests {
		var item ShoppingItem
		if err := json.Unmarshal([]byte(`{"product":"x","approx_price":`+tt.raw+`}`), &item); err != nil {
			t.Fatalf("Unmarshal %s: %v", tt.raw, err)
		}
		if item.ApproxPrice.Valid() != tt.valid {
			t.Errorf("%s: expected valid=%v", tt.raw, tt.valid)
		}
		if item.ApproxPrice.String() != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.raw, tt.want, item.ApproxPrice.String())
		}
	}

	var huge ShoppingItem
	if err := json.Unmarshal([]byte(`{"approx_price":1e-300000000}`), &huge); err != nil {
		t.Fatal(err)
	}
	if out, _ := json.Marshal(huge); len(out) > 200 || !strings.Contains(string(out), `"approx_price":null`) {
		t.Errorf("Expected out of range price to encode as null, got %d bytes", len(out))
	}

	out, err := json.Marshal(ShoppingItem{ApproxPrice: NewPrice(1.5)})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"approx_price":1.5`) {
		t.Errorf("Expected numeric price in %s", out)
	}
	out, _ = json.Marshal(ShoppingItem{})
	if !strings.Contains(string(out), `"approx_price":null`) {
		t.Errorf("Expected null price in %s", out)
	}
}

func TestNewPrice(t *testing.T) {
	for name, v := range map[string]float64{
		"NaN":      math.NaN(),
		"PlusInf":  math.Inf(1),
		"MinusInf": math.Inf(-1),
		"TooLarge": 1e300,
	} {
		t.Run(name, func(t *testing.T) {
			if p := NewPrice(v); p.Valid() || p.String() != "0.00" {
				t.Errorf("Expected invalid price for %v, got %s", v, p)
			}
		})
	}

	if p := NewPrice(0.1 + 0.2); !p.Valid() || p.String() != "0.30" {
		t.Errorf("Expected 0.30, got %s (valid=%v)", p, p.Valid())
	}
}

func TestGenerationResultDecode(t *testing.T) {
	body := `{
		"items": [{"product":"Oats","quantity":"1 kg","store":"Aldi","approx_price":1.49,"category":"pantry","calories":380}],
		"total_cost": 1.49,
		"notes": "Cheap week",
		"generated_at": "2025-01-20T10:30:00.123456",
		"menu": [{"day":"Monday",
			"breakfast":{"name":"Porridge","description":"Oats","calories":300},
			"lunch":{"name":"Soup","description":"Veg"},
			"dinner":{"name":"Pasta","description":"Tomato","calories":600}}]
	}`
	var res GenerationResult
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].Calories == nil || *res.Items[0].Calories != 380 {
		t.Errorf("Unexpected items %+v", res.Items)
	}
	if !res.HasMenu() || len(res.Menu[0].Meals()) != 3 {
		t.Errorf("Expected 3 meals without snack, got %d", len(res.Menu[0].Meals()))
	}
	if res.Menu[0].Calories() != 900 {
		t.Errorf("Expected 900 calories, got %d", res.Menu[0].Calories())
	}
	ts, ok := res.GeneratedTime()
	if !ok || ts.Year() != 2025 || ts.Hour() != 10 {
		t.Errorf("Unexpected generated time %v (%v)", ts, ok)
	}
}

func TestUserInputValidate(t *testing.T) {
	valid := UserInput{Supermarkets: []string{"Lidl"}, Budget: 50, FamilySize: 2, Language: "en", Mode: ModeShopping}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected valid input, got %v", err)
	}

	tests := map[string]func(in *UserInput){
		"NoStores":    func(in *UserInput) { in.Supermarkets = nil },
		"ZeroBudget":  func(in *UserInput) { in.Budget = 0 },
		"NaNBudget":   func(in *UserInput) { in.Budget = math.NaN() },
		"InfBudget":   func(in *UserInput) { in.Budget = math.Inf(1) },
		"NoPeople":    func(in *UserInput) { in.FamilySize = 0 },
		"UnknownMode": func(in *UserInput) { in.Mode = "party" },
		"MenuNoDays":  func(in *UserInput) { in.Mode = ModeMenu; in.Days = 0 },
		"MenuTooLong": func(in *UserInput) { in.Mode = ModeMenu; in.Days = 8 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			if err := in.Validate(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}

	menu := valid
	menu.Mode, menu.Days = ModeMenu, 3
	if err := menu.Validate(); err != nil {
		t.Errorf("Expected valid menu input, got %v", err)
	}
}

func TestWithPresets(t *testing.T) {
	in := UserInput{Preferences: "no nuts"}
	out := in.WithPresets("vegetarian", "unknown", "vegetarian", "organic")
	want := "no nuts, vegetarian diet, no meat, prefer organic and bio products"
	if out.Preferences != want {
		t.Errorf("Expected %q, got %q", want, out.Preferences)
	}
	if in.Preferences != "no nuts" {
		t.Error("WithPresets must not modify the receiver")
	}
	if got := (UserInput{}).WithPresets("vegan").Preferences; got != "vegan diet, no animal products" {
		t.Errorf("Unexpected preferences %q", got)
	}
}
