package telegram

import (
	"fmt"
	"strings"

	"shopsmart/internal/app"
	"shopsmart/internal/history"
	"shopsmart/internal/metrics"
	"shopsmart/internal/shopping"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `🛒 *ShopSmart*

/list <stores> | <budget> | \[family] | \[preferences] - shopping list
/menu <days> | <stores> | <budget> | \[family] | \[preferences] - menu with list
/check <n> - tick item n of the current list
/history - saved results
/load <n> - show saved result n
/delete <n> - remove saved result n
/clear - remove all saved results
/reset - discard the current result
/health - check the generation service

Example: /list Lidl, Aldi | 50 | 2 | #vegan no nuts`

var storeDots = map[string]string{
	"blue":    "🔵",
	"orange":  "🟠",
	"yellow":  "🟡",
	"red":     "🔴",
	"darkred": "🟤",
}

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func euro(v float64) string {
	return money(shopping.NewPrice(v))
}

func money(p shopping.Price) string {
	return "€" + p.String()
}

func storeDot(store string) string {
	if dot, ok := storeDots[shopping.StoreColor(store)]; ok {
		return dot
	}
	return "⚪"
}

// formatView renders the current result. Items are numbered in display
// order and checked holds the ticked numbers minus one.
func formatView(v app.View, checked *shopping.Checklist) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🛒 *Shopping List* (%d items)\n", v.ItemCount))
	if v.Budget > 0 {
		sb.WriteString(fmt.Sprintf("💶 Total: %s of %s (%d%%)\n", euro(v.TotalCost), euro(v.Budget), v.BudgetUsed))
	} else {
		sb.WriteString(fmt.Sprintf("💶 Total: %s\n", euro(v.TotalCost)))
	}
	if checked != nil && checked.Count() > 0 {
		sb.WriteString(fmt.Sprintf("✅ %d/%d checked (%.0f%%)\n", checked.Count(), v.ItemCount, checked.Progress(v.ItemCount)))
	}

	index := 0
	for _, g := range v.Groups {
		sb.WriteString(fmt.Sprintf("\n%s *%s* · %s\n", storeDot(g.Store), esc(g.Store), money(g.SubtotalPrice())))
		for _, item := range g.Items {
			mark := "▫️"
			if checked != nil && checked.IsChecked(index) {
				mark = "✅"
			}
			index++
			sb.WriteString(fmt.Sprintf("%s %d. %s %s (%s)", mark, index,
				shopping.CategoryIcon(item.Category), esc(item.Product), esc(item.Quantity)))
			if item.ApproxPrice.Valid() {
				sb.WriteString(" · " + money(item.ApproxPrice))
			}
			sb.WriteString("\n")
		}
	}

	if len(v.Menu) > 0 {
		sb.WriteString("\n📅 *Menu*\n")
		for _, day := range v.Menu {
			sb.WriteString(formatDay(day))
		}
	}

	if n := v.Nutrition; n.Calories > 0 || n.Protein > 0 {
		sb.WriteString(fmt.Sprintf("\n🔥 %.0f kcal · protein %.0fg · fat %.0fg · carbs %.0fg\n", n.Calories, n.Protein, n.Fat, n.Carbs))
	}
	if v.Notes != "" {
		sb.WriteString(fmt.Sprintf("\n📝 _%s_\n", esc(v.Notes)))
	}
	return sb.String()
}

func formatDay(d shopping.DayMenu) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\n*%s*", esc(d.Day)))
	if kcal := d.Calories(); kcal > 0 {
		sb.WriteString(fmt.Sprintf(" · %d kcal", kcal))
	}
	sb.WriteString("\n")
	for _, s := range d.Meals() {
		sb.WriteString(fmt.Sprintf("%s %s", shopping.MealIcon(s.Slot), esc(s.Meal.Name)))
		if s.Meal.Description != "" {
			sb.WriteString(fmt.Sprintf(": _%s_", esc(s.Meal.Description)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatHistory(entries []history.Entry) string {
	if len(entries) == 0 {
		return "📭 No saved lists yet."
	}
	var sb strings.Builder
	sb.WriteString("🗂 *Saved Lists*\n\n")
	for i, e := range entries {
		sb.WriteString(fmt.Sprintf("%d. %s · %d items · %s", i+1, humanize.Time(e.Date), e.ItemCount, euro(e.TotalCost)))
		if e.Budget > 0 {
			sb.WriteString(fmt.Sprintf(" of %s", euro(e.Budget)))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nUse /load <n> to open one.")
	return sb.String()
}

func formatMetrics(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Generations*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d ok, %d failed (avg %d ms)\n", d.Date, d.Succeeded, d.Failed(), d.AvgLatencyMS))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}
