package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"shopsmart/internal/app"
	"shopsmart/internal/config"
	"shopsmart/internal/history"
	"shopsmart/internal/metrics"
	"shopsmart/internal/shopping"

	"github.com/dustin/go-humanize"
)

func euro(v float64) string {
	return money(shopping.NewPrice(v))
}

func money(p shopping.Price) string {
	return "€" + p.String()
}

// printView writes a result grouped by store, or as one flat list when
// sortBy is set.
func printView(w io.Writer, v app.View, items []shopping.ShoppingItem, sortBy shopping.SortBy) {
	fmt.Fprintf(w, "🛒 Shopping list: %d items, total %s", v.ItemCount, euro(v.TotalCost))
	if v.Budget > 0 {
		fmt.Fprintf(w, " of %s (%d%%)", euro(v.Budget), v.BudgetUsed)
	}
	fmt.Fprintln(w)

	if sortBy != "" {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, item := range shopping.SortItems(items, sortBy) {
			fmt.Fprintf(tw, "  %s %s\t%s\t%s\t%s\t%s\n", shopping.CategoryIcon(item.Category), item.Product,
				item.Quantity, shopping.CategoryLabel(item.Category), item.Store, money(item.ApproxPrice))
		}
		tw.Flush()
	} else {
		for _, g := range v.Groups {
			fmt.Fprintf(w, "\n📍 %s (%s)\n", g.Store, money(g.SubtotalPrice()))
			for _, item := range g.Items {
				fmt.Fprintf(w, "  %s %s (%s) - %s\n", shopping.CategoryIcon(item.Category), item.Product, item.Quantity, money(item.ApproxPrice))
			}
		}
	}

	for _, day := range v.Menu {
		fmt.Fprintf(w, "\n📅 %s", day.Day)
		if kcal := day.Calories(); kcal > 0 {
			fmt.Fprintf(w, " (%d kcal)", kcal)
		}
		fmt.Fprintln(w)
		for _, s := range day.Meals() {
			fmt.Fprintf(w, "  %s %s", shopping.MealIcon(s.Slot), s.Meal.Name)
			if s.Meal.Description != "" {
				fmt.Fprintf(w, ": %s", s.Meal.Description)
			}
			fmt.Fprintln(w)
		}
	}

	if n := v.Nutrition; n.Calories > 0 || n.Protein > 0 {
		fmt.Fprintf(w, "\n🔥 %.0f kcal, protein %.0fg, fat %.0fg, carbs %.0fg\n", n.Calories, n.Protein, n.Fat, n.Carbs)
	}
	if v.Notes != "" {
		fmt.Fprintf(w, "\n📝 %s\n", v.Notes)
	}
}

func printHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No saved lists yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSAVED\tITEMS\tTOTAL\tBUDGET\tID")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n", i+1, humanize.Time(e.Date), e.ItemCount, euro(e.TotalCost), euro(e.Budget), e.ID)
	}
	tw.Flush()
}

func printCatalog(w io.Writer) {
	fmt.Fprintln(w, "Supermarkets:")
	for _, s := range shopping.Supermarkets() {
		fmt.Fprintf(w, "  %-10s %s\n", s.Name, s.Tier)
	}
	fmt.Fprintln(w, "\nCategories:")
	for _, c := range shopping.Categories() {
		fmt.Fprintf(w, "  %s %-12s %s\n", c.Icon, c.ID, c.Label)
	}
	fmt.Fprintln(w, "\nPresets:")
	for _, p := range shopping.Presets() {
		fmt.Fprintf(w, "  %-13s %s\n", p.ID, p.Value)
	}
}

func printUsageReport(w io.Writer, usage []metrics.DailyUsage) {
	if len(usage) == 0 {
		fmt.Fprintln(w, "No generations recorded yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTOTAL\tOK\tFAILED\tAVG LATENCY")
	for _, d := range usage {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d ms\n", d.Date, d.Total, d.Succeeded, d.Failed(), d.AvgLatencyMS)
	}
	tw.Flush()
}

func printStatus(w io.Writer, cfg *config.Config, available bool, saved int, health metrics.SysHealth) {
	service := "unavailable"
	if available {
		service = "available"
	}
	fmt.Fprintf(w, "Service:   %s (%s, timeout %s)\n", cfg.APIURL, service, cfg.APITimeout)
	fmt.Fprintf(w, "History:   %s backend, %d saved\n", cfg.HistoryBackend, saved)
	fmt.Fprintf(w, "Data dir:  %s (%s)\n", cfg.DataDir, health.DataDiskSize)
	fmt.Fprintf(w, "Memory:    %dMB alloc / %dMB sys, %d GCs\n", health.AllocMB, health.SysMB, health.NumGC)
	fmt.Fprintf(w, "Goroutines: %d\n", health.Goroutines)
}
