package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"shopsmart/internal/app"
	"shopsmart/internal/config"
	"shopsmart/internal/generator"
	"shopsmart/internal/history"
	"shopsmart/internal/logger"
	"shopsmart/internal/metrics"
	"shopsmart/internal/shopping"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := app.OpenBackend(cfg, zl)
	if err != nil {
		zl.Fatal("Failed to open storage", zap.Error(err))
	}
	defer backend.Close()

	client := generator.NewClient(cfg, generator.WithLogger(zl))
	store := history.NewStore(backend.KV, history.WithLogger(zl))
	ctrl := app.NewController(client, store, app.WithRecorder(backend.Recorder()), app.WithLogger(zl))

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "generate":
		err = runGenerate(ctx, ctrl, cfg, shopping.ModeShopping, args)
	case "menu":
		err = runGenerate(ctx, ctrl, cfg, shopping.ModeMenu, args)
	case "history":
		printHistory(os.Stdout, ctrl.History(ctx))
	case "show":
		err = runShow(ctx, ctrl, args)
	case "delete":
		err = runDelete(ctx, ctrl, args)
	case "clear":
		ctrl.ClearHistory(ctx)
		fmt.Println("History cleared.")
	case "health":
		if !ctrl.CheckAvailability(ctx) {
			fmt.Printf("❌ %s is unavailable\n", cfg.APIURL)
			os.Exit(1)
		}
		fmt.Printf("✅ %s is available\n", cfg.APIURL)
	case "catalog":
		printCatalog(os.Stdout)
	case "metrics":
		err = runMetrics(ctx, backend.Metrics, args)
	case "metrics-cleanup":
		err = runMetricsCleanup(ctx, backend.Metrics, args)
	case "status":
		printStatus(os.Stdout, cfg, ctrl.CheckAvailability(ctx), len(ctrl.History(ctx)), metrics.GetSysHealth(cfg.DataDir))
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		zl.Sync()
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func runGenerate(ctx context.Context, ctrl *app.Controller, cfg *config.Config, mode shopping.Mode, args []string) error {
	fs := flag.NewFlagSet(string(mode), flag.ExitOnError)
	stores := fs.String("stores", "", "Comma separated supermarkets, e.g. Lidl,Aldi")
	budget := fs.Float64("budget", 0, "Budget in euros")
	family := fs.Int("family", shopping.DefaultFamilySize, "Family size")
	prefs := fs.String("prefs", "", "Free text preferences")
	presets := fs.String("presets", "", "Comma separated preference presets (see catalog)")
	lang := fs.String("lang", cfg.Language, "Response language")
	sortBy := fs.String("sort", "", "List items flat, sorted by store, category or price")
	asJSON := fs.Bool("json", false, "Print the raw result as JSON")
	asText := fs.Bool("text", false, "Print the plain text export")
	days := new(int)
	if mode == shopping.ModeMenu {
		days = fs.Int("days", shopping.DefaultMenuDays, "Number of days to plan")
	}
	fs.Parse(args)

	in := shopping.UserInput{
		Supermarkets: splitList(*stores),
		Budget:       *budget,
		Preferences:  strings.TrimSpace(*prefs),
		FamilySize:   *family,
		Language:     *lang,
		Mode:         mode,
		Days:         *days,
	}.WithPresets(splitList(*presets)...)

	fmt.Fprintln(os.Stderr, "⏳ Generating...")
	res, err := ctrl.Submit(ctx, in)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			return err
		}
		if msg := ctrl.Snapshot().Error; msg != "" {
			return errors.New(msg)
		}
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	view, err := ctrl.View()
	if err != nil {
		return err
	}
	if *asText {
		fmt.Println(shopping.FormatText(view.Groups))
		return nil
	}
	printView(os.Stdout, view, res.Items, shopping.SortBy(*sortBy))
	return nil
}

func runShow(ctx context.Context, ctrl *app.Controller, args []string) error {
	id, err := resolveEntry(ctx, ctrl, args)
	if err != nil {
		return err
	}
	res, err := ctrl.LoadFromHistory(ctx, id)
	if err != nil {
		return err
	}
	view, err := ctrl.View()
	if err != nil {
		return err
	}
	printView(os.Stdout, view, res.Items, "")
	return nil
}

func runDelete(ctx context.Context, ctrl *app.Controller, args []string) error {
	id, err := resolveEntry(ctx, ctrl, args)
	if err != nil {
		return err
	}
	ctrl.DeleteHistory(ctx, id)
	fmt.Printf("Deleted %s.\n", id)
	return nil
}

// resolveEntry accepts a 1-based position from the history listing or an id.
func resolveEntry(ctx context.Context, ctrl *app.Controller, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("an entry number or id is required")
	}
	entries := ctrl.History(ctx)
	if n, err := strconv.Atoi(args[0]); err == nil {
		if n < 1 || n > len(entries) {
			return "", fmt.Errorf("entry %d does not exist, history has %d entries", n, len(entries))
		}
		return entries[n-1].ID, nil
	}
	for _, e := range entries {
		if e.ID == args[0] {
			return e.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", app.ErrEntryNotFound, args[0])
}

func runMetrics(ctx context.Context, store *metrics.Store, args []string) error {
	if store == nil {
		return fmt.Errorf("metrics are not kept with the %s backend", config.BackendMemory)
	}
	fs := flag.NewFlagSet("metrics", flag.ExitOnError)
	days := fs.Int("days", 7, "Number of days to report")
	fs.Parse(args)

	usage, err := store.GetDailyUsage(ctx, *days)
	if err != nil {
		return fmt.Errorf("failed to read metrics: %w", err)
	}
	printUsageReport(os.Stdout, usage)
	return nil
}

func runMetricsCleanup(ctx context.Context, store *metrics.Store, args []string) error {
	if store == nil {
		return fmt.Errorf("metrics are not kept with the %s backend", config.BackendMemory)
	}
	fs := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
	days := fs.Int("days", 30, "Keep records for the last N days")
	fs.Parse(args)

	affected, err := store.Cleanup(ctx, *days)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Printf("Successfully removed %d old metric records.\n", affected)
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printUsage() {
	fmt.Println("Usage: shopsmart <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  generate           Generate a shopping list (-stores, -budget, -family, -prefs, -presets)")
	fmt.Println("  menu               Generate a menu with its shopping list (same flags plus -days)")
	fmt.Println("  history            List saved results")
	fmt.Println("  show <n|id>        Show a saved result")
	fmt.Println("  delete <n|id>      Remove a saved result")
	fmt.Println("  clear              Remove all saved results")
	fmt.Println("  health             Check the generation service")
	fmt.Println("  catalog            List supermarkets, categories and preference presets")
	fmt.Println("  metrics            Show daily generation metrics")
	fmt.Println("  metrics-cleanup    Remove old metric records")
	fmt.Println("  status             Show configuration and process health")
}
