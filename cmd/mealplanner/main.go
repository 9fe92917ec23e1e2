package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"macro-meal-planner/internal/app"
	"macro-meal-planner/internal/config"
	"macro-meal-planner/internal/database"
	"macro-meal-planner/internal/planner"
	"macro-meal-planner/internal/recipe"
	"macro-meal-planner/internal/shopping"
	"macro-meal-planner/internal/sync"
)

func main() {
	ctx := context.Background()

	// A .env file is optional; environment variables win.
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	application := app.New(cfg, db)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		runGenerate(ctx, application)
	case "plans":
		runPlans(ctx, application)
	case "select":
		requireArgs(3, "select <plan-id>")
		if err := application.SelectPlan(ctx, os.Args[2]); err != nil {
			log.Fatalf("Select failed: %v", err)
		}
		fmt.Println("Plan selected.")
	case "reroll":
		runReroll(ctx, application)
	case "shopping":
		runShopping(ctx, application)
	case "sync":
		runSync(ctx, application)
	case "resolve":
		requireArgs(4, "resolve <recipe-id> <local|server>")
		keep := sync.Keep(os.Args[3])
		if keep != sync.KeepLocal && keep != sync.KeepServer {
			log.Fatalf("Keep must be 'local' or 'server', got %q", os.Args[3])
		}
		if err := application.ResolveConflict(ctx, os.Args[2], keep); err != nil {
			log.Fatalf("Resolve failed: %v", err)
		}
		fmt.Println("Conflict resolved.")
	case "import":
		requireArgs(3, "import <url>")
		rec, err := application.ImportRecipe(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		fmt.Printf("Imported \"%s\" (%d ingredients) as %s\n", rec.Name, len(rec.Ingredients), rec.ID)
	case "recipes":
		runRecipes(ctx, application)
	case "login":
		requireArgs(4, "login <email> <server-token>")
		if err := application.Login(ctx, os.Args[2], os.Args[3]); err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		fmt.Println("Credentials stored.")
	case "logout":
		if err := application.Logout(ctx); err != nil {
			log.Fatalf("Logout failed: %v", err)
		}
		fmt.Println("Logged out.")
	case "stats":
		runStats(ctx, application)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func requireArgs(n int, usage string) {
	if len(os.Args) < n {
		fmt.Printf("Usage: mealplanner %s\n", usage)
		os.Exit(1)
	}
}

func runGenerate(ctx context.Context, application *app.App) {
	plans, err := application.GeneratePlans(ctx)
	if errors.Is(err, planner.ErrEmptyCategory) {
		log.Printf("Warning: %v", err)
		fmt.Println("No plans generated.")
		return
	}
	if err != nil {
		log.Fatalf("Generation failed: %v", err)
	}
	if len(plans) == 0 {
		fmt.Println("No feasible plans found.")
		return
	}
	for _, plan := range plans {
		printPlan(plan)
	}
	fmt.Println("Run 'mealplanner select <plan-id>' to keep one.")
}

func runPlans(ctx context.Context, application *app.App) {
	plans, err := application.Plans().List(ctx)
	if err != nil {
		log.Fatalf("Failed to list plans: %v", err)
	}
	if len(plans) == 0 {
		fmt.Println("No stored plans.")
		return
	}
	for _, plan := range plans {
		marker := " "
		if plan.Selected {
			marker = "*"
		}
		fmt.Printf("%s %s  %s  (%d days, %.0f kcal/day)\n", marker, plan.ID, plan.Label, len(plan.Days), plan.Summary.Calories)
	}
}

func runReroll(ctx context.Context, application *app.App) {
	requireArgs(5, "reroll <plan-id> <day-number> <slot>")
	dayNumber, err := strconv.Atoi(os.Args[3])
	if err != nil || dayNumber < 1 {
		log.Fatalf("Day must be a positive number, got %q", os.Args[3])
	}
	slot := recipe.Category(os.Args[4])
	if !recipe.ValidCategory(slot) {
		log.Fatalf("Unknown slot %q", os.Args[4])
	}

	plan, chosen, err := application.RerollMeal(ctx, os.Args[2], dayNumber-1, slot)
	if err != nil {
		log.Fatalf("Reroll failed: %v", err)
	}
	if plan == nil {
		fmt.Println("No replacement candidate available.")
		return
	}
	fmt.Printf("Swapped in \"%s\".\n\n", chosen.Name)
	printPlan(*plan)
}

func runShopping(ctx context.Context, application *app.App) {
	copyFormat := flag.NewFlagSet("shopping", flag.ExitOnError)
	asClipboard := copyFormat.Bool("copy", false, "Print in clipboard format grouped by category")
	_ = copyFormat.Parse(os.Args[2:])

	list, err := application.GenerateShoppingList(ctx)
	if errors.Is(err, app.ErrNoSelectedPlan) {
		fmt.Println("Select a plan first: 'mealplanner select <plan-id>'.")
		return
	}
	if err != nil {
		log.Fatalf("Shopping list failed: %v", err)
	}

	if *asClipboard {
		fmt.Print(shopping.FormatClipboard(list.Items))
		return
	}
	fmt.Printf("Shopping list for plan %s (%d items):\n", list.MealPlanID, len(list.Items))
	for _, item := range list.Items {
		if item.Unit != "" {
			fmt.Printf("- %s: %g %s (%s)\n", item.Name, item.Quantity, item.Unit, item.Category)
		} else {
			fmt.Printf("- %s: %g (%s)\n", item.Name, item.Quantity, item.Category)
		}
	}
}

func runSync(ctx context.Context, application *app.App) {
	result := application.Sync(ctx)
	if errors.Is(result.Err, sync.ErrNotLoggedIn) {
		fmt.Println("Not logged in. Run 'mealplanner login <email> <server-token>' and set MEALPLANNER_SERVER_URL.")
		return
	}
	if result.Err != nil {
		log.Fatalf("Sync failed: %v", result.Err)
	}

	fmt.Printf("Sync complete: pulled %d, pushed %d.\n", result.Pulled, result.Pushed)
	if len(result.Conflicts) > 0 {
		fmt.Printf("%d conflict(s) need resolution:\n", len(result.Conflicts))
		for _, c := range result.Conflicts {
			fmt.Printf("- %s: local \"%s\" vs server \"%s\"\n", c.Local.ID, c.Local.Name, c.Server.Name)
		}
		fmt.Println("Resolve with 'mealplanner resolve <recipe-id> local|server'.")
	}
}

func runRecipes(ctx context.Context, application *app.App) {
	listCmd := flag.NewFlagSet("recipes", flag.ExitOnError)
	category := listCmd.String("category", "", "Filter by meal category")
	search := listCmd.String("search", "", "Filter by name substring")
	_ = listCmd.Parse(os.Args[2:])

	recipes, err := application.Recipes().List(ctx, recipe.Filter{
		Category: recipe.Category(*category),
		Search:   *search,
	})
	if err != nil {
		log.Fatalf("Failed to list recipes: %v", err)
	}
	for _, r := range recipes {
		fmt.Printf("%s  %-10s %-30s %4.0f kcal  %3.0fP %3.0fF %3.0fC\n",
			r.ID, r.Category, r.Name, r.Calories, r.Protein, r.Fat, r.Carbs)
	}
	fmt.Printf("%d recipe(s).\n", len(recipes))
}

func runStats(ctx context.Context, application *app.App) {
	summary, err := application.Metrics().Summary(ctx, 30)
	if err != nil {
		log.Fatalf("Failed to read metrics: %v", err)
	}
	if len(summary) == 0 {
		fmt.Println("No recorded activity in the last 30 days.")
		return
	}
	for _, s := range summary {
		fmt.Printf("%-10s %-12s %4d run(s)  avg %.0f ms\n", s.Kind, s.Status, s.Count, s.AvgLatencyMS)
	}
}

func printPlan(plan planner.MealPlan) {
	fmt.Printf("=== %s (%s) ===\n", plan.Label, plan.ID)
	for _, day := range plan.Days {
		fmt.Printf("%s — %.0f kcal, %.0fP/%.0fF/%.0fC\n", day.Day, day.Calories, day.Protein, day.Fat, day.Carbs)
		for _, meal := range day.Meals {
			fmt.Printf("  %-10s %s\n", meal.Slot+":", meal.Recipe.Name)
		}
	}
	fmt.Printf("Daily average: %.0f kcal, %.0fP/%.0fF/%.0fC/%.1f fiber\n\n",
		plan.Summary.Calories, plan.Summary.Protein, plan.Summary.Fat, plan.Summary.Carbs, plan.Summary.Fiber)
}

func printUsage() {
	fmt.Println("Usage: mealplanner <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  generate                          Generate meal plan alternatives")
	fmt.Println("  plans                             List stored plans")
	fmt.Println("  select <plan-id>                  Mark a plan as the active one")
	fmt.Println("  reroll <plan-id> <day> <slot>     Replace one meal of a plan")
	fmt.Println("  shopping [--copy]                 Build the selected plan's shopping list")
	fmt.Println("  sync                              Two-way sync with the recipe server")
	fmt.Println("  resolve <recipe-id> local|server  Resolve a sync conflict")
	fmt.Println("  import <url>                      Import a recipe from a web page")
	fmt.Println("  recipes [--category] [--search]   List the recipe library")
	fmt.Println("  login <email> <server-token>      Store sync credentials")
	fmt.Println("  logout                            Clear sync credentials")
	fmt.Println("  stats                             Show solver/sync activity")
}
