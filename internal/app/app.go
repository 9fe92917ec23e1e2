// Package app wires the repositories and engines together and exposes the
// operations the CLI drives: generate plans, reroll a meal, build a shopping
// list, and sync.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"macro-meal-planner/internal/config"
	"macro-meal-planner/internal/database"
	"macro-meal-planner/internal/importer"
	"macro-meal-planner/internal/metrics"
	"macro-meal-planner/internal/planner"
	"macro-meal-planner/internal/prefs"
	"macro-meal-planner/internal/recipe"
	"macro-meal-planner/internal/shopping"
	"macro-meal-planner/internal/solver"
	"macro-meal-planner/internal/sync"
)

// ErrNoSelectedPlan is returned by operations that need a selected plan.
var ErrNoSelectedPlan = errors.New("no plan selected")

// App holds the application's dependencies.
type App struct {
	cfg *config.Config
	db  *database.DB

	recipeRepo   *recipe.Repository
	planRepo     *planner.Repository
	prefsRepo    *prefs.Repository
	shoppingRepo *shopping.Repository
	stateRepo    *sync.StateRepository
	metricsStore *metrics.Store

	generator     *planner.Generator
	reroller      *planner.Reroller
	recipeImport  *importer.Importer
	newSyncClient func(baseURL, token string) sync.RemoteClient
}

// New creates and initializes an App instance. The MILP backend is created
// once and shared by every generation call.
func New(cfg *config.Config, db *database.DB) *App {
	recipeRepo := recipe.NewRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)

	return &App{
		cfg:          cfg,
		db:           db,
		recipeRepo:   recipeRepo,
		planRepo:     planner.NewRepository(db.SQL, recipeRepo),
		prefsRepo:    prefs.NewRepository(db.SQL),
		shoppingRepo: shopping.NewRepository(db.SQL),
		stateRepo:    sync.NewStateRepository(db.SQL),
		metricsStore: metricsStore,
		generator:    planner.NewGenerator(solver.NewBranchAndBound(), cfg.SolveTimeLimit, metricsStore),
		reroller:     planner.NewReroller(rand.New(rand.NewSource(time.Now().UnixNano()))),
		recipeImport: importer.New(),
		newSyncClient: func(baseURL, token string) sync.RemoteClient {
			return sync.NewClient(baseURL, token)
		},
	}
}

// Recipes returns the recipe repository for read paths in the CLI.
func (a *App) Recipes() *recipe.Repository { return a.recipeRepo }

// Plans returns the plan repository for read paths in the CLI.
func (a *App) Plans() *planner.Repository { return a.planRepo }

// Preferences returns the preferences repository.
func (a *App) Preferences() *prefs.Repository { return a.prefsRepo }

// Metrics returns the metrics store.
func (a *App) Metrics() *metrics.Store { return a.metricsStore }

// GeneratePlans runs the solver over the full recipe library. Freshly
// generated plans replace any unselected ones so plan ids stay referencable
// between CLI invocations; a selected plan is never discarded.
func (a *App) GeneratePlans(ctx context.Context) ([]planner.MealPlan, error) {
	p, err := a.prefsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	recipes, err := a.recipeRepo.List(ctx, recipe.Filter{})
	if err != nil {
		return nil, err
	}
	if len(recipes) == 0 {
		return nil, fmt.Errorf("%w: the recipe library is empty", planner.ErrEmptyCategory)
	}

	plans, err := a.generator.GeneratePlans(ctx, recipes, p, a.cfg.NumPlans)
	if err != nil {
		return plans, err
	}

	existing, err := a.planRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, old := range existing {
		if old.Selected {
			continue
		}
		if err := a.planRepo.Delete(ctx, old.ID); err != nil {
			return nil, err
		}
	}
	for i := range plans {
		if err := a.planRepo.Insert(ctx, &plans[i]); err != nil {
			return nil, err
		}
	}
	return plans, nil
}

// SelectPlan marks a plan as the active one.
func (a *App) SelectPlan(ctx context.Context, planID string) error {
	return a.planRepo.Select(ctx, planID)
}

// RerollMeal replaces one meal of a stored plan, preserving block grouping,
// and persists the updated plan. Returns the updated plan and the recipe
// that was swapped in, or (nil, nil) when no candidate exists.
func (a *App) RerollMeal(ctx context.Context, planID string, dayIndex int, slot recipe.Category) (*planner.MealPlan, *recipe.Recipe, error) {
	plan, err := a.planRepo.Get(ctx, planID)
	if err != nil {
		return nil, nil, err
	}
	if plan == nil {
		return nil, nil, fmt.Errorf("meal plan %s not found", planID)
	}

	pool, err := a.recipeRepo.List(ctx, recipe.Filter{})
	if err != nil {
		return nil, nil, err
	}

	updated, chosen := a.reroller.Reroll(*plan, pool, dayIndex, slot)
	if updated == nil {
		return nil, nil, nil
	}

	if err := a.planRepo.Update(ctx, updated); err != nil {
		return nil, nil, err
	}
	// The stored shopping list no longer matches the plan.
	if err := a.shoppingRepo.DeleteByMealPlanID(ctx, updated.ID); err != nil {
		return nil, nil, err
	}
	return updated, chosen, nil
}

// GenerateShoppingList aggregates the selected plan's ingredients and
// persists the result, replacing any previous list for that plan.
func (a *App) GenerateShoppingList(ctx context.Context) (*shopping.ShoppingList, error) {
	plan, err := a.planRepo.GetSelected(ctx)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrNoSelectedPlan
	}

	var assigned []recipe.Recipe
	for _, day := range plan.Days {
		for _, meal := range day.Meals {
			assigned = append(assigned, meal.Recipe)
		}
	}

	list := &shopping.ShoppingList{
		MealPlanID: plan.ID,
		Items:      shopping.BuildItems(assigned),
	}

	if err := a.shoppingRepo.DeleteByMealPlanID(ctx, plan.ID); err != nil {
		return nil, err
	}
	if err := a.shoppingRepo.Insert(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Login stores server credentials for sync.
func (a *App) Login(ctx context.Context, email, token string) error {
	state, err := a.stateRepo.Get(ctx)
	if err != nil {
		return err
	}
	state.Email = email
	state.ServerToken = token
	return a.stateRepo.Save(ctx, state)
}

// Logout wipes stored credentials and sync history.
func (a *App) Logout(ctx context.Context) error {
	return a.stateRepo.Clear(ctx)
}

// reconciler builds a Reconciler against the configured server using the
// stored credentials. The client stays nil when either is missing, which the
// reconciler reports as a login error.
func (a *App) reconciler(ctx context.Context) (*sync.Reconciler, error) {
	state, err := a.stateRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	var client sync.RemoteClient
	if a.cfg.ServerURL != "" && state.LoggedIn() {
		client = a.newSyncClient(a.cfg.ServerURL, state.ServerToken)
	}
	return sync.NewReconciler(a.recipeRepo, a.prefsRepo, a.stateRepo, client), nil
}

// Sync runs the two-way merge and records its outcome.
func (a *App) Sync(ctx context.Context) sync.Result {
	rec, err := a.reconciler(ctx)
	if err != nil {
		return sync.Result{Err: err}
	}

	start := time.Now()
	result := rec.Sync(ctx)

	status := "ok"
	if result.Err != nil {
		status = "error"
	}
	a.metricsStore.RecordSolve("sync", 0, 0, status, 0, 0, time.Since(start))
	return result
}

// ResolveConflict settles a sync conflict for one recipe id by re-fetching
// the server copy and applying the caller's choice.
func (a *App) ResolveConflict(ctx context.Context, recipeID string, keep sync.Keep) error {
	rec, err := a.reconciler(ctx)
	if err != nil {
		return err
	}

	local, err := a.recipeRepo.Get(ctx, recipeID)
	if err != nil {
		return err
	}
	if local == nil {
		return fmt.Errorf("recipe %s not found locally", recipeID)
	}

	state, err := a.stateRepo.Get(ctx)
	if err != nil {
		return err
	}
	if a.cfg.ServerURL == "" || !state.LoggedIn() {
		return sync.ErrNotLoggedIn
	}
	client := a.newSyncClient(a.cfg.ServerURL, state.ServerToken)
	serverRecipes, err := client.FetchRecipes(ctx)
	if err != nil {
		return err
	}
	for _, server := range serverRecipes {
		if server.ID == recipeID {
			return rec.Resolve(ctx, sync.Conflict{Local: *local, Server: server}, keep)
		}
	}
	return fmt.Errorf("recipe %s not found on server", recipeID)
}

// ImportRecipe scrapes a recipe page and stores the result.
func (a *App) ImportRecipe(ctx context.Context, url string) (*recipe.Recipe, error) {
	rec, err := a.recipeImport.Import(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := a.recipeRepo.Insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
