package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"macro-meal-planner/internal/prefs"
	"macro-meal-planner/internal/recipe"
	"macro-meal-planner/internal/solver"
)

// ErrEmptyCategory signals that an active slot has no compatible recipes;
// the generation result is an empty plan list.
var ErrEmptyCategory = errors.New("no compatible recipes for an active slot")

// DefaultNumPlans is how many alternative plans one generation call produces.
const DefaultNumPlans = 3

// SolveRecorder receives one record per solver invocation. Implementations
// must tolerate being nil-checked away.
type SolveRecorder interface {
	RecordSolve(kind string, planIndex, tier int, status string, numVars, numConstraints int, latency time.Duration)
}

// Generator drives the MILP backend to produce a handful of distinct plans.
type Generator struct {
	backend   solver.Solver
	timeLimit time.Duration
	recorder  SolveRecorder
	log       *slog.Logger
}

// NewGenerator creates a Generator. recorder may be nil.
func NewGenerator(backend solver.Solver, timeLimit time.Duration, recorder SolveRecorder) *Generator {
	return &Generator{
		backend:   backend,
		timeLimit: timeLimit,
		recorder:  recorder,
		log:       slog.Default(),
	}
}

// activeSlots intersects the selected slots with the valid set, defaulting
// to breakfast/lunch/dinner, and appends snack when enabled.
func activeSlots(p prefs.Preferences) []recipe.Category {
	var slots []recipe.Category
	for _, s := range p.SelectedSlots {
		if recipe.ValidCategory(s) {
			slots = append(slots, s)
		}
	}
	if len(slots) == 0 {
		slots = []recipe.Category{recipe.CategoryBreakfast, recipe.CategoryLunch, recipe.CategoryDinner}
	}
	if p.IncludeSnacks {
		present := false
		for _, s := range slots {
			if s == recipe.CategorySnack {
				present = true
				break
			}
		}
		if !present {
			slots = append(slots, recipe.CategorySnack)
		}
	}
	return slots
}

func clampDays(n int) int {
	if n < 1 {
		return 1
	}
	if n > 7 {
		return 7
	}
	return n
}

// tier describes one feasibility relaxation level.
type tier struct {
	number          int
	hardMacroBounds bool
	proteinCap      bool
}

// tiersFor returns the relaxation ladder for the given preferences.
func tiersFor(p prefs.Preferences) []tier {
	if p.PreferSimilarIngredients {
		return []tier{
			{number: 1, hardMacroBounds: true, proteinCap: true},
			{number: 2, hardMacroBounds: true, proteinCap: false},
			{number: 3, hardMacroBounds: false, proteinCap: false},
		}
	}
	return []tier{
		{number: 1, hardMacroBounds: true, proteinCap: false},
		{number: 3, hardMacroBounds: false, proteinCap: false},
	}
}

// GeneratePlans produces up to numPlans distinct meal plans. Plans are
// generated sequentially; each plan's recipes join the reuse-penalty set for
// the next. Returns ErrEmptyCategory (with an empty list) when some active
// slot has no compatible recipes.
func (g *Generator) GeneratePlans(ctx context.Context, recipes []recipe.Recipe, p prefs.Preferences, numPlans int) ([]MealPlan, error) {
	if numPlans <= 0 {
		numPlans = DefaultNumPlans
	}
	slots := activeSlots(p)
	numDays := clampDays(p.NumDays)

	targets := make(map[recipe.Macro]float64)
	for _, m := range p.EnabledMacros() {
		targets[m] = p.MacroTargets[m].Value
	}

	// Every active slot needs at least one compatible recipe, or the
	// exactly-one constraint can never hold.
	for _, slot := range slots {
		found := false
		for _, r := range recipes {
			if eligible(r, slot, p.CombineLunchDinner) {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrEmptyCategory, slot)
		}
	}

	used := make(map[string]struct{})
	var plans []MealPlan

	for i := 0; i < numPlans; i++ {
		plan, ok := g.solvePlan(ctx, recipes, p, targets, slots, numDays, used, i)
		if ctx.Err() != nil {
			return plans, ctx.Err()
		}
		if !ok {
			g.log.Warn("plan infeasible at every tier, skipping", "plan_index", i)
			continue
		}
		plans = append(plans, *plan)
		for id := range plan.RecipeIDs() {
			used[id] = struct{}{}
		}
	}

	return plans, nil
}

// solvePlan walks the tier ladder for a single plan index.
func (g *Generator) solvePlan(ctx context.Context, recipes []recipe.Recipe, p prefs.Preferences,
	targets map[recipe.Macro]float64, slots []recipe.Category, numDays int,
	used map[string]struct{}, planIndex int) (*MealPlan, bool) {

	for _, t := range tiersFor(p) {
		model := BuildModel(ModelInput{
			Recipes:         recipes,
			Targets:         targets,
			Preferences:     p,
			NumDays:         numDays,
			Slots:           slots,
			PreviouslyUsed:  used,
			HardMacroBounds: t.hardMacroBounds,
			ProteinCap:      t.proteinCap,
		})

		start := time.Now()
		sol, err := g.backend.Solve(ctx, model.Problem, g.timeLimit)
		latency := time.Since(start)
		if err != nil {
			return nil, false
		}

		if g.recorder != nil {
			g.recorder.RecordSolve("generate", planIndex, t.number, sol.Status.String(),
				model.Problem.NumVars(), model.Problem.NumConstraints(), latency)
		}

		if sol.Status != solver.StatusOptimal {
			g.log.Info("tier infeasible, relaxing",
				"plan_index", planIndex, "tier", t.number, "status", sol.Status.String())
			continue
		}

		plan := extractPlan(model, sol, recipes, slots, numDays, planIndex)
		return plan, true
	}
	return nil, false
}

// extractPlan turns a solved model into a MealPlan value.
func extractPlan(model *Model, sol *solver.Solution, recipes []recipe.Recipe,
	slots []recipe.Category, numDays, planIndex int) *MealPlan {

	assignments := model.Assignments(sol, numDays, slots)

	days := make([]DayPlan, 0, numDays)
	for d := 0; d < numDays; d++ {
		day := DayPlan{Day: fmt.Sprintf("Day %d", d+1)}
		for _, slot := range slots {
			ri, ok := assignments[d][slot]
			if !ok {
				continue
			}
			day.Meals = append(day.Meals, MealAssignment{Slot: slot, Recipe: recipes[ri]})
		}
		fillDayTotals(&day)
		days = append(days, day)
	}

	now := time.Now().UTC()
	return &MealPlan{
		ID:        uuid.NewString(),
		Label:     fmt.Sprintf("Plan %d", planIndex+1),
		Days:      days,
		Summary:   ComputeMacroSummary(days),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
