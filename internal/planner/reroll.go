package planner

import (
	"math"
	"math/rand"

	"macro-meal-planner/internal/recipe"
)

// Reroll tolerance window: candidates within these absolute macro deltas of
// the replaced recipe are treated as equivalent and drawn at random.
const (
	rerollCalorieTolerance = 100.0
	rerollProteinTolerance = 10.0
	rerollFatTolerance     = 10.0
	rerollCarbTolerance    = 10.0
)

// Reroller replaces a single meal slot in an existing plan. The random
// source is injected so tests can seed it.
type Reroller struct {
	rng *rand.Rand
}

// NewReroller creates a Reroller drawing from rng.
func NewReroller(rng *rand.Rand) *Reroller {
	return &Reroller{rng: rng}
}

// Reroll replaces the recipe at (dayIndex, slot) with a fresh one from the
// pool, swapping it in every day of the plan where the old recipe occupies
// that slot so block grouping stays intact. Day totals and the macro summary
// are recomputed. Returns (nil, nil) when the slot is empty or no candidate
// exists.
func (rr *Reroller) Reroll(plan MealPlan, pool []recipe.Recipe, dayIndex int, slot recipe.Category) (*MealPlan, *recipe.Recipe) {
	if dayIndex < 0 || dayIndex >= len(plan.Days) {
		return nil, nil
	}

	var old *recipe.Recipe
	for i := range plan.Days[dayIndex].Meals {
		if plan.Days[dayIndex].Meals[i].Slot == slot {
			old = &plan.Days[dayIndex].Meals[i].Recipe
			break
		}
	}
	if old == nil {
		return nil, nil
	}

	// Everything already on the plan is off-limits, including the recipe
	// being replaced.
	used := plan.RecipeIDs()

	var candidates []recipe.Recipe
	for _, r := range pool {
		if r.Category != slot {
			continue
		}
		if _, taken := used[r.ID]; taken {
			continue
		}
		candidates = append(candidates, r)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var inTolerance []recipe.Recipe
	for _, r := range candidates {
		if math.Abs(r.Calories-old.Calories) <= rerollCalorieTolerance &&
			math.Abs(r.Protein-old.Protein) <= rerollProteinTolerance &&
			math.Abs(r.Fat-old.Fat) <= rerollFatTolerance &&
			math.Abs(r.Carbs-old.Carbs) <= rerollCarbTolerance {
			inTolerance = append(inTolerance, r)
		}
	}

	var chosen recipe.Recipe
	if len(inTolerance) > 0 {
		chosen = inTolerance[rr.rng.Intn(len(inTolerance))]
	} else {
		chosen = closestByRelativeDrift(candidates, *old)
	}

	updated := clonePlan(plan)
	oldID := old.ID
	for di := range updated.Days {
		day := &updated.Days[di]
		for mi := range day.Meals {
			if day.Meals[mi].Slot == slot && day.Meals[mi].Recipe.ID == oldID {
				day.Meals[mi].Recipe = chosen
			}
		}
		fillDayTotals(day)
	}
	updated.Summary = ComputeMacroSummary(updated.Days)

	return &updated, &chosen
}

// closestByRelativeDrift picks the candidate minimizing the sum of squared
// relative macro deltas against the replaced recipe.
func closestByRelativeDrift(candidates []recipe.Recipe, old recipe.Recipe) recipe.Recipe {
	best := candidates[0]
	bestScore := math.Inf(1)
	for _, r := range candidates {
		score := relDelta(r.Calories, old.Calories) +
			relDelta(r.Protein, old.Protein) +
			relDelta(r.Fat, old.Fat) +
			relDelta(r.Carbs, old.Carbs)
		if score < bestScore {
			best, bestScore = r, score
		}
	}
	return best
}

func relDelta(newVal, oldVal float64) float64 {
	d := (newVal - oldVal) / math.Max(oldVal, 1)
	return d * d
}

// clonePlan deep-copies a plan so the caller's value stays untouched.
func clonePlan(plan MealPlan) MealPlan {
	cloned := plan
	cloned.Days = make([]DayPlan, len(plan.Days))
	for i, day := range plan.Days {
		d := day
		d.Meals = append([]MealAssignment(nil), day.Meals...)
		cloned.Days[i] = d
	}
	return cloned
}
