// Package planner generates weekly meal plans from a recipe library and
// daily macro targets. The plan model is built declaratively, solved by a
// MILP backend at up to three feasibility tiers, and post-processed into
// immutable MealPlan values.
package planner

import (
	"time"

	"macro-meal-planner/internal/recipe"
)

// MealAssignment pairs a slot with the recipe filling it.
type MealAssignment struct {
	Slot   recipe.Category `json:"slot"`
	Recipe recipe.Recipe   `json:"recipe"`
}

// DayPlan is one day of a plan with cached daily totals.
type DayPlan struct {
	Day      string           `json:"day"`
	Meals    []MealAssignment `json:"meals"`
	Calories float64          `json:"calories"`
	Protein  float64          `json:"protein"`
	Fat      float64          `json:"fat"`
	Carbs    float64          `json:"carbs"`
}

// MacroSummary holds the plan's daily-average macros.
type MacroSummary struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
	Fiber    float64 `json:"fiber"`
}

// MealPlan represents a full generated meal plan.
type MealPlan struct {
	ID        string       `json:"id"`
	Label     string       `json:"label"`
	Days      []DayPlan    `json:"days"`
	Summary   MacroSummary `json:"summary"`
	Selected  bool         `json:"selected"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	SyncedAt  *time.Time   `json:"synced_at,omitempty"`
}

// RecipeIDs returns the set of recipe ids used anywhere in the plan.
func (p MealPlan) RecipeIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, day := range p.Days {
		for _, meal := range day.Meals {
			ids[meal.Recipe.ID] = struct{}{}
		}
	}
	return ids
}

// fillDayTotals recomputes the cached daily totals from the day's meals.
func fillDayTotals(day *DayPlan) {
	day.Calories, day.Protein, day.Fat, day.Carbs = 0, 0, 0, 0
	for _, meal := range day.Meals {
		day.Calories += meal.Recipe.Calories
		day.Protein += meal.Recipe.Protein
		day.Fat += meal.Recipe.Fat
		day.Carbs += meal.Recipe.Carbs
	}
}

// ComputeMacroSummary returns the daily-average macros over the given days.
// The same averages serve both freshly generated and rerolled plans.
func ComputeMacroSummary(days []DayPlan) MacroSummary {
	if len(days) == 0 {
		return MacroSummary{}
	}
	var s MacroSummary
	for _, day := range days {
		s.Calories += day.Calories
		s.Protein += day.Protein
		s.Fat += day.Fat
		s.Carbs += day.Carbs
		for _, meal := range day.Meals {
			s.Fiber += meal.Recipe.Fiber
		}
	}
	n := float64(len(days))
	s.Calories /= n
	s.Protein /= n
	s.Fat /= n
	s.Carbs /= n
	s.Fiber /= n
	return s
}
