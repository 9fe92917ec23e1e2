// Package prefs holds the user's macro targets and plan-generation knobs,
// persisted as a singleton row.
package prefs

import (
	"time"

	"macro-meal-planner/internal/recipe"
)

// MacroTarget is one per-macro goal; disabled macros are ignored by the
// solver.
type MacroTarget struct {
	Enabled bool    `json:"enabled"`
	Value   float64 `json:"value"`
}

// MacroTargets maps each macro to its target.
type MacroTargets map[recipe.Macro]MacroTarget

// Preferences bundles macro targets with plan-generation settings.
type Preferences struct {
	MacroTargets             MacroTargets      `json:"macro_targets"`
	DefaultFrequency         int               `json:"default_frequency"`
	NumDays                  int               `json:"num_days"`
	IncludeSnacks            bool              `json:"include_snacks"`
	CombineLunchDinner       bool              `json:"combine_lunch_dinner"`
	PreferSimilarIngredients bool              `json:"prefer_similar_ingredients"`
	SelectedSlots            []recipe.Category `json:"selected_slots"`
	PriorityOrder            []recipe.Macro    `json:"priority_order"`
	UpdatedAt                time.Time         `json:"updated_at"`
}

// Default returns the preferences seeded for a new install.
func Default() Preferences {
	return Preferences{
		MacroTargets: MacroTargets{
			recipe.MacroCalories: {Enabled: true, Value: 2000},
			recipe.MacroProtein:  {Enabled: true, Value: 100},
			recipe.MacroFat:      {Enabled: false, Value: 70},
			recipe.MacroCarbs:    {Enabled: false, Value: 250},
			recipe.MacroFiber:    {Enabled: false, Value: 30},
		},
		DefaultFrequency: 3,
		NumDays:          7,
		SelectedSlots: []recipe.Category{
			recipe.CategoryBreakfast,
			recipe.CategoryLunch,
			recipe.CategoryDinner,
		},
		PriorityOrder: append([]recipe.Macro(nil), recipe.AllMacros...),
	}
}

// EnabledMacros returns the macros with an enabled positive target, in the
// canonical macro order.
func (p Preferences) EnabledMacros() []recipe.Macro {
	var result []recipe.Macro
	for _, m := range recipe.AllMacros {
		if t, ok := p.MacroTargets[m]; ok && t.Enabled && t.Value > 0 {
			result = append(result, m)
		}
	}
	return result
}

// PriorityRank returns the 1-based position of m in the priority order,
// falling back to the default order for macros missing from it.
func (p Preferences) PriorityRank(m recipe.Macro) int {
	for i, macro := range p.PriorityOrder {
		if macro == m {
			return i + 1
		}
	}
	for i, macro := range recipe.AllMacros {
		if macro == m {
			return i + 1
		}
	}
	return len(recipe.AllMacros)
}
