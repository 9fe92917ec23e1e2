package shopping

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"macro-meal-planner/internal/ingredient"
	"macro-meal-planner/internal/recipe"
)

// skipNames are normalized ingredient names dropped from shopping lists:
// staples nobody buys off a meal plan.
var skipNames = map[string]struct{}{
	"water":         {},
	"ice":           {},
	"salt":          {},
	"pepper":        {},
	"salt pepper":   {},
	"black pepper":  {},
	"kosher salt":   {},
	"sea salt":      {},
	"cooking spray": {},
}

// aggregated is the merge value for one normalized name.
type aggregated struct {
	quantity float64
	unit     string
	category string
}

// BuildItems collapses the ingredients of every assigned recipe into sorted,
// merged shopping items. The input is the flattened (day, slot) traversal of
// a plan; a recipe appearing in several slots contributes once per
// appearance. Quantities are scaled by 1/servings.
//
// Aggregation is keyed on the normalized name, so the result is independent
// of traversal order.
func BuildItems(assigned []recipe.Recipe) []ShoppingItem {
	merged := make(map[string]*aggregated)

	for _, rec := range assigned {
		servings := rec.Servings
		if servings < 1 {
			servings = 1
		}
		scale := 1.0 / float64(servings)

		for _, line := range rec.Ingredients {
			parsed := ingredient.Parse(line)
			if parsed.Name == "" {
				// Parser gave up; drop the line silently.
				continue
			}

			entry, ok := merged[parsed.Name]
			if !ok {
				merged[parsed.Name] = &aggregated{
					quantity: parsed.Quantity * scale,
					unit:     parsed.Unit,
					category: parsed.Category,
				}
				continue
			}

			entry.quantity += parsed.Quantity * scale
			// First non-empty unit wins; no unit conversion.
			if entry.unit == "" {
				entry.unit = parsed.Unit
			}
			// A specific category upgrades "other".
			if entry.category == ingredient.CategoryOther && parsed.Category != ingredient.CategoryOther {
				entry.category = parsed.Category
			}
		}
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		if _, skip := skipNames[name]; skip {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]ShoppingItem, 0, len(names))
	for _, name := range names {
		entry := merged[name]
		items = append(items, ShoppingItem{
			ID:       uuid.NewString(),
			Name:     name,
			Quantity: round2(entry.quantity),
			Unit:     entry.unit,
			Category: entry.category,
		})
	}
	return items
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
