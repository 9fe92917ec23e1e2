package shopping

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macro-meal-planner/internal/recipe"
)

func findItem(items []ShoppingItem, name string) *ShoppingItem {
	for i := range items {
		if items[i].Name == name {
			return &items[i]
		}
	}
	return nil
}

func TestBuildItems_MergesAcrossRecipes(t *testing.T) {
	a := recipe.Recipe{
		Name:        "Garlic Pasta",
		Servings:    1,
		Ingredients: []string{"1 clove garlic, minced", "8 oz spaghetti", "2 cups water"},
	}
	b := recipe.Recipe{
		Name:        "Garlic Chicken",
		Servings:    1,
		Ingredients: []string{"1 clove garlic, minced", "1 lb chicken breast"},
	}

	items := BuildItems([]recipe.Recipe{a, b})

	garlic := findItem(items, "garlic")
	require.NotNil(t, garlic)
	assert.InDelta(t, 2.0, garlic.Quantity, 1e-9)
	assert.Equal(t, "clove", garlic.Unit)
	assert.Equal(t, "produce", garlic.Category)

	// Staples are dropped.
	assert.Nil(t, findItem(items, "water"))
}

func TestBuildItems_ScalesByServings(t *testing.T) {
	rec := recipe.Recipe{
		Name:        "Big Batch Chili",
		Servings:    4,
		Ingredients: []string{"2 lbs ground beef", "1 can black beans"},
	}

	items := BuildItems([]recipe.Recipe{rec})

	beef := findItem(items, "ground beef")
	require.NotNil(t, beef)
	assert.InDelta(t, 0.5, beef.Quantity, 1e-9)
	assert.Equal(t, "lb", beef.Unit)

	beans := findItem(items, "black bean")
	require.NotNil(t, beans)
	assert.InDelta(t, 0.25, beans.Quantity, 1e-9)
	assert.Equal(t, "can", beans.Unit)
}

func TestBuildItems_RepeatedAssignmentCountsTwice(t *testing.T) {
	rec := recipe.Recipe{
		Name:        "Omelette",
		Servings:    1,
		Ingredients: []string{"2 large eggs"},
	}

	// The same recipe cooked on two days.
	items := BuildItems([]recipe.Recipe{rec, rec})

	eggs := findItem(items, "egg")
	require.NotNil(t, eggs)
	assert.InDelta(t, 4.0, eggs.Quantity, 1e-9)
}

func TestBuildItems_SortedAndOrderIndependent(t *testing.T) {
	recipes := []recipe.Recipe{
		{Name: "A", Servings: 1, Ingredients: []string{"1 cup rice", "1 onion, diced"}},
		{Name: "B", Servings: 2, Ingredients: []string{"2 cups rice", "1 lemon"}},
		{Name: "C", Servings: 1, Ingredients: []string{"3 cloves garlic"}},
	}

	forward := BuildItems(recipes)
	reversed := BuildItems([]recipe.Recipe{recipes[2], recipes[1], recipes[0]})

	require.Equal(t, len(forward), len(reversed))
	for i := range forward {
		assert.Equal(t, forward[i].Name, reversed[i].Name)
		assert.InDelta(t, forward[i].Quantity, reversed[i].Quantity, 1e-9)
		assert.Equal(t, forward[i].Unit, reversed[i].Unit)
		assert.Equal(t, forward[i].Category, reversed[i].Category)
	}

	// Alphabetical output.
	for i := 1; i < len(forward); i++ {
		assert.Less(t, forward[i-1].Name, forward[i].Name)
	}

	rice := findItem(forward, "rice")
	require.NotNil(t, rice)
	assert.InDelta(t, 2.0, rice.Quantity, 1e-9) // 1 + 2/2
}

func TestBuildItems_UnitAdoptionKeepsCategory(t *testing.T) {
	recipes := []recipe.Recipe{
		// First sighting parses with no unit.
		{Name: "A", Servings: 1, Ingredients: []string{"nutmeg"}},
		// Second sighting brings a unit; both sightings share the name and so
		// the category ("pantry", via the "nut" keyword).
		{Name: "B", Servings: 1, Ingredients: []string{"1 tsp nutmeg"}},
	}

	items := BuildItems(recipes)
	nutmeg := findItem(items, "nutmeg")
	require.NotNil(t, nutmeg)
	assert.InDelta(t, 2.0, nutmeg.Quantity, 1e-9)
	assert.Equal(t, "tsp", nutmeg.Unit)
	assert.Equal(t, "pantry", nutmeg.Category)
}

func TestBuildItems_RoundsToTwoDecimals(t *testing.T) {
	rec := recipe.Recipe{
		Name:        "Thirds",
		Servings:    3,
		Ingredients: []string{"1 cup flour"},
	}
	items := BuildItems([]recipe.Recipe{rec})
	flour := findItem(items, "flour")
	require.NotNil(t, flour)
	assert.InDelta(t, 0.33, flour.Quantity, 1e-9)
}

func TestFormatClipboard(t *testing.T) {
	items := []ShoppingItem{
		{Name: "garlic", Quantity: 2, Unit: "clove", Category: "produce"},
		{Name: "spaghetti", Quantity: 1, Unit: "lb", Category: "grains"},
		{Name: "chicken breast", Quantity: 1.5, Unit: "lb", Category: "protein", Checked: true},
	}

	out := FormatClipboard(items)

	assert.Contains(t, out, "--- GRAINS ---")
	assert.Contains(t, out, "--- PRODUCE ---")
	assert.Contains(t, out, "--- PROTEIN ---")
	assert.Contains(t, out, "[ ] garlic — 2 cloves")
	assert.Contains(t, out, "[ ] spaghetti — 1 lb")
	assert.Contains(t, out, "[x] chicken breast — 1.5 lbs")

	// Categories come out alphabetically.
	grains := strings.Index(out, "--- GRAINS ---")
	produce := strings.Index(out, "--- PRODUCE ---")
	protein := strings.Index(out, "--- PROTEIN ---")
	assert.Less(t, grains, produce)
	assert.Less(t, produce, protein)
}
