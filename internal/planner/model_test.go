package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macro-meal-planner/internal/prefs"
	"macro-meal-planner/internal/recipe"
	"macro-meal-planner/internal/solver"
)

func testPrefs() prefs.Preferences {
	p := prefs.Default()
	p.NumDays = 2
	return p
}

func testRecipes() []recipe.Recipe {
	return []recipe.Recipe{
		{ID: "b1", Name: "Oatmeal", Category: recipe.CategoryBreakfast, Calories: 300, Protein: 20, Fat: 10, Carbs: 30, FrequencyLimit: 3, Servings: 1},
		{ID: "b2", Name: "Eggs", Category: recipe.CategoryBreakfast, Calories: 400, Protein: 25, Fat: 15, Carbs: 40, FrequencyLimit: 3, Servings: 1},
		{ID: "l1", Name: "Chicken Bowl", Category: recipe.CategoryLunch, Calories: 500, Protein: 30, Fat: 15, Carbs: 50, FrequencyLimit: 3, Servings: 1},
		{ID: "d1", Name: "Salmon Plate", Category: recipe.CategoryDinner, Calories: 600, Protein: 40, Fat: 20, Carbs: 60, FrequencyLimit: 3, Servings: 1},
	}
}

func TestBuildModel_VariablesOnlyForCompatibleSlots(t *testing.T) {
	in := ModelInput{
		Recipes:     testRecipes(),
		Targets:     map[recipe.Macro]float64{recipe.MacroCalories: 1500},
		Preferences: testPrefs(),
		NumDays:     2,
		Slots:       []recipe.Category{recipe.CategoryBreakfast, recipe.CategoryLunch, recipe.CategoryDinner},
	}
	m := BuildModel(in)

	// 4 recipes, each eligible for exactly its own slot, over 2 days.
	assert.Len(t, m.X, 8)
	_, crossSlot := m.X[assignKey{RecipeIdx: 0, Day: 0, Slot: recipe.CategoryDinner}]
	assert.False(t, crossSlot)
}

func TestBuildModel_CombineLunchDinnerOpensBothSlots(t *testing.T) {
	p := testPrefs()
	p.CombineLunchDinner = true
	in := ModelInput{
		Recipes:     testRecipes(),
		Targets:     map[recipe.Macro]float64{},
		Preferences: p,
		NumDays:     1,
		Slots:       []recipe.Category{recipe.CategoryLunch, recipe.CategoryDinner},
	}
	m := BuildModel(in)

	// Lunch and dinner recipes are now dual-eligible: 2 recipes x 2 slots.
	_, lunchAsDinner := m.X[assignKey{RecipeIdx: 2, Day: 0, Slot: recipe.CategoryDinner}]
	_, dinnerAsLunch := m.X[assignKey{RecipeIdx: 3, Day: 0, Slot: recipe.CategoryLunch}]
	assert.True(t, lunchAsDinner)
	assert.True(t, dinnerAsLunch)
}

func TestBuildModel_BlockSizeFromFirstRecipe(t *testing.T) {
	recipes := testRecipes()
	recipes[0].FrequencyLimit = 2
	in := ModelInput{
		Recipes:     recipes,
		Targets:     map[recipe.Macro]float64{},
		Preferences: testPrefs(),
		NumDays:     5,
		Slots:       []recipe.Category{recipe.CategoryBreakfast},
	}
	m := BuildModel(in)
	assert.Equal(t, 2, m.BlockSize)

	in.NumDays = 1
	m = BuildModel(in)
	assert.Equal(t, 1, m.BlockSize)
}

func TestBuildModel_ReuseAndRatingObjective(t *testing.T) {
	recipes := testRecipes()
	rating := 3.0
	recipes[0].Rating = &rating

	in := ModelInput{
		Recipes:        recipes,
		Targets:        map[recipe.Macro]float64{},
		Preferences:    testPrefs(),
		NumDays:        1,
		Slots:          []recipe.Category{recipe.CategoryBreakfast},
		PreviouslyUsed: map[string]struct{}{"b2": {}},
	}
	m := BuildModel(in)

	rated := m.X[assignKey{RecipeIdx: 0, Day: 0, Slot: recipe.CategoryBreakfast}]
	reused := m.X[assignKey{RecipeIdx: 1, Day: 0, Slot: recipe.CategoryBreakfast}]

	// Rated 3/5: penalty 8 * (5-3)/5.
	assert.InDelta(t, RatingWeight*2.0/5.0, m.Problem.ObjectiveCoeff(rated), 1e-9)
	// Reused and unrated: flat reuse penalty only.
	assert.InDelta(t, ReusePenalty, m.Problem.ObjectiveCoeff(reused), 1e-9)
}

func TestBuildModel_TierControlsConstraintCount(t *testing.T) {
	base := ModelInput{
		Recipes:     testRecipes(),
		Targets:     map[recipe.Macro]float64{recipe.MacroCalories: 1500, recipe.MacroProtein: 80},
		Preferences: testPrefs(),
		NumDays:     2,
		Slots:       []recipe.Category{recipe.CategoryBreakfast, recipe.CategoryLunch, recipe.CategoryDinner},
	}

	hard := base
	hard.HardMacroBounds = true
	soft := base
	soft.HardMacroBounds = false

	hardModel := BuildModel(hard)
	softModel := BuildModel(soft)

	// Hard bounds add two rows per enabled macro per day.
	require.Equal(t, hardModel.Problem.NumConstraints()-softModel.Problem.NumConstraints(), 2*2*2)
}

func TestBuildModel_ProteinCapOnlyAtStrictTier(t *testing.T) {
	p := testPrefs()
	p.PreferSimilarIngredients = true
	recipes := []recipe.Recipe{
		{ID: "d1", Name: "Chicken Curry", Category: recipe.CategoryDinner, FrequencyLimit: 3, Servings: 1},
		{ID: "d2", Name: "Beef Stew", Category: recipe.CategoryDinner, FrequencyLimit: 3, Servings: 1},
		{ID: "d3", Name: "Salmon Teriyaki", Category: recipe.CategoryDinner, FrequencyLimit: 3, Servings: 1},
	}
	base := ModelInput{
		Recipes:     recipes,
		Targets:     map[recipe.Macro]float64{},
		Preferences: p,
		NumDays:     1,
		Slots:       []recipe.Category{recipe.CategoryDinner},
	}

	capped := base
	capped.ProteinCap = true
	uncapped := base
	uncapped.ProteinCap = false

	// Three distinct protein categories with a cap of two adds one row.
	diff := BuildModel(capped).Problem.NumConstraints() - BuildModel(uncapped).Problem.NumConstraints()
	assert.Equal(t, 1, diff)
}

func TestMacroWeightFloor(t *testing.T) {
	assert.Equal(t, 1000.0, MacroWeight(1))
	assert.Equal(t, 800.0, MacroWeight(2))
	assert.Equal(t, 600.0, MacroWeight(3))
	assert.Equal(t, 400.0, MacroWeight(4))
	assert.Equal(t, 200.0, MacroWeight(5))
	assert.Equal(t, 200.0, MacroWeight(6))
}

func TestMaxDeviationScalesWithRank(t *testing.T) {
	assert.InDelta(t, 200.0, MaxDeviation(recipe.MacroCalories, 1), 1e-9)
	assert.InDelta(t, 300.0, MaxDeviation(recipe.MacroCalories, 2), 1e-9)
	assert.InDelta(t, 30.0, MaxDeviation(recipe.MacroProtein, 2), 1e-9)
	assert.InDelta(t, 60.0, MaxDeviation(recipe.MacroCarbs, 2), 1e-9)
}

func TestBuildModel_BlockConstraintsTieDays(t *testing.T) {
	in := ModelInput{
		Recipes:     testRecipes(),
		Targets:     map[recipe.Macro]float64{},
		Preferences: testPrefs(),
		NumDays:     2, // block size min(3, 2) = 2: one block
		Slots:       []recipe.Category{recipe.CategoryBreakfast},
	}
	m := BuildModel(in)
	require.Equal(t, 2, m.BlockSize)

	// Count equality rows linking day 1 to day 0.
	ties := 0
	for _, c := range m.Problem.Constraints() {
		if c.Sense == solver.EQ && c.RHS == 0 && len(c.Terms) == 2 &&
			c.Terms[0].Coeff == 1 && c.Terms[1].Coeff == -1 {
			ties++
		}
	}
	// Two breakfast-eligible recipes, one slot, one tied day.
	assert.Equal(t, 2, ties)
}
