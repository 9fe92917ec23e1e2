// Package recipe defines the recipe entity, its meal-slot categories and
// macro fields, plus the protein classifier and the sqlite repository.
package recipe

import "time"

// Category is the meal slot a recipe belongs to.
type Category string

const (
	CategoryBreakfast Category = "breakfast"
	CategoryLunch     Category = "lunch"
	CategoryDinner    Category = "dinner"
	CategorySnack     Category = "snack"
	CategoryDessert   Category = "dessert"
)

// AllCategories lists the valid slot categories in display order.
var AllCategories = []Category{
	CategoryBreakfast,
	CategoryLunch,
	CategoryDinner,
	CategorySnack,
	CategoryDessert,
}

// ValidCategory reports whether c is one of the known meal categories.
func ValidCategory(c Category) bool {
	for _, v := range AllCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Source tags where a recipe came from.
type Source string

const (
	SourceNotion Source = "notion"
	SourceWeb    Source = "web"
	SourceManual Source = "manual"
)

// Macro names a tracked macronutrient.
type Macro string

const (
	MacroCalories Macro = "calories"
	MacroProtein  Macro = "protein"
	MacroFat      Macro = "fat"
	MacroCarbs    Macro = "carbs"
	MacroFiber    Macro = "fiber"
)

// AllMacros lists the five tracked macros in the default priority order.
var AllMacros = []Macro{MacroCalories, MacroProtein, MacroFat, MacroCarbs, MacroFiber}

// Recipe is the central entity. Macro fields are always present; zero is the
// missing-value sentinel.
type Recipe struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Category       Category   `json:"category"`
	Calories       float64    `json:"calories"`
	Protein        float64    `json:"protein"`
	Fat            float64    `json:"fat"`
	Carbs          float64    `json:"carbs"`
	Fiber          float64    `json:"fiber"`
	Ingredients    []string   `json:"ingredients"`
	Instructions   string     `json:"instructions,omitempty"`
	ImageURL       string     `json:"image_url,omitempty"`
	Source         Source     `json:"source"`
	SourceURL      string     `json:"source_url,omitempty"`
	NotionPageID   string     `json:"notion_page_id,omitempty"`
	Rating         *float64   `json:"rating,omitempty"`
	FrequencyLimit int        `json:"frequency_limit"`
	Servings       int        `json:"servings"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	SyncedAt       *time.Time `json:"synced_at,omitempty"`
}

// MacroValue returns the recipe's value for the named macro.
func (r Recipe) MacroValue(m Macro) float64 {
	switch m {
	case MacroCalories:
		return r.Calories
	case MacroProtein:
		return r.Protein
	case MacroFat:
		return r.Fat
	case MacroCarbs:
		return r.Carbs
	case MacroFiber:
		return r.Fiber
	}
	return 0
}

// EffectiveRating returns the rating used for plan scoring. Unrated recipes
// count as 5 so they incur no penalty.
func (r Recipe) EffectiveRating() float64 {
	if r.Rating == nil {
		return 5
	}
	return *r.Rating
}

// ApplyDefaults fills the defaulted fields of a freshly created recipe.
func (r *Recipe) ApplyDefaults() {
	if r.Category == "" {
		r.Category = CategoryDinner
	}
	if r.Source == "" {
		r.Source = SourceManual
	}
	if r.FrequencyLimit <= 0 {
		r.FrequencyLimit = 3
	}
	if r.Servings <= 0 {
		r.Servings = 1
	}
}
