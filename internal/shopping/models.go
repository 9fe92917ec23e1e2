// Package shopping aggregates the ingredients of a meal plan into a grouped
// shopping list and persists lists per plan.
package shopping

import "time"

// ShoppingItem is one aggregated line of a shopping list.
type ShoppingItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`
	Checked  bool    `json:"checked"`
	Category string  `json:"category"`
}

// ShoppingList represents a shopping list derived from a meal plan.
type ShoppingList struct {
	ID         string         `json:"id"`
	MealPlanID string         `json:"meal_plan_id"`
	Items      []ShoppingItem `json:"items"`
	CreatedAt  time.Time      `json:"created_at"`
}
