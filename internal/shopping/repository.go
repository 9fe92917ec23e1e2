package shopping

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"macro-meal-planner/internal/dbx"
)

// Repository handles persistence of shopping lists.
type Repository struct {
	db dbx.DBTX
}

// NewRepository creates a new shopping list repository.
func NewRepository(db dbx.DBTX) *Repository {
	return &Repository{db: db}
}

// Insert creates a new shopping list for a plan.
func (r *Repository) Insert(ctx context.Context, list *ShoppingList) error {
	if list.ID == "" {
		list.ID = uuid.NewString()
	}
	if list.CreatedAt.IsZero() {
		list.CreatedAt = time.Now().UTC()
	}

	itemsJSON, err := json.Marshal(list.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal shopping list items: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO shopping_lists (id, meal_plan_id, items, created_at) VALUES (?, ?, ?, ?)`,
		list.ID, list.MealPlanID, string(itemsJSON), list.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert shopping list: %w", err)
	}
	return nil
}

// GetByMealPlanID retrieves the most recent shopping list for a meal plan.
// Returns (nil, nil) when none exists.
func (r *Repository) GetByMealPlanID(ctx context.Context, mealPlanID string) (*ShoppingList, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, meal_plan_id, items, created_at FROM shopping_lists
		 WHERE meal_plan_id=? ORDER BY created_at DESC LIMIT 1`, mealPlanID)

	var (
		list      ShoppingList
		itemsJSON string
	)
	if err := row.Scan(&list.ID, &list.MealPlanID, &itemsJSON, &list.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get shopping list by meal plan ID: %w", err)
	}

	if err := json.Unmarshal([]byte(itemsJSON), &list.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shopping list items: %w", err)
	}
	return &list, nil
}

// UpdateItems replaces the item set of a stored list (e.g. checked flags).
func (r *Repository) UpdateItems(ctx context.Context, listID string, items []ShoppingItem) error {
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal shopping list items: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE shopping_lists SET items=? WHERE id=?`, string(itemsJSON), listID)
	if err != nil {
		return fmt.Errorf("failed to update shopping list: %w", err)
	}
	return nil
}

// DeleteByMealPlanID deletes all shopping lists derived from a meal plan.
func (r *Repository) DeleteByMealPlanID(ctx context.Context, mealPlanID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM shopping_lists WHERE meal_plan_id=?`, mealPlanID)
	if err != nil {
		return fmt.Errorf("failed to delete shopping list: %w", err)
	}
	return nil
}
