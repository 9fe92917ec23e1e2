package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"macro-meal-planner/internal/dbx"
	"macro-meal-planner/internal/recipe"
)

// planData is the persisted day-label → slot-name → recipe-id shape.
type planData map[string]map[string]string

// Repository persists meal plans. Recipes referenced by a plan are hydrated
// through the recipe repository on load.
type Repository struct {
	db      *sql.DB
	recipes *recipe.Repository
}

// NewRepository creates a new plan repository.
func NewRepository(db *sql.DB, recipes *recipe.Repository) *Repository {
	return &Repository{db: db, recipes: recipes}
}

// Insert stores a plan. An id is generated when absent.
func (r *Repository) Insert(ctx context.Context, plan *MealPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now

	data := make(planData, len(plan.Days))
	for _, day := range plan.Days {
		slots := make(map[string]string, len(day.Meals))
		for _, meal := range day.Meals {
			slots[string(meal.Slot)] = meal.Recipe.ID
		}
		data[day.Day] = slots
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal plan data: %w", err)
	}
	summaryJSON, err := json.Marshal(plan.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal macro summary: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO meal_plans (id, label, plan_data, macro_summary, selected, created_at, updated_at, synced_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.Label, string(dataJSON), string(summaryJSON), plan.Selected,
		plan.CreatedAt, plan.UpdatedAt, nullTime(plan.SyncedAt))
	if err != nil {
		return fmt.Errorf("failed to insert meal plan: %w", err)
	}
	return nil
}

// Update rewrites a plan row (used after a reroll) and touches updated_at.
func (r *Repository) Update(ctx context.Context, plan *MealPlan) error {
	plan.UpdatedAt = time.Now().UTC()

	data := make(planData, len(plan.Days))
	for _, day := range plan.Days {
		slots := make(map[string]string, len(day.Meals))
		for _, meal := range day.Meals {
			slots[string(meal.Slot)] = meal.Recipe.ID
		}
		data[day.Day] = slots
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal plan data: %w", err)
	}
	summaryJSON, err := json.Marshal(plan.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal macro summary: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE meal_plans SET label=?, plan_data=?, macro_summary=?, selected=?, updated_at=?, synced_at=?
		 WHERE id=?`,
		plan.Label, string(dataJSON), string(summaryJSON), plan.Selected,
		plan.UpdatedAt, nullTime(plan.SyncedAt), plan.ID)
	if err != nil {
		return fmt.Errorf("failed to update meal plan: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if ra == 0 {
		return fmt.Errorf("meal plan %s not found", plan.ID)
	}
	return nil
}

// Get retrieves a plan by id, hydrating its recipes. Returns (nil, nil) when
// not found.
func (r *Repository) Get(ctx context.Context, id string) (*MealPlan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, label, plan_data, macro_summary, selected, created_at, updated_at, synced_at
		 FROM meal_plans WHERE id=?`, id)
	plan, err := r.scanPlan(ctx, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get meal plan: %w", err)
	}
	return plan, nil
}

// List retrieves all plans, newest-created first.
func (r *Repository) List(ctx context.Context) ([]MealPlan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, label, plan_data, macro_summary, selected, created_at, updated_at, synced_at
		 FROM meal_plans ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans: %w", err)
	}
	defer rows.Close()

	var plans []MealPlan
	for rows.Next() {
		plan, err := r.scanPlan(ctx, rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return plans, nil
}

// GetSelected returns the currently selected plan, or (nil, nil).
func (r *Repository) GetSelected(ctx context.Context) (*MealPlan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, label, plan_data, macro_summary, selected, created_at, updated_at, synced_at
		 FROM meal_plans WHERE selected=1`)
	plan, err := r.scanPlan(ctx, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get selected meal plan: %w", err)
	}
	return plan, nil
}

// Select marks one plan as selected, clearing the flag everywhere else.
// At most one plan carries the flag at any time.
func (r *Repository) Select(ctx context.Context, id string) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `UPDATE meal_plans SET selected=0 WHERE selected=1`); err != nil {
			return fmt.Errorf("failed to clear selected flag: %w", err)
		}
		res, err := tx.ExecContext(ctx, `UPDATE meal_plans SET selected=1, updated_at=? WHERE id=?`,
			time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("failed to set selected flag: %w", err)
		}
		ra, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if ra == 0 {
			return fmt.Errorf("meal plan %s not found", id)
		}
		return nil
	})
}

// Delete removes a plan; derived shopping lists go with it via the foreign
// key cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM meal_plans WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete meal plan: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanPlan(ctx context.Context, row rowScanner) (*MealPlan, error) {
	var (
		plan        MealPlan
		dataJSON    string
		summaryJSON string
		syncedAt    sql.NullTime
	)
	err := row.Scan(&plan.ID, &plan.Label, &dataJSON, &summaryJSON, &plan.Selected,
		&plan.CreatedAt, &plan.UpdatedAt, &syncedAt)
	if err != nil {
		return nil, err
	}
	if syncedAt.Valid {
		t := syncedAt.Time
		plan.SyncedAt = &t
	}

	if err := json.Unmarshal([]byte(summaryJSON), &plan.Summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal macro summary for plan %s: %w", plan.ID, err)
	}

	var data planData
	if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan data for plan %s: %w", plan.ID, err)
	}

	days, err := r.hydrateDays(ctx, data)
	if err != nil {
		return nil, err
	}
	plan.Days = days
	return &plan, nil
}

// hydrateDays rebuilds ordered DayPlans from the persisted map, fetching the
// referenced recipes in one query. Meals whose recipe was deleted are
// dropped.
func (r *Repository) hydrateDays(ctx context.Context, data planData) ([]DayPlan, error) {
	idSet := make(map[string]struct{})
	for _, slots := range data {
		for _, id := range slots {
			idSet[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	fetched, err := r.recipes.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate plan recipes: %w", err)
	}
	byID := make(map[string]recipe.Recipe, len(fetched))
	for _, rec := range fetched {
		byID[rec.ID] = rec
	}

	labels := make([]string, 0, len(data))
	for label := range data {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		return dayLabelIndex(labels[i]) < dayLabelIndex(labels[j])
	})

	days := make([]DayPlan, 0, len(labels))
	for _, label := range labels {
		day := DayPlan{Day: label}
		for _, slot := range recipe.AllCategories {
			id, ok := data[label][string(slot)]
			if !ok {
				continue
			}
			rec, ok := byID[id]
			if !ok {
				continue
			}
			day.Meals = append(day.Meals, MealAssignment{Slot: slot, Recipe: rec})
		}
		fillDayTotals(&day)
		days = append(days, day)
	}
	return days, nil
}

// dayLabelIndex orders labels like "Day 2" numerically.
func dayLabelIndex(label string) int {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 0
	}
	return n
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
