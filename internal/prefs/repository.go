package prefs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"macro-meal-planner/internal/dbx"
)

// Repository reads and writes the preferences singleton (row id = 1).
type Repository struct {
	db dbx.DBTX
}

// NewRepository creates a new preferences repository.
func NewRepository(db dbx.DBTX) *Repository {
	return &Repository{db: db}
}

// Get loads the stored preferences, falling back to defaults for fields the
// seeded row leaves empty.
func (r *Repository) Get(ctx context.Context) (Preferences, error) {
	row := r.db.QueryRowContext(ctx, `SELECT macro_targets, default_frequency, num_days,
		include_snacks, combine_lunch_dinner, prefer_similar_ingredients,
		selected_slots, priority_order, updated_at
		FROM preferences WHERE id = 1`)

	var (
		p            Preferences
		targetsJSON  string
		slotsJSON    string
		priorityJSON string
	)
	err := row.Scan(&targetsJSON, &p.DefaultFrequency, &p.NumDays,
		&p.IncludeSnacks, &p.CombineLunchDinner, &p.PreferSimilarIngredients,
		&slotsJSON, &priorityJSON, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Default(), nil
		}
		return Preferences{}, fmt.Errorf("failed to load preferences: %w", err)
	}

	if err := json.Unmarshal([]byte(targetsJSON), &p.MacroTargets); err != nil {
		return Preferences{}, fmt.Errorf("failed to unmarshal macro targets: %w", err)
	}
	if err := json.Unmarshal([]byte(slotsJSON), &p.SelectedSlots); err != nil {
		return Preferences{}, fmt.Errorf("failed to unmarshal selected slots: %w", err)
	}
	if err := json.Unmarshal([]byte(priorityJSON), &p.PriorityOrder); err != nil {
		return Preferences{}, fmt.Errorf("failed to unmarshal priority order: %w", err)
	}

	defaults := Default()
	if len(p.MacroTargets) == 0 {
		p.MacroTargets = defaults.MacroTargets
	}
	if len(p.SelectedSlots) == 0 {
		p.SelectedSlots = defaults.SelectedSlots
	}
	if len(p.PriorityOrder) == 0 {
		p.PriorityOrder = defaults.PriorityOrder
	}
	if p.NumDays < 1 {
		p.NumDays = defaults.NumDays
	}
	if p.DefaultFrequency < 1 {
		p.DefaultFrequency = defaults.DefaultFrequency
	}
	return p, nil
}

// Save stores the preferences singleton.
func (r *Repository) Save(ctx context.Context, p Preferences) error {
	targetsJSON, err := json.Marshal(p.MacroTargets)
	if err != nil {
		return fmt.Errorf("failed to marshal macro targets: %w", err)
	}
	slotsJSON, err := json.Marshal(p.SelectedSlots)
	if err != nil {
		return fmt.Errorf("failed to marshal selected slots: %w", err)
	}
	priorityJSON, err := json.Marshal(p.PriorityOrder)
	if err != nil {
		return fmt.Errorf("failed to marshal priority order: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `UPDATE preferences SET macro_targets=?,
		default_frequency=?, num_days=?, include_snacks=?, combine_lunch_dinner=?,
		prefer_similar_ingredients=?, selected_slots=?, priority_order=?, updated_at=?
		WHERE id = 1`,
		string(targetsJSON), p.DefaultFrequency, p.NumDays,
		p.IncludeSnacks, p.CombineLunchDinner, p.PreferSimilarIngredients,
		string(slotsJSON), string(priorityJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// Clear resets preferences to the defaults.
func (r *Repository) Clear(ctx context.Context) error {
	return r.Save(ctx, Default())
}
