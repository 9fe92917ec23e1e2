package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"macro-meal-planner/internal/dbx"
)

const recipeColumns = `id, name, category, calories, protein, fat, carbs, fiber,
	ingredients, instructions, image_url, source, source_url, notion_page_id,
	rating, frequency_limit, servings, created_at, updated_at, synced_at`

// Filter narrows List results. Zero values mean "no filter".
type Filter struct {
	Category Category
	Source   Source
	Search   string
}

// Repository is a database-backed repository for recipes.
type Repository struct {
	db dbx.DBTX
}

// NewRepository creates a new Repository bound to the given DBTX.
func NewRepository(db dbx.DBTX) *Repository {
	return &Repository{db: db}
}

// Insert stores a new recipe. An id is generated when absent; created_at and
// updated_at are stamped.
func (r *Repository) Insert(ctx context.Context, rec *Recipe) error {
	rec.ApplyDefaults()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	ingredientsJSON, err := json.Marshal(rec.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}

	query := `INSERT INTO recipes (` + recipeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.Name, rec.Category, rec.Calories, rec.Protein, rec.Fat, rec.Carbs, rec.Fiber,
		string(ingredientsJSON), rec.Instructions, rec.ImageURL, rec.Source, rec.SourceURL, rec.NotionPageID,
		nullFloat(rec.Rating), rec.FrequencyLimit, rec.Servings, rec.CreatedAt, rec.UpdatedAt, nullTime(rec.SyncedAt))
	if err != nil {
		return fmt.Errorf("failed to insert recipe: %w", err)
	}
	return nil
}

// Update rewrites a recipe row and touches updated_at.
func (r *Repository) Update(ctx context.Context, rec *Recipe) error {
	rec.UpdatedAt = time.Now().UTC()

	ingredientsJSON, err := json.Marshal(rec.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}

	query := `UPDATE recipes SET name=?, category=?, calories=?, protein=?, fat=?, carbs=?, fiber=?,
		ingredients=?, instructions=?, image_url=?, source=?, source_url=?, notion_page_id=?,
		rating=?, frequency_limit=?, servings=?, updated_at=?, synced_at=?
		WHERE id=?`
	res, err := r.db.ExecContext(ctx, query,
		rec.Name, rec.Category, rec.Calories, rec.Protein, rec.Fat, rec.Carbs, rec.Fiber,
		string(ingredientsJSON), rec.Instructions, rec.ImageURL, rec.Source, rec.SourceURL, rec.NotionPageID,
		nullFloat(rec.Rating), rec.FrequencyLimit, rec.Servings, rec.UpdatedAt, nullTime(rec.SyncedAt),
		rec.ID)
	if err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return fmt.Errorf("recipe %s not found", rec.ID)
	}
	return nil
}

// Overwrite replaces a local row with a server copy and stamps both
// updated_at and synced_at with syncedAt. Used by the sync pull path.
func (r *Repository) Overwrite(ctx context.Context, rec *Recipe, syncedAt time.Time) error {
	rec.SyncedAt = &syncedAt

	ingredientsJSON, err := json.Marshal(rec.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}

	query := `UPDATE recipes SET name=?, category=?, calories=?, protein=?, fat=?, carbs=?, fiber=?,
		ingredients=?, instructions=?, image_url=?, source=?, source_url=?, notion_page_id=?,
		rating=?, frequency_limit=?, servings=?, updated_at=?, synced_at=?
		WHERE id=?`
	_, err = r.db.ExecContext(ctx, query,
		rec.Name, rec.Category, rec.Calories, rec.Protein, rec.Fat, rec.Carbs, rec.Fiber,
		string(ingredientsJSON), rec.Instructions, rec.ImageURL, rec.Source, rec.SourceURL, rec.NotionPageID,
		nullFloat(rec.Rating), rec.FrequencyLimit, rec.Servings, syncedAt, syncedAt,
		rec.ID)
	if err != nil {
		return fmt.Errorf("failed to overwrite recipe: %w", err)
	}
	return nil
}

// SetSyncedAt stamps synced_at on a row without touching any other field.
func (r *Repository) SetSyncedAt(ctx context.Context, id string, t time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE recipes SET synced_at=? WHERE id=?`, t, id)
	if err != nil {
		return fmt.Errorf("failed to stamp synced_at: %w", err)
	}
	return nil
}

// Get retrieves a recipe by its ID. Returns (nil, nil) when not found.
func (r *Repository) Get(ctx context.Context, id string) (*Recipe, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE id=?`, id)
	rec, err := scanRecipe(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}
	return rec, nil
}

// GetByIDs retrieves multiple recipes by their IDs.
func (r *Repository) GetByIDs(ctx context.Context, ids []string) ([]Recipe, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE id IN (` + placeholders + `)`
	return r.queryRecipes(ctx, query, args...)
}

// List retrieves recipes matching the filter, newest-created first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE 1=1`
	var args []any
	if f.Category != "" {
		query += ` AND category=?`
		args = append(args, f.Category)
	}
	if f.Source != "" {
		query += ` AND source=?`
		args = append(args, f.Source)
	}
	if f.Search != "" {
		query += ` AND name LIKE ?`
		args = append(args, "%"+f.Search+"%")
	}
	query += ` ORDER BY created_at DESC`
	return r.queryRecipes(ctx, query, args...)
}

// UpdatedSince returns recipes edited after t that have not been synced since
// that edit.
func (r *Repository) UpdatedSince(ctx context.Context, t time.Time) ([]Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes
		WHERE updated_at > ? AND (synced_at IS NULL OR updated_at > synced_at)
		ORDER BY created_at DESC`
	return r.queryRecipes(ctx, query, t)
}

// PendingSync returns recipes with local changes not yet pushed to the server.
func (r *Repository) PendingSync(ctx context.Context) ([]Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes
		WHERE synced_at IS NULL OR updated_at > synced_at
		ORDER BY created_at DESC`
	return r.queryRecipes(ctx, query)
}

// Delete removes a recipe by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	return nil
}

// Count returns the number of recipes in the database.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return n, nil
}

func (r *Repository) queryRecipes(ctx context.Context, query string, args ...any) ([]Recipe, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select recipes: %w", err)
	}
	defer rows.Close()

	var result []Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (*Recipe, error) {
	var (
		rec             Recipe
		ingredientsJSON string
		rating          sql.NullFloat64
		syncedAt        sql.NullTime
	)
	err := row.Scan(
		&rec.ID, &rec.Name, &rec.Category, &rec.Calories, &rec.Protein, &rec.Fat, &rec.Carbs, &rec.Fiber,
		&ingredientsJSON, &rec.Instructions, &rec.ImageURL, &rec.Source, &rec.SourceURL, &rec.NotionPageID,
		&rating, &rec.FrequencyLimit, &rec.Servings, &rec.CreatedAt, &rec.UpdatedAt, &syncedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ingredientsJSON), &rec.Ingredients); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingredients for recipe %s: %w", rec.ID, err)
	}
	if rating.Valid {
		rec.Rating = &rating.Float64
	}
	if syncedAt.Valid {
		t := syncedAt.Time
		rec.SyncedAt = &t
	}
	return &rec, nil
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
