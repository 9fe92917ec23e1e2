package recipe

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"macro-meal-planner/internal/database"
)

func setupDB(t *testing.T) *Repository {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db.SQL)
}

func TestRepository_InsertAndGet(t *testing.T) {
	repo := setupDB(t)
	ctx := context.Background()

	rec := &Recipe{
		Name:        "Oatmeal",
		Category:    CategoryBreakfast,
		Calories:    300,
		Protein:     10,
		Ingredients: []string{"1 cup oats", "2 cups milk"},
	}
	require.NoError(t, repo.Insert(ctx, rec))
	require.NotEmpty(t, rec.ID)
	require.Equal(t, 3, rec.FrequencyLimit)
	require.Equal(t, 1, rec.Servings)
	require.False(t, rec.CreatedAt.IsZero())

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Oatmeal", got.Name)
	require.Equal(t, CategoryBreakfast, got.Category)
	require.Equal(t, []string{"1 cup oats", "2 cups milk"}, got.Ingredients)
	require.Nil(t, got.Rating)
	require.Nil(t, got.SyncedAt)
}

func TestRepository_GetMissing(t *testing.T) {
	repo := setupDB(t)

	got, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRepository_ListFilterAndOrder(t *testing.T) {
	repo := setupDB(t)
	ctx := context.Background()

	a := &Recipe{Name: "Pancakes", Category: CategoryBreakfast}
	b := &Recipe{Name: "Chicken Salad", Category: CategoryLunch}
	c := &Recipe{Name: "Chicken Curry", Category: CategoryDinner}
	for _, rec := range []*Recipe{a, b, c} {
		require.NoError(t, repo.Insert(ctx, rec))
		time.Sleep(5 * time.Millisecond) // distinct created_at ordering
	}

	all, err := repo.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "Chicken Curry", all[0].Name) // newest first

	lunches, err := repo.List(ctx, Filter{Category: CategoryLunch})
	require.NoError(t, err)
	require.Len(t, lunches, 1)
	require.Equal(t, "Chicken Salad", lunches[0].Name)

	chicken, err := repo.List(ctx, Filter{Search: "Chicken"})
	require.NoError(t, err)
	require.Len(t, chicken, 2)
}

func TestRepository_UpdateTouchesUpdatedAt(t *testing.T) {
	repo := setupDB(t)
	ctx := context.Background()

	rec := &Recipe{Name: "Soup", Category: CategoryDinner}
	require.NoError(t, repo.Insert(ctx, rec))
	created := rec.UpdatedAt

	time.Sleep(5 * time.Millisecond)
	rec.Name = "Tomato Soup"
	require.NoError(t, repo.Update(ctx, rec))

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, "Tomato Soup", got.Name)
	require.True(t, got.UpdatedAt.After(created))
	require.True(t, got.UpdatedAt.After(got.CreatedAt) || got.UpdatedAt.Equal(got.CreatedAt))
}

func TestRepository_PendingSyncAndSetSyncedAt(t *testing.T) {
	repo := setupDB(t)
	ctx := context.Background()

	rec := &Recipe{Name: "Tacos", Category: CategoryDinner}
	require.NoError(t, repo.Insert(ctx, rec))

	pending, err := repo.PendingSync(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.SetSyncedAt(ctx, rec.ID, time.Now().UTC()))

	pending, err = repo.PendingSync(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)

	// A later edit makes the row pending again.
	time.Sleep(5 * time.Millisecond)
	rec.Name = "Fish Tacos"
	require.NoError(t, repo.Update(ctx, rec))

	pending, err = repo.PendingSync(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestRepository_UpdatedSince(t *testing.T) {
	repo := setupDB(t)
	ctx := context.Background()

	cutoff := time.Now().UTC().Add(-time.Minute)

	rec := &Recipe{Name: "Chili", Category: CategoryDinner}
	require.NoError(t, repo.Insert(ctx, rec))

	rows, err := repo.UpdatedSince(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rows, err = repo.UpdatedSince(ctx, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestRepository_Delete(t *testing.T) {
	repo := setupDB(t)
	ctx := context.Background()

	rec := &Recipe{Name: "Toast", Category: CategoryBreakfast}
	require.NoError(t, repo.Insert(ctx, rec))
	require.NoError(t, repo.Delete(ctx, rec.ID))

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Nil(t, got)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}
