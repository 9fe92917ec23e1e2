package sync

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macro-meal-planner/internal/database"
	"macro-meal-planner/internal/prefs"
	"macro-meal-planner/internal/recipe"
)

// fakeClient implements RemoteClient for reconciler tests.
type fakeClient struct {
	ServerRecipes []recipe.Recipe
	FetchErr      error

	Created   []recipe.Recipe
	Updated   []recipe.Recipe
	CreateErr map[string]error

	ServerPrefs   *prefs.Preferences
	PushedPrefs   *prefs.Preferences
	FetchPrefsErr error
}

func (f *fakeClient) FetchRecipes(ctx context.Context) ([]recipe.Recipe, error) {
	return f.ServerRecipes, f.FetchErr
}

func (f *fakeClient) CreateRecipe(ctx context.Context, r recipe.Recipe) (*recipe.Recipe, error) {
	if err := f.CreateErr[r.ID]; err != nil {
		return nil, err
	}
	f.Created = append(f.Created, r)
	return &r, nil
}

func (f *fakeClient) UpdateRecipe(ctx context.Context, r recipe.Recipe) (*recipe.Recipe, error) {
	f.Updated = append(f.Updated, r)
	return &r, nil
}

func (f *fakeClient) FetchPreferences(ctx context.Context) (*prefs.Preferences, error) {
	return f.ServerPrefs, f.FetchPrefsErr
}

func (f *fakeClient) PushPreferences(ctx context.Context, p prefs.Preferences) error {
	f.PushedPrefs = &p
	return nil
}

type fixture struct {
	recipes *recipe.Repository
	prefs   *prefs.Repository
	state   *StateRepository
	client  *fakeClient
	rec     *Reconciler
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		recipes: recipe.NewRepository(db.SQL),
		prefs:   prefs.NewRepository(db.SQL),
		state:   NewStateRepository(db.SQL),
		client:  &fakeClient{},
	}
	require.NoError(t, f.state.Save(context.Background(), State{Email: "user@test", ServerToken: "1:abcd"}))
	f.rec = NewReconciler(f.recipes, f.prefs, f.state, f.client)
	return f
}

func TestSync_NotLoggedIn(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.state.Clear(ctx))

	result := f.rec.Sync(ctx)
	assert.ErrorIs(t, result.Err, ErrNotLoggedIn)
	assert.Zero(t, result.Pulled)
	assert.Zero(t, result.Pushed)
}

func TestSync_PullInsertsNewServerRecipes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.client.ServerRecipes = []recipe.Recipe{
		{ID: "101", Name: "Server Soup", Category: recipe.CategoryDinner, Calories: 400},
	}

	result := f.rec.Sync(ctx)
	require.NoError(t, result.Err)
	assert.Equal(t, 1, result.Pulled)
	assert.Empty(t, result.Conflicts)

	local, err := f.recipes.Get(ctx, "101")
	require.NoError(t, err)
	require.NotNil(t, local)
	assert.Equal(t, "Server Soup", local.Name)
	require.NotNil(t, local.SyncedAt)
	assert.False(t, local.SyncedAt.Before(local.UpdatedAt))
}

// A clean local row (updated_at <= synced_at) is overwritten without a
// conflict.
func TestSync_PullOverwritesCleanLocalRow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	local := &recipe.Recipe{ID: "101", Name: "Old Name", Category: recipe.CategoryDinner}
	require.NoError(t, f.recipes.Insert(ctx, local))
	require.NoError(t, f.recipes.SetSyncedAt(ctx, "101", time.Now().UTC().Add(time.Minute)))

	f.client.ServerRecipes = []recipe.Recipe{
		{ID: "101", Name: "New Server Name", Category: recipe.CategoryDinner},
	}

	result := f.rec.Sync(ctx)
	require.NoError(t, result.Err)
	assert.Equal(t, 1, result.Pulled)
	assert.Empty(t, result.Conflicts)

	got, err := f.recipes.Get(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, "New Server Name", got.Name)
}

// A locally edited row sharing an id with a server row produces a conflict
// and keeps the local copy.
func TestSync_PullEmitsConflictForDivergedRow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	local := &recipe.Recipe{ID: "101", Name: "Local Edit", Category: recipe.CategoryDinner}
	require.NoError(t, f.recipes.Insert(ctx, local))
	// Synced in the past, then edited: updated_at > synced_at.
	require.NoError(t, f.recipes.SetSyncedAt(ctx, "101", time.Now().UTC().Add(-time.Hour)))

	f.client.ServerRecipes = []recipe.Recipe{
		{ID: "101", Name: "Server Edit", Category: recipe.CategoryDinner},
	}

	result := f.rec.Sync(ctx)
	require.NoError(t, result.Err)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "Local Edit", result.Conflicts[0].Local.Name)
	assert.Equal(t, "Server Edit", result.Conflicts[0].Server.Name)

	got, err := f.recipes.Get(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, "Local Edit", got.Name)

	// Conflicted rows are not pushed in the same run.
	assert.Empty(t, f.client.Updated)
}

func TestSync_PushRoutesByIDShape(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// A uuid-shaped id is local-only and created on the server.
	localOnly := &recipe.Recipe{Name: "Local Pancakes", Category: recipe.CategoryBreakfast}
	require.NoError(t, f.recipes.Insert(ctx, localOnly))

	// A numeric id belongs to the server and is updated in place.
	serverOwned := &recipe.Recipe{ID: "202", Name: "Server Tacos", Category: recipe.CategoryDinner}
	require.NoError(t, f.recipes.Insert(ctx, serverOwned))

	result := f.rec.Sync(ctx)
	require.NoError(t, result.Err)
	assert.Equal(t, 2, result.Pushed)

	require.Len(t, f.client.Created, 1)
	assert.Equal(t, localOnly.ID, f.client.Created[0].ID)
	require.Len(t, f.client.Updated, 1)
	assert.Equal(t, "202", f.client.Updated[0].ID)

	// Both rows are now clean.
	pending, err := f.recipes.PendingSync(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSync_PushContinuesPastItemFailure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	bad := &recipe.Recipe{Name: "Bad Row", Category: recipe.CategoryLunch}
	require.NoError(t, f.recipes.Insert(ctx, bad))
	good := &recipe.Recipe{Name: "Good Row", Category: recipe.CategoryLunch}
	require.NoError(t, f.recipes.Insert(ctx, good))

	f.client.CreateErr = map[string]error{bad.ID: errors.New("boom")}

	result := f.rec.Sync(ctx)
	require.NoError(t, result.Err)
	assert.Equal(t, 1, result.Pushed)
	require.Len(t, f.client.Created, 1)
	assert.Equal(t, good.ID, f.client.Created[0].ID)

	// The failed row stays pending for the next run.
	pending, err := f.recipes.PendingSync(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, bad.ID, pending[0].ID)
}

func TestSync_PreferenceExchange(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	serverPrefs := prefs.Default()
	serverPrefs.NumDays = 5
	f.client.ServerPrefs = &serverPrefs

	result := f.rec.Sync(ctx)
	require.NoError(t, result.Err)

	local, err := f.prefs.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, local.NumDays)

	require.NotNil(t, f.client.PushedPrefs)
	assert.Equal(t, 5, f.client.PushedPrefs.NumDays)
}

func TestSync_StampsLastSyncOnSuccess(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	result := f.rec.Sync(ctx)
	require.NoError(t, result.Err)

	state, err := f.state.Get(ctx)
	require.NoError(t, err)
	assert.NotNil(t, state.LastSyncAt)
}

func TestSync_FatalPullLeavesLastSyncUnset(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.client.FetchErr = errors.New("server down")

	result := f.rec.Sync(ctx)
	assert.Error(t, result.Err)

	state, err := f.state.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, state.LastSyncAt)
}

func TestResolve_KeepServer(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	local := &recipe.Recipe{ID: "101", Name: "Local Edit", Category: recipe.CategoryDinner}
	require.NoError(t, f.recipes.Insert(ctx, local))

	conflict := Conflict{
		Local:  *local,
		Server: recipe.Recipe{ID: "101", Name: "Server Edit", Category: recipe.CategoryDinner},
	}
	require.NoError(t, f.rec.Resolve(ctx, conflict, KeepServer))

	got, err := f.recipes.Get(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, "Server Edit", got.Name)
	require.NotNil(t, got.SyncedAt)
}

func TestResolve_KeepLocal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	local := &recipe.Recipe{ID: "101", Name: "Local Edit", Category: recipe.CategoryDinner}
	require.NoError(t, f.recipes.Insert(ctx, local))

	conflict := Conflict{
		Local:  *local,
		Server: recipe.Recipe{ID: "101", Name: "Server Edit", Category: recipe.CategoryDinner},
	}
	require.NoError(t, f.rec.Resolve(ctx, conflict, KeepLocal))

	// Numeric id: pushed as an update.
	require.Len(t, f.client.Updated, 1)
	assert.Equal(t, "101", f.client.Updated[0].ID)

	got, err := f.recipes.Get(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, "Local Edit", got.Name)
	require.NotNil(t, got.SyncedAt)
}

func TestIsServerID(t *testing.T) {
	assert.True(t, isServerID("12345"))
	assert.False(t, isServerID("a1b2c3"))
	assert.False(t, isServerID("123-456"))
	assert.False(t, isServerID(""))
}
