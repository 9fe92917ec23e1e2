package sync

import (
	"context"
	"log/slog"
	"time"

	"macro-meal-planner/internal/prefs"
	"macro-meal-planner/internal/recipe"
)

// Conflict pairs a locally edited row with its diverged server copy. The
// caller decides which side wins.
type Conflict struct {
	Local  recipe.Recipe `json:"local"`
	Server recipe.Recipe `json:"server"`
}

// Keep names the side a conflict resolution keeps.
type Keep string

const (
	KeepLocal  Keep = "local"
	KeepServer Keep = "server"
)

// Result is the recovered outcome of one sync run. Err is set for fatal
// failures (missing login, unreachable server); per-item push failures only
// reduce Pushed.
type Result struct {
	Pulled    int        `json:"pulled"`
	Pushed    int        `json:"pushed"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
	Err       error      `json:"-"`
}

// Reconciler performs the two-way merge between the local store and the
// remote recipe service.
type Reconciler struct {
	recipes *recipe.Repository
	prefs   *prefs.Repository
	state   *StateRepository
	client  RemoteClient
	log     *slog.Logger
	now     func() time.Time
}

// NewReconciler wires a Reconciler. client may be nil when no server is
// configured; Sync then reports ErrNotLoggedIn.
func NewReconciler(recipes *recipe.Repository, prefsRepo *prefs.Repository, state *StateRepository, client RemoteClient) *Reconciler {
	return &Reconciler{
		recipes: recipes,
		prefs:   prefsRepo,
		state:   state,
		client:  client,
		log:     slog.Default(),
		now:     time.Now,
	}
}

// isServerID reports whether an id follows the server's shape: non-empty,
// dash-free, all digits. Locally minted uuids always contain dashes.
func isServerID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Sync runs pull, then push, then the preference exchange. lastSyncAt is
// stamped only when no fatal error occurred.
func (s *Reconciler) Sync(ctx context.Context) Result {
	state, err := s.state.Get(ctx)
	if err != nil {
		return Result{Err: err}
	}
	if s.client == nil || !state.LoggedIn() {
		return Result{Err: ErrNotLoggedIn}
	}

	var result Result

	// Pull. Conflicted rows stay untouched locally and are excluded from
	// this run's push; the caller resolves them explicitly.
	serverRecipes, err := s.client.FetchRecipes(ctx)
	if err != nil {
		result.Err = err
		return result
	}

	conflicted := make(map[string]struct{})
	for _, server := range serverRecipes {
		local, err := s.recipes.Get(ctx, server.ID)
		if err != nil {
			result.Err = err
			return result
		}

		switch {
		case local == nil:
			inserted := server
			if err := s.recipes.Insert(ctx, &inserted); err != nil {
				result.Err = err
				return result
			}
			if err := s.recipes.SetSyncedAt(ctx, inserted.ID, s.now().UTC()); err != nil {
				result.Err = err
				return result
			}
			result.Pulled++

		case localEdited(*local):
			result.Conflicts = append(result.Conflicts, Conflict{Local: *local, Server: server})
			conflicted[local.ID] = struct{}{}

		default:
			overwrite := server
			if err := s.recipes.Overwrite(ctx, &overwrite, s.now().UTC()); err != nil {
				result.Err = err
				return result
			}
			result.Pulled++
		}
	}

	// Push locally changed rows; individual failures are logged and the
	// batch continues.
	pending, err := s.recipes.PendingSync(ctx)
	if err != nil {
		result.Err = err
		return result
	}
	for _, local := range pending {
		if _, skip := conflicted[local.ID]; skip {
			continue
		}
		if err := s.pushOne(ctx, local); err != nil {
			s.log.Warn("failed to push recipe, continuing", "recipe_id", local.ID, "err", err)
			continue
		}
		result.Pushed++
	}

	// Preference exchange is best-effort.
	if serverPrefs, err := s.client.FetchPreferences(ctx); err != nil {
		s.log.Warn("failed to fetch server preferences", "err", err)
	} else if serverPrefs != nil {
		if err := s.prefs.Save(ctx, *serverPrefs); err != nil {
			s.log.Warn("failed to store server preferences", "err", err)
		}
	}
	if localPrefs, err := s.prefs.Get(ctx); err != nil {
		s.log.Warn("failed to load local preferences for push", "err", err)
	} else if err := s.client.PushPreferences(ctx, localPrefs); err != nil {
		s.log.Warn("failed to push preferences", "err", err)
	}

	if err := s.state.SetLastSync(ctx, s.now().UTC()); err != nil {
		result.Err = err
	}
	return result
}

// localEdited reports whether a row changed locally since its last sync.
func localEdited(r recipe.Recipe) bool {
	if r.SyncedAt == nil {
		return true
	}
	return r.UpdatedAt.After(*r.SyncedAt)
}

// pushOne upserts a single recipe; the id shape dictates create vs update.
func (s *Reconciler) pushOne(ctx context.Context, local recipe.Recipe) error {
	var err error
	if isServerID(local.ID) {
		_, err = s.client.UpdateRecipe(ctx, local)
	} else {
		_, err = s.client.CreateRecipe(ctx, local)
	}
	if err != nil {
		return err
	}
	return s.recipes.SetSyncedAt(ctx, local.ID, s.now().UTC())
}

// Resolve settles one conflict. Keeping the server copy overwrites the local
// row; keeping the local copy re-pushes it. Both stamp synced_at.
func (s *Reconciler) Resolve(ctx context.Context, c Conflict, keep Keep) error {
	state, err := s.state.Get(ctx)
	if err != nil {
		return err
	}
	if s.client == nil || !state.LoggedIn() {
		return ErrNotLoggedIn
	}

	switch keep {
	case KeepServer:
		overwrite := c.Server
		return s.recipes.Overwrite(ctx, &overwrite, s.now().UTC())
	default:
		return s.pushOne(ctx, c.Local)
	}
}
