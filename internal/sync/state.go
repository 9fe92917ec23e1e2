// Package sync reconciles the local store with the remote recipe service:
// pull with conflict detection, push of locally changed rows, and a
// caller-driven conflict resolution step.
package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"macro-meal-planner/internal/dbx"
)

// ErrNotLoggedIn is returned when a remote operation runs without stored
// credentials. No state is changed.
var ErrNotLoggedIn = errors.New("not logged in")

// State is the sync singleton: credentials plus the last successful sync
// time. Empty strings mean unset.
type State struct {
	Email            string
	ServerToken      string
	NotionToken      string
	NotionDatabaseID string
	LastSyncAt       *time.Time
}

// LoggedIn reports whether server credentials are present.
func (s State) LoggedIn() bool {
	return s.ServerToken != ""
}

// StateRepository reads and writes the sync_state singleton (row id = 1).
type StateRepository struct {
	db dbx.DBTX
}

// NewStateRepository creates a new sync state repository.
func NewStateRepository(db dbx.DBTX) *StateRepository {
	return &StateRepository{db: db}
}

// Get loads the sync state.
func (r *StateRepository) Get(ctx context.Context) (State, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT email, server_token, notion_token, notion_database_id, last_sync_at
		 FROM sync_state WHERE id = 1`)

	var (
		s          State
		email      sql.NullString
		token      sql.NullString
		notion     sql.NullString
		notionDB   sql.NullString
		lastSyncAt sql.NullTime
	)
	err := row.Scan(&email, &token, &notion, &notionDB, &lastSyncAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("failed to load sync state: %w", err)
	}
	s.Email = email.String
	s.ServerToken = token.String
	s.NotionToken = notion.String
	s.NotionDatabaseID = notionDB.String
	if lastSyncAt.Valid {
		t := lastSyncAt.Time
		s.LastSyncAt = &t
	}
	return s, nil
}

// Save stores the sync state.
func (r *StateRepository) Save(ctx context.Context, s State) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sync_state SET email=?, server_token=?, notion_token=?, notion_database_id=?, last_sync_at=?
		 WHERE id = 1`,
		nullString(s.Email), nullString(s.ServerToken), nullString(s.NotionToken),
		nullString(s.NotionDatabaseID), nullTimePtr(s.LastSyncAt))
	if err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}

// SetLastSync stamps the last successful sync time.
func (r *StateRepository) SetLastSync(ctx context.Context, t time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sync_state SET last_sync_at=? WHERE id = 1`, t)
	if err != nil {
		return fmt.Errorf("failed to stamp last sync: %w", err)
	}
	return nil
}

// Clear wipes credentials and sync history (logout).
func (r *StateRepository) Clear(ctx context.Context) error {
	return r.Save(ctx, State{})
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
