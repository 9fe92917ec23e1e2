// Package metrics persists per-operation execution records: one row per
// solver invocation and per sync run. They power the CLI stats view and make
// tier-fallback behavior observable after the fact.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"macro-meal-planner/internal/dbx"
)

// ExecutionMetric records metadata for a single solve or sync execution.
type ExecutionMetric struct {
	Kind           string
	PlanIndex      int
	Tier           int
	Status         string
	NumVars        int
	NumConstraints int
	LatencyMS      int64
	Timestamp      time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db dbx.DBTX
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db dbx.DBTX) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m ExecutionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO solve_metrics (kind, plan_index, tier, status, num_vars, num_constraints, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Kind, m.PlanIndex, m.Tier, m.Status, m.NumVars, m.NumConstraints, m.LatencyMS, ts)
	if err != nil {
		return fmt.Errorf("failed to insert execution metric: %w", err)
	}
	return nil
}

// RecordSolve satisfies the planner's SolveRecorder. Metric persistence must
// never fail an operation, so errors are only logged.
func (s *Store) RecordSolve(kind string, planIndex, tier int, status string, numVars, numConstraints int, latency time.Duration) {
	err := s.Record(context.Background(), ExecutionMetric{
		Kind:           kind,
		PlanIndex:      planIndex,
		Tier:           tier,
		Status:         status,
		NumVars:        numVars,
		NumConstraints: numConstraints,
		LatencyMS:      latency.Milliseconds(),
	})
	if err != nil {
		slog.Warn("failed to record solve metric", "err", err)
	}
}

// KindSummary aggregates executions of one kind and status.
type KindSummary struct {
	Kind         string
	Status       string
	Count        int
	AvgLatencyMS float64
}

// Summary aggregates metrics recorded in the last N days.
func (s *Store) Summary(ctx context.Context, days int) ([]KindSummary, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, status, COUNT(*), AVG(latency_ms)
		 FROM solve_metrics WHERE created_at > ?
		 GROUP BY kind, status ORDER BY kind, status`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize metrics: %w", err)
	}
	defer rows.Close()

	var result []KindSummary
	for rows.Next() {
		var ks KindSummary
		if err := rows.Scan(&ks.Kind, &ks.Status, &ks.Count, &ks.AvgLatencyMS); err != nil {
			return nil, err
		}
		result = append(result, ks)
	}
	return result, rows.Err()
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) error {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	_, err := s.db.ExecContext(ctx, `DELETE FROM solve_metrics WHERE created_at < ?`, threshold)
	if err != nil {
		return fmt.Errorf("failed to clean up metrics: %w", err)
	}
	return nil
}
