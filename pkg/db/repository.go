package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/frame-bridge/pkg/journal"
)

const repoLogPrefix = "db:repository"

// DefaultListLimit caps ListRecentCalls when no limit is given.
const DefaultListLimit = 100

// Repository provides database access for the call journal. It implements journal.Journal.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts one settled call.
func (r *Repository) Record(ctx context.Context, e *journal.Entry) error {
	var errMsg *string
	if e.ErrorMessage != "" {
		msg := e.ErrorMessage
		errMsg = &msg
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO bridge_calls (call_id, method, outcome, error_code, error_message, started_at, settled_at, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.CallID, e.Method, string(e.Outcome), e.ErrorCode, errMsg,
		e.StartedAt.UTC(), e.SettledAt.UTC(), e.Duration().Milliseconds())
	if err != nil {
		return fmt.Errorf("%s - insert call %s failed: %w", repoLogPrefix, e.CallID, err)
	}
	slog.Debug(fmt.Sprintf("%s - Recorded call id=%s method=%s outcome=%s", repoLogPrefix, e.CallID, e.Method, e.Outcome))
	return nil
}

// ListRecentCalls returns the most recently settled calls, newest first.
func (r *Repository) ListRecentCalls(ctx context.Context, limit int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, call_id, method, outcome, error_code, error_message, started_at, settled_at, duration_ms
		 FROM bridge_calls
		 ORDER BY settled_at DESC, id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s - list calls failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var records []CallRecord
	for rows.Next() {
		rec, err := scanCallRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - list calls failed: %w", repoLogPrefix, err)
	}
	return records, nil
}

// CountByOutcome aggregates journaled calls by method and outcome.
func (r *Repository) CountByOutcome(ctx context.Context) ([]OutcomeCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT method, outcome, COUNT(*)
		 FROM bridge_calls
		 GROUP BY method, outcome
		 ORDER BY method, outcome`)
	if err != nil {
		return nil, fmt.Errorf("%s - count calls failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var counts []OutcomeCount
	for rows.Next() {
		var c OutcomeCount
		if err := rows.Scan(&c.Method, &c.Outcome, &c.Count); err != nil {
			return nil, fmt.Errorf("%s - scan count failed: %w", repoLogPrefix, err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// --- scanners ---

func scanCallRecord(row pgx.Row) (*CallRecord, error) {
	var rec CallRecord
	err := row.Scan(&rec.ID, &rec.CallID, &rec.Method, &rec.Outcome, &rec.ErrorCode, &rec.ErrorMessage,
		&rec.StartedAt, &rec.SettledAt, &rec.DurationMs)
	if err != nil {
		return nil, fmt.Errorf("%s - scan call failed: %w", repoLogPrefix, err)
	}
	return &rec, nil
}
