// ABOUTME: SQLite implementation for provider attempt tracking
// ABOUTME: Stores and retrieves per-turn backend outcomes for analytics

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// timeFormat is fixed width so text ordering matches time ordering.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SaveAttempt stores an attempt record. Missing ID and CreatedAt are filled in.
func (s *SQLiteStore) SaveAttempt(ctx context.Context, rec *AttemptRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO provider_attempts (
			id, session_id, provider, model, outcome, duration_ms, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.SessionID,
		rec.Provider,
		rec.Model,
		rec.Outcome,
		rec.DurationMS,
		rec.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting attempt: %w", err)
	}

	s.logger.Debug("saved provider attempt",
		"id", rec.ID,
		"session_id", rec.SessionID,
		"provider", rec.Provider,
		"outcome", rec.Outcome,
	)
	return nil
}

// GetAttempt retrieves an attempt by ID.
func (s *SQLiteStore) GetAttempt(ctx context.Context, id string) (*AttemptRecord, error) {
	query := `
		SELECT id, session_id, provider, model, outcome, duration_ms, created_at
		FROM provider_attempts
		WHERE id = ?
	`

	rec, err := scanAttempt(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListSessionAttempts retrieves attempts for a session in chronological order.
// A limit of zero or less returns every attempt.
func (s *SQLiteStore) ListSessionAttempts(ctx context.Context, sessionID string, limit int) ([]*AttemptRecord, error) {
	query := `
		SELECT id, session_id, provider, model, outcome, duration_ms, created_at
		FROM provider_attempts
		WHERE session_id = ?
		ORDER BY created_at ASC, rowid ASC
	`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying session attempts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []*AttemptRecord
	for rows.Next() {
		rec, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attempt rows: %w", err)
	}

	return recs, nil
}

// GetAttemptStats returns aggregated attempt statistics with optional filters.
func (s *SQLiteStore) GetAttemptStats(ctx context.Context, filter AttemptFilter) (*AttemptStats, error) {
	query := `
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN outcome = 'ok' THEN 1 ELSE 0 END), 0) as answered,
			COALESCE(SUM(CASE WHEN outcome = 'absent' THEN 1 ELSE 0 END), 0) as absent,
			COALESCE(SUM(CASE WHEN outcome = 'skipped' THEN 1 ELSE 0 END), 0) as skipped,
			COALESCE(AVG(CASE WHEN outcome != 'skipped' THEN duration_ms END), 0.0) as avg_duration
		FROM provider_attempts
		WHERE 1=1
	`
	args := []any{}

	if filter.SessionID != nil {
		query += " AND session_id = ?"
		args = append(args, *filter.SessionID)
	}
	if filter.Provider != nil {
		query += " AND provider = ?"
		args = append(args, *filter.Provider)
	}
	if filter.Since != nil {
		query += " AND created_at >= ?"
		args = append(args, filter.Since.UTC().Format(timeFormat))
	}
	if filter.Until != nil {
		query += " AND created_at < ?"
		args = append(args, filter.Until.UTC().Format(timeFormat))
	}

	var stats AttemptStats
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.Total,
		&stats.Answered,
		&stats.Absent,
		&stats.Skipped,
		&stats.AvgDurationMS,
	)
	if err != nil {
		return nil, fmt.Errorf("querying attempt stats: %w", err)
	}

	return &stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanAttempt scans a single attempt row into an AttemptRecord.
func scanAttempt(row rowScanner) (*AttemptRecord, error) {
	var rec AttemptRecord
	var createdAtStr string

	err := row.Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.Provider,
		&rec.Model,
		&rec.Outcome,
		&rec.DurationMS,
		&createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning attempt row: %w", err)
	}

	rec.CreatedAt, err = time.Parse(timeFormat, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &rec, nil
}
