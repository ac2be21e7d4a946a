// ABOUTME: Ledger types and interface for recording provider attempts
// ABOUTME: Implemented by SQLiteStore and MockStore

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// Attempt outcomes, matching ideation.Outcome values
const (
	OutcomeOK      = "ok"
	OutcomeAbsent  = "absent"
	OutcomeSkipped = "skipped"
)

// AttemptRecord is one provider considered during a turn
type AttemptRecord struct {
	ID         string
	SessionID  string
	Provider   string // hosted, local
	Model      string
	Outcome    string // ok, absent, skipped
	DurationMS int64
	CreatedAt  time.Time
}

// AttemptFilter narrows attempt statistics. Nil fields are ignored.
type AttemptFilter struct {
	SessionID *string
	Provider  *string
	Since     *time.Time
	Until     *time.Time
}

// AttemptStats aggregates attempts matching a filter
type AttemptStats struct {
	Total         int64
	Answered      int64
	Absent        int64
	Skipped       int64
	AvgDurationMS float64 // over attempts that made a call
}

// Ledger stores provider attempts
type Ledger interface {
	SaveAttempt(ctx context.Context, rec *AttemptRecord) error
	GetAttempt(ctx context.Context, id string) (*AttemptRecord, error)
	ListSessionAttempts(ctx context.Context, sessionID string, limit int) ([]*AttemptRecord, error)
	GetAttemptStats(ctx context.Context, filter AttemptFilter) (*AttemptStats, error)
	Close() error
}
