// ABOUTME: Mock Ledger implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Ledger implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	attempts map[string]*AttemptRecord // keyed by attempt ID
	seq      map[string]int            // insertion order, keyed by attempt ID
	next     int

	// SaveErr, when set, is returned by SaveAttempt.
	SaveErr error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		attempts: make(map[string]*AttemptRecord),
		seq:      make(map[string]int),
	}
}

// SaveAttempt stores a copy of rec.
func (m *MockStore) SaveAttempt(ctx context.Context, rec *AttemptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	// Make a copy to avoid external modification
	r := *rec
	m.attempts[r.ID] = &r
	m.seq[r.ID] = m.next
	m.next++
	return nil
}

// GetAttempt retrieves an attempt by ID.
func (m *MockStore) GetAttempt(ctx context.Context, id string) (*AttemptRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.attempts[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *r
	return &result, nil
}

// ListSessionAttempts returns a session's attempts in insertion order.
func (m *MockStore) ListSessionAttempts(ctx context.Context, sessionID string, limit int) ([]*AttemptRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*AttemptRecord
	for _, r := range m.attempts {
		if r.SessionID == sessionID {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.seq[out[i].ID] < m.seq[out[j].ID] })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetAttemptStats aggregates matching attempts.
func (m *MockStore) GetAttemptStats(ctx context.Context, filter AttemptFilter) (*AttemptStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats AttemptStats
	var called, totalMS int64
	for _, r := range m.attempts {
		if filter.SessionID != nil && r.SessionID != *filter.SessionID {
			continue
		}
		if filter.Provider != nil && r.Provider != *filter.Provider {
			continue
		}
		if filter.Since != nil && r.CreatedAt.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && !r.CreatedAt.Before(*filter.Until) {
			continue
		}

		stats.Total++
		switch r.Outcome {
		case OutcomeOK:
			stats.Answered++
		case OutcomeAbsent:
			stats.Absent++
		case OutcomeSkipped:
			stats.Skipped++
		}
		if r.Outcome != OutcomeSkipped {
			called++
			totalMS += r.DurationMS
		}
	}
	if called > 0 {
		stats.AvgDurationMS = float64(totalMS) / float64(called)
	}
	return &stats, nil
}

// Close is a no-op.
func (m *MockStore) Close() error { return nil }

// errMockClosed is a canned failure for SaveErr.
var errMockClosed = errors.New("mock store closed")

var _ Ledger = (*MockStore)(nil)
