// ABOUTME: Tests for provider attempt tracking functionality
// ABOUTME: Covers SaveAttempt, GetAttempt, ListSessionAttempts, GetAttemptStats

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAttempt(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	at := time.Now().UTC().Truncate(time.Millisecond)
	rec := &AttemptRecord{
		ID:         uuid.New().String(),
		SessionID:  "session-001",
		Provider:   "hosted",
		Model:      "gpt-3.5-turbo",
		Outcome:    OutcomeAbsent,
		DurationMS: 1250,
		CreatedAt:  at,
	}

	require.NoError(t, store.SaveAttempt(ctx, rec))

	got, err := store.GetAttempt(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "session-001", got.SessionID)
	assert.Equal(t, "hosted", got.Provider)
	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.Equal(t, OutcomeAbsent, got.Outcome)
	assert.Equal(t, int64(1250), got.DurationMS)
	assert.True(t, at.Equal(got.CreatedAt), "created_at %v != %v", got.CreatedAt, at)
}

func TestStore_SaveAttempt_FillsIDAndTimestamp(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rec := &AttemptRecord{SessionID: "s", Provider: "local", Model: "llama2", Outcome: OutcomeOK}
	require.NoError(t, store.SaveAttempt(ctx, rec))

	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestStore_GetAttempt_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetAttempt(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListSessionAttempts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, outcome := range []string{OutcomeAbsent, OutcomeOK, OutcomeSkipped} {
		require.NoError(t, store.SaveAttempt(ctx, &AttemptRecord{
			SessionID: "session-a",
			Provider:  "hosted",
			Model:     "gpt",
			Outcome:   outcome,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		}))
	}
	require.NoError(t, store.SaveAttempt(ctx, &AttemptRecord{
		SessionID: "session-b", Provider: "local", Model: "llama2", Outcome: OutcomeOK, CreatedAt: base,
	}))

	recs, err := store.ListSessionAttempts(ctx, "session-a", 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, OutcomeAbsent, recs[0].Outcome)
	assert.Equal(t, OutcomeOK, recs[1].Outcome)
	assert.Equal(t, OutcomeSkipped, recs[2].Outcome)

	limited, err := store.ListSessionAttempts(ctx, "session-a", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := store.ListSessionAttempts(ctx, "session-z", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_GetAttemptStats(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	records := []*AttemptRecord{
		{SessionID: "s1", Provider: "hosted", Model: "gpt", Outcome: OutcomeOK, DurationMS: 100, CreatedAt: now.Add(-2 * time.Hour)},
		{SessionID: "s1", Provider: "hosted", Model: "gpt", Outcome: OutcomeAbsent, DurationMS: 300, CreatedAt: now.Add(-time.Hour)},
		{SessionID: "s1", Provider: "local", Model: "llama2", Outcome: OutcomeOK, DurationMS: 200, CreatedAt: now.Add(-time.Hour)},
		{SessionID: "s2", Provider: "hosted", Model: "gpt", Outcome: OutcomeSkipped, CreatedAt: now},
	}
	for _, r := range records {
		require.NoError(t, store.SaveAttempt(ctx, r))
	}

	t.Run("no filter", func(t *testing.T) {
		stats, err := store.GetAttemptStats(ctx, AttemptFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), stats.Total)
		assert.Equal(t, int64(2), stats.Answered)
		assert.Equal(t, int64(1), stats.Absent)
		assert.Equal(t, int64(1), stats.Skipped)
		assert.InDelta(t, 200.0, stats.AvgDurationMS, 0.001)
	})

	t.Run("by provider", func(t *testing.T) {
		hosted := "hosted"
		stats, err := store.GetAttemptStats(ctx, AttemptFilter{Provider: &hosted})
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.Total)
		assert.Equal(t, int64(1), stats.Answered)
	})

	t.Run("by session", func(t *testing.T) {
		s2 := "s2"
		stats, err := store.GetAttemptStats(ctx, AttemptFilter{SessionID: &s2})
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Total)
		assert.Equal(t, int64(1), stats.Skipped)
		assert.Zero(t, stats.AvgDurationMS)
	})

	t.Run("by time range", func(t *testing.T) {
		since := now.Add(-90 * time.Minute)
		until := now.Add(-30 * time.Minute)
		stats, err := store.GetAttemptStats(ctx, AttemptFilter{Since: &since, Until: &until})
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.Total)
	})
}

func TestStore_GetAttemptStats_Empty(t *testing.T) {
	store := setupTestStore(t)

	stats, err := store.GetAttemptStats(context.Background(), AttemptFilter{})
	require.NoError(t, err)
	assert.Equal(t, &AttemptStats{}, stats)
}
