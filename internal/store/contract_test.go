package store

import (
	"context"
	"testing"

	"github.com/ashureev/codeedge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behavior every Store backend must share.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("unknown user has empty history", func(t *testing.T) {
		history, err := s.GetHistory(ctx, "ghost")
		require.NoError(t, err)
		assert.NotNil(t, history)
		assert.Empty(t, history)
	})

	t.Run("unknown user has no progress", func(t *testing.T) {
		rec, err := s.GetProgress(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("history round trip preserves order", func(t *testing.T) {
		want := []domain.ConversationEntry{
			{Question: "q1", Response: "r1"},
			{Question: "q2", Response: "r2"},
		}
		require.NoError(t, s.SaveHistory(ctx, "alice", want))

		got, err := s.GetHistory(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, want, got)

		require.NoError(t, s.SaveHistory(ctx, "alice", want[1:]))
		got, err = s.GetHistory(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, want[1:], got)
	})

	t.Run("progress upsert", func(t *testing.T) {
		rec := domain.NewProgressRecord("bob")
		rec.EasySolved = 2
		rec.CurrentDifficulty = domain.DifficultyMedium
		require.NoError(t, s.SaveProgress(ctx, rec))

		got, err := s.GetProgress(ctx, "bob")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "bob", got.UserID)
		assert.Equal(t, 2, got.EasySolved)
		assert.Equal(t, domain.DifficultyMedium, got.CurrentDifficulty)

		rec.MediumSolved = 1
		rec.CurrentDifficulty = domain.DifficultyHard
		require.NoError(t, s.SaveProgress(ctx, rec))

		got, err = s.GetProgress(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, 1, got.MediumSolved)
		assert.Equal(t, domain.DifficultyHard, got.CurrentDifficulty)
	})

	t.Run("users are isolated", func(t *testing.T) {
		history, err := s.GetHistory(ctx, "bob")
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, s.Ping(ctx))
	})
}
