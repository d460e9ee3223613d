package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribunal-dev/tribunal/internal/core"
)

func TestFileRecordStore_RoundTrip(t *testing.T) {
	store := NewFileRecordStore(t.TempDir())
	ctx := context.Background()

	rec, err := store.Load(ctx, "acme/widgets", 7)
	require.NoError(t, err)
	assert.Empty(t, rec.Entries, "missing record loads empty")
	assert.Equal(t, "acme/widgets", rec.RepoFull)

	rec.Entries["tbf1:abc"] = core.DeliveryEntry{CommentID: 42, LastSeenRun: "run-1"}
	require.NoError(t, store.Save(ctx, rec))

	loaded, err := store.Load(ctx, "acme/widgets", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(42), loaded.Entries["tbf1:abc"].CommentID)

	// records are keyed per pull request
	other, err := store.Load(ctx, "acme/widgets", 8)
	require.NoError(t, err)
	assert.Empty(t, other.Entries)
}

func TestFileRecordStore_ResolvedSurvivesRewrite(t *testing.T) {
	store := NewFileRecordStore(t.TempDir())
	ctx := context.Background()

	rec := core.NewDeliveryRecord("acme/widgets", 1)
	rec.Entries["tbf1:a"] = core.DeliveryEntry{CommentID: 1, LastSeenRun: "run-1", Resolved: true}
	rec.Entries["tbf1:b"] = core.DeliveryEntry{CommentID: 2, LastSeenRun: "run-2"}
	require.NoError(t, store.Save(ctx, rec))

	loaded, err := store.Load(ctx, "acme/widgets", 1)
	require.NoError(t, err)
	require.Len(t, loaded.Entries, 2)
	assert.True(t, loaded.Entries["tbf1:a"].Resolved)
	assert.False(t, loaded.Entries["tbf1:b"].Resolved)
}
