package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/storage/sqlite"
	"github.com/cory-johannsen/skirmish/internal/storage/storagetest"
)

func TestOutcomeStore_Memory(t *testing.T) {
	store, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	storagetest.Run(t, store)
}

// TestOutcomeStore_PersistsAcrossReopen verifies outcomes written to a file
// are readable after the store is reopened.
func TestOutcomeStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "outcomes.db")

	store, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	want := storagetest.Outcome(t, "enc-file", time.Date(2026, 5, 6, 7, 8, 9, 123456789, time.UTC))
	require.NoError(t, store.SaveOutcome(ctx, want))
	require.NoError(t, store.Close())

	store, err = sqlite.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	got, err := store.LoadOutcome(ctx, "enc-file")
	require.NoError(t, err)
	assert.True(t, want.EndedAt.Equal(got.EndedAt), "nanosecond precision kept")
	assert.Equal(t, want.Combatants, got.Combatants)
}
