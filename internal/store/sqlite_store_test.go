package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jardin/internal/model"
	"jardin/internal/store"
)

func openEngines(t *testing.T) map[string]store.Store {
	t.Helper()
	dir := t.TempDir()

	sqliteStore, err := store.NewSQLiteStore(filepath.Join(dir, "jardin.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqliteStore.Close()
	})

	jsonStore, err := store.NewJSONStore(filepath.Join(dir, "jardin.json"))
	require.NoError(t, err)

	return map[string]store.Store{
		store.EngineSQLite: sqliteStore,
		store.EngineJSON:   jsonStore,
	}
}

func TestMergeProgressNeverClobbers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, st := range openEngines(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := st.GetProgress(ctx, "u1")
			require.NoError(t, err)
			assert.False(t, ok)

			first := time.Now().Add(-time.Hour).UTC()
			require.NoError(t, st.MergeProgress(ctx, "u1", model.ProgressPatch{
				Email:  "ana@example.com",
				ItemID: "quercus robur",
				At:     first,
			}))
			require.NoError(t, st.MergeProgress(ctx, "u1", model.ProgressPatch{
				ItemID: "salvia officinalis",
			}))
			// Re-confirming keeps the first confirmation time.
			require.NoError(t, st.MergeProgress(ctx, "u1", model.ProgressPatch{
				ItemID: "quercus robur",
			}))

			doc, ok, err := st.GetProgress(ctx, "u1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "ana@example.com", doc.Email)
			assert.Equal(t, map[string]string{
				"quercus robur":      model.StatusConfirmed,
				"salvia officinalis": model.StatusConfirmed,
			}, doc.Progress)
			assert.WithinDuration(t, first, doc.Confirmed["quercus robur"], time.Millisecond)
		})
	}
}

func TestMergeProgressRequiresUserID(t *testing.T) {
	t.Parallel()
	for name, st := range openEngines(t) {
		t.Run(name, func(t *testing.T) {
			err := st.MergeProgress(context.Background(), " ", model.ProgressPatch{ItemID: "x"})
			assert.ErrorIs(t, err, store.ErrUserIDRequired)
		})
	}
}

func TestSlotsRoundTripAndOverwrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, st := range openEngines(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := st.ReadSlot(ctx, "pending_progress")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, st.WriteSlot(ctx, "pending_progress", []byte(`[{"item_id":"a"}]`)))
			require.NoError(t, st.WriteSlot(ctx, "pending_progress", []byte(`[]`)))

			data, ok, err := st.ReadSlot(ctx, "pending_progress")
			require.NoError(t, err)
			require.True(t, ok)
			assert.JSONEq(t, `[]`, string(data))
		})
	}
}

func TestJSONStoreSurvivesReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	st, err := store.NewJSONStore(path)
	require.NoError(t, err)
	require.NoError(t, st.MergeProgress(ctx, "u2", model.ProgressPatch{Email: "b@example.com", ItemID: "rosa canina"}))
	require.NoError(t, st.WriteSlot(ctx, "pending_progress", []byte(`[{"item_id":"x","photo":"data:image/jpeg;base64,AA=="}]`)))

	reopened, err := store.NewJSONStore(path)
	require.NoError(t, err)
	doc, ok, err := reopened.GetProgress(ctx, "u2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.StatusConfirmed, doc.Progress["rosa canina"])

	slot, ok, err := reopened.ReadSlot(ctx, "pending_progress")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"item_id":"x","photo":"data:image/jpeg;base64,AA=="}]`, string(slot))
}

func TestJSONStoreRejectsInvalidSlot(t *testing.T) {
	t.Parallel()
	st, err := store.NewJSONStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	assert.ErrorIs(t, st.WriteSlot(context.Background(), "s", []byte("{")), store.ErrSlotNotJSON)
}

func TestNewByEngine(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	st, err := store.NewByEngine("JSON", filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.IsType(t, &store.JSONStore{}, st)

	_, err = store.NewByEngine("mongo", filepath.Join(dir, "b"))
	assert.ErrorIs(t, err, store.ErrUnsupportedEngine)
}
