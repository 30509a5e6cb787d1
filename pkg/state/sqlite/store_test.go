package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-decisions/pkg/state"
	"github.com/goliatone/go-decisions/pkg/state/statetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "decisions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
	assert.ErrorIs(t, err, state.ErrPersistence)
}

func TestZeroStoreReportsPersistenceErrors(t *testing.T) {
	var store *Store
	ctx := context.Background()
	ref := state.Ref{ClientID: "orion"}

	_, _, _, err := store.Load(ctx, ref)
	assert.ErrorIs(t, err, state.ErrPersistence)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = store.Save(ctx, ref, statetest.Record(t, "orion"), state.Meta{})
	assert.ErrorIs(t, err, state.ErrPersistence)

	_, err = (&Store{}).Clients(ctx)
	assert.ErrorIs(t, err, state.ErrPersistence)
}

func TestStoreContract(t *testing.T) {
	statetest.RunStoreContract(t, func(t *testing.T) state.Store {
		return openTempStore(t)
	})
}

func TestStoreKeepsMeta(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	record := statetest.Record(t, "orion")
	updated := time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC)

	saved, err := store.Save(ctx, state.Ref{ClientID: "orion"}, record, state.Meta{
		UpdatedAt: updated,
		Extra:     map[string]string{"source": "cli"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ctx-orion/v2", saved.ETag)

	_, meta, ok, err := store.Load(ctx, state.Ref{ClientID: "orion"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ctx-orion", meta.SnapshotID)
	assert.Equal(t, 2, meta.Version)
	assert.True(t, meta.UpdatedAt.Equal(updated))
	assert.Equal(t, map[string]string{"source": "cli"}, meta.Extra)
}

func TestStoreClients(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	for _, id := range []string{"vega", "orion"} {
		_, err := store.Save(ctx, state.Ref{ClientID: id}, statetest.Record(t, id), state.Meta{})
		require.NoError(t, err)
	}
	clients, err := store.Clients(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"orion", "vega"}, clients)
}

func TestStoreBacksPersister(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	persister := state.NewPersister(store)

	record := statetest.Record(t, "orion")
	_, err := store.Save(ctx, state.Ref{ClientID: "orion"}, record, state.Meta{})
	require.NoError(t, err)

	c, err := persister.Load(ctx, "orion")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 2, c.Version())
	assert.Equal(t, "COO", c.Effective()["persona"])
}
