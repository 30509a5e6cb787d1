// Package statetest holds the behaviour every state.Store must share.
package statetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-decisions"
	"github.com/goliatone/go-decisions/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) state.Store

// Record builds a record for clientID with one override applied.
func Record(t *testing.T, clientID string) decisions.ContextRecord {
	t.Helper()
	tick := 0
	clock := func() time.Time {
		tick++
		return time.Date(2025, 3, 1, 9, 0, tick, 0, time.UTC)
	}
	c, err := decisions.Create(clientID, decisions.Mapping{
		"persona": "CFO",
		"kpis": map[string]any{
			"attrition": map[string]any{"value": 18.0, "status": "amber"},
		},
	}, "wizard", decisions.WithClock(clock), decisions.WithIDGenerator(func() string { return "ctx-" + clientID }))
	require.NoError(t, err)
	_, err = c.ApplyOverride(decisions.OverrideInput{
		ID:      "manual-1",
		Type:    decisions.OverrideManual,
		Changes: decisions.Mapping{"persona": "COO"},
	}, "analyst")
	require.NoError(t, err)
	return c.Record()
}

// RunStoreContract exercises the Store contract against fresh stores.
func RunStoreContract(t *testing.T, newStore Factory) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing record", func(t *testing.T) {
		store := newStore(t)
		_, _, ok, err := store.Load(ctx, state.Ref{ClientID: "orion"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("round trip", func(t *testing.T) {
		store := newStore(t)
		record := Record(t, "orion")
		meta := state.MetaFor(record, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC))

		saved, err := store.Save(ctx, state.Ref{ClientID: "orion"}, record, meta)
		require.NoError(t, err)
		assert.Equal(t, meta.ETag, saved.ETag)

		loaded, loadedMeta, ok, err := store.Load(ctx, state.Ref{ClientID: "orion"})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, record.Meta.ContextID, loaded.Meta.ContextID)
		assert.Equal(t, 2, loaded.Meta.Version)
		assert.Equal(t, "ctx-orion/v2", loadedMeta.ETag)
		assert.Equal(t, 2, loadedMeta.Version)
		require.Len(t, loaded.Overrides, 1)
		assert.Equal(t, "manual-1", loaded.Overrides[0].ID)
		require.Len(t, loaded.History, 2)
		assert.True(t, record.History[1].Timestamp.Equal(loaded.History[1].Timestamp))
		assert.Equal(t, "COO", loaded.Effective["persona"])
	})

	t.Run("overwrite", func(t *testing.T) {
		store := newStore(t)
		ref := state.Ref{ClientID: "orion"}
		first := Record(t, "orion")
		_, err := store.Save(ctx, ref, first, state.MetaFor(first, time.Now()))
		require.NoError(t, err)

		second := Record(t, "orion")
		second.Meta.Version = 5
		_, err = store.Save(ctx, ref, second, state.MetaFor(second, time.Now()))
		require.NoError(t, err)

		loaded, meta, ok, err := store.Load(ctx, ref)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 5, loaded.Meta.Version)
		assert.Equal(t, "ctx-orion/v5", meta.ETag)
	})

	t.Run("clients are isolated", func(t *testing.T) {
		store := newStore(t)
		for _, id := range []string{"orion", "vega"} {
			record := Record(t, id)
			_, err := store.Save(ctx, state.Ref{ClientID: id}, record, state.MetaFor(record, time.Now()))
			require.NoError(t, err)
		}
		loaded, _, ok, err := store.Load(ctx, state.Ref{ClientID: "vega"})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "vega", loaded.Meta.ClientID)
	})

	t.Run("loads are detached", func(t *testing.T) {
		store := newStore(t)
		ref := state.Ref{ClientID: "orion"}
		record := Record(t, "orion")
		_, err := store.Save(ctx, ref, record, state.MetaFor(record, time.Now()))
		require.NoError(t, err)

		first, _, _, err := store.Load(ctx, ref)
		require.NoError(t, err)
		first.Baseline["persona"] = "mutated"

		second, _, _, err := store.Load(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, "CFO", second.Baseline["persona"])
	})

	t.Run("invalid client id", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Save(ctx, state.Ref{ClientID: "../etc"}, Record(t, "x"), state.Meta{})
		assert.True(t, errors.Is(err, state.ErrInvalidClientID), "got %v", err)
		_, _, _, err = store.Load(ctx, state.Ref{ClientID: " "})
		assert.True(t, errors.Is(err, state.ErrInvalidClientID), "got %v", err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		store := newStore(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, _, _, err := store.Load(cancelled, state.Ref{ClientID: "orion"})
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
		assert.True(t, errors.Is(err, state.ErrPersistence), "got %v", err)
	})
}
