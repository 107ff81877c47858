package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSlotStore(t *testing.T, store SlotStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	payload := []byte(`[{"id":1,"price":10.5,"qty":2}]`)
	require.NoError(t, store.Save(ctx, "sess-a", payload))

	got, err := store.Load(ctx, "sess-a")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Overwrite replaces the whole payload.
	require.NoError(t, store.Save(ctx, "sess-a", []byte(`[]`)))
	got, err = store.Load(ctx, "sess-a")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got)

	// Keys are independent.
	require.NoError(t, store.Save(ctx, "sess-b", payload))
	got, err = store.Load(ctx, "sess-b")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NoError(t, store.Delete(ctx, "sess-a"))
	_, err = store.Load(ctx, "sess-a")
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent key is a no-op.
	require.NoError(t, store.Delete(ctx, "sess-a"))
}

func TestMemory(t *testing.T) {
	testSlotStore(t, NewMemory())
}

func TestFile(t *testing.T) {
	store, err := NewFile(t.TempDir())
	require.NoError(t, err)
	testSlotStore(t, store)
}

func TestFile_RejectsTraversalKeys(t *testing.T) {
	store, err := NewFile(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/b", `a\b`} {
		require.Error(t, store.Save(context.Background(), key, []byte("x")), "key %q", key)
	}
}

func TestMemory_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Save(ctx, "k", []byte("abc")))

	got, err := m.Load(ctx, "k")
	require.NoError(t, err)
	got[0] = 'z'

	again, err := m.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}
