package flashkv_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flashdb/flashkv"
)

func TestMapHandle_CompactPreservesLiveStateAndOtherCollections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := flashkv.Open(path)
	require.NoError(t, err)

	a, err := flashkv.HashMap[string, string](db, "a", flashkv.StringCodec(), flashkv.StringCodec())
	require.NoError(t, err)
	b, err := flashkv.HashMap[string, string](db, "b", flashkv.StringCodec(), flashkv.StringCodec())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		h := a.Insert(string(rune('a'+i)), "v")
		_, err := h.Await(context.Background())
		require.NoError(t, err)
	}
	hRemove, ok := a.Remove("a")
	require.True(t, ok)
	_, err = hRemove.Await(context.Background())
	require.NoError(t, err)

	hb := b.Insert("other", "untouched")
	_, err = hb.Await(context.Background())
	require.NoError(t, err)

	require.NoError(t, a.Compact())

	require.NoError(t, db.Close())

	db2, err := flashkv.Open(path)
	require.NoError(t, err)
	defer db2.Close()

	a2, err := flashkv.HashMap[string, string](db2, "a", flashkv.StringCodec(), flashkv.StringCodec())
	require.NoError(t, err)
	b2, err := flashkv.HashMap[string, string](db2, "b", flashkv.StringCodec(), flashkv.StringCodec())
	require.NoError(t, err)

	require.Equal(t, 4, a2.Len())
	_, ok = a2.Get("a")
	require.False(t, ok)

	v, ok := b2.Get("other")
	require.True(t, ok)
	require.Equal(t, "untouched", v.Value())
}

func TestMapHandle_RemoveBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := flashkv.Open(path)
	require.NoError(t, err)
	defer db.Close()

	m, err := flashkv.HashMap[string, int64](db, "m", flashkv.StringCodec(), flashkv.Int64Codec())
	require.NoError(t, err)

	pairs := []flashkv.Pair[string, int64]{{Key: "x", Value: 1}, {Key: "y", Value: 2}}
	h := m.InsertBatch(pairs)
	_, err = h.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, m.Len())

	h2 := m.RemoveBatch([]string{"x", "y"})
	removed, err := h2.Await(context.Background())
	require.NoError(t, err)
	require.Len(t, removed, 2)
	require.True(t, m.IsEmpty())
}

func TestMapHandle_ReplayRoundTripsFixedWidthCodec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := flashkv.Open(path)
	require.NoError(t, err)

	m, err := flashkv.HashMap[string, int64](db, "m", flashkv.StringCodec(), flashkv.Int64Codec())
	require.NoError(t, err)

	h := m.Insert("k", 42)
	_, err = h.Await(context.Background())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db2, err := flashkv.Open(path)
	require.NoError(t, err)
	defer db2.Close()

	m2, err := flashkv.HashMap[string, int64](db2, "m", flashkv.StringCodec(), flashkv.Int64Codec())
	require.NoError(t, err)
	v, ok := m2.Get("k")
	require.True(t, ok)
	require.Equal(t, int64(42), v.Value())
}
