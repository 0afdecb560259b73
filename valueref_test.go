package flashkv

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueRef_Accessors(t *testing.T) {
	v := ValueRef[string, int]{key: "k", value: 42}
	require.Equal(t, "k", v.Key())
	require.Equal(t, 42, v.Value())

	k, val := v.Pair()
	require.Equal(t, "k", k)
	require.Equal(t, 42, val)

	k2, val2 := v.IntoOwned()
	require.Equal(t, "k", k2)
	require.Equal(t, 42, val2)
}

func TestCollectionID_DistinctForDistinctNames(t *testing.T) {
	a := collectionID("alpha")
	b := collectionID("beta")
	require.NotEqual(t, a, b)
}

func TestCollectionID_PrefixFree(t *testing.T) {
	// "a" is a byte-level prefix of "ab", but the length prefix keeps the id
	// of "a" from being a prefix of the id of "ab".
	short := collectionID("a")
	long := collectionID("ab")
	require.NotEqual(t, short, long)
	require.False(t, bytes.HasPrefix(long, short))
}
