package shardmap

import (
	"strconv"
	"sync"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
)

func stringHash(s string) uint64 {
	return xxhash.Sum64String(s)
}

func TestMap_InsertGetRemove(t *testing.T) {
	m := New[string, string](4, 0, stringHash)

	_, hadPrev := m.Insert("k1", "v1")
	assert.False(t, hadPrev)

	v, ok := m.Get("k1")
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	prev, hadPrev := m.Insert("k1", "v2")
	assert.True(t, hadPrev)
	assert.Equal(t, "v1", prev)

	removed, ok := m.Remove("k1")
	assert.True(t, ok)
	assert.Equal(t, "v2", removed)

	_, ok = m.Get("k1")
	assert.False(t, ok)
}

func TestMap_ShardAmountRoundsToPowerOfTwo(t *testing.T) {
	m := New[string, int](5, 0, stringHash)
	assert.Equal(t, 8, m.ShardAmount())

	m = New[string, int](1, 0, stringHash)
	assert.Equal(t, 1, m.ShardAmount())
}

func TestMap_LenIsEmptyClear(t *testing.T) {
	m := New[string, int](8, 0, stringHash)
	assert.True(t, m.IsEmpty())

	for i := 0; i < 50; i++ {
		m.Insert(strconv.Itoa(i), i)
	}
	assert.Equal(t, 50, m.Len())
	assert.False(t, m.IsEmpty())

	m.Clear()
	assert.True(t, m.IsEmpty())
	assert.Equal(t, 0, m.Len())
}

func TestMap_ConcurrentAccessAcrossShards(t *testing.T) {
	m := New[string, int](16, 0, stringHash)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := strconv.Itoa(g*1000 + i)
				m.Insert(key, i)
				m.Get(key)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 8*200, m.Len())
}

func TestMap_Iter(t *testing.T) {
	m := New[string, int](4, 0, stringHash)
	want := map[string]int{"a": 1, "b": 2, "c": 3}
	for k, v := range want {
		m.Insert(k, v)
	}

	got := make(map[string]int)
	var mu sync.Mutex
	m.Iter(func(k string, v int) {
		mu.Lock()
		got[k] = v
		mu.Unlock()
	})
	assert.Equal(t, want, got)
}

func TestMap_Capacity(t *testing.T) {
	m := New[string, int](8, 112, stringHash)
	assert.Equal(t, 112, m.Capacity())
}
