package flashkv

// ValueRef is a snapshot of one entry read from a collection's sharded
// index. The original design this package is modeled on (a Rust dashmap
// wrapper) returns a live borrow guarded by the shard's lock; Go has no
// borrow checker and no way to keep a lock held across a returned value
// without the caller forgetting to release it, so ValueRef instead holds an
// owned copy taken while the shard's read lock was briefly held inside
// Get. The property that matters — reads on one shard never block writes
// to another — holds either way.
type ValueRef[K comparable, V any] struct {
	key   K
	value V
}

// Key returns the entry's key.
func (v ValueRef[K, V]) Key() K { return v.key }

// Value returns the entry's value.
func (v ValueRef[K, V]) Value() V { return v.value }

// Pair returns the key and value together.
func (v ValueRef[K, V]) Pair() (K, V) { return v.key, v.value }

// IntoOwned returns the key and value; provided for API parity with the
// original dashmap-derived ValueRef::into_owned, which additionally cloned
// out of a borrow — a no-op here since ValueRef already owns its copy.
func (v ValueRef[K, V]) IntoOwned() (K, V) { return v.key, v.value }
