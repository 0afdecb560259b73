package flashkv

import "encoding/binary"

// Option is a present-or-absent value. Go has no native Option/Maybe type;
// this mirrors the (value, ok bool) idiom used throughout this package,
// packaged so it can flow through a generic DurabilityHandle[Option[V]].
type Option[T any] struct {
	Value T
	Valid bool
}

// Pair is a key-value pair, used for batch insert input and batch remove
// results.
type Pair[K any, V any] struct {
	Key   K
	Value V
}

// collectionID derives a CollectionId from a textual collection name: an
// 8-byte big-endian length prefix followed by the name's raw bytes. Two
// collections are the same iff their derived ids are equal; the length
// prefix makes distinct names always yield distinct, self-delimited ids.
func collectionID(name string) []byte {
	nameBytes := []byte(name)
	id := make([]byte, 8+len(nameBytes))
	binary.BigEndian.PutUint64(id[:8], uint64(len(nameBytes)))
	copy(id[8:], nameBytes)
	return id
}
