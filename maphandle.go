package flashkv

import (
	"github.com/cespare/xxhash/v2"

	"github.com/flashdb/flashkv/internal/logstore"
	"github.com/flashdb/flashkv/internal/recordio"
	"github.com/flashdb/flashkv/internal/shardmap"
)

// MapHandle is a handle to one named Map collection: a sharded in-memory
// index backed by durable log records. A MapHandle does not share state
// with any other handle opened for the same name — each replays
// independently from the log at open time.
type MapHandle[K comparable, V any] struct {
	db       *Database
	id       []byte
	keyCodec Codec[K]
	valCodec Codec[V]
	index    *shardmap.Map[K, V]
}

func newMapHandle[K comparable, V any](db *Database, name string, keyCodec Codec[K], valueCodec Codec[V], cfg MapConfig) (*MapHandle[K, V], error) {
	id := collectionID(name)
	hash := func(key K) uint64 { return xxhash.Sum64(keyCodec.Encode(key)) }
	index := shardmap.New[K, V](cfg.ShardAmount, cfg.Capacity, hash)

	h := &MapHandle[K, V]{db: db, id: id, keyCodec: keyCodec, valCodec: valueCodec, index: index}
	if err := h.replay(); err != nil {
		return nil, err
	}
	return h, nil
}

// replay rebuilds the in-memory index from every record in the log bearing
// this collection's id, in log order. A malformed key or value (one the
// codec rejects) is a codec error and aborts the open; a torn tail is
// already silently tolerated by logstore.Replay.
func (h *MapHandle[K, V]) replay() error {
	var replayErr error
	err := logstore.Replay(h.db.log, func(rec recordio.Record) {
		if replayErr != nil {
			return
		}
		if string(rec.ID) != string(h.id) {
			return
		}
		switch rec.Tag {
		case recordio.TagMapInsert:
			key, err := h.keyCodec.Decode(rec.Key)
			if err != nil {
				replayErr = wrapCodec(err)
				return
			}
			value, err := h.valCodec.Decode(rec.Value)
			if err != nil {
				replayErr = wrapCodec(err)
				return
			}
			h.index.Insert(key, value)
		case recordio.TagMapRemove:
			key, err := h.keyCodec.Decode(rec.Key)
			if err != nil {
				replayErr = wrapCodec(err)
				return
			}
			h.index.Remove(key)
		}
	})
	if err != nil {
		return wrapLogErr(err)
	}
	return replayErr
}

// Insert sets key to value. The in-memory update is visible to Get
// immediately; the returned handle's Await yields the previous value (if
// any) once the corresponding record is durable, or the failure that
// prevented that.
func (h *MapHandle[K, V]) Insert(key K, value V) *DurabilityHandle[Option[V]] {
	prev, hadPrev := h.index.Insert(key, value)
	rec := recordio.Record{Tag: recordio.TagMapInsert, ID: h.id, Key: h.keyCodec.Encode(key), Value: h.valCodec.Encode(value)}
	handle, resolve := newDurabilityHandle[Option[V]]()
	h.db.spawnDurability(func() {
		err := h.db.log.Append(recordio.Encode(rec))
		resolve(Option[V]{Value: prev, Valid: hadPrev}, wrapLogErr(err))
	})
	return handle
}

// InsertBatch inserts every pair in input order, returning one durability
// handle covering the whole batch as a single contiguous append. Await
// yields the previous value (if any) for each pair, in input order.
func (h *MapHandle[K, V]) InsertBatch(pairs []Pair[K, V]) *DurabilityHandle[[]Option[V]] {
	oldValues := make([]Option[V], len(pairs))
	var buf []byte
	for i, p := range pairs {
		prev, hadPrev := h.index.Insert(p.Key, p.Value)
		oldValues[i] = Option[V]{Value: prev, Valid: hadPrev}
		buf = recordio.AppendEncode(buf, recordio.Record{
			Tag: recordio.TagMapInsert, ID: h.id,
			Key: h.keyCodec.Encode(p.Key), Value: h.valCodec.Encode(p.Value),
		})
	}
	handle, resolve := newDurabilityHandle[[]Option[V]]()
	h.db.spawnDurability(func() {
		err := h.db.log.Append(buf)
		resolve(oldValues, wrapLogErr(err))
	})
	return handle
}

// Get returns a snapshot of the entry for key, and whether it was present.
func (h *MapHandle[K, V]) Get(key K) (ValueRef[K, V], bool) {
	v, ok := h.index.Get(key)
	if !ok {
		return ValueRef[K, V]{}, false
	}
	return ValueRef[K, V]{key: key, value: v}, true
}

// Remove deletes key if present, returning a handle whose Await yields the
// removed value once durable, and true. If key was not present, nothing is
// removed or scheduled and Remove returns (nil, false).
func (h *MapHandle[K, V]) Remove(key K) (*DurabilityHandle[Option[V]], bool) {
	prev, had := h.index.Remove(key)
	if !had {
		return nil, false
	}
	rec := recordio.Record{Tag: recordio.TagMapRemove, ID: h.id, Key: h.keyCodec.Encode(key)}
	handle, resolve := newDurabilityHandle[Option[V]]()
	h.db.spawnDurability(func() {
		err := h.db.log.Append(recordio.Encode(rec))
		resolve(Option[V]{Value: prev, Valid: true}, wrapLogErr(err))
	})
	return handle, true
}

// RemoveBatch removes every key present among keys, appending a remove
// record for each key regardless of presence (so replay always sees a
// tombstone for every requested key), in one contiguous append. Await
// yields the pairs that were actually removed, in input order.
func (h *MapHandle[K, V]) RemoveBatch(keys []K) *DurabilityHandle[[]Pair[K, V]] {
	var removed []Pair[K, V]
	var buf []byte
	for _, k := range keys {
		if v, had := h.index.Remove(k); had {
			removed = append(removed, Pair[K, V]{Key: k, Value: v})
		}
		buf = recordio.AppendEncode(buf, recordio.Record{Tag: recordio.TagMapRemove, ID: h.id, Key: h.keyCodec.Encode(k)})
	}
	handle, resolve := newDurabilityHandle[[]Pair[K, V]]()
	h.db.spawnDurability(func() {
		err := h.db.log.Append(buf)
		resolve(removed, wrapLogErr(err))
	})
	return handle
}

// Len returns the number of entries currently in the map.
func (h *MapHandle[K, V]) Len() int { return h.index.Len() }

// IsEmpty reports whether the map has no entries.
func (h *MapHandle[K, V]) IsEmpty() bool { return h.index.IsEmpty() }

// Capacity returns the map's configured shard capacity hint.
func (h *MapHandle[K, V]) Capacity() int { return h.index.Capacity() }

// Clear removes every entry from the map, both in memory and in the log.
// The in-memory clear happens first so a concurrent reader never observes
// a state the log can't yet justify; the log-side selective clear
// preserves every other collection's records untouched.
func (h *MapHandle[K, V]) Clear() error {
	h.index.Clear()
	if err := logstore.SelectiveClear(h.db.log, h.id); err != nil {
		return wrapLogErr(err)
	}
	return nil
}

// Compact rewrites this collection's portion of the log to exactly its
// current in-memory state (one insert per live entry), discarding the
// history of removed and overwritten keys, while leaving every other
// collection's records untouched.
func (h *MapHandle[K, V]) Compact() error {
	var live []recordio.Record
	h.index.Iter(func(key K, value V) {
		live = append(live, recordio.Record{Tag: recordio.TagMapInsert, ID: h.id, Key: h.keyCodec.Encode(key), Value: h.valCodec.Encode(value)})
	})
	if err := logstore.Compact(h.db.log, h.id, live); err != nil {
		return wrapLogErr(err)
	}
	return nil
}
