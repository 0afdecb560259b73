package flashkv

import (
	"github.com/cespare/xxhash/v2"

	"github.com/flashdb/flashkv/internal/logstore"
	"github.com/flashdb/flashkv/internal/recordio"
	"github.com/flashdb/flashkv/internal/shardmap"
)

// SetHandle is a handle to one named Set collection: a sharded in-memory
// index of present keys backed by durable log records. Like MapHandle, it
// does not share state with any other handle opened for the same name.
type SetHandle[K comparable] struct {
	db       *Database
	id       []byte
	keyCodec Codec[K]
	index    *shardmap.Map[K, struct{}]
}

func newSetHandle[K comparable](db *Database, name string, keyCodec Codec[K], cfg SetConfig) (*SetHandle[K], error) {
	id := collectionID(name)
	hash := func(key K) uint64 { return xxhash.Sum64(keyCodec.Encode(key)) }
	index := shardmap.New[K, struct{}](1, cfg.Capacity, hash)

	h := &SetHandle[K]{db: db, id: id, keyCodec: keyCodec, index: index}
	if err := h.replay(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *SetHandle[K]) replay() error {
	var replayErr error
	err := logstore.Replay(h.db.log, func(rec recordio.Record) {
		if replayErr != nil {
			return
		}
		if string(rec.ID) != string(h.id) {
			return
		}
		switch rec.Tag {
		case recordio.TagSetInsert:
			key, err := h.keyCodec.Decode(rec.Key)
			if err != nil {
				replayErr = wrapCodec(err)
				return
			}
			h.index.Insert(key, struct{}{})
		case recordio.TagSetRemove:
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

// Insert adds key to the set. The returned handle's Await yields whether
// key was newly inserted (false if it was already present) once durable.
func (h *SetHandle[K]) Insert(key K) *DurabilityHandle[bool] {
	_, hadPrev := h.index.Insert(key, struct{}{})
	rec := recordio.Record{Tag: recordio.TagSetInsert, ID: h.id, Key: h.keyCodec.Encode(key)}
	handle, resolve := newDurabilityHandle[bool]()
	h.db.spawnDurability(func() {
		err := h.db.log.Append(recordio.Encode(rec))
		resolve(!hadPrev, wrapLogErr(err))
	})
	return handle
}

// InsertBatch inserts every key in input order, returning one durability
// handle covering the whole batch as a single contiguous append. Await
// yields, for each key, whether it was newly inserted, in input order.
func (h *SetHandle[K]) InsertBatch(keys []K) *DurabilityHandle[[]bool] {
	inserted := make([]bool, len(keys))
	var buf []byte
	for i, k := range keys {
		_, hadPrev := h.index.Insert(k, struct{}{})
		inserted[i] = !hadPrev
		buf = recordio.AppendEncode(buf, recordio.Record{Tag: recordio.TagSetInsert, ID: h.id, Key: h.keyCodec.Encode(k)})
	}
	handle, resolve := newDurabilityHandle[[]bool]()
	h.db.spawnDurability(func() {
		err := h.db.log.Append(buf)
		resolve(inserted, wrapLogErr(err))
	})
	return handle
}

// Contains reports whether key is present in the set.
func (h *SetHandle[K]) Contains(key K) bool {
	return h.index.Contains(key)
}

// Remove deletes key if present, returning a handle whose Await yields key
// once durable, and true. If key was not present, nothing is removed or
// scheduled and Remove returns (nil, false).
func (h *SetHandle[K]) Remove(key K) (*DurabilityHandle[Option[K]], bool) {
	_, had := h.index.Remove(key)
	if !had {
		return nil, false
	}
	rec := recordio.Record{Tag: recordio.TagSetRemove, ID: h.id, Key: h.keyCodec.Encode(key)}
	handle, resolve := newDurabilityHandle[Option[K]]()
	h.db.spawnDurability(func() {
		err := h.db.log.Append(recordio.Encode(rec))
		resolve(Option[K]{Value: key, Valid: true}, wrapLogErr(err))
	})
	return handle, true
}

// RemoveBatch removes every key present among keys, appending a remove
// record for each key regardless of presence, in one contiguous append.
// Await yields the keys that were actually removed, in input order.
func (h *SetHandle[K]) RemoveBatch(keys []K) *DurabilityHandle[[]K] {
	var removed []K
	var buf []byte
	for _, k := range keys {
		if _, had := h.index.Remove(k); had {
			removed = append(removed, k)
		}
		buf = recordio.AppendEncode(buf, recordio.Record{Tag: recordio.TagSetRemove, ID: h.id, Key: h.keyCodec.Encode(k)})
	}
	handle, resolve := newDurabilityHandle[[]K]()
	h.db.spawnDurability(func() {
		err := h.db.log.Append(buf)
		resolve(removed, wrapLogErr(err))
	})
	return handle
}

// Len returns the number of keys currently in the set.
func (h *SetHandle[K]) Len() int { return h.index.Len() }

// IsEmpty reports whether the set has no keys.
func (h *SetHandle[K]) IsEmpty() bool { return h.index.IsEmpty() }

// Clear removes every key from the set, both in memory and in the log.
func (h *SetHandle[K]) Clear() error {
	h.index.Clear()
	if err := logstore.SelectiveClear(h.db.log, h.id); err != nil {
		return wrapLogErr(err)
	}
	return nil
}

// Compact rewrites this collection's portion of the log to exactly its
// current in-memory state (one insert per live key), while leaving every
// other collection's records untouched.
func (h *SetHandle[K]) Compact() error {
	var live []recordio.Record
	h.index.Iter(func(key K, _ struct{}) {
		live = append(live, recordio.Record{Tag: recordio.TagSetInsert, ID: h.id, Key: h.keyCodec.Encode(key)})
	})
	if err := logstore.Compact(h.db.log, h.id, live); err != nil {
		return wrapLogErr(err)
	}
	return nil
}
