// Package flashkv is an embedded, file-backed, concurrent key-value store
// offering two user-facing collections — HashMap and HashSet — persisted
// durably on top of a single shared append-only log file. Multiple named
// collections coexist in the same file and are demultiplexed by an
// identifier prefix on every record.
package flashkv

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/flashdb/flashkv/internal/logstore"
)

// maxInFlightDurabilityTasks bounds the number of background append+flush
// tasks a single Database will run concurrently, so a burst of
// fire-and-forget inserts can't have an unbounded number of goroutines all
// contending for the same log lock. Each call still starts its own
// goroutine; the ones beyond the bound wait for a slot.
const maxInFlightDurabilityTasks = 256

// Database opens and owns the single log file shared by every collection
// minted from it. A Database is safe for concurrent use; dropping a
// collection handle does not close the file, only Close does.
type Database struct {
	log       *logstore.Log
	sem       *semaphore.Weighted
	logger    *zap.Logger
	sessionID string
}

// Open opens or creates the log file at path for read/write and returns a
// Database bound to it. Logging is disabled (a no-op logger).
func Open(path string) (*Database, error) {
	return OpenWithLogger(path, zap.NewNop())
}

// OpenWithLogger is like Open but logs database open and close diagnostics
// through logger. A nil logger is treated as zap.NewNop().
func OpenWithLogger(path string, logger *zap.Logger) (*Database, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	log, err := logstore.Open(path)
	if err != nil {
		return nil, wrapLogErr(err)
	}

	sessionID := uuid.NewString()
	logger.Debug("flashkv database opened",
		zap.String("path", path),
		zap.String("session", sessionID),
	)

	return &Database{
		log:       log,
		sem:       semaphore.NewWeighted(maxInFlightDurabilityTasks),
		logger:    logger,
		sessionID: sessionID,
	}, nil
}

// Flush forces the OS to write the log file to stable storage (an fsync,
// not merely a flush of in-process buffers — every write in this package is
// an unbuffered os.File.Write, so there's nothing else to flush).
func (d *Database) Flush() error {
	if err := d.log.Flush(); err != nil {
		return wrapLogErr(err)
	}
	return nil
}

// Close flushes and closes the underlying log file. Dropping a Database
// without closing it leaks the file descriptor.
func (d *Database) Close() error {
	d.logger.Debug("flashkv database closing", zap.String("session", d.sessionID))
	if err := d.log.Close(); err != nil {
		return wrapLogErr(err)
	}
	return nil
}

// spawnDurability starts a goroutine that runs fn once a slot is available,
// bounding the number of durability tasks running at any one time.
func (d *Database) spawnDurability(fn func()) {
	go func() {
		_ = d.sem.Acquire(context.Background(), 1)
		defer d.sem.Release(1)
		fn()
	}()
}

// MapConfig configures a HashMap's in-memory sharding.
type MapConfig struct {
	// ShardAmount is the number of shards the in-memory index is
	// partitioned into. Rounded up to the next power of two.
	ShardAmount int
	// Capacity is the initial capacity pre-sized across shards.
	Capacity int
}

// DefaultMapConfig returns the default MapConfig: one shard, zero capacity.
func DefaultMapConfig() MapConfig {
	return MapConfig{ShardAmount: 1, Capacity: 0}
}

// SetConfig configures a HashSet's in-memory sharding.
type SetConfig struct {
	// Capacity is the initial capacity of the set's single shard.
	Capacity int
}

// DefaultSetConfig returns the default SetConfig: zero capacity.
func DefaultSetConfig() SetConfig {
	return SetConfig{Capacity: 0}
}

// HashMap opens (creating if new) a Map collection named name, replaying
// its state from the log. Two handles opened for the same name within one
// process do not share in-memory state — each independently replays from
// the log, so writes through one are invisible through the other until it
// is reopened.
func HashMap[K comparable, V any](db *Database, name string, keyCodec Codec[K], valueCodec Codec[V]) (*MapHandle[K, V], error) {
	return HashMapWithConfig(db, name, keyCodec, valueCodec, DefaultMapConfig())
}

// HashMapWithConfig is HashMap with explicit shard/capacity configuration.
func HashMapWithConfig[K comparable, V any](db *Database, name string, keyCodec Codec[K], valueCodec Codec[V], cfg MapConfig) (*MapHandle[K, V], error) {
	return newMapHandle(db, name, keyCodec, valueCodec, cfg)
}

// HashSet opens (creating if new) a Set collection named name, replaying
// its state from the log.
func HashSet[K comparable](db *Database, name string, keyCodec Codec[K]) (*SetHandle[K], error) {
	return HashSetWithConfig(db, name, keyCodec, DefaultSetConfig())
}

// HashSetWithConfig is HashSet with explicit capacity configuration.
func HashSetWithConfig[K comparable](db *Database, name string, keyCodec Codec[K], cfg SetConfig) (*SetHandle[K], error) {
	return newSetHandle(db, name, keyCodec, cfg)
}
