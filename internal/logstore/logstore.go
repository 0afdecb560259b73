// Package logstore provides scoped, serialized access to the single
// append-only log file shared by every collection in a database, plus the
// replay, compaction and selective-clear algorithms that operate on it.
//
// Every collection in the database is demultiplexed by an id prefix on
// each record; logstore itself is agnostic to that — it only knows how to
// decode/re-encode recordio.Record values and which ones to keep.
package logstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/flashdb/flashkv/internal/recordio"
)

// ErrLockPoisoned is returned when a previous holder of the log's mutex
// panicked while holding it; the log is left in an unknown state and all
// further operations on it fail.
var ErrLockPoisoned = errors.New("logstore: lock poisoned by a prior panic")

// Log is the single OS file shared by all collections in a database,
// protected by a process-wide mutual-exclusion guard (one mutex per Log,
// one Log per open database file).
type Log struct {
	mu       sync.Mutex
	file     *os.File
	path     string
	poisoned bool
}

// Open opens or creates the log file at path for read/write.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("logstore: create directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logstore: open file: %w", err)
	}

	return &Log{file: file, path: path}, nil
}

// Path returns the filesystem path the log was opened with.
func (l *Log) Path() string {
	return l.path
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	return l.withLock(func() error {
		if err := l.file.Sync(); err != nil {
			return fmt.Errorf("logstore: sync on close: %w", err)
		}
		return l.file.Close()
	})
}

// Flush forces the OS to write the file to stable storage.
func (l *Log) Flush() error {
	return l.withLock(func() error {
		return l.file.Sync()
	})
}

// withLock acquires the log's mutex for the duration of fn. If a previous
// call to withLock panicked while holding the lock, the lock is considered
// poisoned and every subsequent call fails with ErrLockPoisoned — the Go
// analogue of a poisoned std::sync::Mutex.
func (l *Log) withLock(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.poisoned {
		return ErrLockPoisoned
	}

	panicked := true
	defer func() {
		if panicked {
			l.poisoned = true
		}
	}()

	err := fn()
	panicked = false
	return err
}

// Append writes data at the end of the log and flushes, under the log
// lock. data may contain one or more already-encoded records.
func (l *Log) Append(data []byte) error {
	return l.withLock(func() error {
		if _, err := l.file.Seek(0, io.SeekEnd); err != nil {
			return fmt.Errorf("logstore: seek to end: %w", err)
		}
		if _, err := l.file.Write(data); err != nil {
			return fmt.Errorf("logstore: write: %w", err)
		}
		return l.file.Sync()
	})
}

// Replay scans the log from offset zero under the log lock, decoding
// records and invoking fn for each one successfully decoded. It stops
// silently at a clean end of stream or at a torn tail (a partially written
// final record, tolerated as the residue of an append that never
// completed); any other decode error fails the call.
func Replay(l *Log, fn func(recordio.Record)) error {
	return l.withLock(func() error {
		if _, err := l.file.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("logstore: seek to start: %w", err)
		}
		data, err := io.ReadAll(l.file)
		if err != nil {
			return fmt.Errorf("logstore: read: %w", err)
		}

		r := bytes.NewReader(data)
		for {
			rec, err := recordio.DecodeNext(r)
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("logstore: decode: %w", err)
			}
			fn(rec)
		}
	})
}

// decodeKeepPrefix decodes every well-formed record in data in order,
// stopping silently at a clean EOF or a torn tail. A genuine decode error
// (bad tag, corrupt length) is returned.
func decodeKeepPrefix(data []byte) ([]recordio.Record, error) {
	r := bytes.NewReader(data)
	var recs []recordio.Record
	for {
		rec, err := recordio.DecodeNext(r)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return recs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("logstore: decode: %w", err)
		}
		recs = append(recs, rec)
	}
}

func encodeAll(recs []recordio.Record) []byte {
	var buf []byte
	for _, r := range recs {
		buf = recordio.AppendEncode(buf, r)
	}
	return buf
}

// rewriteLocked truncates the file to zero and writes recs back in order,
// flushing once. The caller must already hold the log lock (called only
// from within withLock).
func (l *Log) rewriteLocked(recs []recordio.Record) error {
	if err := l.file.Truncate(0); err != nil {
		return fmt.Errorf("logstore: truncate: %w", err)
	}
	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("logstore: seek to start: %w", err)
	}
	if _, err := l.file.Write(encodeAll(recs)); err != nil {
		return fmt.Errorf("logstore: write: %w", err)
	}
	return l.file.Sync()
}

// SelectiveClear removes every record whose id equals id, preserving every
// other record bit-for-bit in order (spec invariant: selective clear of one
// collection never affects another collection's replay).
func SelectiveClear(l *Log, id []byte) error {
	return l.withLock(func() error {
		if _, err := l.file.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("logstore: seek to start: %w", err)
		}
		data, err := io.ReadAll(l.file)
		if err != nil {
			return fmt.Errorf("logstore: read: %w", err)
		}

		all, err := decodeKeepPrefix(data)
		if err != nil {
			return err
		}

		kept := all[:0:0]
		for _, rec := range all {
			if !bytes.Equal(rec.ID, id) {
				kept = append(kept, rec)
			}
		}
		return l.rewriteLocked(kept)
	})
}

// Compact rewrites the log so that id's records are replaced by exactly
// liveRecords (the minimal insert-only form of its current in-memory
// state), while every other collection's records are preserved bit-for-bit
// in order. This is the scan-filter compaction variant — the lossy
// whole-database-dump variant that would discard other collections is
// never implemented.
func Compact(l *Log, id []byte, liveRecords []recordio.Record) error {
	return l.withLock(func() error {
		if _, err := l.file.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("logstore: seek to start: %w", err)
		}
		data, err := io.ReadAll(l.file)
		if err != nil {
			return fmt.Errorf("logstore: read: %w", err)
		}

		all, err := decodeKeepPrefix(data)
		if err != nil {
			return err
		}

		kept := all[:0:0]
		for _, rec := range all {
			if !bytes.Equal(rec.ID, id) {
				kept = append(kept, rec)
			}
		}
		kept = append(kept, liveRecords...)
		return l.rewriteLocked(kept)
	})
}
