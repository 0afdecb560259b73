package flashkv

import (
	"errors"
	"fmt"

	"github.com/flashdb/flashkv/internal/logstore"
	"github.com/flashdb/flashkv/internal/recordio"
)

// ErrorKind classifies the underlying cause of an *Error.
type ErrorKind int

const (
	// ErrKindIO covers any failure in open/read/write/seek/truncate/flush.
	ErrKindIO ErrorKind = iota
	// ErrKindCodec covers failures encoding user data or decoding a log
	// record: unknown tag, malformed length, bad value shape.
	ErrKindCodec
	// ErrKindLockPoisoned means the log's mutex was observed poisoned by a
	// prior panic while it was held.
	ErrKindLockPoisoned
	// ErrKindAwaitFailed means a durability task failed to run to
	// completion for a reason outside of Io/Codec/LockPoisoned.
	ErrKindAwaitFailed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindIO:
		return "io"
	case ErrKindCodec:
		return "codec"
	case ErrKindLockPoisoned:
		return "lock poisoned"
	case ErrKindAwaitFailed:
		return "await failed"
	default:
		return "unknown"
	}
}

// Error is flashkv's public error type: a tagged union exposing both a
// classification (Kind) and the wrapped underlying error for inspection via
// errors.As/errors.Is.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("flashkv: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapIO(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ErrKindIO, Err: err}
}

func wrapCodec(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ErrKindCodec, Err: err}
}

func wrapLockPoisoned(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ErrKindLockPoisoned, Err: err}
}

func wrapAwaitFailed(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ErrKindAwaitFailed, Err: err}
}

// wrapLogErr classifies an error returned by internal/logstore (or, by
// extension, internal/recordio) into the right ErrorKind.
func wrapLogErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, logstore.ErrLockPoisoned):
		return wrapLockPoisoned(err)
	case errors.Is(err, recordio.ErrDecodeError):
		return wrapCodec(err)
	default:
		return wrapIO(err)
	}
}
