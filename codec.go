package flashkv

import (
	"encoding/binary"
	"fmt"
)

// Codec converts a user key or value of type T to and from the opaque byte
// sequences stored in log records. It is an external collaborator: flashkv
// never inspects the bytes it produces, only length-prefixes and stores
// them. Encode must be self-consistent with Decode for the round-trip
// invariant (spec §8.5) to hold.
type Codec[T any] interface {
	Encode(v T) []byte
	Decode(b []byte) (T, error)
}

type stringCodec struct{}

func (stringCodec) Encode(v string) []byte { return []byte(v) }
func (stringCodec) Decode(b []byte) (string, error) {
	return string(b), nil
}

// StringCodec encodes strings as their raw UTF-8 bytes.
func StringCodec() Codec[string] { return stringCodec{} }

type bytesCodec struct{}

func (bytesCodec) Encode(v []byte) []byte { return append([]byte(nil), v...) }
func (bytesCodec) Decode(b []byte) ([]byte, error) {
	return append([]byte(nil), b...), nil
}

// BytesCodec passes byte slices through unchanged (copied, so callers can't
// mutate log-owned memory through a returned value).
func BytesCodec() Codec[[]byte] { return bytesCodec{} }

type int64Codec struct{}

func (int64Codec) Encode(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func (int64Codec) Decode(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("flashkv: int64 codec: expected 8 bytes, got %d", len(b))
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// Int64Codec encodes int64 values as fixed-width big-endian bytes.
func Int64Codec() Codec[int64] { return int64Codec{} }
