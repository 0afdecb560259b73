package recordio

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cases := []Record{
		{Tag: TagMapInsert, ID: []byte("m:users"), Key: []byte("k1"), Value: []byte("v1")},
		{Tag: TagMapRemove, ID: []byte("m:users"), Key: []byte("k1")},
		{Tag: TagSetInsert, ID: []byte("s:tags"), Key: []byte("golang")},
		{Tag: TagSetRemove, ID: []byte("s:tags"), Key: []byte("golang")},
		{Tag: TagMapInsert, ID: []byte{}, Key: []byte{}, Value: []byte{}},
	}

	for _, rec := range cases {
		data := Encode(rec)
		got, err := DecodeNext(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, rec.Tag, got.Tag)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, rec.Key, got.Key)
		if rec.Tag == TagMapInsert {
			assert.Equal(t, rec.Value, got.Value)
		}
	}
}

func TestDecodeNext_CleanEOF(t *testing.T) {
	_, err := DecodeNext(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecodeNext_TornTail(t *testing.T) {
	rec := Record{Tag: TagMapInsert, ID: []byte("m"), Key: []byte("k"), Value: []byte("value")}
	data := Encode(rec)

	for cut := 1; cut < len(data); cut++ {
		_, err := DecodeNext(bytes.NewReader(data[:cut]))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF, "cut at %d", cut)
	}
}

func TestDecodeNext_UnknownTag(t *testing.T) {
	_, err := DecodeNext(bytes.NewReader([]byte{0xFF}))
	assert.ErrorIs(t, err, ErrDecodeError)
}

func TestDecodeNext_MultipleRecordsSequential(t *testing.T) {
	var buf []byte
	buf = AppendEncode(buf, Record{Tag: TagSetInsert, ID: []byte("s"), Key: []byte("a")})
	buf = AppendEncode(buf, Record{Tag: TagSetInsert, ID: []byte("s"), Key: []byte("b")})
	buf = AppendEncode(buf, Record{Tag: TagSetRemove, ID: []byte("s"), Key: []byte("a")})

	r := bytes.NewReader(buf)
	var got []Record
	for {
		rec, err := DecodeNext(r)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, rec)
	}
	require.Len(t, got, 3)
	assert.Equal(t, []byte("a"), got[0].Key)
	assert.Equal(t, []byte("b"), got[1].Key)
	assert.Equal(t, TagSetRemove, got[2].Tag)
}

func TestRecord_Kind(t *testing.T) {
	assert.Equal(t, KindMap, Record{Tag: TagMapInsert}.Kind())
	assert.Equal(t, KindMap, Record{Tag: TagMapRemove}.Kind())
	assert.Equal(t, KindSet, Record{Tag: TagSetInsert}.Kind())
	assert.Equal(t, KindSet, Record{Tag: TagSetRemove}.Kind())
}
