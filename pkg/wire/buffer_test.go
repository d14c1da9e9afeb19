package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecBufferDesc_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		desc SecBufferDesc
	}{
		{"empty", NewSecBufferDesc()},
		{"zero length buffer", NewSecBufferDesc(SecBuffer{Type: SecBufferToken, Data: []byte{}})},
		{"token and data", NewSecBufferDesc(
			SecBuffer{Type: SecBufferToken, Data: []byte{}},
			SecBuffer{Type: SecBufferData, Data: []byte("hello")},
		)},
		{"readonly flag preserved", NewSecBufferDesc(
			SecBuffer{Type: SecBufferData | SecBufferReadOnly, Data: []byte{1}},
		)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(0)
			w.WriteSecBufferDesc(tt.desc)
			require.NoError(t, w.Err())
			assert.Equal(t, tt.desc.EncodedSize(), w.Len())

			r := NewReader(w.Bytes())
			got := r.ReadSecBufferDesc()
			require.NoError(t, r.Err())
			assert.Equal(t, tt.desc, got)
			assert.Zero(t, r.Remaining())
		})
	}
}

func TestSecBuffer_Layout(t *testing.T) {
	w := NewWriter(0)
	w.WriteSecBuffer(SecBuffer{Type: SecBufferData, Data: []byte("hi")})
	assert.Equal(t, []byte{2, 0, 0, 0, 1, 0, 0, 0, 'h', 'i'}, w.Bytes())
}

func TestSecBuffer_OversizeRejected(t *testing.T) {
	// cbBuffer claims 0x10000 bytes with only 4 following.
	data := []byte{0x00, 0x00, 0x01, 0x00, 0x02, 0x00, 0x00, 0x00, 1, 2, 3, 4}
	r := NewReader(data)
	b := r.ReadSecBuffer()
	assert.ErrorIs(t, r.Err(), ErrLengthExceedsInput)
	assert.Nil(t, b.Data)
}

func TestSecBufferDesc_BadVersion(t *testing.T) {
	r := NewReader([]byte{1, 0, 0, 0, 0, 0, 0, 0})
	_ = r.ReadSecBufferDesc()
	assert.ErrorIs(t, r.Err(), ErrUnsupportedVersion)
}

func TestSecBufferDesc_CountExceedsInput(t *testing.T) {
	// Three buffers declared, room for at most one.
	data := []byte{
		0, 0, 0, 0,
		3, 0, 0, 0,
		0, 0, 0, 0, 1, 0, 0, 0,
	}
	r := NewReader(data)
	_ = r.ReadSecBufferDesc()
	assert.ErrorIs(t, r.Err(), ErrLengthExceedsInput)

	// A huge count never reaches make.
	r = NewReader([]byte{0, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF})
	_ = r.ReadSecBufferDesc()
	assert.ErrorIs(t, r.Err(), ErrLengthExceedsInput)
}

func TestSecBufferDesc_Find(t *testing.T) {
	d := NewSecBufferDesc(
		SecBuffer{Type: SecBufferData, Data: []byte("x")},
		SecBuffer{Type: SecBufferToken | SecBufferReadOnly, Data: []byte{}},
	)
	b, ok := d.Find(SecBufferToken)
	require.True(t, ok)
	assert.Equal(t, SecBufferToken|SecBufferReadOnly, b.Type)

	_, ok = d.Find(SecBufferPadding)
	assert.False(t, ok)
}

func TestTypes_RoundTrip(t *testing.T) {
	w := NewWriter(0)
	h := Handle{Lower: 1, Upper: 0xFFFFFFFFFFFFFFFF}
	ts := Timestamp{LowPart: 0xFFFFFFFF, HighPart: -2}
	id := LUID{LowPart: 7, HighPart: 1}
	w.WriteHandle(h)
	w.WriteTimestamp(ts)
	w.WriteLUID(id)
	require.Equal(t, HandleSize+TimestampSize+LUIDSize, w.Len())
	assert.Equal(t, byte(1), w.Bytes()[0])

	r := NewReader(w.Bytes())
	assert.Equal(t, h, r.ReadHandle())
	assert.Equal(t, ts, r.ReadTimestamp())
	assert.Equal(t, id, r.ReadLUID())
	require.NoError(t, r.Err())

	assert.True(t, Handle{}.IsZero())
	assert.False(t, h.IsZero())
	assert.Equal(t, ts, TimestampFromInt64(ts.Int64()))
}
