package wire

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString_LengthField(t *testing.T) {
	tests := []struct {
		name    string
		in      String
		wantLen int
		field   uint16
	}{
		{"empty ansi", String{Buffer: []byte{}}, 0, 0x0000},
		{"empty wide", String{Encoding: EncodingWide, Buffer: []byte{}}, 0, 0x8000},
		{"one byte", NewString("x"), 1, 0x0001},
		{"max", String{Buffer: bytes.Repeat([]byte{'a'}, MaxStringLength)}, MaxStringLength, 0x7FFF},
		{"max wide", String{Encoding: EncodingWide, Buffer: make([]byte, MaxStringLength)}, MaxStringLength, 0xFFFF},
		{"over max", String{Buffer: make([]byte, MaxStringLength+10)}, MaxStringLength, 0x7FFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(0)
			w.WriteString(tt.in)
			require.NoError(t, w.Err())
			require.Equal(t, 2+tt.wantLen, w.Len())
			assert.Equal(t, tt.field, uint16(w.Bytes()[0])|uint16(w.Bytes()[1])<<8)

			r := NewReader(w.Bytes())
			got := r.ReadString()
			require.NoError(t, r.Err())
			assert.Equal(t, tt.in.Encoding, got.Encoding)
			assert.Equal(t, tt.in.Buffer[:tt.wantLen], got.Buffer)
			assert.Zero(t, r.Remaining())
		})
	}
}

func TestString_Truncated(t *testing.T) {
	// Declares 5 bytes, carries 2.
	r := NewReader([]byte{0x05, 0x00, 'a', 'b'})
	s := r.ReadString()
	assert.ErrorIs(t, r.Err(), ErrTruncated)
	assert.Nil(t, s.Buffer)
}

func TestString_Wide(t *testing.T) {
	s := NewWideString("Hé")
	assert.Equal(t, EncodingWide, s.Encoding)
	assert.Equal(t, []byte{'H', 0, 0xE9, 0}, s.Buffer)
	assert.Equal(t, "Hé", s.Text())
	assert.Equal(t, "NTLM", NewString("NTLM").Text())
}

func TestAuthIdentity_RoundTrip(t *testing.T) {
	in := AuthIdentity{
		Flags:    AuthIdentityUnicode,
		User:     NewWideString("alice"),
		Domain:   NewWideString("CORP"),
		Password: NewWideString("s3cret"),
	}
	w := NewWriter(0)
	w.WriteAuthIdentity(&in)
	require.NoError(t, w.Err())
	assert.Equal(t, in.EncodedSize(), w.Len())

	r := NewReader(w.Bytes())
	out := r.ReadAuthIdentity()
	require.NoError(t, r.Err())
	assert.Equal(t, in, out)

	out.Clear()
	assert.Equal(t, make([]byte, len(out.Password.Buffer)), out.Password.Buffer)
}

func TestAuthIdentity_LogValueRedactsPassword(t *testing.T) {
	id := AuthIdentity{
		User:     NewString("alice"),
		Password: NewString("hunter2"),
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("acquire", "identity", id)

	out := buf.String()
	assert.Contains(t, out, "alice")
	assert.NotContains(t, out, "hunter2")
	assert.True(t, strings.Contains(out, "redacted"), out)
}

func TestString_LogValueHidesContent(t *testing.T) {
	s := NewString("topsecret")
	got := fmt.Sprint(s.LogValue())
	assert.False(t, strings.Contains(got, "topsecret"), got)
}
