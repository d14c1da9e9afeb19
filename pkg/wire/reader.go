package wire

import (
	"encoding/binary"
	"fmt"
)

// Reader provides sequential reading of little-endian NetSSPI wire data with
// error accumulation. Once an error occurs, all subsequent reads become
// no-ops returning zero values.
type Reader struct {
	data []byte
	pos  int
	err  error
}

// NewReader creates a new Reader wrapping the given byte slice with position at 0.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// require checks that n bytes are available at the current position.
func (r *Reader) require(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.pos, len(r.data)-r.pos)
		return false
	}
	return true
}

// bound checks a length declared on the wire against the remaining input.
// unit is the minimum encoded size of one counted element.
func (r *Reader) bound(declared uint32, unit int, what string) bool {
	if r.err != nil {
		return false
	}
	if uint64(declared)*uint64(unit) > uint64(r.Remaining()) {
		r.err = fmt.Errorf("%w: %s %d at offset %d, %d bytes remain", ErrLengthExceedsInput, what, declared, r.pos, r.Remaining())
		return false
	}
	return true
}

// Fail records err unless an earlier error is already set. Decoders use it to
// report shape violations that the primitive reads cannot detect.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// ReadUint8 reads a single byte and advances the position by 1.
func (r *Reader) ReadUint8() uint8 {
	if !r.require(1) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

// ReadUint16 reads a little-endian uint16 and advances the position by 2.
func (r *Reader) ReadUint16() uint16 {
	if !r.require(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

// ReadUint32 reads a little-endian uint32 and advances the position by 4.
func (r *Reader) ReadUint32() uint32 {
	if !r.require(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

// ReadInt32 reads a little-endian two's complement int32.
func (r *Reader) ReadInt32() int32 {
	return int32(r.ReadUint32())
}

// ReadUint64 reads a little-endian uint64 and advances the position by 8.
func (r *Reader) ReadUint64() uint64 {
	if !r.require(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v
}

// ReadBytes reads n bytes into a new slice and advances the position.
// A zero n yields an empty, non-nil slice.
func (r *Reader) ReadBytes(n int) []byte {
	if !r.require(n) {
		return nil
	}
	b := make([]byte, n)
	copy(b, r.data[r.pos:r.pos+n])
	r.pos += n
	return b
}

// ReadBlob reads a 32-bit byte count followed by that many bytes. The count
// is validated against the remaining input before allocation.
func (r *Reader) ReadBlob() []byte {
	n := r.ReadUint32()
	if !r.bound(n, 1, "blob length") {
		return nil
	}
	return r.ReadBytes(int(n))
}

// Sub returns a Reader over the next n bytes and advances past them. The
// sub-reader shares the underlying array; errors in it do not propagate.
func (r *Reader) Sub(n int) *Reader {
	if !r.require(n) {
		return &Reader{err: r.err}
	}
	sub := NewReader(r.data[r.pos : r.pos+n])
	r.pos += n
	return sub
}

// Err returns the first error encountered, or nil.
func (r *Reader) Err() error {
	return r.err
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return max(len(r.data)-r.pos, 0)
}

// Position returns the current read position.
func (r *Reader) Position() int {
	return r.pos
}
