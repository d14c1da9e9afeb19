package wire

import (
	"encoding/binary"
	"fmt"
)

// Writer provides sequential writing of little-endian NetSSPI wire data with
// append-based growth.
type Writer struct {
	buf []byte
	err error
}

// NewWriter creates a new Writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{
		buf: make([]byte, 0, capacity),
	}
}

// WriteUint8 appends a single byte.
func (w *Writer) WriteUint8(v uint8) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, v)
}

// WriteUint16 appends a little-endian uint16.
func (w *Writer) WriteUint16(v uint16) {
	if w.err != nil {
		return
	}
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// WriteUint32 appends a little-endian uint32.
func (w *Writer) WriteUint32(v uint32) {
	if w.err != nil {
		return
	}
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteInt32 appends a little-endian two's complement int32.
func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

// WriteUint64 appends a little-endian uint64.
func (w *Writer) WriteUint64(v uint64) {
	if w.err != nil {
		return
	}
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(data []byte) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, data...)
}

// WriteBlob appends a 32-bit byte count followed by the bytes.
func (w *Writer) WriteBlob(data []byte) {
	if uint64(len(data)) > uint64(^uint32(0)) {
		w.Fail(fmt.Errorf("wire: blob of %d bytes exceeds 32-bit length", len(data)))
		return
	}
	w.WriteUint32(uint32(len(data)))
	w.WriteBytes(data)
}

// WriteAt overwrites bytes at the specified offset. Used for backpatching
// length fields once the size of what follows is known.
func (w *Writer) WriteAt(offset int, data []byte) {
	if w.err != nil {
		return
	}
	if offset < 0 || offset+len(data) > len(w.buf) {
		w.err = fmt.Errorf("wire: WriteAt out of bounds: offset %d + %d > %d", offset, len(data), len(w.buf))
		return
	}
	copy(w.buf[offset:], data)
}

// PutUint32At backpatches a little-endian uint32 at offset.
func (w *Writer) PutUint32At(offset int, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.WriteAt(offset, b[:])
}

// Fail records err unless an earlier error is already set.
func (w *Writer) Fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// Bytes returns the accumulated bytes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the current length of the buffer.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Err returns the first error encountered, or nil.
func (w *Writer) Err() error {
	return w.err
}
