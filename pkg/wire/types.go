package wire

import "fmt"

// Handle is an opaque reference to a credential or security context owned by
// the provider. The core never interprets it; two handles are equal when both
// parts are equal.
type Handle struct {
	Lower uint64
	Upper uint64
}

// IsZero reports whether both parts are zero, which callers use for "no handle".
func (h Handle) IsZero() bool {
	return h.Lower == 0 && h.Upper == 0
}

func (h Handle) String() string {
	return fmt.Sprintf("%016x:%016x", h.Upper, h.Lower)
}

// Timestamp is a provider-defined 64-bit time value split into halves.
type Timestamp struct {
	LowPart  uint32
	HighPart int32
}

// Int64 joins both halves into a single signed value.
func (t Timestamp) Int64() int64 {
	return int64(t.HighPart)<<32 | int64(t.LowPart)
}

// TimestampFromInt64 splits v into a Timestamp.
func TimestampFromInt64(v int64) Timestamp {
	return Timestamp{LowPart: uint32(v), HighPart: int32(v >> 32)}
}

// LUID is a locally unique identifier with the same layout as Timestamp.
type LUID struct {
	LowPart  uint32
	HighPart int32
}

// Encoded sizes of the fixed records.
const (
	HandleSize    = 16
	TimestampSize = 8
	LUIDSize      = 8
)

// ReadHandle reads a Handle (lower then upper).
func (r *Reader) ReadHandle() Handle {
	lower := r.ReadUint64()
	upper := r.ReadUint64()
	return Handle{Lower: lower, Upper: upper}
}

// WriteHandle writes a Handle (lower then upper).
func (w *Writer) WriteHandle(h Handle) {
	w.WriteUint64(h.Lower)
	w.WriteUint64(h.Upper)
}

// ReadTimestamp reads a Timestamp (low then high part).
func (r *Reader) ReadTimestamp() Timestamp {
	low := r.ReadUint32()
	high := r.ReadInt32()
	return Timestamp{LowPart: low, HighPart: high}
}

// WriteTimestamp writes a Timestamp (low then high part).
func (w *Writer) WriteTimestamp(t Timestamp) {
	w.WriteUint32(t.LowPart)
	w.WriteInt32(t.HighPart)
}

// ReadLUID reads a LUID (low then high part).
func (r *Reader) ReadLUID() LUID {
	low := r.ReadUint32()
	high := r.ReadInt32()
	return LUID{LowPart: low, HighPart: high}
}

// WriteLUID writes a LUID (low then high part).
func (w *Writer) WriteLUID(l LUID) {
	w.WriteUint32(l.LowPart)
	w.WriteInt32(l.HighPart)
}
