package wire

import "fmt"

// SecBufferVersion is the only buffer descriptor version the protocol accepts.
const SecBufferVersion uint32 = 0

// secBufferMinSize is the encoded size of an empty SecBuffer (count + type).
const secBufferMinSize = 8

// Buffer type tags. The core passes them through; they are listed for callers.
const (
	SecBufferEmpty         uint32 = 0
	SecBufferData          uint32 = 1
	SecBufferToken         uint32 = 2
	SecBufferPkgParams     uint32 = 3
	SecBufferMissing       uint32 = 4
	SecBufferExtra         uint32 = 5
	SecBufferStreamTrailer uint32 = 6
	SecBufferStreamHeader  uint32 = 7
	SecBufferPadding       uint32 = 9
	SecBufferStream        uint32 = 10

	SecBufferReadOnly uint32 = 0x80000000
	SecBufferTypeMask uint32 = 0x0FFFFFFF
)

// SecBuffer is one typed chunk of opaque payload. Its byte count is len(Data).
type SecBuffer struct {
	Type uint32
	Data []byte
}

// EncodedSize returns the number of bytes WriteSecBuffer emits.
func (b SecBuffer) EncodedSize() int {
	return secBufferMinSize + len(b.Data)
}

// SecBufferDesc is an ordered sequence of SecBuffers forming one message.
type SecBufferDesc struct {
	Version uint32
	Buffers []SecBuffer
}

// NewSecBufferDesc returns a descriptor at SecBufferVersion holding buffers.
func NewSecBufferDesc(buffers ...SecBuffer) SecBufferDesc {
	if buffers == nil {
		buffers = []SecBuffer{}
	}
	return SecBufferDesc{Version: SecBufferVersion, Buffers: buffers}
}

// Find returns the first buffer whose type (ignoring attribute flags) is typ.
func (d *SecBufferDesc) Find(typ uint32) (*SecBuffer, bool) {
	for i := range d.Buffers {
		if d.Buffers[i].Type&SecBufferTypeMask == typ {
			return &d.Buffers[i], true
		}
	}
	return nil, false
}

// EncodedSize returns the number of bytes WriteSecBufferDesc emits.
func (d SecBufferDesc) EncodedSize() int {
	n := 8
	for _, b := range d.Buffers {
		n += b.EncodedSize()
	}
	return n
}

// ReadSecBuffer reads cbBuffer, BufferType and the payload bytes. cbBuffer
// is validated against the remaining input before the payload is allocated.
func (r *Reader) ReadSecBuffer() SecBuffer {
	size := r.ReadUint32()
	typ := r.ReadUint32()
	if !r.bound(size, 1, "cbBuffer") {
		return SecBuffer{}
	}
	data := r.ReadBytes(int(size))
	if r.err != nil {
		return SecBuffer{}
	}
	return SecBuffer{Type: typ, Data: data}
}

// WriteSecBuffer writes cbBuffer, BufferType and the payload bytes.
func (w *Writer) WriteSecBuffer(b SecBuffer) {
	if uint64(len(b.Data)) > uint64(^uint32(0)) {
		w.Fail(fmt.Errorf("wire: security buffer of %d bytes exceeds 32-bit length", len(b.Data)))
		return
	}
	w.WriteUint32(uint32(len(b.Data)))
	w.WriteUint32(b.Type)
	w.WriteBytes(b.Data)
}

// ReadSecBufferDesc reads ulVersion, cBuffers and that many buffers in order.
// Versions other than SecBufferVersion are rejected with ErrUnsupportedVersion.
// cBuffers is validated against the remaining input, at the minimum encoded
// size of one buffer, before the buffer slice is allocated.
func (r *Reader) ReadSecBufferDesc() SecBufferDesc {
	version := r.ReadUint32()
	if r.err != nil {
		return SecBufferDesc{}
	}
	if version != SecBufferVersion {
		r.Fail(fmt.Errorf("%w: %d", ErrUnsupportedVersion, version))
		return SecBufferDesc{}
	}
	count := r.ReadUint32()
	if !r.bound(count, secBufferMinSize, "cBuffers") {
		return SecBufferDesc{}
	}
	buffers := make([]SecBuffer, count)
	for i := range buffers {
		buffers[i] = r.ReadSecBuffer()
		if r.err != nil {
			return SecBufferDesc{}
		}
	}
	return SecBufferDesc{Version: version, Buffers: buffers}
}

// WriteSecBufferDesc writes ulVersion, cBuffers and each buffer in order.
func (w *Writer) WriteSecBufferDesc(d SecBufferDesc) {
	w.WriteUint32(d.Version)
	w.WriteUint32(uint32(len(d.Buffers)))
	for _, b := range d.Buffers {
		w.WriteSecBuffer(b)
	}
}
