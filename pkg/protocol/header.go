package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/marmos91/netsspi/pkg/wire"
)

const (
	RequestHeaderSize  = 10
	ResponseHeaderSize = 14
)

// FlagUnicode marks the enclosed strings as wide by default for the message.
// Individual strings still carry their own encoding bit.
const FlagUnicode uint8 = 0x80

// ExtFlags is split into 24 field-presence bits and 8 option bits.
const (
	ExtFieldMask  uint32 = 0x00FFFFFF
	ExtOptionMask uint32 = 0xFF000000
)

// ExtField returns the field bit n (1-24).
func ExtField(n int) uint32 {
	if n < 1 || n > 24 {
		return 0
	}
	return 1 << (n - 1)
}

// ExtOption returns the option bit n (1-8).
func ExtOption(n int) uint32 {
	if n < 1 || n > 8 {
		return 0
	}
	return 1 << (n + 23)
}

// Direction tells a reader which header form to expect. Messages do not
// self-describe; the reading side knows what it is waiting for.
type Direction uint8

const (
	DirectionRequest Direction = iota
	DirectionResponse
)

// HeaderSize returns the fixed header size for d.
func (d Direction) HeaderSize() int {
	if d == DirectionResponse {
		return ResponseHeaderSize
	}
	return RequestHeaderSize
}

func (d Direction) String() string {
	if d == DirectionResponse {
		return "response"
	}
	return "request"
}

// TotalLength extracts and validates TotalLength from the first bytes of a
// header in direction d. It is what stream readers use to find the end of a
// message.
func TotalLength(d Direction, header []byte) (uint32, error) {
	if len(header) < 4 {
		return 0, fmt.Errorf("%w: %d header bytes", ErrMalformedHeader, len(header))
	}
	total := binary.LittleEndian.Uint32(header)
	if total < uint32(d.HeaderSize()) {
		return 0, fmt.Errorf("%w: total length %d below %s header size %d",
			ErrMalformedHeader, total, d, d.HeaderSize())
	}
	return total, nil
}

// RequestHeader prefixes every request.
type RequestHeader struct {
	TotalLength uint32
	Flags       uint8
	Function    FunctionID
	ExtFlags    uint32
}

// Unicode reports whether FlagUnicode is set.
func (h RequestHeader) Unicode() bool {
	return h.Flags&FlagUnicode != 0
}

// PayloadLength returns TotalLength minus the header size.
func (h RequestHeader) PayloadLength() int {
	return int(h.TotalLength) - RequestHeaderSize
}

// Encode writes the header.
func (h RequestHeader) Encode(w *wire.Writer) {
	w.WriteUint32(h.TotalLength)
	w.WriteUint8(h.Flags)
	w.WriteUint8(uint8(h.Function))
	w.WriteUint32(h.ExtFlags)
}

// ParseRequestHeader parses the first RequestHeaderSize bytes of data.
func ParseRequestHeader(data []byte) (RequestHeader, error) {
	if len(data) < RequestHeaderSize {
		return RequestHeader{}, fmt.Errorf("%w: need %d bytes, have %d", ErrMalformedHeader, RequestHeaderSize, len(data))
	}
	total, err := TotalLength(DirectionRequest, data)
	if err != nil {
		return RequestHeader{}, err
	}
	r := wire.NewReader(data[4:RequestHeaderSize])
	h := RequestHeader{TotalLength: total}
	h.Flags = r.ReadUint8()
	h.Function = FunctionID(r.ReadUint8())
	h.ExtFlags = r.ReadUint32()
	return h, r.Err()
}

// ResponseHeader prefixes every response.
type ResponseHeader struct {
	TotalLength uint32
	Flags       uint8
	Function    FunctionID
	ExtFlags    uint32
	Status      Status
}

// Unicode reports whether FlagUnicode is set.
func (h ResponseHeader) Unicode() bool {
	return h.Flags&FlagUnicode != 0
}

// PayloadLength returns TotalLength minus the header size.
func (h ResponseHeader) PayloadLength() int {
	return int(h.TotalLength) - ResponseHeaderSize
}

// Encode writes the header.
func (h ResponseHeader) Encode(w *wire.Writer) {
	w.WriteUint32(h.TotalLength)
	w.WriteUint8(h.Flags)
	w.WriteUint8(uint8(h.Function))
	w.WriteUint32(h.ExtFlags)
	w.WriteUint32(uint32(h.Status))
}

// ParseResponseHeader parses the first ResponseHeaderSize bytes of data.
func ParseResponseHeader(data []byte) (ResponseHeader, error) {
	if len(data) < ResponseHeaderSize {
		return ResponseHeader{}, fmt.Errorf("%w: need %d bytes, have %d", ErrMalformedHeader, ResponseHeaderSize, len(data))
	}
	total, err := TotalLength(DirectionResponse, data)
	if err != nil {
		return ResponseHeader{}, err
	}
	r := wire.NewReader(data[4:ResponseHeaderSize])
	h := ResponseHeader{TotalLength: total}
	h.Flags = r.ReadUint8()
	h.Function = FunctionID(r.ReadUint8())
	h.ExtFlags = r.ReadUint32()
	h.Status = Status(r.ReadUint32())
	return h, r.Err()
}
