package ntlm

import (
	"encoding/binary"
	"time"
)

// AvID represents AV_PAIR attribute IDs for the TargetInfo field.
// Each AV_PAIR has: AvId (2 bytes) + AvLen (2 bytes) + Value (AvLen bytes).
// [MS-NLMP] Section 2.2.2.1
type AvID uint16

const (
	AvEOL             AvID = 0x0000
	AvNbComputerName  AvID = 0x0001
	AvNbDomainName    AvID = 0x0002
	AvDNSComputerName AvID = 0x0003
	AvDNSDomainName   AvID = 0x0004
	AvFlags           AvID = 0x0006
	AvTimestamp       AvID = 0x0007
	AvTargetName      AvID = 0x0009
)

const avPairHeaderSize = 4

// AvPair is one TargetInfo attribute.
type AvPair struct {
	ID    AvID
	Value []byte
}

// BuildTargetInfo encodes pairs followed by the MsvAvEOL terminator.
func BuildTargetInfo(pairs []AvPair) []byte {
	n := avPairHeaderSize
	for _, p := range pairs {
		n += avPairHeaderSize + len(p.Value)
	}
	out := make([]byte, 0, n)
	for _, p := range pairs {
		out = binary.LittleEndian.AppendUint16(out, uint16(p.ID))
		out = binary.LittleEndian.AppendUint16(out, uint16(len(p.Value)))
		out = append(out, p.Value...)
	}
	return append(out, 0, 0, 0, 0)
}

// ParseTargetInfo decodes an AV_PAIR list up to MsvAvEOL. A list that runs
// past the buffer or lacks the terminator is rejected.
func ParseTargetInfo(buf []byte) ([]AvPair, error) {
	var pairs []AvPair
	for {
		if len(buf) < avPairHeaderSize {
			return nil, ErrInvalidAvPair
		}
		id := AvID(binary.LittleEndian.Uint16(buf))
		n := int(binary.LittleEndian.Uint16(buf[2:]))
		buf = buf[avPairHeaderSize:]
		if id == AvEOL {
			return pairs, nil
		}
		if n > len(buf) {
			return nil, ErrInvalidAvPair
		}
		pairs = append(pairs, AvPair{ID: id, Value: buf[:n]})
		buf = buf[n:]
	}
}

// findAvPair returns the value of the first pair with the given ID.
func findAvPair(pairs []AvPair, id AvID) ([]byte, bool) {
	for _, p := range pairs {
		if p.ID == id {
			return p.Value, true
		}
	}
	return nil, false
}

// FILETIME epoch offset: 100ns intervals between 1601-01-01 and 1970-01-01.
const filetimeEpochDelta = 116444736000000000

// Filetime converts t to a Windows FILETIME value.
func Filetime(t time.Time) uint64 {
	return uint64(t.UnixNano()/100) + filetimeEpochDelta
}

// FromFiletime converts a Windows FILETIME value to a time.Time.
func FromFiletime(ft uint64) time.Time {
	return time.Unix(0, int64(ft-filetimeEpochDelta)*100)
}
