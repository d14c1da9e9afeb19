package bytesize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/go-units"
)

// ByteSize represents a size in bytes that can be unmarshaled from human-readable
// strings like "1Mi", "64KiB", "100KB", or plain numbers.
//
// Supported formats:
//   - Plain numbers: 1024, 1048576
//   - Binary units (×1024): Ki/KiB, Mi/MiB, Gi/GiB, Ti/TiB
//   - Decimal units (×1000): K/KB, M/MB, G/GB, T/TB
//   - Bytes: B
type ByteSize uint64

// Common byte size constants
const (
	B  ByteSize = 1
	KB ByteSize = units.KB
	MB ByteSize = units.MB
	GB ByteSize = units.GB
	TB ByteSize = units.TB

	KiB ByteSize = units.KiB
	MiB ByteSize = units.MiB
	GiB ByteSize = units.GiB
	TiB ByteSize = units.TiB
)

// ParseByteSize parses a human-readable byte size string into a ByteSize value.
// Suffixes containing an "i" are binary, all others decimal.
func ParseByteSize(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size string")
	}

	binary := false
	if n := len(s); n > 1 {
		switch strings.ToLower(s[n-1:]) {
		case "i":
			// go-units wants the trailing B: "Mi" -> "MiB".
			s += "B"
			binary = true
		case "b":
			binary = strings.EqualFold(s[max(0, n-2):n-1], "i")
		}
	}

	var (
		n   int64
		err error
	)
	if binary {
		n, err = units.RAMInBytes(s)
	} else {
		n, err = units.FromHumanSize(s)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative byte size %q", s)
	}
	return ByteSize(n), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for ByteSize.
// This allows ByteSize to be used directly in structs with mapstructure.
func (b *ByteSize) UnmarshalText(text []byte) error {
	size, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = size
	return nil
}

// MarshalText writes the human-readable form when it parses back to the
// same value, and the plain number otherwise.
func (b ByteSize) MarshalText() ([]byte, error) {
	s := b.String()
	if back, err := ParseByteSize(s); err == nil && back == b {
		return []byte(s), nil
	}
	return []byte(strconv.FormatUint(uint64(b), 10)), nil
}

// String returns a human-readable representation of the byte size.
func (b ByteSize) String() string {
	return units.BytesSize(float64(b))
}

// Uint64 returns the ByteSize as a uint64.
func (b ByteSize) Uint64() uint64 {
	return uint64(b)
}

// Int returns the ByteSize as an int.
// Note: This may overflow for very large values on 32-bit platforms.
func (b ByteSize) Int() int {
	return int(b)
}
