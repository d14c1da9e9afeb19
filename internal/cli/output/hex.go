package output

import (
	"encoding/hex"
	"fmt"
)

// Hex renders b as lowercase hex, truncated to limit bytes with the total
// length appended. A limit of zero or less prints everything.
func Hex(b []byte, limit int) string {
	if limit <= 0 || len(b) <= limit {
		return hex.EncodeToString(b)
	}
	return fmt.Sprintf("%s... (%d bytes)", hex.EncodeToString(b[:limit]), len(b))
}

// Flags renders a bitmask as 0x-prefixed hex.
func Flags(v uint32) string {
	return fmt.Sprintf("0x%08X", v)
}
