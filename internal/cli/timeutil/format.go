// Package timeutil renders provider timestamps for CLI output.
package timeutil

import (
	"fmt"
	"math"
	"time"

	"github.com/marmos91/netsspi/pkg/wire"
)

// LocalTimeFormat is the layout used for local times in CLI output.
const LocalTimeFormat = "Mon Jan 2 15:04:05 2006"

// filetimeEpochDelta is the number of 100ns intervals between 1601-01-01
// and the Unix epoch.
const filetimeEpochDelta = 116444736000000000

// FromTimestamp decodes a FILETIME-valued Timestamp. ok is false for the
// "never expires" sentinel and for zero.
func FromTimestamp(ts wire.Timestamp) (t time.Time, ok bool) {
	v := ts.Int64()
	if v <= 0 || v == math.MaxInt64 {
		return time.Time{}, false
	}
	return time.Unix(0, (v-filetimeEpochDelta)*100), true
}

// FormatExpiry renders an expiry Timestamp as local time plus the time
// remaining relative to now.
func FormatExpiry(ts wire.Timestamp, now time.Time) string {
	t, ok := FromTimestamp(ts)
	if !ok {
		return "never"
	}
	if !t.After(now) {
		return fmt.Sprintf("%s (expired)", t.Local().Format(LocalTimeFormat))
	}
	return fmt.Sprintf("%s (in %s)", t.Local().Format(LocalTimeFormat), FormatDuration(t.Sub(now)))
}

// FormatDuration renders d as "3d 0h 30m 15s", dropping leading zero units.
func FormatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
