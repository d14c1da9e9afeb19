package timeutil

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/netsspi/pkg/wire"
)

func filetime(t time.Time) wire.Timestamp {
	return wire.TimestampFromInt64(t.UnixNano()/100 + filetimeEpochDelta)
}

func TestFromTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	got, ok := FromTimestamp(filetime(want))
	if !ok || !got.Equal(want) {
		t.Errorf("FromTimestamp() = %v, %v; want %v", got, ok, want)
	}

	if _, ok := FromTimestamp(wire.TimestampFromInt64(math.MaxInt64)); ok {
		t.Error("never-expires sentinel should not decode")
	}
	if _, ok := FromTimestamp(wire.Timestamp{}); ok {
		t.Error("zero timestamp should not decode")
	}
}

func TestFormatExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if got := FormatExpiry(wire.TimestampFromInt64(math.MaxInt64), now); got != "never" {
		t.Errorf("FormatExpiry(never) = %q", got)
	}
	if got := FormatExpiry(filetime(now.Add(90*time.Minute)), now); !strings.HasSuffix(got, "(in 1h 30m 0s)") {
		t.Errorf("FormatExpiry(future) = %q", got)
	}
	if got := FormatExpiry(filetime(now.Add(-time.Second)), now); !strings.HasSuffix(got, "(expired)") {
		t.Errorf("FormatExpiry(past) = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{15 * time.Second, "15s"},
		{2*time.Minute + 5*time.Second, "2m 5s"},
		{72*time.Hour + 30*time.Minute + 15*time.Second, "3d 0h 30m 15s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
