package typemap

import (
	"fmt"
	"time"
)

const (
	ticksPerSecond = 10_000_000
	nanosPerTick   = 100

	// secondsToUnixEpoch is the number of seconds between 0001-01-01 and 1970-01-01 UTC.
	secondsToUnixEpoch = 62_135_596_800

	// isoLayout is fixed width so lexical order equals chronological order.
	isoLayout = "2006-01-02T15:04:05.0000000Z"
)

// ToTicks converts t to 100ns intervals elapsed since 0001-01-01T00:00:00Z.
// Sub-tick precision is truncated.
func ToTicks(t time.Time) int64 {
	t = t.UTC()
	return (t.Unix()+secondsToUnixEpoch)*ticksPerSecond + int64(t.Nanosecond())/nanosPerTick
}

// FromTicks is the inverse of ToTicks. The result is in UTC.
func FromTicks(ticks int64) time.Time {
	secs := ticks/ticksPerSecond - secondsToUnixEpoch
	nanos := (ticks % ticksPerSecond) * nanosPerTick
	return time.Unix(secs, nanos).UTC()
}

// FormatISO renders t as fixed-width ISO-8601 UTC text with 7 fractional digits.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ParseISO parses ISO-8601 text produced by FormatISO or any RFC 3339 variant.
// The result is in UTC.
func ParseISO(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(isoLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse iso-8601 %q: %w", s, err)
	}
	return t.UTC(), nil
}
