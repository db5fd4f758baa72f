package measurement

import "time"

// Ticks are .NET-style 100-nanosecond intervals since 0001-01-01 00:00:00
// UTC, the timestamp resolution carried by every Measurement and by the
// compact encoding's base-time-offset windows.
const (
	ticksPerSecond      int64 = 10_000_000
	ticksPerMillisecond int64 = 10_000

	// unixEpochTicks is the tick value of 1970-01-01 00:00:00 UTC.
	unixEpochTicks int64 = 621_355_968_000_000_000
)

// ToUnixTime splits a tick value into a Unix epoch second and a residual
// millisecond count in [0, 999].
func ToUnixTime(ticks int64) (unixSeconds int64, milliseconds uint16) {
	sinceEpoch := ticks - unixEpochTicks
	unixSeconds = sinceEpoch / ticksPerSecond
	remainder := sinceEpoch % ticksPerSecond
	if remainder < 0 {
		remainder += ticksPerSecond
		unixSeconds--
	}
	milliseconds = uint16(remainder / ticksPerMillisecond)
	return unixSeconds, milliseconds
}

// FromUnixTime converts a Unix epoch second and millisecond residual back
// into a tick value.
func FromUnixTime(unixSeconds int64, milliseconds uint16) int64 {
	return unixEpochTicks + unixSeconds*ticksPerSecond + int64(milliseconds)*ticksPerMillisecond
}

// ToTime converts a tick value to a time.Time in UTC.
func ToTime(ticks int64) time.Time {
	sec, ms := ToUnixTime(ticks)
	return time.Unix(sec, int64(ms)*int64(time.Millisecond)).UTC()
}

// FromTime converts a time.Time to a tick value, truncating sub-millisecond
// precision (FromUnixTime takes whole milliseconds).
func FromTime(t time.Time) int64 {
	utc := t.UTC()
	return FromUnixTime(utc.Unix(), uint16(utc.Nanosecond()/int(time.Millisecond)))
}
