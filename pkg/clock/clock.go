// Package clock supplies the time sources consumed by the generators and the
// conversions into the integer units each scheme counts in.
package clock

import "time"

// Clock allows deterministic testing of time-sensitive logic.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using actual time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Func adapts a plain function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// GregorianOffset is the number of 100ns ticks between the Gregorian epoch
// (1582-10-15T00:00:00Z) and the Unix epoch.
const GregorianOffset = 122192928000000000

// UnixMillis returns milliseconds since the Unix epoch, clamped at zero.
func UnixMillis(t time.Time) uint64 {
	ms := t.UnixMilli()
	if ms < 0 {
		return 0
	}
	return uint64(ms)
}

// GregorianTicks returns 100ns ticks since the Gregorian epoch, clamped at zero.
func GregorianTicks(t time.Time) uint64 {
	ticks := t.UnixNano()/100 + GregorianOffset
	if ticks < 0 {
		return 0
	}
	return uint64(ticks)
}

// FromGregorianTicks is the inverse of GregorianTicks. Results are only exact
// for instants representable by time.Time.UnixNano (years 1678 to 2262).
func FromGregorianTicks(ticks uint64) time.Time {
	unixTicks := int64(ticks) - GregorianOffset
	return time.Unix(unixTicks/10_000_000, (unixTicks%10_000_000)*100).UTC()
}
