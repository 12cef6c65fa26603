// Package layout places timestamps and tails into the 128-bit layouts of
// each scheme and extracts them again.
//
// Format and Parse are pure. For a scheme s and any timestamp ts <=
// s.MaxTimestamp() and tail t, Parse(s, Format(s, ts, t)) returns (ts,
// s.MaskTail(t)): only the version and variant positions are lost.
package layout

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/theory-cloud/idtheory/pkg/clock"
	"github.com/theory-cloud/idtheory/pkg/identifier"
)

const (
	variantRFC = uint64(0b10) << 62

	mask12 = 1<<12 - 1
	mask48 = 1<<48 - 1
	mask60 = 1<<60 - 1
	mask62 = 1<<62 - 1

	clockSeqMask = 1<<14 - 1
)

// Tail holds the bits below the timestamp. Lo carries the low 64 bits and Hi
// the remainder for tails wider than 64 bits.
//
// For v1 and v6 the tail is the 14-bit clock sequence above the 48-bit node,
// both in Lo.
type Tail struct {
	Hi uint64
	Lo uint64
}

// ClassicTail packs a clock sequence and node identifier.
func ClassicTail(seq uint16, node uint64) Tail {
	return Tail{Lo: uint64(seq&clockSeqMask)<<48 | node&mask48}
}

func (t Tail) ClockSequence() uint16 {
	return uint16(t.Lo>>48) & clockSeqMask
}

func (t Tail) Node() uint64 {
	return t.Lo & mask48
}

func (t Tail) Compare(other Tail) int {
	switch {
	case t.Hi < other.Hi:
		return -1
	case t.Hi > other.Hi:
		return 1
	case t.Lo < other.Lo:
		return -1
	case t.Lo > other.Lo:
		return 1
	default:
		return 0
	}
}

// MaskTail drops the tail bits the scheme cannot store.
func (s Scheme) MaskTail(t Tail) Tail {
	switch s {
	case SchemeV1, SchemeV6:
		return Tail{Lo: t.Lo & mask62}
	case SchemeV7, SchemePrefixComb:
		return Tail{Hi: t.Hi & (1<<10 - 1), Lo: t.Lo}
	case SchemeULID:
		return Tail{Hi: t.Hi & 0xffff, Lo: t.Lo}
	default:
		return Tail{}
	}
}

// Format writes ts and tail into the scheme's layout. Bits outside the
// scheme's field widths are discarded. Unknown schemes yield identifier.Nil.
func Format(s Scheme, ts uint64, tail Tail) identifier.ID {
	switch s {
	case SchemeV1:
		ts &= mask60
		timeLow := ts & 0xffffffff
		timeMid := (ts >> 32) & 0xffff
		timeHigh := (ts >> 48) & mask12
		return identifier.ID{
			Hi: timeLow<<32 | timeMid<<16 | 1<<12 | timeHigh,
			Lo: variantRFC | tail.Lo&mask62,
		}
	case SchemeV6:
		ts &= mask60
		return identifier.ID{
			Hi: (ts>>12)<<16 | 6<<12 | ts&mask12,
			Lo: variantRFC | tail.Lo&mask62,
		}
	case SchemeV7, SchemePrefixComb:
		// rand_a is the top 12 of the 74 tail bits: 10 from Hi, 2 from Lo.
		randA := (tail.Hi&(1<<10-1))<<2 | tail.Lo>>62
		return identifier.ID{
			Hi: (ts&mask48)<<16 | uint64(s.Version())<<12 | randA,
			Lo: variantRFC | tail.Lo&mask62,
		}
	case SchemeULID:
		return identifier.ID{
			Hi: (ts&mask48)<<16 | tail.Hi&0xffff,
			Lo: tail.Lo,
		}
	default:
		return identifier.Nil
	}
}

// Parse extracts the timestamp and tail Format wrote.
func Parse(s Scheme, id identifier.ID) (uint64, Tail) {
	switch s {
	case SchemeV1:
		timeLow := id.Hi >> 32
		timeMid := (id.Hi >> 16) & 0xffff
		timeHigh := id.Hi & mask12
		return timeHigh<<48 | timeMid<<32 | timeLow, Tail{Lo: id.Lo & mask62}
	case SchemeV6:
		return (id.Hi>>16)<<12 | id.Hi&mask12, Tail{Lo: id.Lo & mask62}
	case SchemeV7, SchemePrefixComb:
		randA := id.Hi & mask12
		return id.Hi >> 16, Tail{Hi: randA >> 2, Lo: (randA&0b11)<<62 | id.Lo&mask62}
	case SchemeULID:
		return id.Hi >> 16, Tail{Hi: id.Hi & 0xffff, Lo: id.Lo}
	default:
		return 0, Tail{}
	}
}

// Time returns the instant encoded in id under scheme s.
func Time(s Scheme, id identifier.ID) time.Time {
	ts, _ := Parse(s, id)
	if s.Unit() == UnitGregorianTicks {
		return clock.FromGregorianTicks(ts)
	}
	return ulid.Time(ts).UTC()
}
