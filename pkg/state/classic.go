package state

import (
	"fmt"

	"github.com/theory-cloud/idtheory/pkg/entropy"
)

const clockSeqMask = 1<<14 - 1

// MaxClassicTimestamp bounds the 60-bit Gregorian tick field of v1 and v6.
const MaxClassicTimestamp = 1<<60 - 1

// ClassicTick is the outcome of Classic.Advance.
type ClassicTick struct {
	Timestamp     uint64
	ClockSequence uint16
	Branch        Branch
}

// Classic tracks the last timestamp and the 14-bit clock sequence of the v1
// and v6 schemes.
//
// Repeated or regressed ticks keep the last timestamp and bump the clock
// sequence, so emitted timestamps never go backwards. The sequence wraps
// silently at 2^14.
type Classic struct {
	src entropy.Source

	started bool
	last    uint64
	seq     uint16

	hasNode bool
	node    uint64
}

// NewClassic seeds the clock sequence from src.
func NewClassic(src entropy.Source) (*Classic, error) {
	c := &Classic{src: src}
	seq, err := c.drawSequence()
	if err != nil {
		return nil, err
	}
	c.seq = seq
	return c, nil
}

// ClockSequence returns the current clock sequence.
func (c *Classic) ClockSequence() uint16 { return c.seq }

// LastTimestamp returns the last emitted timestamp.
func (c *Classic) LastTimestamp() uint64 { return c.last }

// Advance records an observation made with the given node identifier.
//
// A node different from the previous call's reseeds the clock sequence
// instead of incrementing it. The first node seen is recorded as-is.
func (c *Classic) Advance(observed, node uint64) (ClassicTick, error) {
	if observed > MaxClassicTimestamp {
		return ClassicTick{}, fmt.Errorf("%w: %d", ErrTimestampOverflow, observed)
	}

	seq := c.seq
	branch := BranchAdvance

	if c.hasNode && node != c.node {
		fresh, err := c.drawSequence()
		if err != nil {
			return ClassicTick{}, err
		}
		seq = fresh
		branch = BranchReseed
	}

	ts := observed
	if c.started && observed <= c.last {
		ts = c.last
		if branch != BranchReseed {
			seq = (seq + 1) & clockSeqMask
			branch = BranchRepeat
		}
	}

	c.started = true
	c.last = ts
	c.seq = seq
	c.hasNode = true
	c.node = node

	return ClassicTick{Timestamp: ts, ClockSequence: seq, Branch: branch}, nil
}

func (c *Classic) drawSequence() (uint16, error) {
	v, err := c.src.Uint64()
	if err != nil {
		return 0, err
	}
	return uint16(v & clockSeqMask), nil
}
