package state

import (
	"fmt"
	"math/bits"

	"github.com/theory-cloud/idtheory/pkg/entropy"
	"github.com/theory-cloud/idtheory/pkg/layout"
)

// DefaultDriftTolerance is the default backward clock movement, in timestamp
// units, treated as a repeated tick rather than a reset.
const DefaultDriftTolerance = 10_000

// MonotonicConfig parameterises a Monotonic state.
type MonotonicConfig struct {
	// TailBits is the tail width, in (64, 128].
	TailBits uint
	// MaxTimestamp bounds the timestamp field; carries beyond it fail.
	MaxTimestamp uint64
	Policy       IncrementPolicy
	// Tolerance is the drift tolerance in timestamp units.
	Tolerance uint64
}

// MonotonicTick is the outcome of Monotonic.Advance.
type MonotonicTick struct {
	Timestamp uint64
	Tail      layout.Tail
	Branch    Branch
	// Lag is how far the observed timestamp trailed the last one; zero when
	// the clock advanced.
	Lag uint64
}

// Monotonic tracks the last timestamp and a random tail, and guarantees that
// successive ticks are strictly increasing in (timestamp, tail) order.
//
// When the clock advances, or regresses by more than the tolerance, the tail
// is redrawn. Otherwise the tail grows by the configured policy, and a tail
// overflow carries into the timestamp. A carry that would overflow the
// timestamp field, or leave the timestamp more than the tolerance ahead of
// the clock, fails with ErrTailExhausted rather than wrapping.
type Monotonic struct {
	src       entropy.Source
	policy    IncrementPolicy
	tolerance uint64
	hiMask    uint64
	maxTS     uint64

	started bool
	last    uint64
	tail    layout.Tail
}

func NewMonotonic(cfg MonotonicConfig, src entropy.Source) (*Monotonic, error) {
	if cfg.TailBits <= 64 || cfg.TailBits > 128 {
		return nil, fmt.Errorf("%w: %d bits", ErrInvalidWidth, cfg.TailBits)
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxTimestamp == 0 {
		return nil, fmt.Errorf("%w: zero timestamp width", ErrInvalidWidth)
	}

	hiMask := ^uint64(0)
	if cfg.TailBits < 128 {
		hiMask = 1<<(cfg.TailBits-64) - 1
	}

	return &Monotonic{
		src:       src,
		policy:    cfg.Policy,
		tolerance: cfg.Tolerance,
		hiMask:    hiMask,
		maxTS:     cfg.MaxTimestamp,
	}, nil
}

// LastTimestamp returns the last emitted timestamp.
func (m *Monotonic) LastTimestamp() uint64 { return m.last }

// Tail returns the last emitted tail.
func (m *Monotonic) Tail() layout.Tail { return m.tail }

// Advance records an observed timestamp and returns the next pair.
func (m *Monotonic) Advance(observed uint64) (MonotonicTick, error) {
	if observed > m.maxTS {
		return MonotonicTick{}, fmt.Errorf("%w: %d", ErrTimestampOverflow, observed)
	}
	if !m.started || observed > m.last {
		return m.reset(observed, 0)
	}

	lag := m.last - observed
	if lag > m.tolerance {
		return m.reset(observed, lag)
	}
	return m.increment(observed, lag)
}

func (m *Monotonic) reset(observed, lag uint64) (MonotonicTick, error) {
	hi, err := m.src.Uint64()
	if err != nil {
		return MonotonicTick{}, err
	}
	lo, err := m.src.Uint64()
	if err != nil {
		return MonotonicTick{}, err
	}

	m.started = true
	m.last = observed
	m.tail = layout.Tail{Hi: hi & m.hiMask, Lo: lo}

	return MonotonicTick{Timestamp: observed, Tail: m.tail, Branch: BranchReset, Lag: lag}, nil
}

func (m *Monotonic) increment(observed, lag uint64) (MonotonicTick, error) {
	var (
		tail  layout.Tail
		carry bool
	)

	switch m.policy.Kind {
	case KindAddFixed:
		r, err := m.src.Uint64()
		if err != nil {
			return MonotonicTick{}, err
		}
		tail, carry = m.add(m.tail, FixedIncrement)
		tail.Lo = tail.Lo&^fixedRefillMask | r&fixedRefillMask
	case KindAddRandom:
		r, err := m.src.Uint64()
		if err != nil {
			return MonotonicTick{}, err
		}
		// High word of r*Max is uniform over [0, Max) up to a bias below 2^-64*Max.
		step, _ := bits.Mul64(r, m.policy.Max)
		tail, carry = m.add(m.tail, step+1)
	default:
		tail, carry = m.add(m.tail, 1)
	}

	ts := m.last
	if carry {
		if ts >= m.maxTS || ts+1-observed > m.tolerance {
			return MonotonicTick{}, ErrTailExhausted
		}
		ts++
	}

	m.last = ts
	m.tail = tail

	return MonotonicTick{Timestamp: ts, Tail: tail, Branch: BranchIncrement, Lag: lag}, nil
}

// add returns t+n within the tail width and whether it overflowed.
func (m *Monotonic) add(t layout.Tail, n uint64) (layout.Tail, bool) {
	lo, c := bits.Add64(t.Lo, n, 0)
	hi, c2 := bits.Add64(t.Hi, c, 0)
	overflow := c2 != 0 || hi > m.hiMask
	return layout.Tail{Hi: hi & m.hiMask, Lo: lo}, overflow
}
