// Package state holds the per-generator state machines that turn observed
// timestamps into unique, ordered (timestamp, tail) pairs.
//
// Neither Classic nor Monotonic is safe for concurrent use. A generator owns
// exactly one of them and serialises Advance behind its own lock, because the
// read-compare-mutate sequence must be atomic as a whole.
//
// Both machines commit a transition only when it succeeds: an error from the
// entropy source, or ErrTailExhausted, leaves the previous state untouched.
package state

import "errors"

var (
	// ErrTailExhausted reports that every increment available within the
	// current tick has been used. It clears once the clock advances.
	ErrTailExhausted = errors.New("state: tail exhausted")
	// ErrTimestampOverflow reports an observed timestamp wider than the
	// scheme's timestamp field.
	ErrTimestampOverflow = errors.New("state: timestamp exceeds field width")
	// ErrInvalidPolicy reports an unknown or malformed IncrementPolicy.
	ErrInvalidPolicy = errors.New("state: invalid increment policy")
	// ErrInvalidWidth reports a tail or timestamp width a Monotonic cannot use.
	ErrInvalidWidth = errors.New("state: invalid tail width")
)

// Branch names the transition taken by an Advance call.
type Branch uint8

const (
	// BranchReset drew a fresh random tail (clock advanced, first call, or a
	// regression beyond the drift tolerance).
	BranchReset Branch = iota + 1
	// BranchIncrement grew the tail because the tick repeated or regressed
	// within tolerance.
	BranchIncrement
	// BranchAdvance accepted a newer timestamp with an unchanged clock sequence.
	BranchAdvance
	// BranchRepeat kept the last timestamp and incremented the clock sequence.
	BranchRepeat
	// BranchReseed drew a new clock sequence after a node identifier change.
	BranchReseed
)

func (b Branch) String() string {
	switch b {
	case BranchReset:
		return "reset"
	case BranchIncrement:
		return "increment"
	case BranchAdvance:
		return "advance"
	case BranchRepeat:
		return "repeat"
	case BranchReseed:
		return "reseed"
	default:
		return "unknown"
	}
}
