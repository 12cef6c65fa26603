package state

import (
	"fmt"
	"strings"
)

// PolicyKind tags an IncrementPolicy.
type PolicyKind uint8

const (
	// KindAddFixed adds FixedIncrement and refills the bits below it at random.
	KindAddFixed PolicyKind = iota
	// KindAddOne treats the whole tail as a counter.
	KindAddOne
	// KindAddRandom adds a uniform value in [1, Max].
	KindAddRandom
)

// FixedIncrement is the step AddFixed adds to the tail. The bits below it are
// redrawn after every increment; the bits above it act as a counter.
const FixedIncrement = 1 << 48

const fixedRefillMask = FixedIncrement - 1

// IncrementPolicy decides how a tail grows when the clock has not advanced.
// The zero value is AddFixed.
type IncrementPolicy struct {
	Kind PolicyKind
	// Max bounds the step of KindAddRandom. Ignored otherwise.
	Max uint64
}

func AddFixed() IncrementPolicy { return IncrementPolicy{Kind: KindAddFixed} }

func AddOne() IncrementPolicy { return IncrementPolicy{Kind: KindAddOne} }

func AddRandom(limit uint64) IncrementPolicy {
	return IncrementPolicy{Kind: KindAddRandom, Max: limit}
}

// ParsePolicy maps a policy name to an IncrementPolicy. limit is only used
// by add-random.
func ParsePolicy(name string, limit uint64) (IncrementPolicy, error) {
	var p IncrementPolicy
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "add-fixed", "add_fixed", "fixed", "":
		p = AddFixed()
	case "add-one", "add_one", "one":
		p = AddOne()
	case "add-random", "add_random", "random":
		p = AddRandom(limit)
	default:
		return IncrementPolicy{}, fmt.Errorf("%w: unknown policy %q", ErrInvalidPolicy, name)
	}
	if err := p.Validate(); err != nil {
		return IncrementPolicy{}, err
	}
	return p, nil
}

func (p IncrementPolicy) Validate() error {
	switch p.Kind {
	case KindAddFixed, KindAddOne:
		return nil
	case KindAddRandom:
		if p.Max == 0 {
			return fmt.Errorf("%w: add-random requires max >= 1", ErrInvalidPolicy)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidPolicy, p.Kind)
	}
}

func (p IncrementPolicy) String() string {
	switch p.Kind {
	case KindAddFixed:
		return "add-fixed"
	case KindAddOne:
		return "add-one"
	case KindAddRandom:
		return fmt.Sprintf("add-random(%d)", p.Max)
	default:
		return fmt.Sprintf("IncrementPolicy(%d)", p.Kind)
	}
}
