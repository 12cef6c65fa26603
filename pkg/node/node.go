// Package node provides the 48-bit node identifiers embedded in v1 and v6
// identifiers.
package node

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/theory-cloud/idtheory/pkg/entropy"
)

// Mask covers the 48 bits a node identifier may occupy.
const Mask = 1<<48 - 1

// multicastBit marks randomly generated node identifiers so they can never
// collide with a real IEEE 802 address.
const multicastBit = 1 << 40

var ErrInvalidNode = errors.New("node: invalid node identifier")

// Provider returns the node identifier to embed in the next identifier.
//
// Generators call Node on every generation; a changed value causes the clock
// sequence to be reseeded. Implementations must be safe for concurrent use.
type Provider interface {
	Node() (uint64, error)
}

// Fixed is a constant node identifier.
type Fixed uint64

func NewFixed(n uint64) (Fixed, error) {
	if n > Mask {
		return 0, fmt.Errorf("%w: %#x exceeds 48 bits", ErrInvalidNode, n)
	}
	return Fixed(n), nil
}

func (f Fixed) Node() (uint64, error) { return uint64(f) & Mask, nil }

// Random is a node identifier drawn once from a Source, with the multicast
// bit set as recommended for hosts without a usable hardware address.
type Random struct {
	id uint64
}

func NewRandom(src entropy.Source) (*Random, error) {
	v, err := src.Uint64()
	if err != nil {
		return nil, err
	}
	return &Random{id: v&Mask | multicastBit}, nil
}

func (r *Random) Node() (uint64, error) { return r.id, nil }

// Hardware uses the address of the first usable network interface, falling
// back to a random multicast identifier when none exists. Discovery is cached
// process-wide by github.com/google/uuid.
type Hardware struct{}

func (Hardware) Node() (uint64, error) {
	b := uuid.NodeID()
	if len(b) != 6 {
		return 0, fmt.Errorf("%w: hardware address has %d bytes", ErrInvalidNode, len(b))
	}
	return fromBytes(b), nil
}

// Parse accepts a MAC address (01:23:45:67:89:ab, 01-23-..., 0123.4567.89ab)
// or a hex literal of at most 12 digits, optionally prefixed with 0x.
func Parse(s string) (Fixed, error) {
	s = strings.TrimSpace(s)
	if hw, err := net.ParseMAC(s); err == nil {
		if len(hw) != 6 {
			return 0, fmt.Errorf("%w: %q is not a 48-bit address", ErrInvalidNode, s)
		}
		return Fixed(fromBytes(hw)), nil
	}

	digits := strings.TrimPrefix(strings.ToLower(s), "0x")
	if digits == "" || len(digits) > 12 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNode, s)
	}
	v, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNode, s)
	}
	return NewFixed(v)
}

func fromBytes(b []byte) uint64 {
	var v uint64
	for _, octet := range b {
		v = v<<8 | uint64(octet)
	}
	return v
}
