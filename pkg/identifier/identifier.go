// Package identifier defines the 128-bit value produced by every idtheory scheme.
//
// An ID is held as two big-endian 64-bit words. The canonical text form is the
// hyphenated hex layout of RFC 9562; the Crockford base32 form used by ULIDs is
// also available. Text handling is delegated to github.com/google/uuid and
// github.com/oklog/ulid/v2 so the byte layout stays interoperable with both.
package identifier

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Size is the length of an ID in bytes.
const Size = 16

// ID is an immutable 128-bit identifier.
type ID struct {
	Hi uint64
	Lo uint64
}

var (
	// Nil is the all-zero identifier.
	Nil = ID{}
	// Max is the all-ones identifier.
	Max = ID{Hi: ^uint64(0), Lo: ^uint64(0)}
)

// ErrInvalidLength is returned by FromBytes when the input is not 16 bytes.
var ErrInvalidLength = errors.New("identifier: invalid length")

// Variant identifies the layout family encoded in the top bits of Lo.
type Variant uint8

const (
	VariantNCS Variant = iota
	VariantRFC
	VariantMicrosoft
	VariantFuture
)

func (v Variant) String() string {
	switch v {
	case VariantNCS:
		return "ncs"
	case VariantRFC:
		return "rfc"
	case VariantMicrosoft:
		return "microsoft"
	default:
		return "future"
	}
}

// Version returns the 4-bit version nibble (bits 48-51 of the 128-bit value).
func (id ID) Version() int {
	return int((id.Hi >> 12) & 0xf)
}

// Variant decodes the variant field.
func (id ID) Variant() Variant {
	switch {
	case id.Lo>>63 == 0:
		return VariantNCS
	case id.Lo>>62 == 0b10:
		return VariantRFC
	case id.Lo>>61 == 0b110:
		return VariantMicrosoft
	default:
		return VariantFuture
	}
}

// IsRFC reports whether the identifier carries the RFC variant bits.
func (id ID) IsRFC() bool {
	return id.Variant() == VariantRFC
}

// IsNil reports whether id is the Nil identifier.
func (id ID) IsNil() bool {
	return id == Nil
}

// Compare orders identifiers by their unsigned 128-bit value, which matches
// byte-wise comparison of Bytes().
func (id ID) Compare(other ID) int {
	switch {
	case id.Hi < other.Hi:
		return -1
	case id.Hi > other.Hi:
		return 1
	case id.Lo < other.Lo:
		return -1
	case id.Lo > other.Lo:
		return 1
	default:
		return 0
	}
}

// Bytes returns the big-endian 16-byte representation.
func (id ID) Bytes() [Size]byte {
	var b [Size]byte
	binary.BigEndian.PutUint64(b[0:8], id.Hi)
	binary.BigEndian.PutUint64(b[8:16], id.Lo)
	return b
}

// FromBytes decodes a big-endian 16-byte slice.
func FromBytes(b []byte) (ID, error) {
	if len(b) != Size {
		return Nil, fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(b))
	}
	return ID{
		Hi: binary.BigEndian.Uint64(b[0:8]),
		Lo: binary.BigEndian.Uint64(b[8:16]),
	}, nil
}

func fromArray(b [Size]byte) ID {
	return ID{
		Hi: binary.BigEndian.Uint64(b[0:8]),
		Lo: binary.BigEndian.Uint64(b[8:16]),
	}
}

// UUID converts the identifier to a github.com/google/uuid value.
func (id ID) UUID() uuid.UUID {
	return uuid.UUID(id.Bytes())
}

// ULID converts the identifier to a github.com/oklog/ulid/v2 value.
func (id ID) ULID() ulid.ULID {
	return ulid.ULID(id.Bytes())
}

// FromUUID converts a github.com/google/uuid value.
func FromUUID(u uuid.UUID) ID {
	return fromArray(u)
}

// FromULID converts a github.com/oklog/ulid/v2 value.
func FromULID(u ulid.ULID) ID {
	return fromArray(u)
}

// String returns the canonical form xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx.
func (id ID) String() string {
	return id.UUID().String()
}

// ULIDString returns the 26-character Crockford base32 form.
func (id ID) ULIDString() string {
	return id.ULID().String()
}

// Parse decodes the canonical hyphenated form. The urn:uuid: prefix and
// braced forms accepted by google/uuid are accepted too.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("identifier: parse %q: %w", s, err)
	}
	return FromUUID(u), nil
}

// ParseULID decodes a 26-character Crockford base32 string.
func ParseULID(s string) (ID, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return Nil, fmt.Errorf("identifier: parse ulid %q: %w", s, err)
	}
	return FromULID(u), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ID) MarshalBinary() ([]byte, error) {
	b := id.Bytes()
	return b[:], nil
}

func (id *ID) UnmarshalBinary(data []byte) error {
	parsed, err := FromBytes(data)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
