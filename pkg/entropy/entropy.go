// Package entropy supplies the random bits consumed by the generators.
package entropy

import (
	crand "crypto/rand"
	"encoding/binary"
	"io"
)

// Source provides random bits either as 64-bit words or as byte slices.
//
// Implementations must be safe for concurrent use; a single Source is
// typically shared by many generators.
type Source interface {
	Uint64() (uint64, error)
	Read(p []byte) (int, error)
}

type readerSource struct {
	r io.Reader
}

// FromReader adapts an io.Reader. Reads are always full; a short read is
// reported as an error. The reader must be safe for concurrent use.
func FromReader(r io.Reader) Source {
	return readerSource{r: r}
}

// Crypto returns a Source backed by crypto/rand.
func Crypto() Source {
	return readerSource{r: crand.Reader}
}

func (s readerSource) Read(p []byte) (int, error) {
	return io.ReadFull(s.r, p)
}

func (s readerSource) Uint64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(s.r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}
