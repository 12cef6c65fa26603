// Package testkit provides deterministic clocks and entropy sources for
// exercising generators in tests.
package testkit

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/theory-cloud/idtheory/pkg/clock"
	"github.com/theory-cloud/idtheory/pkg/entropy"
)

// Env is a deterministic local test environment: a manual clock plus a
// scripted entropy source.
type Env struct {
	Clock   *ManualClock
	Entropy *SequenceSource
}

func New() *Env {
	return NewWithTime(time.Unix(0, 0).UTC())
}

func NewWithTime(now time.Time) *Env {
	return &Env{
		Clock:   NewManualClock(now),
		Entropy: NewSequenceSource(),
	}
}

// NewWithMillis starts the environment at the given Unix millisecond.
func NewWithMillis(ms int64) *Env {
	return NewWithTime(time.UnixMilli(ms).UTC())
}

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

var _ clock.Clock = FixedClock{}

func (c FixedClock) Now() time.Time { return c.T }

// FixedMillis returns a FixedClock at the given Unix millisecond.
func FixedMillis(ms int64) FixedClock {
	return FixedClock{T: time.UnixMilli(ms).UTC()}
}

// ManualClock is a deterministic, mutable clock for tests.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ clock.Clock = (*ManualClock)(nil)

func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// SetMillis moves the clock to the given Unix millisecond.
func (c *ManualClock) SetMillis(ms int64) {
	c.Set(time.UnixMilli(ms).UTC())
}

func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	out := c.now
	c.mu.Unlock()
	return out
}

// SequenceSource returns queued words in order, then Fallback forever.
type SequenceSource struct {
	mu       sync.Mutex
	queue    []uint64
	fallback uint64
	draws    int
}

var _ entropy.Source = (*SequenceSource)(nil)

func NewSequenceSource(values ...uint64) *SequenceSource {
	return &SequenceSource{queue: append([]uint64(nil), values...)}
}

func (s *SequenceSource) Queue(values ...uint64) {
	s.mu.Lock()
	s.queue = append(s.queue, values...)
	s.mu.Unlock()
}

// SetFallback sets the word returned once the queue is drained.
func (s *SequenceSource) SetFallback(v uint64) {
	s.mu.Lock()
	s.fallback = v
	s.mu.Unlock()
}

// Draws reports how many words have been consumed.
func (s *SequenceSource) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draws
}

func (s *SequenceSource) Uint64() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextLocked(), nil
}

func (s *SequenceSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var word [8]byte
	for i := 0; i < len(p); i += len(word) {
		binary.BigEndian.PutUint64(word[:], s.nextLocked())
		copy(p[i:], word[:])
	}
	return len(p), nil
}

func (s *SequenceSource) nextLocked() uint64 {
	s.draws++
	if len(s.queue) == 0 {
		return s.fallback
	}
	out := s.queue[0]
	s.queue = s.queue[1:]
	return out
}

// FailingSource returns Err from every call.
type FailingSource struct {
	Err error
}

var _ entropy.Source = FailingSource{}

func (f FailingSource) Uint64() (uint64, error) { return 0, f.Err }

func (f FailingSource) Read(_ []byte) (int, error) { return 0, f.Err }
