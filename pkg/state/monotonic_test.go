package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/theory-cloud/idtheory/pkg/entropy"
	"github.com/theory-cloud/idtheory/pkg/layout"
	"github.com/theory-cloud/idtheory/testkit"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Uint64() (uint64, error) {
	args := m.Called()
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockSource) Read(p []byte) (int, error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func ulidConfig(policy IncrementPolicy) MonotonicConfig {
	return MonotonicConfig{
		TailBits:     layout.SchemeULID.TailBits(),
		MaxTimestamp: layout.SchemeULID.MaxTimestamp(),
		Policy:       policy,
		Tolerance:    DefaultDriftTolerance,
	}
}

func newMonotonic(t testing.TB, cfg MonotonicConfig, src entropy.Source) *Monotonic {
	t.Helper()
	m, err := NewMonotonic(cfg, src)
	require.NoError(t, err)
	return m
}

func comparePair(tsA uint64, a layout.Tail, tsB uint64, b layout.Tail) int {
	switch {
	case tsA < tsB:
		return -1
	case tsA > tsB:
		return 1
	default:
		return a.Compare(b)
	}
}

// top32 returns the 32 counter bits of an 80-bit tail.
func top32(t layout.Tail) uint64 {
	return t.Hi<<16 | t.Lo>>48
}

func TestMonotonic_AddFixedExampleScenario(t *testing.T) {
	t.Parallel()

	const now = 1700000000000
	src := testkit.NewSequenceSource(0x1234, 0xabcdef0123456789, 0x1111222233334444)
	m := newMonotonic(t, ulidConfig(AddFixed()), src)

	first, err := m.Advance(now)
	require.NoError(t, err)
	require.Equal(t, BranchReset, first.Branch)
	require.Equal(t, uint64(now), first.Timestamp)
	require.Equal(t, layout.Tail{Hi: 0x1234, Lo: 0xabcdef0123456789}, first.Tail)

	second, err := m.Advance(now)
	require.NoError(t, err)
	require.Equal(t, BranchIncrement, second.Branch)
	require.Equal(t, uint64(now), second.Timestamp)
	require.Equal(t, top32(first.Tail)+1, top32(second.Tail))
	require.Equal(t, uint64(0x222233334444), second.Tail.Lo&fixedRefillMask)
	require.Equal(t, layout.Tail{Hi: 0x1234, Lo: 0xabce222233334444}, second.Tail)
}

func TestMonotonic_AddFixedStrictlyIncreasingAtConstantTime(t *testing.T) {
	t.Parallel()

	const now = 1700000000000
	m := newMonotonic(t, ulidConfig(AddFixed()), entropy.NewSeeded(3))

	prev, err := m.Advance(now)
	require.NoError(t, err)

	for i := 0; i < 100_000; i++ {
		next, err := m.Advance(now)
		require.NoError(t, err)
		require.Equal(t, BranchIncrement, next.Branch)
		if comparePair(prev.Timestamp, prev.Tail, next.Timestamp, next.Tail) >= 0 {
			t.Fatalf("step %d not increasing: %+v then %+v", i, prev, next)
		}
		prev = next
	}

	reset, err := m.Advance(prev.Timestamp + 1)
	require.NoError(t, err)
	require.Equal(t, BranchReset, reset.Branch)
	require.Equal(t, prev.Timestamp+1, reset.Timestamp)
	require.NotEqual(t, prev.Tail.Lo&fixedRefillMask, reset.Tail.Lo&fixedRefillMask)
}

func TestMonotonic_ResetDrawsFreshTail(t *testing.T) {
	t.Parallel()

	src := testkit.NewSequenceSource(0xffff, 0xffffffffffffffff)
	m := newMonotonic(t, ulidConfig(AddOne()), src)

	_, err := m.Advance(100)
	require.NoError(t, err)

	src.Queue(0x0001, 0x42)
	tick, err := m.Advance(101)
	require.NoError(t, err)
	require.Equal(t, BranchReset, tick.Branch)
	require.Equal(t, layout.Tail{Hi: 0x0001, Lo: 0x42}, tick.Tail)
	require.Zero(t, tick.Lag)
}

func TestMonotonic_DriftTolerance(t *testing.T) {
	t.Parallel()

	const last = 1_000_000

	cases := []struct {
		name     string
		observed uint64
		want     Branch
	}{
		{name: "same tick", observed: last, want: BranchIncrement},
		{name: "small regression", observed: last - 1, want: BranchIncrement},
		{name: "regression at tolerance", observed: last - DefaultDriftTolerance, want: BranchIncrement},
		{name: "regression beyond tolerance", observed: last - DefaultDriftTolerance - 1, want: BranchReset},
		{name: "clock advanced", observed: last + 1, want: BranchReset},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := newMonotonic(t, ulidConfig(AddOne()), entropy.NewSeeded(9))
			first, err := m.Advance(last)
			require.NoError(t, err)

			tick, err := m.Advance(tc.observed)
			require.NoError(t, err)
			require.Equal(t, tc.want, tick.Branch)

			if tc.want == BranchIncrement {
				require.Equal(t, uint64(last), tick.Timestamp)
				require.Equal(t, uint64(last)-tc.observed, tick.Lag)
				require.Positive(t, comparePair(tick.Timestamp, tick.Tail, first.Timestamp, first.Tail))
			} else {
				require.Equal(t, tc.observed, tick.Timestamp)
			}
		})
	}
}

func TestMonotonic_AddOneDoesNotConsumeEntropy(t *testing.T) {
	t.Parallel()

	src := new(mockSource)
	src.On("Uint64").Return(uint64(7), nil).Twice()

	m := newMonotonic(t, ulidConfig(AddOne()), src)
	first, err := m.Advance(10)
	require.NoError(t, err)

	for i := uint64(1); i <= 5; i++ {
		tick, err := m.Advance(10)
		require.NoError(t, err)
		require.Equal(t, first.Tail.Lo+i, tick.Tail.Lo)
	}

	src.AssertNumberOfCalls(t, "Uint64", 2)
	src.AssertExpectations(t)
}

func TestMonotonic_AddRandomStepWithinBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bound := rapid.Uint64Range(1, 1<<20).Draw(t, "bound")
		words := rapid.SliceOfN(rapid.Uint64(), 1, 32).Draw(t, "words")

		src := testkit.NewSequenceSource(0, 0)
		src.Queue(words...)
		m, err := NewMonotonic(ulidConfig(AddRandom(bound)), src)
		if err != nil {
			t.Fatalf("NewMonotonic: %v", err)
		}

		prev, err := m.Advance(5)
		if err != nil {
			t.Fatalf("Advance: %v", err)
		}
		for range words {
			next, err := m.Advance(5)
			if err != nil {
				t.Fatalf("Advance: %v", err)
			}
			step := next.Tail.Lo - prev.Tail.Lo
			if step < 1 || step > bound {
				t.Fatalf("step %d outside [1, %d]", step, bound)
			}
			prev = next
		}
	})
}

func TestMonotonic_CarryAdvancesTimestamp(t *testing.T) {
	t.Parallel()

	src := testkit.NewSequenceSource(0xffff, 0xffffffffffffffff)
	m := newMonotonic(t, ulidConfig(AddOne()), src)

	_, err := m.Advance(500)
	require.NoError(t, err)

	tick, err := m.Advance(500)
	require.NoError(t, err)
	require.Equal(t, BranchIncrement, tick.Branch)
	require.Equal(t, uint64(501), tick.Timestamp)
	require.Equal(t, layout.Tail{}, tick.Tail)

	// The artificially advanced timestamp is now ahead of the clock; the
	// next call at the old time still increments rather than resetting.
	tick, err = m.Advance(500)
	require.NoError(t, err)
	require.Equal(t, uint64(501), tick.Timestamp)
	require.Equal(t, layout.Tail{Lo: 1}, tick.Tail)
}

func TestMonotonic_AddFixedCarry(t *testing.T) {
	t.Parallel()

	src := testkit.NewSequenceSource(0xffff, 0xffff000000000000, 0x00000000000000aa)
	m := newMonotonic(t, ulidConfig(AddFixed()), src)

	_, err := m.Advance(9)
	require.NoError(t, err)

	tick, err := m.Advance(9)
	require.NoError(t, err)
	require.Equal(t, uint64(10), tick.Timestamp)
	require.Equal(t, layout.Tail{Lo: 0xaa}, tick.Tail)
}

func TestMonotonic_TailExhaustedLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	cfg := ulidConfig(AddOne())
	cfg.Tolerance = 0
	src := testkit.NewSequenceSource(0xffff, 0xffffffffffffffff)
	m := newMonotonic(t, cfg, src)

	first, err := m.Advance(700)
	require.NoError(t, err)

	_, err = m.Advance(700)
	require.ErrorIs(t, err, ErrTailExhausted)
	require.Equal(t, first.Timestamp, m.LastTimestamp())
	require.Equal(t, first.Tail, m.Tail())

	src.Queue(0, 1)
	tick, err := m.Advance(701)
	require.NoError(t, err)
	require.Equal(t, BranchReset, tick.Branch)
	require.Equal(t, uint64(701), tick.Timestamp)
}

func TestMonotonic_TimestampFieldExhausted(t *testing.T) {
	t.Parallel()

	cfg := ulidConfig(AddOne())
	cfg.MaxTimestamp = 100
	m := newMonotonic(t, cfg, testkit.NewSequenceSource(0xffff, 0xffffffffffffffff))

	_, err := m.Advance(100)
	require.NoError(t, err)

	_, err = m.Advance(100)
	require.ErrorIs(t, err, ErrTailExhausted)

	_, err = m.Advance(101)
	require.ErrorIs(t, err, ErrTimestampOverflow)
}

func TestMonotonic_EntropyFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	boom := errors.New("entropy offline")
	src := new(mockSource)
	src.On("Uint64").Return(uint64(3), nil).Twice()
	src.On("Uint64").Return(uint64(0), boom)

	m := newMonotonic(t, ulidConfig(AddFixed()), src)
	first, err := m.Advance(10)
	require.NoError(t, err)

	_, err = m.Advance(10)
	require.ErrorIs(t, err, boom)
	require.Equal(t, first.Tail, m.Tail())

	_, err = m.Advance(11)
	require.ErrorIs(t, err, boom)
	require.Equal(t, uint64(10), m.LastTimestamp())
}

func TestNewMonotonic_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	src := entropy.NewSeeded(1)

	cfg := ulidConfig(AddOne())
	cfg.TailBits = 64
	_, err := NewMonotonic(cfg, src)
	require.ErrorIs(t, err, ErrInvalidWidth)

	cfg.TailBits = 129
	_, err = NewMonotonic(cfg, src)
	require.ErrorIs(t, err, ErrInvalidWidth)

	_, err = NewMonotonic(ulidConfig(AddRandom(0)), src)
	require.ErrorIs(t, err, ErrInvalidPolicy)

	cfg = ulidConfig(AddOne())
	cfg.MaxTimestamp = 0
	_, err = NewMonotonic(cfg, src)
	require.ErrorIs(t, err, ErrInvalidWidth)
}

func TestMonotonic_FullWidthTail(t *testing.T) {
	t.Parallel()

	cfg := ulidConfig(AddOne())
	cfg.TailBits = 128
	m := newMonotonic(t, cfg, testkit.NewSequenceSource(^uint64(0), ^uint64(0)))

	_, err := m.Advance(1)
	require.NoError(t, err)

	tick, err := m.Advance(1)
	require.NoError(t, err)
	require.Equal(t, uint64(2), tick.Timestamp)
	require.Equal(t, layout.Tail{}, tick.Tail)
}

// Whatever the clock does, a tick that did not reset is strictly greater
// than its predecessor, and a reset always adopts the observed timestamp.
func TestMonotonic_OrderingUnderClockJitter(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		policy := rapid.SampledFrom([]IncrementPolicy{AddFixed(), AddOne(), AddRandom(1 << 16)}).Draw(t, "policy")
		tolerance := rapid.Uint64Range(0, 50).Draw(t, "tolerance")
		seed := rapid.Uint64().Draw(t, "seed")
		steps := rapid.SliceOfN(rapid.Int64Range(-80, 80), 1, 200).Draw(t, "steps")

		cfg := ulidConfig(policy)
		cfg.Tolerance = tolerance
		m, err := NewMonotonic(cfg, entropy.NewSeeded(seed))
		if err != nil {
			t.Fatalf("NewMonotonic: %v", err)
		}

		observed := uint64(1_000_000)
		prev, err := m.Advance(observed)
		if err != nil {
			t.Fatalf("Advance: %v", err)
		}
		for _, step := range steps {
			observed = uint64(int64(observed) + step)
			next, err := m.Advance(observed)
			if errors.Is(err, ErrTailExhausted) {
				continue
			}
			if err != nil {
				t.Fatalf("Advance: %v", err)
			}
			switch next.Branch {
			case BranchIncrement:
				if comparePair(prev.Timestamp, prev.Tail, next.Timestamp, next.Tail) >= 0 {
					t.Fatalf("increment not ordered: %+v then %+v", prev, next)
				}
				if next.Timestamp-observed > tolerance {
					t.Fatalf("timestamp %d ran more than %d ahead of clock %d", next.Timestamp, tolerance, observed)
				}
			case BranchReset:
				if next.Timestamp != observed {
					t.Fatalf("reset timestamp %d != observed %d", next.Timestamp, observed)
				}
			default:
				t.Fatalf("unexpected branch %s", next.Branch)
			}
			prev = next
		}
	})
}
