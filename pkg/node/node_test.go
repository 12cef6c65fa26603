package node

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/idtheory/pkg/entropy"
)

func TestNewFixed_RejectsWideValues(t *testing.T) {
	t.Parallel()

	f, err := NewFixed(0x9f6bdeced846)
	require.NoError(t, err)
	n, err := f.Node()
	require.NoError(t, err)
	require.Equal(t, uint64(0x9f6bdeced846), n)

	_, err = NewFixed(1 << 48)
	require.ErrorIs(t, err, ErrInvalidNode)
}

func TestNewRandom_SetsMulticastBit(t *testing.T) {
	t.Parallel()

	r, err := NewRandom(entropy.NewSeeded(7))
	require.NoError(t, err)

	n, err := r.Node()
	require.NoError(t, err)
	require.LessOrEqual(t, n, uint64(Mask))
	require.NotZero(t, n&multicastBit)

	again, _ := r.Node()
	require.Equal(t, n, again)
}

func TestNewRandom_PropagatesSourceError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := NewRandom(entropy.FromReader(errReader{err: boom}))
	require.ErrorIs(t, err, boom)
}

type errReader struct{ err error }

func (e errReader) Read(_ []byte) (int, error) { return 0, e.err }

func TestHardware_ReturnsStable48BitValue(t *testing.T) {
	t.Parallel()

	a, err := Hardware{}.Node()
	require.NoError(t, err)
	b, err := Hardware{}.Node()
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.LessOrEqual(t, a, uint64(Mask))
}

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want uint64
		ok   bool
	}{
		{in: "9f:6b:de:ce:d8:46", want: 0x9f6bdeced846, ok: true},
		{in: "9F-6B-DE-CE-D8-46", want: 0x9f6bdeced846, ok: true},
		{in: "0x9f6bdeced846", want: 0x9f6bdeced846, ok: true},
		{in: "01", want: 1, ok: true},
		{in: "1234567890abc", ok: false},
		{in: "00:00:5e:00:53:00:00:01", ok: false},
		{in: "nope", ok: false},
		{in: "", ok: false},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if !tc.ok {
			require.ErrorIs(t, err, ErrInvalidNode, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, uint64(got), tc.in)
	}
}
