package testkit_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/idtheory/testkit"
)

func TestEnvDeterministicTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	env := testkit.NewWithTime(now)
	require.Equal(t, now, env.Clock.Now())

	require.Equal(t, now.Add(time.Second), env.Clock.Advance(time.Second))
	env.Clock.SetMillis(1700000000000)
	require.Equal(t, int64(1700000000000), env.Clock.Now().UnixMilli())

	require.Equal(t, int64(42), testkit.FixedMillis(42).Now().UnixMilli())
	require.Equal(t, time.Unix(0, 0).UTC(), testkit.New().Clock.Now())
}

func TestSequenceSource_QueueThenFallback(t *testing.T) {
	t.Parallel()

	src := testkit.NewSequenceSource(1, 2)
	src.Queue(3)
	src.SetFallback(9)

	for _, want := range []uint64{1, 2, 3, 9, 9} {
		got, err := src.Uint64()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	require.Equal(t, 5, src.Draws())

	buf := make([]byte, 10)
	n, err := testkit.NewSequenceSource(0x0102030405060708, 0x0a0b000000000000).Read(buf)
	require.NoError(t, err)
	require.Equal(t, 10, n)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 0x0a, 0x0b}, buf)
}

func TestFailingSource(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	src := testkit.FailingSource{Err: boom}
	_, err := src.Uint64()
	require.ErrorIs(t, err, boom)
	_, err = src.Read(make([]byte, 1))
	require.ErrorIs(t, err, boom)
}
