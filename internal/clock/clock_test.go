package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRealSleepHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Real{}.Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)
}

func TestRealSleepZeroReturnsImmediately(t *testing.T) {
	require.NoError(t, Real{}.Sleep(context.Background(), 0))
	require.NoError(t, Real{}.Sleep(context.Background(), time.Millisecond))
}

func TestFakeAdvancesOnSleep(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	fake := NewFake(start)

	require.NoError(t, fake.Sleep(context.Background(), 2*time.Second))
	require.NoError(t, fake.Sleep(context.Background(), -time.Second))
	require.Equal(t, start.Add(2*time.Second), fake.Now())
	require.Equal(t, 2*time.Second, fake.Slept())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, fake.Sleep(ctx, time.Second), context.Canceled)
	require.Equal(t, 2*time.Second, fake.Slept())
}
