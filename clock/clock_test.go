package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockTargetTime(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New()
	wall := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return wall }

	_, armed := c.TargetTime(ctx, 0)
	require.False(t, armed)

	c.Reset(ctx, 1_000_000)

	target, armed := c.TargetTime(ctx, 1_000_000)
	require.True(t, armed)
	require.Equal(t, wall, target)

	target, _ = c.TargetTime(ctx, 1_500_000)
	require.Equal(t, wall.Add(500*time.Millisecond), target)

	// timestamps before the anchor map to the past
	target, _ = c.TargetTime(ctx, 900_000)
	require.Equal(t, wall.Add(-100*time.Millisecond), target)
}

func TestClockPlaybackRate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New()
	wall := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return wall }

	c.SetPlaybackRate(ctx, 2.0)
	c.Reset(ctx, 0)

	// at 2x a frame one media-second in is due half a wall-second in
	target, armed := c.TargetTime(ctx, 1_000_000)
	require.True(t, armed)
	require.Equal(t, wall.Add(500*time.Millisecond), target)
}

func TestClockDisarmAndRearm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New()
	wall := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return wall }

	c.Reset(ctx, 0)
	require.True(t, c.IsArmed(ctx))

	c.Disarm(ctx)
	require.False(t, c.IsArmed(ctx))
	_, armed := c.TargetTime(ctx, 0)
	require.False(t, armed)

	wall = wall.Add(10 * time.Second)
	c.Reset(ctx, 60_000_000)
	target, armed := c.TargetTime(ctx, 60_000_000)
	require.True(t, armed)
	require.Equal(t, wall, target)
}

func TestClockLastPTS(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New()
	c.Reset(ctx, 5_000_000)
	require.Equal(t, int64(5_000_000), c.LastPTS(ctx))

	c.Update(ctx, 7_000_000)
	require.Equal(t, int64(7_000_000), c.LastPTS(ctx))
}
