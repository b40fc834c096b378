package decoder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "stopped", StateStopped.String())
	require.Equal(t, "paused_ready", StatePausedReady.String())
	require.Equal(t, "playing", StatePlaying.String())
	require.Equal(t, "unknown(42)", State(42).String())
}

func TestResumeRequiresPausedReady(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := New(Config{})
	require.Error(t, d.Resume(ctx))
}

func TestResumeFreshContent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := New(Config{})
	d.state = StatePausedReady
	d.pausedReadyAt.Store(time.Now())

	require.NoError(t, d.Resume(ctx))
	require.Equal(t, StatePlaying, d.State(ctx))
	// fresh content is presented as-is, no re-seek
	require.Equal(t, int64(noSeekRequested), d.seekToUS.Load())
}

func TestResumeStaleContentReseeks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := New(Config{})
	d.state = StatePausedReady
	d.pausedReadyAt.Store(time.Now().Add(-2 * pausedReadyMaxAge))
	d.clock.Reset(ctx, 5_000_000)

	require.NoError(t, d.Resume(ctx))
	require.Equal(t, StatePlaying, d.State(ctx))
	require.Equal(t, int64(5_000_000), d.seekToUS.Load())
	require.False(t, d.clock.IsArmed(ctx))
}

func TestPauseRequiresPlaying(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := New(Config{})
	require.Error(t, d.Pause(ctx))

	d.state = StatePlaying
	require.NoError(t, d.Pause(ctx))
	require.Equal(t, StatePausedReady, d.State(ctx))

	// an immediate resume presents the staged frames without a re-seek
	require.NoError(t, d.Resume(ctx))
	require.Equal(t, StatePlaying, d.State(ctx))
	require.Equal(t, int64(noSeekRequested), d.seekToUS.Load())
}

func TestStopWorkersUnblocksBufferWaiters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := New(Config{})

	peeked := make(chan bool)
	go func() {
		_, ok := d.buffer.Peek()
		peeked <- ok
	}()
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	d.StopWorkers(ctx)
	select {
	case ok := <-peeked:
		require.False(t, ok)
	case <-time.After(workersJoinTimeout):
		t.Fatal("a buffer waiter survived the stop")
	}
	// the wake-up is immediate, not an escalation after a join timeout
	require.Less(t, time.Since(start), workersJoinTimeout)
}
