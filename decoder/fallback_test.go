package decoder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoteTransferFailureLatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := &Decoder{}

	for i := 0; i < hwTransferFailureLimit; i++ {
		require.False(t, d.noteTransferFailure(ctx))
		require.False(t, d.softwareFallback.Load())
	}

	// the failure past the limit latches the fallback exactly once
	require.True(t, d.noteTransferFailure(ctx))
	require.True(t, d.softwareFallback.Load())

	require.False(t, d.noteTransferFailure(ctx))
	require.True(t, d.softwareFallback.Load())

	require.Equal(t, uint64(hwTransferFailureLimit+2), d.Stats.HWTransferFailures.Load())
}

func TestNoteTransferFailureStreakResets(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := &Decoder{}

	for i := 0; i < hwTransferFailureLimit; i++ {
		require.False(t, d.noteTransferFailure(ctx))
	}

	// a successful transfer breaks the streak
	d.hwTransferFailStreak = 0

	for i := 0; i < hwTransferFailureLimit; i++ {
		require.False(t, d.noteTransferFailure(ctx))
	}
	require.False(t, d.softwareFallback.Load())
}
