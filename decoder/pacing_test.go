package decoder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPaceDecision(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name     string
		delay    time.Duration
		expected paceAction
	}{
		{"WayLate", -2 * time.Second, paceDrop},
		{"JustPastDropThreshold", -dropThreshold - time.Millisecond, paceDrop},
		{"AtDropThreshold", -dropThreshold, paceDeliver},
		{"SlightlyLate", -100 * time.Millisecond, paceDeliver},
		{"OnTime", 0, paceDeliver},
		{"WithinDeliverWindow", deliverWindow, paceDeliver},
		{"JustPastDeliverWindow", deliverWindow + time.Millisecond, paceYield},
		{"InsideFineWindow", fineSleepOver, paceSleepFine},
		{"BelowCoarseWindow", coarseSleepOver - time.Millisecond, paceSleepFine},
		{"AtCoarseWindow", coarseSleepOver, paceSleepCoarse},
		{"FarAhead", time.Second, paceSleepCoarse},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.expected, paceDecision(tc.delay))
		})
	}
}
