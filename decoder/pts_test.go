package decoder

import (
	"math"
	"testing"

	"github.com/asticode/go-astiav"
	"github.com/stretchr/testify/require"
)

func TestResolvePTSUS(t *testing.T) {
	t.Parallel()

	tb := astiav.NewRational(1, 90000)
	require.Equal(t, int64(1_000_000), resolvePTSUS(90000, tb, 0, 0))

	// a frame with no timestamp extrapolates from the previous one
	noPTS := int64(math.MinInt64)
	require.Equal(t, int64(1_033_333), resolvePTSUS(noPTS, tb, 1_000_000, 33_333))

	// consecutive timestamp-less frames keep stepping forward
	require.Equal(t, int64(1_066_666), resolvePTSUS(noPTS, tb, 1_033_333, 33_333))

	// a real timestamp takes over again
	require.Equal(t, int64(2_000_000), resolvePTSUS(180000, tb, 1_066_666, 33_333))
}
