package decoder

import (
	"testing"

	"github.com/asticode/go-astiav"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avplayback/scaler"
)

func TestDisplayResolution(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name     string
		width    int
		height   int
		sar      astiav.Rational
		expected scaler.Resolution
	}{
		{
			name:     "SquarePixels",
			width:    1920,
			height:   1080,
			sar:      astiav.NewRational(1, 1),
			expected: scaler.Resolution{Width: 1920, Height: 1080},
		},
		{
			name:     "UnsetSAR",
			width:    1280,
			height:   720,
			sar:      astiav.NewRational(0, 1),
			expected: scaler.Resolution{Width: 1280, Height: 720},
		},
		{
			name:  "AnamorphicDVD",
			width: 720, height: 576,
			// PAL 16:9: 720*64/45 = 1024
			sar:      astiav.NewRational(64, 45),
			expected: scaler.Resolution{Width: 1024, Height: 576},
		},
		{
			name:  "NarrowingSAR",
			width: 1440, height: 1080,
			sar:      astiav.NewRational(3, 4),
			expected: scaler.Resolution{Width: 1080, Height: 1080},
		},
		{
			name:  "ExtremeRatioIgnored",
			width: 1920, height: 1080,
			sar:      astiav.NewRational(100, 1),
			expected: scaler.Resolution{Width: 1920, Height: 1080},
		},
		{
			name:  "OddDimensionsRoundedDown",
			width: 853, height: 481,
			sar:      astiav.NewRational(1, 1),
			expected: scaler.Resolution{Width: 852, Height: 480},
		},
		{
			name:  "OddStretchedWidthRoundedDown",
			width: 701, height: 480,
			sar:      astiav.NewRational(3, 2),
			expected: scaler.Resolution{Width: 1052, Height: 480},
		},
		{
			name:  "InvalidGeometry",
			width: 0, height: 1080,
			sar:      astiav.NewRational(1, 1),
			expected: scaler.Resolution{},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.expected, displayResolution(tc.width, tc.height, tc.sar))
		})
	}
}
