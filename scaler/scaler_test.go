package scaler

import (
	"context"
	"testing"

	"github.com/asticode/go-astiav"
	"github.com/stretchr/testify/require"
)

func TestResolutionString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "1920x1080", Resolution{Width: 1920, Height: 1080}.String())
}

func TestMatches(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := Resolution{Width: 1920, Height: 1080}
	dst := Resolution{Width: 1280, Height: 720}

	s, err := NewSoftware(
		ctx,
		src, astiav.PixelFormatYuv420P,
		dst, astiav.PixelFormatBgra,
		astiav.SoftwareScaleContextFlagBilinear,
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close(ctx)) })

	require.True(t, Matches(s, src, astiav.PixelFormatYuv420P, dst, astiav.PixelFormatBgra))
	require.False(t, Matches(s, dst, astiav.PixelFormatYuv420P, dst, astiav.PixelFormatBgra))
	require.False(t, Matches(s, src, astiav.PixelFormatNv12, dst, astiav.PixelFormatBgra))
	require.False(t, Matches(nil, src, astiav.PixelFormatYuv420P, dst, astiav.PixelFormatBgra))
}
