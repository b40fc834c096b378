package audio

import (
	"testing"

	"github.com/asticode/go-astiav"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avplayback/frame"
)

func newAudioFrame(
	t *testing.T,
	format astiav.SampleFormat,
	layout astiav.ChannelLayout,
	nbSamples int,
) *astiav.Frame {
	f := frame.Pool.Get()
	t.Cleanup(func() { frame.Pool.Put(f) })
	f.Unref()
	f.SetSampleFormat(format)
	f.SetSampleRate(48000)
	f.SetChannelLayout(layout)
	f.SetNbSamples(nbSamples)
	require.NoError(t, f.AllocBuffer(0))
	return f
}

func TestSamplesRoundtripPlanar(t *testing.T) {
	t.Parallel()

	f := newAudioFrame(t, astiav.SampleFormatFltp, astiav.ChannelLayoutStereo, 16)

	left := make([]float64, 16)
	right := make([]float64, 16)
	for i := range left {
		left[i] = float64(i) / 16
		right[i] = -float64(i) / 16
	}
	require.NoError(t, Fill(f, 0, left))
	require.NoError(t, Fill(f, 1, right))

	gotLeft, err := Samples(f, 0)
	require.NoError(t, err)
	gotRight, err := Samples(f, 1)
	require.NoError(t, err)

	for i := range left {
		require.InDelta(t, left[i], gotLeft[i], 1e-6)
		require.InDelta(t, right[i], gotRight[i], 1e-6)
	}
}

func TestSamplesRoundtripPacked(t *testing.T) {
	t.Parallel()

	f := newAudioFrame(t, astiav.SampleFormatS16, astiav.ChannelLayoutStereo, 8)

	left := []float64{0, 0.25, 0.5, 0.75, -0.25, -0.5, -0.75, 0.5}
	right := make([]float64, 8)
	require.NoError(t, Fill(f, 0, left))
	require.NoError(t, Fill(f, 1, right))

	gotLeft, err := Samples(f, 0)
	require.NoError(t, err)
	gotRight, err := Samples(f, 1)
	require.NoError(t, err)

	for i := range left {
		require.InDelta(t, left[i], gotLeft[i], 1e-3)
		require.InDelta(t, right[i], gotRight[i], 1e-3)
	}
}

func TestSamplesUnsupportedFormat(t *testing.T) {
	t.Parallel()

	f := newAudioFrame(t, astiav.SampleFormatU8, astiav.ChannelLayoutMono, 8)
	_, err := Samples(f, 0)
	require.ErrorContains(t, err, "unsupported sample format")
}

func TestPeak(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.0, Peak(nil))
	require.Equal(t, 0.75, Peak([]float64{0.1, -0.75, 0.5}))
	require.Equal(t, 1.0, Peak([]float64{-1.0, 0.25}))
}
