package pixconv

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomPlane(rng *rand.Rand, size int) []byte {
	p := make([]byte, size+TailPadding)
	for i := 0; i < size; i++ {
		p[i] = byte(rng.Intn(256))
	}
	return p
}

func TestSelectedKernelsAreSet(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, SelectedName())
	require.NotNil(t, BestYUV420ToBGRA())
	require.NotNil(t, BestNV12Copy())
	require.NotNil(t, bestP010ToNV12())
}

func TestYUV420ToBGRAWideMatchesGeneric(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	for _, geometry := range []struct {
		width, height int
	}{
		{16, 16},
		{64, 32},
		{2, 2},
		{18, 10},  // width not a vector multiple
		{17, 8},   // odd width
		{32, 7},   // odd height falls back internally
		{640, 36}, // padded strides below
	} {
		width, height := geometry.width, geometry.height
		yStride := width + 16
		cStride := (width+1)/2 + 8
		dstStride := width * 4

		y := randomPlane(rng, yStride*height)
		u := randomPlane(rng, cStride*(height+1)/2)
		v := randomPlane(rng, cStride*(height+1)/2)

		expected := make([]byte, dstStride*height+TailPadding)
		actual := make([]byte, dstStride*height+TailPadding)

		yuv420ToBGRAGeneric(y, u, v, yStride, cStride, cStride, expected, dstStride, width, height)
		yuv420ToBGRAWide(y, u, v, yStride, cStride, cStride, actual, dstStride, width, height)
		require.Equal(t, expected, actual, "geometry %dx%d", width, height)
	}
}

func TestYUV420ToBGRAKnownColors(t *testing.T) {
	t.Parallel()

	// a single 2x2 block of limited-range black (Y=16, U=V=128)
	y := make([]byte, 4+TailPadding)
	for i := 0; i < 4; i++ {
		y[i] = 16
	}
	u := append([]byte{128}, make([]byte, TailPadding)...)
	v := append([]byte{128}, make([]byte, TailPadding)...)
	dst := make([]byte, 2*2*4+TailPadding)

	BestYUV420ToBGRA()(y, u, v, 2, 1, 1, dst, 8, 2, 2)
	for px := 0; px < 4; px++ {
		o := px * 4
		require.Equal(t, byte(0), dst[o+0])
		require.Equal(t, byte(0), dst[o+1])
		require.Equal(t, byte(0), dst[o+2])
		require.Equal(t, byte(0xFF), dst[o+3])
	}

	// limited-range white (Y=235) maps to full-range 255
	for i := 0; i < 4; i++ {
		y[i] = 235
	}
	BestYUV420ToBGRA()(y, u, v, 2, 1, 1, dst, 8, 2, 2)
	require.Equal(t, byte(255), dst[0])
	require.Equal(t, byte(255), dst[1])
	require.Equal(t, byte(255), dst[2])
}

func TestNV12CopyWideMatchesGeneric(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(2))
	for _, geometry := range []struct {
		width, height, srcPad, dstPad int
	}{
		{32, 16, 0, 0},  // tight strides, bulk path
		{32, 16, 8, 0},  // padded source
		{32, 16, 0, 8},  // padded destination
		{30, 15, 6, 10}, // odd height, both padded
	} {
		width, height := geometry.width, geometry.height
		srcStride := width + geometry.srcPad
		dstStride := width + geometry.dstPad
		chromaHeight := (height + 1) / 2

		srcY := randomPlane(rng, srcStride*height)
		srcUV := randomPlane(rng, srcStride*chromaHeight)

		expectedY := make([]byte, dstStride*height+TailPadding)
		expectedUV := make([]byte, dstStride*chromaHeight+TailPadding)
		actualY := make([]byte, dstStride*height+TailPadding)
		actualUV := make([]byte, dstStride*chromaHeight+TailPadding)

		nv12CopyGeneric(expectedY, expectedUV, dstStride, dstStride, srcY, srcUV, srcStride, srcStride, width, height)
		nv12CopyWide(actualY, actualUV, dstStride, dstStride, srcY, srcUV, srcStride, srcStride, width, height)
		require.Equal(t, expectedY, actualY, "luma %dx%d", width, height)
		require.Equal(t, expectedUV, actualUV, "chroma %dx%d", width, height)
	}
}

func TestP010ToNV12WideMatchesGeneric(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(3))
	for _, geometry := range []struct {
		width, height int
	}{
		{32, 16},
		{24, 10},
		{7, 5}, // below the unroll width
		{33, 9},
	} {
		width, height := geometry.width, geometry.height
		srcStride := width*2 + 32
		dstStride := width + 8
		chromaHeight := (height + 1) / 2

		srcY := randomPlane(rng, srcStride*height)
		srcUV := randomPlane(rng, srcStride*chromaHeight)

		expectedY := make([]byte, dstStride*height+TailPadding)
		expectedUV := make([]byte, dstStride*chromaHeight+TailPadding)
		actualY := make([]byte, dstStride*height+TailPadding)
		actualUV := make([]byte, dstStride*chromaHeight+TailPadding)

		p010ToNV12Generic(expectedY, expectedUV, dstStride, dstStride, srcY, srcUV, srcStride, srcStride, width, height)
		p010ToNV12Wide(actualY, actualUV, dstStride, dstStride, srcY, srcUV, srcStride, srcStride, width, height)
		require.Equal(t, expectedY, actualY, "luma %dx%d", width, height)
		require.Equal(t, expectedUV, actualUV, "chroma %dx%d", width, height)
	}
}

func TestP010ToNV12TakesHighByte(t *testing.T) {
	t.Parallel()

	// a 10-bit sample of 0x3FF occupies the top bits of the 16-bit word,
	// so the high byte is the 8 significant bits
	srcY := make([]byte, 4*2+TailPadding)
	srcUV := make([]byte, 4*2+TailPadding)
	for i := 0; i < 4; i++ {
		srcY[i*2] = 0xC0
		srcY[i*2+1] = 0xFF
		srcUV[i*2] = 0x00
		srcUV[i*2+1] = 0x80
	}
	dstY := make([]byte, 4+TailPadding)
	dstUV := make([]byte, 4+TailPadding)

	bestP010ToNV12()(dstY, dstUV, 4, 4, srcY, srcUV, 8, 8, 4, 1)
	for i := 0; i < 4; i++ {
		require.Equal(t, byte(0xFF), dstY[i])
		require.Equal(t, byte(0x80), dstUV[i])
	}
}
