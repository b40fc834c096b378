// Package pixconv provides the pixel-format conversion kernels used on the
// hot decode path: planar YUV 4:2:0 to interleaved BGRA, stride-aware NV12
// plane copies and the P010 (10-bit) to NV12 (8-bit) down-shift.
//
// Each conversion exists in a generic, guaranteed-correct form and in a wide
// form tuned for CPUs with large vector units; the implementation is selected
// once at startup from runtime CPU capability and never changes afterwards.
package pixconv

import (
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// YUV420ToBGRAFunc converts planar 8-bit YUV 4:2:0 into interleaved BGRA.
// It is only valid for 1:1 geometry (no scaling, no aspect correction).
type YUV420ToBGRAFunc func(
	y, u, v []byte,
	yStride, uStride, vStride int,
	dst []byte, dstStride int,
	width, height int,
)

// NV12CopyFunc copies NV12 luma and chroma planes into destination planes,
// honoring differing source/destination strides.
type NV12CopyFunc func(
	dstY, dstUV []byte,
	dstYStride, dstUVStride int,
	srcY, srcUV []byte,
	srcYStride, srcUVStride int,
	width, height int,
)

// p010ToNV12Func down-converts 10-bit P010 planes (16-bit little-endian
// words) into 8-bit NV12 planes.
type p010ToNV12Func func(
	dstY, dstUV []byte,
	dstYStride, dstUVStride int,
	srcY, srcUV []byte,
	srcYStride, srcUVStride int,
	width, height int,
)

// TailPadding is the number of spare bytes callers must leave after plane
// buffers so the wide kernels may load a full vector at the tail.
const TailPadding = 64

var (
	selectOnce sync.Once

	selectedYUV420ToBGRA YUV420ToBGRAFunc
	selectedNV12Copy     NV12CopyFunc
	selectedP010ToNV12   p010ToNV12Func
	selectedName         string
)

func selectKernels() {
	switch {
	case cpuid.CPU.Supports(cpuid.AVX2):
		selectedName = "wide/avx2-class"
		selectedYUV420ToBGRA = yuv420ToBGRAWide
		selectedNV12Copy = nv12CopyWide
		selectedP010ToNV12 = p010ToNV12Wide
	case cpuid.CPU.Supports(cpuid.SSE4):
		selectedName = "wide/sse4-class"
		selectedYUV420ToBGRA = yuv420ToBGRAWide
		selectedNV12Copy = nv12CopyWide
		selectedP010ToNV12 = p010ToNV12Generic
	default:
		selectedName = "generic"
		selectedYUV420ToBGRA = yuv420ToBGRAGeneric
		selectedNV12Copy = nv12CopyGeneric
		selectedP010ToNV12 = p010ToNV12Generic
	}
}

// SelectedName reports which kernel set was picked, for diagnostics.
func SelectedName() string {
	selectOnce.Do(selectKernels)
	return selectedName
}

// BestYUV420ToBGRA returns the YUV420P-to-BGRA kernel for this CPU.
func BestYUV420ToBGRA() YUV420ToBGRAFunc {
	selectOnce.Do(selectKernels)
	return selectedYUV420ToBGRA
}

// BestNV12Copy returns the NV12 plane-copy kernel for this CPU.
func BestNV12Copy() NV12CopyFunc {
	selectOnce.Do(selectKernels)
	return selectedNV12Copy
}

// bestP010ToNV12 returns the P010-to-NV12 down-shift kernel for this CPU.
// Only the in-package tests exercise the selection directly; the conversion
// stage reaches hardware 10-bit output over the libswscale reducer instead.
func bestP010ToNV12() p010ToNV12Func {
	selectOnce.Do(selectKernels)
	return selectedP010ToNV12
}
