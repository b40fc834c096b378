package pixconv

func nv12CopyGeneric(
	dstY, dstUV []byte,
	dstYStride, dstUVStride int,
	srcY, srcUV []byte,
	srcYStride, srcUVStride int,
	width, height int,
) {
	for row := 0; row < height; row++ {
		copy(dstY[row*dstYStride:row*dstYStride+width], srcY[row*srcYStride:])
	}
	chromaHeight := (height + 1) / 2
	for row := 0; row < chromaHeight; row++ {
		copy(dstUV[row*dstUVStride:row*dstUVStride+width], srcUV[row*srcUVStride:])
	}
}

// nv12CopyWide collapses the row loop into single bulk copies when source
// and destination strides coincide with the row width.
func nv12CopyWide(
	dstY, dstUV []byte,
	dstYStride, dstUVStride int,
	srcY, srcUV []byte,
	srcYStride, srcUVStride int,
	width, height int,
) {
	chromaHeight := (height + 1) / 2
	if dstYStride == srcYStride && dstYStride == width {
		copy(dstY[:width*height], srcY)
	} else {
		for row := 0; row < height; row++ {
			copy(dstY[row*dstYStride:row*dstYStride+width], srcY[row*srcYStride:])
		}
	}
	if dstUVStride == srcUVStride && dstUVStride == width {
		copy(dstUV[:width*chromaHeight], srcUV)
	} else {
		for row := 0; row < chromaHeight; row++ {
			copy(dstUV[row*dstUVStride:row*dstUVStride+width], srcUV[row*srcUVStride:])
		}
	}
}
