package pixconv

// P010 stores 10-bit samples in the upper bits of 16-bit little-endian
// words, so the 8 significant bits live entirely in the high byte.

func p010ToNV12Generic(
	dstY, dstUV []byte,
	dstYStride, dstUVStride int,
	srcY, srcUV []byte,
	srcYStride, srcUVStride int,
	width, height int,
) {
	for row := 0; row < height; row++ {
		src := srcY[row*srcYStride:]
		dst := dstY[row*dstYStride:]
		for col := 0; col < width; col++ {
			dst[col] = src[col*2+1]
		}
	}
	chromaHeight := (height + 1) / 2
	for row := 0; row < chromaHeight; row++ {
		src := srcUV[row*srcUVStride:]
		dst := dstUV[row*dstUVStride:]
		for col := 0; col < width; col++ {
			dst[col] = src[col*2+1]
		}
	}
}

// p010ToNV12Wide unrolls the high-byte gather by eight samples per step.
func p010ToNV12Wide(
	dstY, dstUV []byte,
	dstYStride, dstUVStride int,
	srcY, srcUV []byte,
	srcYStride, srcUVStride int,
	width, height int,
) {
	gatherRow := func(dst, src []byte, width int) {
		col := 0
		for ; col+8 <= width; col += 8 {
			s := src[col*2 : col*2+16]
			d := dst[col : col+8]
			d[0] = s[1]
			d[1] = s[3]
			d[2] = s[5]
			d[3] = s[7]
			d[4] = s[9]
			d[5] = s[11]
			d[6] = s[13]
			d[7] = s[15]
		}
		for ; col < width; col++ {
			dst[col] = src[col*2+1]
		}
	}
	for row := 0; row < height; row++ {
		gatherRow(dstY[row*dstYStride:], srcY[row*srcYStride:], width)
	}
	chromaHeight := (height + 1) / 2
	for row := 0; row < chromaHeight; row++ {
		gatherRow(dstUV[row*dstUVStride:], srcUV[row*srcUVStride:], width)
	}
}
