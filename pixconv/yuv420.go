package pixconv

// BT.601 limited-range integer coefficients, 8-bit fixed point:
//
//	R = (298*(Y-16)           + 409*(V-128) + 128) >> 8
//	G = (298*(Y-16) - 100*(U-128) - 208*(V-128) + 128) >> 8
//	B = (298*(Y-16) + 516*(U-128)            + 128) >> 8

func clamp8(v int32) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

func yuv420ToBGRAGeneric(
	y, u, v []byte,
	yStride, uStride, vStride int,
	dst []byte, dstStride int,
	width, height int,
) {
	for row := 0; row < height; row++ {
		yRow := y[row*yStride:]
		uRow := u[(row/2)*uStride:]
		vRow := v[(row/2)*vStride:]
		dstRow := dst[row*dstStride:]
		for col := 0; col < width; col++ {
			c := int32(yRow[col]) - 16
			d := int32(uRow[col/2]) - 128
			e := int32(vRow[col/2]) - 128

			o := col * 4
			dstRow[o+0] = clamp8((298*c + 516*d + 128) >> 8) // B
			dstRow[o+1] = clamp8((298*c - 100*d - 208*e + 128) >> 8)
			dstRow[o+2] = clamp8((298*c + 409*e + 128) >> 8) // R
			dstRow[o+3] = 0xFF
		}
	}
}

// yuv420ToBGRAWide processes two luma rows per chroma row so every chroma
// sample is loaded once, and converts pixels in pairs. The arithmetic is
// identical to the generic kernel.
func yuv420ToBGRAWide(
	y, u, v []byte,
	yStride, uStride, vStride int,
	dst []byte, dstStride int,
	width, height int,
) {
	if height%2 != 0 {
		yuv420ToBGRAGeneric(y, u, v, yStride, uStride, vStride, dst, dstStride, width, height)
		return
	}
	for row := 0; row < height; row += 2 {
		yRow0 := y[row*yStride:]
		yRow1 := y[(row+1)*yStride:]
		uRow := u[(row/2)*uStride:]
		vRow := v[(row/2)*vStride:]
		dstRow0 := dst[row*dstStride:]
		dstRow1 := dst[(row+1)*dstStride:]

		col := 0
		for ; col+1 < width; col += 2 {
			d := int32(uRow[col/2]) - 128
			e := int32(vRow[col/2]) - 128
			bBias := 516*d + 128
			gBias := -100*d - 208*e + 128
			rBias := 409*e + 128

			for i := 0; i < 2; i++ {
				o := (col + i) * 4
				c0 := 298 * (int32(yRow0[col+i]) - 16)
				dstRow0[o+0] = clamp8((c0 + bBias) >> 8)
				dstRow0[o+1] = clamp8((c0 + gBias) >> 8)
				dstRow0[o+2] = clamp8((c0 + rBias) >> 8)
				dstRow0[o+3] = 0xFF
				c1 := 298 * (int32(yRow1[col+i]) - 16)
				dstRow1[o+0] = clamp8((c1 + bBias) >> 8)
				dstRow1[o+1] = clamp8((c1 + gBias) >> 8)
				dstRow1[o+2] = clamp8((c1 + rBias) >> 8)
				dstRow1[o+3] = 0xFF
			}
		}
		for ; col < width; col++ {
			d := int32(uRow[col/2]) - 128
			e := int32(vRow[col/2]) - 128
			o := col * 4
			c0 := 298 * (int32(yRow0[col]) - 16)
			dstRow0[o+0] = clamp8((c0 + 516*d + 128) >> 8)
			dstRow0[o+1] = clamp8((c0 - 100*d - 208*e + 128) >> 8)
			dstRow0[o+2] = clamp8((c0 + 409*e + 128) >> 8)
			dstRow0[o+3] = 0xFF
			c1 := 298 * (int32(yRow1[col]) - 16)
			dstRow1[o+0] = clamp8((c1 + 516*d + 128) >> 8)
			dstRow1[o+1] = clamp8((c1 - 100*d - 208*e + 128) >> 8)
			dstRow1[o+2] = clamp8((c1 + 409*e + 128) >> 8)
			dstRow1[o+3] = 0xFF
		}
	}
}
