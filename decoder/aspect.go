package decoder

import (
	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avplayback/scaler"
)

// aspectRatioClamp rejects sample aspect ratios that would stretch the image
// by more than 4x in either direction; such values are container damage, not
// anamorphic content.
const aspectRatioClamp = 4.0

// displayResolution converts coded geometry plus the sample aspect ratio
// into square-pixel display geometry: anamorphic content gets its width
// stretched to the display aspect ratio, everything else passes through.
// Dimensions are rounded down to even values for the 4:2:0 chroma grid.
func displayResolution(
	width, height int,
	sar astiav.Rational,
) scaler.Resolution {
	if width <= 0 || height <= 0 {
		return scaler.Resolution{}
	}

	out := scaler.Resolution{
		Width:  uint32(width &^ 1),
		Height: uint32(height &^ 1),
	}

	if sar.Num() <= 0 || sar.Den() <= 0 || sar.Num() == sar.Den() {
		return out
	}
	ratio := sar.Float64()
	if ratio > aspectRatioClamp || ratio < 1/aspectRatioClamp {
		return out
	}

	displayWidth := int(float64(width)*ratio + 0.5)
	out.Width = uint32(displayWidth &^ 1)
	return out
}
