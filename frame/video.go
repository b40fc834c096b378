package frame

import (
	"fmt"
	"time"

	"github.com/asticode/go-astiav"
)

// Video is the descriptor handed to the host video callback. Planes and
// Strides are views into the slot's active representation; the host must not
// retain them past the callback (the slot is recycled immediately after).
type Video struct {
	Width       int
	Height      int
	PixelFormat astiav.PixelFormat
	ColorRange  astiav.ColorRange
	Planes      [][]byte
	Strides     []int

	// Reference is non-nil on the zero-copy path; hosts that can consume
	// decoder-owned frames directly should prefer it over Planes.
	Reference *astiav.Frame

	PTSUS     int64
	Timestamp time.Time
}

func (v *Video) String() string {
	return fmt.Sprintf("VideoFrame(%dx%d %s pts=%dus)", v.Width, v.Height, v.PixelFormat, v.PTSUS)
}

// Audio is the descriptor handed to the host audio callback: planar float
// stereo, delivered immediately from the decode worker (audio is never staged
// in the frame buffer).
type Audio struct {
	Planes     [][]byte
	NbSamples  int
	SampleRate int
	Channels   int

	PTSUS     int64
	Timestamp time.Time
}

func (a *Audio) String() string {
	return fmt.Sprintf("AudioChunk(%d samples @%dHz pts=%dus)", a.NbSamples, a.SampleRate, a.PTSUS)
}
