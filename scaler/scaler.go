// Package scaler wraps libswscale contexts behind a small interface so the
// conversion stage can hold general scalers and the dedicated 10-bit
// down-converter behind one type.
package scaler

import (
	"context"
	"fmt"

	"github.com/asticode/go-astiav"
)

type Resolution struct {
	Width  uint32
	Height uint32
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

type Scaler interface {
	fmt.Stringer
	Close(context.Context) error
	ScaleFrame(ctx context.Context, src *astiav.Frame, dst *astiav.Frame) error
	SourceResolution() Resolution
	SourcePixelFormat() astiav.PixelFormat
	DestinationResolution() Resolution
	DestinationPixelFormat() astiav.PixelFormat
}

// Matches reports whether the scaler already handles the given geometry and
// formats; used by the conversion stage to decide whether a cached context
// can be reused or must be rebuilt.
func Matches(
	s Scaler,
	src Resolution,
	srcPixFmt astiav.PixelFormat,
	dst Resolution,
	dstPixFmt astiav.PixelFormat,
) bool {
	if s == nil {
		return false
	}
	return s.SourceResolution() == src &&
		s.SourcePixelFormat() == srcPixFmt &&
		s.DestinationResolution() == dst &&
		s.DestinationPixelFormat() == dstPixFmt
}
