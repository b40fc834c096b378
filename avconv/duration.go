// Package avconv provides conversion utilities between libav timestamps,
// microseconds and time.Duration.
package avconv

import (
	"math"
	"time"

	"github.com/asticode/go-astiav"
)

const (
	// see https://ffmpeg.org/doxygen/trunk/group__lavu__time.html#ga2eaefe702f95f619ea6f2d08afa01be1
	avNoPTSValue = uint64(0x8000000000000000)
)

const (
	noDuration = time.Duration(math.MinInt64)
)

// NoPTS reports whether t is libav's AV_NOPTS_VALUE sentinel.
func NoPTS(t int64) bool {
	return uint64(t) == avNoPTSValue
}

// Duration converts a timestamp in the given time base to a time.Duration.
func Duration(t int64, timeBase astiav.Rational) time.Duration {
	if NoPTS(t) {
		return noDuration
	}

	return time.Duration(float64(t) * timeBase.Float64() * float64(time.Second))
}

// FromDuration converts a time.Duration to a timestamp in the given time base.
func FromDuration(d time.Duration, timeBase astiav.Rational) int64 {
	if d == noDuration {
		return math.MinInt64 // equivalent to avNoPTSValue
	}

	return int64(d.Seconds() / timeBase.Float64())
}

// Microseconds converts a timestamp in the given time base to microseconds
// (the media-time unit used throughout this project). It returns math.MinInt64
// when t carries no timestamp.
func Microseconds(t int64, timeBase astiav.Rational) int64 {
	if NoPTS(t) {
		return math.MinInt64
	}

	return int64(float64(t) * timeBase.Float64() * 1e6)
}

// FromMicroseconds converts microseconds to a timestamp in the given time base.
func FromMicroseconds(us int64, timeBase astiav.Rational) int64 {
	return int64(float64(us) / 1e6 / timeBase.Float64())
}
